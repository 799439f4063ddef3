package service

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

const dateLayout = "2006-01-02"

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// lookupError maps a repository read error to NOT_FOUND or INTERNAL.
func lookupError(err error, what string) error {
	if isNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Internal(err, "failed to load "+what)
}

func parseDate(raw, field string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Validation(err, field+" must be a YYYY-MM-DD date")
	}
	return parsed, nil
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
