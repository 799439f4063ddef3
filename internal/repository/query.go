package repository

import (
	"fmt"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// whereBuilder accumulates AND conditions with positional placeholders.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends a condition; every "?" in clause is replaced by the next
// placeholder bound to value.
func (w *whereBuilder) add(clause string, value interface{}) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " AND " + strings.Join(w.conditions, " AND ")
}

func pageWindow(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

func sortClause(allowed map[string]string, sortBy, fallback, order, defaultOrder string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[fallback]
	}
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		order = defaultOrder
	}
	return column + " " + order
}
