package service

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/noah-isme/clubconnect-api/internal/models"
)

// Placeholders understood in broadcast subjects and bodies.
const (
	PlaceholderFirstName    = "{{first_name}}"
	PlaceholderLastName     = "{{last_name}}"
	PlaceholderDateToday    = "{{date_today}}"
	PlaceholderCoverDetails = "{{cover_details}}"
)

const noUpcomingCovers = "No upcoming covers."

var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderBodyHTML converts the stored body to HTML. Raw HTML inside markdown
// is dropped by goldmark's default renderer.
func renderBodyHTML(body string, format models.BodyFormat) (string, error) {
	if format != models.BodyFormatMarkdown {
		return body, nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// personalization carries the per-recipient placeholder values.
type personalization struct {
	FirstName string
	LastName  string
	Today     time.Time
	Covers    []models.CoverOccurrenceDetail
}

func (p personalization) coverLines() []string {
	lines := make([]string, 0, len(p.Covers))
	for _, c := range p.Covers {
		lines = append(lines, fmt.Sprintf("%s %s %s (%s)",
			c.MeetingDate.Format("Mon 2 Jan 2006"), c.StartTime.String()+"-"+c.EndTime.String(), c.ClubName, c.SchoolName))
	}
	return lines
}

// text substitutes placeholders for plain text such as the subject line.
func (p personalization) text(template string) string {
	details := noUpcomingCovers
	if lines := p.coverLines(); len(lines) > 0 {
		details = strings.Join(lines, "; ")
	}
	return strings.NewReplacer(
		PlaceholderFirstName, p.FirstName,
		PlaceholderLastName, p.LastName,
		PlaceholderDateToday, p.Today.Format("2 January 2006"),
		PlaceholderCoverDetails, details,
	).Replace(template)
}

// html substitutes placeholders into an HTML body, escaping values.
func (p personalization) html(template string) string {
	details := "<p>" + noUpcomingCovers + "</p>"
	if lines := p.coverLines(); len(lines) > 0 {
		var b strings.Builder
		b.WriteString("<ul>")
		for _, line := range lines {
			b.WriteString("<li>")
			b.WriteString(html.EscapeString(line))
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
		details = b.String()
	}
	return strings.NewReplacer(
		PlaceholderFirstName, html.EscapeString(p.FirstName),
		PlaceholderLastName, html.EscapeString(p.LastName),
		PlaceholderDateToday, p.Today.Format("2 January 2006"),
		PlaceholderCoverDetails, details,
	).Replace(template)
}

func usesCoverDetails(b *models.Broadcast) bool {
	return strings.Contains(b.Subject, PlaceholderCoverDetails) || strings.Contains(b.Body, PlaceholderCoverDetails)
}
