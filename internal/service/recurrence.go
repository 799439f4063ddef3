package service

import (
	"time"

	"github.com/noah-isme/clubconnect-api/internal/models"
)

// DefaultOccurrenceCount is used when a series is created without a count.
const DefaultOccurrenceCount = 4

// FirstOccurrenceNote marks the opening session of a generated series.
const FirstOccurrenceNote = "First session of recurring cover"

// GenerateOccurrenceDates expands a rule into count calendar dates starting at
// start. Dates step by whole weeks (1, 2 or 4 depending on frequency) so every
// date keeps start's weekday. The result is date-only in UTC.
func GenerateOccurrenceDates(start time.Time, frequency models.CoverFrequency, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	first := models.DateOnly(start)
	stepDays := 7 * frequency.StepWeeks()
	dates := make([]time.Time, count)
	for i := range dates {
		dates[i] = first.AddDate(0, 0, i*stepDays)
	}
	return dates
}

// nextWeekday returns the first date on or after from that falls on weekday.
func nextWeekday(from time.Time, weekday int) time.Time {
	from = models.DateOnly(from)
	delta := (weekday - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, delta)
}
