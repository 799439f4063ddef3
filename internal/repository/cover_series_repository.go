package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clubconnect-api/internal/models"
	"github.com/noah-isme/clubconnect-api/pkg/database"
)

// CoverSeriesRepository runs the multi-table cover writes, each inside a
// single transaction.
type CoverSeriesRepository struct {
	db          *sqlx.DB
	rules       *CoverRuleRepository
	occurrences *CoverOccurrenceRepository
	assignments *CoverAssignmentRepository
}

// NewCoverSeriesRepository constructs a CoverSeriesRepository.
func NewCoverSeriesRepository(db *sqlx.DB) *CoverSeriesRepository {
	return &CoverSeriesRepository{
		db:          db,
		rules:       NewCoverRuleRepository(db),
		occurrences: NewCoverOccurrenceRepository(db),
		assignments: NewCoverAssignmentRepository(db),
	}
}

// CreateSeries inserts the rule, then its occurrences, then their assignments.
// Occurrence and assignment foreign keys are filled in from generated IDs.
func (r *CoverSeriesRepository) CreateSeries(ctx context.Context, series *models.CoverSeries) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.rules.Insert(ctx, tx, &series.Rule); err != nil {
			return err
		}
		for i := range series.Occurrences {
			series.Occurrences[i].CoverRuleID = series.Rule.ID
		}
		return r.insertOccurrences(ctx, tx, series.Occurrences, series.Assignments)
	})
}

// AppendOccurrences adds occurrences (and their assignments) to an existing rule.
func (r *CoverSeriesRepository) AppendOccurrences(ctx context.Context, occurrences []models.CoverOccurrence, assignments []models.TeacherCoverAssignment) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return r.insertOccurrences(ctx, tx, occurrences, assignments)
	})
}

// insertOccurrences expects assignments[i], when present, to belong to
// occurrences[i]; the occurrence ID is copied once it has been generated.
func (r *CoverSeriesRepository) insertOccurrences(ctx context.Context, tx *sqlx.Tx, occurrences []models.CoverOccurrence, assignments []models.TeacherCoverAssignment) error {
	if err := r.occurrences.InsertBatch(ctx, tx, occurrences); err != nil {
		return err
	}
	for i := range assignments {
		if i < len(occurrences) {
			assignments[i].CoverOccurrenceID = occurrences[i].ID
		}
	}
	return r.assignments.InsertBatch(ctx, tx, assignments)
}

// UpdateOccurrence saves a single-occurrence edit. When replace is set the
// occurrence's assignments are deleted and assignments inserted in their place.
func (r *CoverSeriesRepository) UpdateOccurrence(ctx context.Context, occurrence *models.CoverOccurrence, replace bool, assignments []models.TeacherCoverAssignment) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.occurrences.Update(ctx, tx, occurrence); err != nil {
			return err
		}
		if !replace {
			return nil
		}
		return r.replaceAssignments(ctx, tx, occurrence.ID, assignments)
	})
}

// ReplaceAssignments swaps the assignment set of one occurrence.
func (r *CoverSeriesRepository) ReplaceAssignments(ctx context.Context, occurrenceID string, assignments []models.TeacherCoverAssignment) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return r.replaceAssignments(ctx, tx, occurrenceID, assignments)
	})
}

func (r *CoverSeriesRepository) replaceAssignments(ctx context.Context, tx *sqlx.Tx, occurrenceID string, assignments []models.TeacherCoverAssignment) error {
	if err := r.assignments.DeleteByOccurrence(ctx, tx, occurrenceID); err != nil {
		return err
	}
	for i := range assignments {
		assignments[i].CoverOccurrenceID = occurrenceID
	}
	return r.assignments.InsertBatch(ctx, tx, assignments)
}

// DeleteOccurrence removes an occurrence with its assignments.
func (r *CoverSeriesRepository) DeleteOccurrence(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.assignments.DeleteByOccurrence(ctx, tx, id); err != nil {
			return err
		}
		return r.occurrences.Delete(ctx, tx, id)
	})
}

// DeleteRule removes a rule. With cascade its occurrences and their
// assignments go first; without it the rule must already be empty.
func (r *CoverSeriesRepository) DeleteRule(ctx context.Context, ruleID string, cascade bool) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if cascade {
			if err := r.assignments.DeleteByRule(ctx, tx, ruleID); err != nil {
				return err
			}
			if err := r.occurrences.DeleteByRule(ctx, tx, ruleID); err != nil {
				return err
			}
		}
		return r.rules.Delete(ctx, tx, ruleID)
	})
}
