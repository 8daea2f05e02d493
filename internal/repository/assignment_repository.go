package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/radio-schedule-api/internal/models"
)

// AssignmentRepository links contributors to scheduled content.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create stores an assignment and assigns its id.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.ContributorAssignment) error {
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contributor_assignments (contributor_id, scheduled_content_id, role, assigned_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, assignment.ContributorID, assignment.ScheduledContentID, assignment.Role, assignment.AssignedAt).Scan(&assignment.ID); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contributor_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByContributor returns a contributor's assignments, newest first.
func (r *AssignmentRepository) ListByContributor(ctx context.Context, contributorID int64) ([]models.ContributorAssignment, error) {
	const query = `SELECT id, contributor_id, scheduled_content_id, role, assigned_at FROM contributor_assignments WHERE contributor_id = $1 ORDER BY assigned_at DESC, id DESC`
	var assignments []models.ContributorAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, contributorID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// TotalsForPeriod sums airtime and counts assignments whose content starts in [from, to).
func (r *AssignmentRepository) TotalsForPeriod(ctx context.Context, contributorID int64, from, to time.Time) (models.AssignmentTotals, error) {
	const query = `SELECT COALESCE(SUM(sc.duration_seconds), 0) AS total_seconds, COUNT(ca.id) AS total_events FROM contributor_assignments ca JOIN scheduled_contents sc ON sc.id = ca.scheduled_content_id WHERE ca.contributor_id = $1 AND sc.start_time >= $2 AND sc.start_time < $3`
	var totals models.AssignmentTotals
	if err := r.db.GetContext(ctx, &totals, query, contributorID, from, to); err != nil {
		return models.AssignmentTotals{}, fmt.Errorf("sum assignment totals: %w", err)
	}
	return totals, nil
}
