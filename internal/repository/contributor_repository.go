package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/radio-schedule-api/internal/models"
)

const contributorColumns = `id, user_id, first_name, last_name, email, phone_number, address, photo_url, biography, created_at, updated_at`

// ContributorRepository persists hosts, guests and reporters.
type ContributorRepository struct {
	db *sqlx.DB
}

// NewContributorRepository creates a new contributor repository.
func NewContributorRepository(db *sqlx.DB) *ContributorRepository {
	return &ContributorRepository{db: db}
}

// List returns contributors ordered by name with the total count.
func (r *ContributorRepository) List(ctx context.Context, filter models.ContributorFilter) ([]models.Contributor, int, error) {
	base := "FROM contributors WHERE 1=1"
	var args []interface{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		base += fmt.Sprintf(" AND (LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args), len(args), len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY last_name ASC, first_name ASC, id ASC LIMIT %d OFFSET %d", contributorColumns, base, size, offset)
	var contributors []models.Contributor
	if err := r.db.SelectContext(ctx, &contributors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contributors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count contributors: %w", err)
	}
	return contributors, total, nil
}

// ListIDs returns every contributor id.
func (r *ContributorRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM contributors ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list contributor ids: %w", err)
	}
	return ids, nil
}

// FindByID loads a contributor.
func (r *ContributorRepository) FindByID(ctx context.Context, id int64) (*models.Contributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM contributors WHERE id = $1`
	var contributor models.Contributor
	if err := r.db.GetContext(ctx, &contributor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find contributor: %w", err)
	}
	return &contributor, nil
}

// FindByUserID loads the contributor profile linked to a user account.
func (r *ContributorRepository) FindByUserID(ctx context.Context, userID string) (*models.Contributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM contributors WHERE user_id = $1`
	var contributor models.Contributor
	if err := r.db.GetContext(ctx, &contributor, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find contributor by user: %w", err)
	}
	return &contributor, nil
}

// Create inserts a contributor and assigns its id.
func (r *ContributorRepository) Create(ctx context.Context, contributor *models.Contributor) error {
	now := time.Now().UTC()
	contributor.CreatedAt = now
	contributor.UpdatedAt = now

	const query = `INSERT INTO contributors (user_id, first_name, last_name, email, phone_number, address, photo_url, biography, created_at, updated_at) VALUES (:user_id, :first_name, :last_name, :email, :phone_number, :address, :photo_url, :biography, :created_at, :updated_at) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, contributor)
	if err != nil {
		return fmt.Errorf("create contributor: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&contributor.ID); err != nil {
			return fmt.Errorf("scan contributor id: %w", err)
		}
	}
	return rows.Err()
}

// Update stores mutable contributor fields.
func (r *ContributorRepository) Update(ctx context.Context, contributor *models.Contributor) error {
	contributor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE contributors SET user_id = :user_id, first_name = :first_name, last_name = :last_name, email = :email, phone_number = :phone_number, address = :address, photo_url = :photo_url, biography = :biography, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, contributor)
	if err != nil {
		return fmt.Errorf("update contributor: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a contributor together with its assignments and payments.
func (r *ContributorRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contributors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contributor: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
