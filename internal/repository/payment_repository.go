package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/radio-schedule-api/internal/models"
)

const paymentColumns = `id, contributor_id, year, month, total_hours, total_events, subtotal_amount, vat_amount, total_amount, currency, generated_at, is_paid, paid_at`

// PaymentRepository persists monthly contributor payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByPeriod loads the payment for a contributor and month. It returns sql.ErrNoRows when absent.
func (r *PaymentRepository) FindByPeriod(ctx context.Context, contributorID int64, year, month int) (*models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_records WHERE contributor_id = $1 AND year = $2 AND month = $3`
	var record models.PaymentRecord
	if err := r.db.GetContext(ctx, &record, query, contributorID, year, month); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by period: %w", err)
	}
	return &record, nil
}

// FindByID loads a payment.
func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_records WHERE id = $1`
	var record models.PaymentRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &record, nil
}

// ListByContributor returns a contributor's payments, newest period first.
func (r *PaymentRepository) ListByContributor(ctx context.Context, contributorID int64) ([]models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_records WHERE contributor_id = $1 ORDER BY year DESC, month DESC`
	var records []models.PaymentRecord
	if err := r.db.SelectContext(ctx, &records, query, contributorID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return records, nil
}

// Create inserts a payment. A concurrent insert for the same period leaves the existing row untouched
// and is reported as sql.ErrNoRows so the caller can reload it.
func (r *PaymentRepository) Create(ctx context.Context, record *models.PaymentRecord) error {
	if record.GeneratedAt.IsZero() {
		record.GeneratedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_records (contributor_id, year, month, total_hours, total_events, subtotal_amount, vat_amount, total_amount, currency, generated_at, is_paid) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE) ON CONFLICT (contributor_id, year, month) DO NOTHING RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		record.ContributorID, record.Year, record.Month, record.TotalHours, record.TotalEvents,
		record.SubtotalAmount, record.VATAmount, record.TotalAmount, record.Currency, record.GeneratedAt,
	).Scan(&record.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// MarkPaid flags a payment as paid at ts.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id int64, ts time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payment_records SET is_paid = TRUE, paid_at = $2 WHERE id = $1`, id, ts)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
