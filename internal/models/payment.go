package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecord is the monthly payout for a contributor. One record exists per contributor and month.
type PaymentRecord struct {
	ID             int64           `db:"id" json:"id"`
	ContributorID  int64           `db:"contributor_id" json:"contributor_id"`
	Year           int             `db:"year" json:"year"`
	Month          int             `db:"month" json:"month"`
	TotalHours     decimal.Decimal `db:"total_hours" json:"total_hours"`
	TotalEvents    int             `db:"total_events" json:"total_events"`
	SubtotalAmount decimal.Decimal `db:"subtotal_amount" json:"subtotal_amount"`
	VATAmount      decimal.Decimal `db:"vat_amount" json:"vat_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	Currency       string          `db:"currency" json:"currency"`
	GeneratedAt    time.Time       `db:"generated_at" json:"generated_at"`
	IsPaid         bool            `db:"is_paid" json:"is_paid"`
	PaidAt         *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
}

// PayrollRun reports an enqueued payroll job.
type PayrollRun struct {
	JobID      string    `json:"job_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
