package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

const (
	PaymentOutcomeGenerated = "generated"
	PaymentOutcomeExisting  = "existing"
	PaymentOutcomeFailed    = "failed"
)

var secondsPerHour = decimal.NewFromInt(3600)

type paymentRepository interface {
	FindByPeriod(ctx context.Context, contributorID int64, year, month int) (*models.PaymentRecord, error)
	FindByID(ctx context.Context, id int64) (*models.PaymentRecord, error)
	ListByContributor(ctx context.Context, contributorID int64) ([]models.PaymentRecord, error)
	Create(ctx context.Context, record *models.PaymentRecord) error
	MarkPaid(ctx context.Context, id int64, ts time.Time) error
}

type assignmentTotals interface {
	TotalsForPeriod(ctx context.Context, contributorID int64, from, to time.Time) (models.AssignmentTotals, error)
}

type contributorFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Contributor, error)
}

// PaymentConfig holds the contributor tariff.
type PaymentConfig struct {
	HourlyRate decimal.Decimal
	EventFee   decimal.Decimal
	VATRate    decimal.Decimal
	Currency   string
	Location   *time.Location
}

// PaymentService computes and settles monthly contributor payments.
type PaymentService struct {
	repo         paymentRepository
	totals       assignmentTotals
	contributors contributorFinder
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          PaymentConfig
	now          func() time.Time
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(repo paymentRepository, totals assignmentTotals, contributors contributorFinder, metrics *MetricsService, logger *zap.Logger, cfg PaymentConfig) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Currency == "" {
		cfg.Currency = "SEK"
	}
	return &PaymentService{
		repo:         repo,
		totals:       totals,
		contributors: contributors,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// GenerateMonthlyPayment returns the contributor's payment for the month, creating it from assignments when absent.
// The boolean reports whether a new record was stored.
func (s *PaymentService) GenerateMonthlyPayment(ctx context.Context, contributorID int64, year, month int) (*models.PaymentRecord, bool, error) {
	if month < 1 || month > 12 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 2000 || year > 9999 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}

	if _, err := s.contributors.FindByID(ctx, contributorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "contributor not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contributor")
	}

	existing, err := s.findPeriod(ctx, contributorID, year, month)
	if err != nil || existing != nil {
		if existing != nil {
			s.metrics.RecordPayrollPayment(PaymentOutcomeExisting)
		}
		return existing, false, err
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.cfg.Location)
	to := from.AddDate(0, 1, 0)
	totals, err := s.totals.TotalsForPeriod(ctx, contributorID, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum assignments")
	}

	record := s.calculate(totals)
	record.ContributorID = contributorID
	record.Year = year
	record.Month = month
	record.GeneratedAt = s.now().UTC()

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// lost a race against another generator; the stored record wins
			existing, findErr := s.findPeriod(ctx, contributorID, year, month)
			if findErr == nil && existing != nil {
				s.metrics.RecordPayrollPayment(PaymentOutcomeExisting)
				return existing, false, nil
			}
		}
		s.metrics.RecordPayrollPayment(PaymentOutcomeFailed)
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store payment")
	}

	s.metrics.RecordPayrollPayment(PaymentOutcomeGenerated)
	s.logger.Info("payment generated",
		zap.Int64("contributor_id", contributorID),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.String("total", record.TotalAmount.StringFixed(2)))
	return record, true, nil
}

// MarkPaid settles a payment. Settling an already paid record is a no-op.
func (s *PaymentService) MarkPaid(ctx context.Context, id int64) (*models.PaymentRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if record.IsPaid {
		return record, nil
	}

	paidAt := s.now().UTC()
	if err := s.repo.MarkPaid(ctx, id, paidAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark payment paid")
	}
	record.IsPaid = true
	record.PaidAt = &paidAt
	s.logger.Info("payment marked paid", zap.Int64("payment_id", id))
	return record, nil
}

// History lists a contributor's payments, newest first.
func (s *PaymentService) History(ctx context.Context, contributorID int64) ([]models.PaymentRecord, error) {
	records, err := s.repo.ListByContributor(ctx, contributorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if records == nil {
		records = []models.PaymentRecord{}
	}
	return records, nil
}

func (s *PaymentService) findPeriod(ctx context.Context, contributorID int64, year, month int) (*models.PaymentRecord, error) {
	record, err := s.repo.FindByPeriod(ctx, contributorID, year, month)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return record, nil
}

// calculate prices the totals: subtotal = hours*rate + events*fee, vat = subtotal*vatRate.
func (s *PaymentService) calculate(totals models.AssignmentTotals) *models.PaymentRecord {
	hours := decimal.NewFromInt(totals.TotalSeconds).Div(secondsPerHour)
	events := decimal.NewFromInt(int64(totals.TotalEvents))

	subtotal := hours.Mul(s.cfg.HourlyRate).Add(events.Mul(s.cfg.EventFee)).Round(2)
	vat := subtotal.Mul(s.cfg.VATRate).Round(2)

	return &models.PaymentRecord{
		TotalHours:     hours.Round(2),
		TotalEvents:    totals.TotalEvents,
		SubtotalAmount: subtotal,
		VATAmount:      vat,
		TotalAmount:    subtotal.Add(vat),
		Currency:       s.cfg.Currency,
	}
}
