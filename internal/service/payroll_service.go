package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
	"github.com/noah-isme/radio-schedule-api/pkg/jobs"
)

// PayrollJobType tags queue jobs that generate a month of payments.
const PayrollJobType = "payroll_run"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type contributorIDLister interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

type paymentGenerator interface {
	GenerateMonthlyPayment(ctx context.Context, contributorID int64, year, month int) (*models.PaymentRecord, bool, error)
}

// PayrollJobPayload is the queue payload of a payroll run.
type PayrollJobPayload struct {
	Year  int
	Month int
}

// PayrollService schedules asynchronous payroll runs.
type PayrollService struct {
	queue  jobDispatcher
	logger *zap.Logger
	now    func() time.Time
}

// NewPayrollService constructs a PayrollService.
func NewPayrollService(queue jobDispatcher, logger *zap.Logger) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollService{queue: queue, logger: logger, now: time.Now}
}

// EnqueueRun queues payment generation for every contributor for the month.
func (s *PayrollService) EnqueueRun(ctx context.Context, year, month int) (*models.PayrollRun, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 2000 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}

	run := &models.PayrollRun{JobID: uuid.NewString(), Year: year, Month: month, EnqueuedAt: s.now().UTC()}
	job := jobs.Job{
		ID:       run.JobID,
		Type:     PayrollJobType,
		Payload:  PayrollJobPayload{Year: year, Month: month},
		Enqueued: run.EnqueuedAt,
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue payroll run")
	}
	s.logger.Info("payroll run enqueued", zap.String("job_id", run.JobID), zap.Int("year", year), zap.Int("month", month))
	return run, nil
}

// PayrollWorker bridges queue jobs to PaymentService.
type PayrollWorker struct {
	contributors contributorIDLister
	payments     paymentGenerator
	logger       *zap.Logger
}

// NewPayrollWorker constructs a worker.
func NewPayrollWorker(contributors contributorIDLister, payments paymentGenerator, logger *zap.Logger) *PayrollWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollWorker{contributors: contributors, payments: payments, logger: logger}
}

// Handle generates the month's payment for every contributor. Already generated payments are kept,
// so a retried job only fills in the contributors that failed before.
func (w *PayrollWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(PayrollJobPayload)
	if !ok {
		return fmt.Errorf("payroll job %s: unexpected payload %T", job.ID, job.Payload)
	}

	ids, err := w.contributors.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("payroll job %s: %w", job.ID, err)
	}

	generated, failed := 0, 0
	var lastErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, created, err := w.payments.GenerateMonthlyPayment(ctx, id, payload.Year, payload.Month)
		if err != nil {
			failed++
			lastErr = err
			w.logger.Warn("payment generation failed", zap.String("job_id", job.ID), zap.Int64("contributor_id", id), zap.Error(err))
			continue
		}
		if created {
			generated++
		}
	}

	w.logger.Info("payroll run finished",
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Int("contributors", len(ids)),
		zap.Int("generated", generated),
		zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("payroll job %s: %d of %d payments failed: %w", job.ID, failed, len(ids), lastErr)
	}
	return nil
}
