package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/radio-schedule-api/internal/dto"
	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
	"github.com/noah-isme/radio-schedule-api/pkg/response"
)

type paymentService interface {
	GenerateMonthlyPayment(ctx context.Context, contributorID int64, year, month int) (*models.PaymentRecord, bool, error)
	MarkPaid(ctx context.Context, id int64) (*models.PaymentRecord, error)
	History(ctx context.Context, contributorID int64) ([]models.PaymentRecord, error)
}

type payrollService interface {
	EnqueueRun(ctx context.Context, year, month int) (*models.PayrollRun, error)
}

// PaymentHandler exposes contributor payment endpoints.
type PaymentHandler struct {
	payments paymentService
	payroll  payrollService
}

// NewPaymentHandler constructs handler.
func NewPaymentHandler(payments paymentService, payroll payrollService) *PaymentHandler {
	return &PaymentHandler{payments: payments, payroll: payroll}
}

// Generate godoc
// @Summary Generate a monthly payment
// @Description Returns the stored payment when the month was already generated.
// @Tags Payments
// @Produce json
// @Param id path int true "Contributor ID"
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contributors/{id}/payments/{year}/{month} [post]
func (h *PaymentHandler) Generate(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	year, err := intParam(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	month, err := intParam(c, "month")
	if err != nil {
		response.Error(c, err)
		return
	}

	record, created, err := h.payments.GenerateMonthlyPayment(c.Request.Context(), id, year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, record, nil, map[string]interface{}{"created": created})
}

// History godoc
// @Summary List a contributor's payments
// @Tags Payments
// @Produce json
// @Param id path int true "Contributor ID"
// @Success 200 {object} response.Envelope
// @Router /contributors/{id}/payments [get]
func (h *PaymentHandler) History(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.payments.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// MarkPaid godoc
// @Summary Mark a payment as paid
// @Tags Payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id}/mark-paid [post]
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.payments.MarkPaid(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Run godoc
// @Summary Generate the month's payments for every contributor
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.PayrollRunRequest true "Period"
// @Success 202 {object} response.Envelope
// @Router /payments/runs [post]
func (h *PaymentHandler) Run(c *gin.Context) {
	var req dto.PayrollRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "year and month are required"))
		return
	}
	run, err := h.payroll.EnqueueRun(c.Request.Context(), req.Year, req.Month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}
