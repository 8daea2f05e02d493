package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/radio-schedule-api/internal/dto"
	"github.com/noah-isme/radio-schedule-api/internal/middleware"
	"github.com/noah-isme/radio-schedule-api/internal/models"
	"github.com/noah-isme/radio-schedule-api/internal/service"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

type paymentServiceMock struct {
	created bool
	year    int
	month   int
}

func (m *paymentServiceMock) GenerateMonthlyPayment(ctx context.Context, contributorID int64, year, month int) (*models.PaymentRecord, bool, error) {
	m.year, m.month = year, month
	if month < 1 || month > 12 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	return &models.PaymentRecord{ID: 1, ContributorID: contributorID, Year: year, Month: month, TotalAmount: decimal.RequireFromString("2156.25")}, m.created, nil
}

func (m *paymentServiceMock) MarkPaid(ctx context.Context, id int64) (*models.PaymentRecord, error) {
	if id != 1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}
	return &models.PaymentRecord{ID: 1, IsPaid: true}, nil
}

func (m *paymentServiceMock) History(ctx context.Context, contributorID int64) ([]models.PaymentRecord, error) {
	return []models.PaymentRecord{}, nil
}

type payrollServiceMock struct{}

func (payrollServiceMock) EnqueueRun(ctx context.Context, year, month int) (*models.PayrollRun, error) {
	return &models.PayrollRun{JobID: "job-1", Year: year, Month: month}, nil
}

func TestPaymentHandlerGenerate(t *testing.T) {
	mock := &paymentServiceMock{created: true}
	h := NewPaymentHandler(mock, payrollServiceMock{})
	params := gin.Params{{Key: "id", Value: "7"}, {Key: "year", Value: "2024"}, {Key: "month", Value: "3"}}

	c, w := newGinContext(http.MethodPost, "/contributors/7/payments/2024/3", nil)
	c.Params = params
	h.Generate(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decodeEnvelope(t, w).Meta["created"])
	assert.Contains(t, w.Body.String(), `"total_amount":"2156.25"`)

	mock.created = false
	c, w = newGinContext(http.MethodPost, "/contributors/7/payments/2024/3", nil)
	c.Params = params
	h.Generate(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/contributors/7/payments/2024/march", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "year", Value: "2024"}, {Key: "month", Value: "march"}}
	h.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandlerMarkPaidAndRun(t *testing.T) {
	h := NewPaymentHandler(&paymentServiceMock{}, payrollServiceMock{})

	c, w := newGinContext(http.MethodPost, "/payments/1/mark-paid", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	h.MarkPaid(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/payments/2/mark-paid", nil)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	h.MarkPaid(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodPost, "/payments/runs", mustJSON(t, dto.PayrollRunRequest{Year: 2024, Month: 3}))
	h.Run(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"job_id":"job-1"`)

	c, w = newGinContext(http.MethodPost, "/payments/runs", []byte(`{"year":2024}`))
	h.Run(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type contributorServiceMock struct {
	byUser map[string]*models.Contributor
}

func (m *contributorServiceMock) List(ctx context.Context, filter models.ContributorFilter) ([]models.Contributor, *models.Pagination, error) {
	return []models.Contributor{{ID: 1, FirstName: "Ann"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *contributorServiceMock) Get(ctx context.Context, id int64) (*models.Contributor, error) {
	return &models.Contributor{ID: id}, nil
}

func (m *contributorServiceMock) GetByUser(ctx context.Context, userID string) (*models.Contributor, error) {
	if c, ok := m.byUser[userID]; ok {
		return c, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no contributor profile linked to this account")
}

func (m *contributorServiceMock) Create(ctx context.Context, req service.ContributorRequest) (*models.Contributor, error) {
	return &models.Contributor{ID: 2, FirstName: req.FirstName, Email: req.Email}, nil
}

func (m *contributorServiceMock) Update(ctx context.Context, id int64, req service.ContributorRequest) (*models.Contributor, error) {
	return &models.Contributor{ID: id, FirstName: req.FirstName}, nil
}

func (m *contributorServiceMock) Delete(ctx context.Context, id int64) error { return nil }

func (m *contributorServiceMock) Assign(ctx context.Context, req service.AssignmentRequest) (*models.ContributorAssignment, error) {
	return &models.ContributorAssignment{ID: 3, ContributorID: req.ContributorID, ScheduledContentID: req.ScheduledContentID, Role: req.Role}, nil
}

func (m *contributorServiceMock) Unassign(ctx context.Context, id int64) error { return nil }

func (m *contributorServiceMock) Assignments(ctx context.Context, contributorID int64) ([]models.ContributorAssignment, error) {
	return []models.ContributorAssignment{}, nil
}

func TestContributorHandlerListAndCreate(t *testing.T) {
	h := NewContributorHandler(&contributorServiceMock{})

	c, w := newGinContext(http.MethodGet, "/contributors?page=2&limit=5", nil)
	h.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"page":2`)

	c, w = newGinContext(http.MethodPost, "/contributors", mustJSON(t, service.ContributorRequest{FirstName: "Ann", Email: "ann@station.fm"}))
	h.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodPost, "/assignments", mustJSON(t, service.AssignmentRequest{ContributorID: 2, ScheduledContentID: 9, Role: models.AssignmentRoleGuest}))
	h.Assign(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodDelete, "/contributors/2", nil)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestContributorHandlerMe(t *testing.T) {
	h := NewContributorHandler(&contributorServiceMock{byUser: map[string]*models.Contributor{"u1": {ID: 1, FirstName: "Ann"}}})

	c, w := newGinContext(http.MethodGet, "/contributors/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/contributors/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleContributor})
	h.Me(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/contributors/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u2", Role: models.RoleContributor})
	h.Me(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
