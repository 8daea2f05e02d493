package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	"github.com/noah-isme/radio-schedule-api/internal/service"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
	"github.com/noah-isme/radio-schedule-api/pkg/response"
)

type contributorService interface {
	List(ctx context.Context, filter models.ContributorFilter) ([]models.Contributor, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.Contributor, error)
	GetByUser(ctx context.Context, userID string) (*models.Contributor, error)
	Create(ctx context.Context, req service.ContributorRequest) (*models.Contributor, error)
	Update(ctx context.Context, id int64, req service.ContributorRequest) (*models.Contributor, error)
	Delete(ctx context.Context, id int64) error
	Assign(ctx context.Context, req service.AssignmentRequest) (*models.ContributorAssignment, error)
	Unassign(ctx context.Context, id int64) error
	Assignments(ctx context.Context, contributorID int64) ([]models.ContributorAssignment, error)
}

// ContributorHandler manages contributor profiles and assignments.
type ContributorHandler struct {
	service contributorService
}

// NewContributorHandler constructs handler.
func NewContributorHandler(svc contributorService) *ContributorHandler {
	return &ContributorHandler{service: svc}
}

// List godoc
// @Summary List contributors
// @Tags Contributors
// @Produce json
// @Param search query string false "Name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /contributors [get]
func (h *ContributorHandler) List(c *gin.Context) {
	filter := models.ContributorFilter{Search: c.Query("search")}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	contributors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contributors, pagination)
}

// Get godoc
// @Summary Get contributor
// @Tags Contributors
// @Produce json
// @Param id path int true "Contributor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contributors/{id} [get]
func (h *ContributorHandler) Get(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	contributor, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contributor, nil)
}

// Me godoc
// @Summary Signed-in contributor's profile
// @Tags Contributors
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contributors/me [get]
func (h *ContributorHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	contributor, err := h.service.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contributor, nil)
}

// Create godoc
// @Summary Create contributor
// @Tags Contributors
// @Accept json
// @Produce json
// @Param payload body service.ContributorRequest true "Contributor"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /contributors [post]
func (h *ContributorHandler) Create(c *gin.Context) {
	var req service.ContributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contributor payload"))
		return
	}
	contributor, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, contributor)
}

// Update godoc
// @Summary Update contributor
// @Tags Contributors
// @Accept json
// @Produce json
// @Param id path int true "Contributor ID"
// @Param payload body service.ContributorRequest true "Contributor"
// @Success 200 {object} response.Envelope
// @Router /contributors/{id} [put]
func (h *ContributorHandler) Update(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ContributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contributor payload"))
		return
	}
	contributor, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contributor, nil)
}

// Delete godoc
// @Summary Delete contributor
// @Tags Contributors
// @Param id path int true "Contributor ID"
// @Success 204
// @Router /contributors/{id} [delete]
func (h *ContributorHandler) Delete(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Assignments godoc
// @Summary List a contributor's assignments
// @Tags Contributors
// @Produce json
// @Param id path int true "Contributor ID"
// @Success 200 {object} response.Envelope
// @Router /contributors/{id}/assignments [get]
func (h *ContributorHandler) Assignments(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	assignments, err := h.service.Assignments(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Assign godoc
// @Summary Assign a contributor to an event
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments [post]
func (h *ContributorHandler) Assign(c *gin.Context) {
	var req service.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Unassign godoc
// @Summary Remove an assignment
// @Tags Assignments
// @Param id path int true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *ContributorHandler) Unassign(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Unassign(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
