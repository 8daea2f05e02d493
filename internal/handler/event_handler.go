package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/radio-schedule-api/internal/dto"
	"github.com/noah-isme/radio-schedule-api/internal/models"
	"github.com/noah-isme/radio-schedule-api/internal/service"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
	"github.com/noah-isme/radio-schedule-api/pkg/response"
)

type eventService interface {
	GetEventByID(ctx context.Context, id int64) (*models.ContentItem, error)
	ScheduleLiveSession(ctx context.Context, req service.LiveSessionRequest) (*models.ContentItem, error)
	ScheduleReportage(ctx context.Context, req service.ReportageRequest) (*models.ContentItem, error)
	RescheduleEvent(ctx context.Context, id int64, newStart time.Time) (bool, error)
	AddHost(ctx context.Context, id int64, name string) (bool, error)
	RemoveHost(ctx context.Context, id int64, name string) (bool, error)
	AddGuest(ctx context.Context, id int64, name string) (bool, error)
	RemoveGuest(ctx context.Context, id int64, name string) (bool, error)
	DeleteEvent(ctx context.Context, id int64) (bool, error)
}

// EventHandler manages individual scheduled items.
type EventHandler struct {
	service eventService
}

// NewEventHandler constructs handler.
func NewEventHandler(svc eventService) *EventHandler {
	return &EventHandler{service: svc}
}

// Get godoc
// @Summary Get event
// @Tags Events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondWithEvent(c, id, http.StatusOK)
}

// Create godoc
// @Summary Schedule a live session or reportage
// @Description Existing items in the slot are trimmed, split or removed to make room.
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	if req.StartTime.IsZero() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start_time is required"))
		return
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute

	var (
		item *models.ContentItem
		err  error
	)
	switch req.Type {
	case models.ContentTypeLive:
		item, err = h.service.ScheduleLiveSession(c.Request.Context(), service.LiveSessionRequest{
			Title:     req.Title,
			StartTime: req.StartTime,
			Duration:  duration,
			Hosts:     req.Hosts,
			Guests:    req.Guests,
		})
	default:
		item, err = h.service.ScheduleReportage(c.Request.Context(), service.ReportageRequest{
			Title:     req.Title,
			StartTime: req.StartTime,
			Duration:  duration,
			Topic:     req.Topic,
			Reporter:  req.Reporter,
		})
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewEventResponse(*item))
}

// Reschedule godoc
// @Summary Move an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param payload body dto.RescheduleRequest true "New start"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/reschedule [post]
func (h *EventHandler) Reschedule(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewStartTime.IsZero() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "new_start_time is required"))
		return
	}

	moved, err := h.service.RescheduleEvent(c.Request.Context(), id, req.NewStartTime)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !moved {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "event not found"))
		return
	}
	h.respondWithEvent(c, id, http.StatusOK)
}

// AddHost godoc
// @Summary Add a host to a live session
// @Tags Events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param payload body dto.HostRequest true "Host"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/{id}/hosts [post]
func (h *EventHandler) AddHost(c *gin.Context) {
	var req dto.HostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "host_name is required"))
		return
	}
	h.mutateParticipant(c, req.HostName, h.service.AddHost, "host could not be added")
}

// RemoveHost godoc
// @Summary Remove a host from a live session
// @Tags Events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param payload body dto.HostRequest true "Host"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/{id}/hosts/remove [post]
func (h *EventHandler) RemoveHost(c *gin.Context) {
	var req dto.HostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "host_name is required"))
		return
	}
	h.mutateParticipant(c, req.HostName, h.service.RemoveHost, "host could not be removed")
}

// AddGuest godoc
// @Summary Add a guest to a live session
// @Tags Events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param payload body dto.GuestRequest true "Guest"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/{id}/guests [post]
func (h *EventHandler) AddGuest(c *gin.Context) {
	var req dto.GuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "guest_name is required"))
		return
	}
	h.mutateParticipant(c, req.GuestName, h.service.AddGuest, "guest could not be added")
}

// RemoveGuest godoc
// @Summary Remove a guest from a live session
// @Tags Events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param payload body dto.GuestRequest true "Guest"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/{id}/guests/remove [post]
func (h *EventHandler) RemoveGuest(c *gin.Context) {
	var req dto.GuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "guest_name is required"))
		return
	}
	h.mutateParticipant(c, req.GuestName, h.service.RemoveGuest, "guest could not be removed")
}

// Delete godoc
// @Summary Delete an event
// @Tags Events
// @Param id path int true "Event ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	deleted, err := h.service.DeleteEvent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "event not found"))
		return
	}
	response.NoContent(c)
}

// mutateParticipant reports a false result as 400: the event may be missing, not live, or already in the wanted state.
func (h *EventHandler) mutateParticipant(c *gin.Context, name string, fn func(context.Context, int64, string) (bool, error), failure string) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	changed, err := fn(c.Request.Context(), id, name)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !changed {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, failure))
		return
	}
	h.respondWithEvent(c, id, http.StatusOK)
}

func (h *EventHandler) respondWithEvent(c *gin.Context, id int64, status int) {
	item, err := h.service.GetEventByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, status, dto.NewEventResponse(*item), nil)
}
