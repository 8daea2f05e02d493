package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/radio-schedule-api/internal/dto"
	"github.com/noah-isme/radio-schedule-api/internal/models"
	"github.com/noah-isme/radio-schedule-api/internal/service"
	"github.com/noah-isme/radio-schedule-api/pkg/response"
)

type scheduleReader interface {
	Location() *time.Location
	TodaySchedule(ctx context.Context, now time.Time) (*models.DaySchedule, error)
	DayByName(ctx context.Context, name string, now time.Time) (*models.DaySchedule, error)
	Week(ctx context.Context, start time.Time) (*models.WeekSchedule, error)
	Overview(ctx context.Context, start time.Time) (*models.ScheduleOverview, error)
	StudioSummary(ctx context.Context, start time.Time) ([]models.StudioUsage, error)
	FillWithMusic(ctx context.Context, start time.Time) (int, error)
}

type scheduleExporter interface {
	ExportWeek(ctx context.Context, start time.Time, format service.ExportFormat) (*service.ExportFile, error)
}

// ScheduleHandler serves the day, week and summary views of the schedule.
type ScheduleHandler struct {
	schedule scheduleReader
	exporter scheduleExporter
	now      func() time.Time
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedule scheduleReader, exporter scheduleExporter) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule, exporter: exporter, now: time.Now}
}

// Today godoc
// @Summary Today's schedule
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/today [get]
func (h *ScheduleHandler) Today(c *gin.Context) {
	day, err := h.schedule.TodaySchedule(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewDayResponse(*day), nil)
}

// Day godoc
// @Summary Schedule of a named day
// @Tags Schedule
// @Produce json
// @Param day path string true "monday..sunday, today or tomorrow"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule/days/{day} [get]
func (h *ScheduleHandler) Day(c *gin.Context) {
	day, err := h.schedule.DayByName(c.Request.Context(), c.Param("day"), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewDayResponse(*day), nil)
}

// Week godoc
// @Summary Seven days of schedule
// @Tags Schedule
// @Produce json
// @Param start query string false "First day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /schedule/week [get]
func (h *ScheduleHandler) Week(c *gin.Context) {
	start, err := dateQuery(c, "start", h.now(), h.schedule.Location())
	if err != nil {
		response.Error(c, err)
		return
	}
	week, err := h.schedule.Week(c.Request.Context(), start)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewWeekResponse(*week), nil)
}

// Overview godoc
// @Summary Text overview of the week
// @Tags Schedule
// @Produce json
// @Param start query string false "First day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedule/overview [get]
func (h *ScheduleHandler) Overview(c *gin.Context) {
	start, err := dateQuery(c, "start", h.now(), h.schedule.Location())
	if err != nil {
		response.Error(c, err)
		return
	}
	overview, err := h.schedule.Overview(c.Request.Context(), start)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Studios godoc
// @Summary Studio allocation of live sessions
// @Tags Schedule
// @Produce json
// @Param start query string false "First day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedule/studios [get]
func (h *ScheduleHandler) Studios(c *gin.Context) {
	start, err := dateQuery(c, "start", h.now(), h.schedule.Location())
	if err != nil {
		response.Error(c, err)
		return
	}
	usage, err := h.schedule.StudioSummary(c.Request.Context(), start)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, usage, nil)
}

// Export godoc
// @Summary Export the week
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param start query string false "First day (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	start, err := dateQuery(c, "start", h.now(), h.schedule.Location())
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ExportWeek(c.Request.Context(), start, service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// Fill godoc
// @Summary Fill the week's gaps with music
// @Tags Schedule
// @Produce json
// @Param start query string false "First day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedule/fill [post]
func (h *ScheduleHandler) Fill(c *gin.Context) {
	start, err := dateQuery(c, "start", h.now(), h.schedule.Location())
	if err != nil {
		response.Error(c, err)
		return
	}
	added, err := h.schedule.FillWithMusic(c.Request.Context(), start)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.FillResponse{StartDate: start.Format(dateLayout), BlocksAdded: added}, nil)
}
