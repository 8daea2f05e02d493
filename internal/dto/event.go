package dto

import (
	"time"

	"github.com/noah-isme/radio-schedule-api/internal/models"
)

// CreateEventRequest captures POST /events. Hosts and guests apply to live sessions, topic and reporter to reportage.
type CreateEventRequest struct {
	Type            models.ContentType `json:"type" binding:"required,oneof=live reportage"`
	Title           string             `json:"title"`
	StartTime       time.Time          `json:"start_time"`
	DurationMinutes int                `json:"duration_minutes"`
	Hosts           []string           `json:"hosts,omitempty"`
	Guests          []string           `json:"guests,omitempty"`
	Topic           string             `json:"topic,omitempty"`
	Reporter        string             `json:"reporter,omitempty"`
}

// RescheduleRequest captures POST /events/:id/reschedule.
type RescheduleRequest struct {
	NewStartTime time.Time `json:"new_start_time"`
}

// HostRequest names a host to add or remove.
type HostRequest struct {
	HostName string `json:"host_name" binding:"required"`
}

// GuestRequest names a guest to add or remove.
type GuestRequest struct {
	GuestName string `json:"guest_name" binding:"required"`
}

// EventResponse is the flattened representation of a scheduled item.
type EventResponse struct {
	ID              int64              `json:"id"`
	Type            models.ContentType `json:"type"`
	Title           string             `json:"title"`
	StartTime       time.Time          `json:"start_time"`
	EndTime         time.Time          `json:"end_time"`
	DurationMinutes int64              `json:"duration_minutes"`
	Genre           string             `json:"genre,omitempty"`
	Topic           string             `json:"topic,omitempty"`
	Reporter        string             `json:"reporter,omitempty"`
	Hosts           []string           `json:"hosts,omitempty"`
	Guests          []string           `json:"guests,omitempty"`
	Studio          models.Studio      `json:"studio,omitempty"`
	AutoFilled      bool               `json:"auto_filled"`
}

// NewEventResponse maps a content item.
func NewEventResponse(item models.ContentItem) EventResponse {
	res := EventResponse{
		ID:              item.ID,
		Type:            item.Type,
		Title:           item.Title,
		StartTime:       item.StartTime,
		EndTime:         item.EndTime(),
		DurationMinutes: int64(item.Duration / time.Minute),
		AutoFilled:      item.AutoFilled,
	}
	switch {
	case item.Music != nil:
		res.Genre = item.Music.Genre
	case item.Reportage != nil:
		res.Topic = item.Reportage.Topic
		res.Reporter = item.Reportage.Reporter
	case item.Live != nil:
		res.Hosts = item.Live.Hosts
		res.Guests = item.Live.Guests
		res.Studio = item.Live.Studio
	}
	return res
}

// DayResponse lists a day's events in airing order.
type DayResponse struct {
	Date    string          `json:"date"`
	Weekday string          `json:"weekday"`
	Events  []EventResponse `json:"events"`
}

// NewDayResponse maps a day schedule.
func NewDayResponse(day models.DaySchedule) DayResponse {
	res := DayResponse{
		Date:    day.Date.Format("2006-01-02"),
		Weekday: day.Date.Weekday().String(),
		Events:  make([]EventResponse, 0, len(day.Items)),
	}
	for _, item := range day.Items {
		res.Events = append(res.Events, NewEventResponse(item))
	}
	return res
}

// WeekResponse lists seven consecutive days.
type WeekResponse struct {
	StartDate string        `json:"start_date"`
	Days      []DayResponse `json:"days"`
}

// NewWeekResponse maps a week schedule.
func NewWeekResponse(week models.WeekSchedule) WeekResponse {
	res := WeekResponse{StartDate: week.StartDate.Format("2006-01-02"), Days: make([]DayResponse, 0, len(week.Days))}
	for _, day := range week.Days {
		res.Days = append(res.Days, NewDayResponse(day))
	}
	return res
}

// FillResponse reports the music blocks added by POST /schedule/fill.
type FillResponse struct {
	StartDate   string `json:"start_date"`
	BlocksAdded int    `json:"blocks_added"`
}
