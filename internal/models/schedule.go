package models

import (
	"sort"
	"time"
)

// ContentType tags the variant carried by a ContentItem.
type ContentType string

const (
	ContentTypeMusic     ContentType = "music"
	ContentTypeReportage ContentType = "reportage"
	ContentTypeLive      ContentType = "live"
)

// Studio identifies the room a live session broadcasts from.
type Studio string

const (
	// Studio1 is the cheaper single-host booth.
	Studio1 Studio = "Studio1"
	Studio2 Studio = "Studio2"
)

// MusicDetails holds the music-only fields.
type MusicDetails struct {
	Genre string `json:"genre"`
}

// ReportageDetails holds the reportage-only fields.
type ReportageDetails struct {
	Topic    string `json:"topic"`
	Reporter string `json:"reporter"`
}

// LiveSessionDetails holds the live-session-only fields. Studio is derived from hosts and guests.
type LiveSessionDetails struct {
	Hosts  []string `json:"hosts"`
	Guests []string `json:"guests"`
	Studio Studio   `json:"studio"`
}

// ContentItem is one scheduled unit of airtime. Exactly one of Music, Reportage or Live is set, matching Type.
type ContentItem struct {
	ID         int64               `json:"id"`
	Type       ContentType         `json:"type"`
	Title      string              `json:"title"`
	StartTime  time.Time           `json:"start_time"`
	Duration   time.Duration       `json:"duration"`
	Music      *MusicDetails       `json:"music,omitempty"`
	Reportage  *ReportageDetails   `json:"reportage,omitempty"`
	Live       *LiveSessionDetails `json:"live,omitempty"`
	AutoFilled bool                `json:"auto_filled"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// EndTime returns StartTime + Duration.
func (c ContentItem) EndTime() time.Time {
	return c.StartTime.Add(c.Duration)
}

// IsMusic reports whether the item is a music block.
func (c ContentItem) IsMusic() bool {
	return c.Type == ContentTypeMusic
}

// Overlaps reports whether the item intersects the half-open interval [start, end).
func (c ContentItem) Overlaps(start, end time.Time) bool {
	return c.StartTime.Before(end) && c.EndTime().After(start)
}

// Clone returns a deep copy so that callers can mutate host and guest lists freely.
func (c ContentItem) Clone() ContentItem {
	out := c
	if c.Music != nil {
		m := *c.Music
		out.Music = &m
	}
	if c.Reportage != nil {
		r := *c.Reportage
		out.Reportage = &r
	}
	if c.Live != nil {
		l := *c.Live
		l.Hosts = append([]string(nil), c.Live.Hosts...)
		l.Guests = append([]string(nil), c.Live.Guests...)
		out.Live = &l
	}
	return out
}

// NewMusicBlock builds an auto-filled music item covering [start, end).
func NewMusicBlock(title, genre string, start, end time.Time) ContentItem {
	return ContentItem{
		Type:       ContentTypeMusic,
		Title:      title,
		StartTime:  start,
		Duration:   end.Sub(start),
		Music:      &MusicDetails{Genre: genre},
		AutoFilled: true,
	}
}

// DayOf truncates t to midnight of its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaySchedule groups the items whose start falls on Date.
type DaySchedule struct {
	Date  time.Time     `json:"date"`
	Items []ContentItem `json:"items"`
}

// Start returns midnight opening the day.
func (d DaySchedule) Start() time.Time {
	return d.Date
}

// End returns the following midnight, which is not part of the day.
func (d DaySchedule) End() time.Time {
	return d.Date.AddDate(0, 0, 1)
}

// Sort orders items by start time, breaking ties by id.
func (d *DaySchedule) Sort() {
	SortItems(d.Items)
}

// SortItems orders items by start time, breaking ties by id.
func SortItems(items []ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].StartTime.Equal(items[j].StartTime) {
			return items[i].StartTime.Before(items[j].StartTime)
		}
		return items[i].ID < items[j].ID
	})
}

// WeekSchedule is seven contiguous days starting at StartDate.
type WeekSchedule struct {
	StartDate time.Time     `json:"start_date"`
	Days      []DaySchedule `json:"days"`
}

// DaysInWeek is the number of DaySchedules in a WeekSchedule.
const DaysInWeek = 7

// ContentBatch is a set of edits that must be applied atomically to a single day.
type ContentBatch struct {
	Day     time.Time
	Inserts []ContentItem
	Updates []ContentItem
	Deletes []int64
}

// Empty reports whether the batch carries no edits.
func (b *ContentBatch) Empty() bool {
	return b == nil || (len(b.Inserts) == 0 && len(b.Updates) == 0 && len(b.Deletes) == 0)
}

// ScheduleChange describes a committed schedule mutation for downstream consumers.
type ScheduleChange struct {
	Action     string    `json:"action"`
	Date       string    `json:"date"`
	ItemID     int64     `json:"item_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DayOverview is the text rendering of one day.
type DayOverview struct {
	Date    string   `json:"date"`
	Weekday string   `json:"weekday"`
	Lines   []string `json:"lines"`
}

// ScheduleOverview renders a week as text lines per day.
type ScheduleOverview struct {
	WeekStart string        `json:"week_start"`
	Days      []DayOverview `json:"days"`
}

// StudioUsage summarises studio allocation for a live session.
type StudioUsage struct {
	EventID    int64     `json:"event_id"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"start_time"`
	Studio     Studio    `json:"studio"`
	HostCount  int       `json:"host_count"`
	GuestCount int       `json:"guest_count"`
	Summary    string    `json:"summary"`
}
