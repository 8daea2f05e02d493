package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

// TodaySchedule returns the sorted items of the calendar day containing now.
func (s *ScheduleService) TodaySchedule(ctx context.Context, now time.Time) (*models.DaySchedule, error) {
	return s.Day(ctx, models.DayOf(now, s.cfg.Location))
}

// DayByName resolves a weekday name relative to now and returns that day.
func (s *ScheduleService) DayByName(ctx context.Context, name string, now time.Time) (*models.DaySchedule, error) {
	day, err := ResolveDay(name, now, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	return s.Day(ctx, day)
}

// Day returns the sorted items of date. Missing days are returned empty.
func (s *ScheduleService) Day(ctx context.Context, date time.Time) (*models.DaySchedule, error) {
	day := models.DayOf(date, s.cfg.Location)
	gen, cacheable := s.cache.Generation(ctx)
	key := scheduleDayKey(day, gen)

	if cacheable {
		var cached models.DaySchedule
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			cached.Date = day
			s.localizeAll(cached.Items)
			return &cached, nil
		}
	}

	queryStart := time.Now()
	items, err := s.repo.ListByDay(ctx, nil, day)
	s.metrics.ObserveDBQuery("list_day", time.Since(queryStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	s.localizeAll(items)
	schedule := &models.DaySchedule{Date: day, Items: items}
	if schedule.Items == nil {
		schedule.Items = []models.ContentItem{}
	}
	schedule.Sort()

	if cacheable {
		if err := s.cache.Set(ctx, key, schedule, s.cfg.CacheTTL); err != nil {
			s.logger.Debug("day schedule not cached", zap.String("key", key), zap.Error(err))
		}
	}
	return schedule, nil
}

// Week returns seven DaySchedules starting at start.
func (s *ScheduleService) Week(ctx context.Context, start time.Time) (*models.WeekSchedule, error) {
	first := models.DayOf(start, s.cfg.Location)
	gen, cacheable := s.cache.Generation(ctx)
	key := scheduleWeekKey(first, gen)

	if cacheable {
		var cached models.WeekSchedule
		if hit, _ := s.cache.Get(ctx, key, &cached); hit && len(cached.Days) == models.DaysInWeek {
			cached.StartDate = first
			for i := range cached.Days {
				cached.Days[i].Date = first.AddDate(0, 0, i)
				s.localizeAll(cached.Days[i].Items)
			}
			return &cached, nil
		}
	}

	last := first.AddDate(0, 0, models.DaysInWeek)
	queryStart := time.Now()
	items, err := s.repo.ListByRange(ctx, first, last)
	s.metrics.ObserveDBQuery("list_week", time.Since(queryStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week schedule")
	}

	week := &models.WeekSchedule{StartDate: first, Days: make([]models.DaySchedule, models.DaysInWeek)}
	index := make(map[string]int, models.DaysInWeek)
	for i := range week.Days {
		date := first.AddDate(0, 0, i)
		week.Days[i] = models.DaySchedule{Date: date, Items: []models.ContentItem{}}
		index[date.Format(dateLayout)] = i
	}
	for _, item := range items {
		s.localize(&item)
		i, ok := index[models.DayOf(item.StartTime, s.cfg.Location).Format(dateLayout)]
		if !ok {
			continue
		}
		week.Days[i].Items = append(week.Days[i].Items, item)
	}
	for i := range week.Days {
		week.Days[i].Sort()
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, week, s.cfg.CacheTTL); err != nil {
			s.logger.Debug("week schedule not cached", zap.String("key", key), zap.Error(err))
		}
	}
	return week, nil
}

// Overview renders the week as "HH:MM-HH:MM [Type]: Title" lines.
func (s *ScheduleService) Overview(ctx context.Context, start time.Time) (*models.ScheduleOverview, error) {
	week, err := s.Week(ctx, start)
	if err != nil {
		return nil, err
	}

	overview := &models.ScheduleOverview{WeekStart: week.StartDate.Format(dateLayout)}
	for _, day := range week.Days {
		entry := models.DayOverview{
			Date:    day.Date.Format(dateLayout),
			Weekday: day.Date.Weekday().String(),
			Lines:   make([]string, 0, len(day.Items)),
		}
		for _, item := range day.Items {
			entry.Lines = append(entry.Lines, OverviewLine(item, day.End()))
		}
		overview.Days = append(overview.Days, entry)
	}
	return overview, nil
}

// StudioSummary lists the studio booked for every live session of the week.
func (s *ScheduleService) StudioSummary(ctx context.Context, start time.Time) ([]models.StudioUsage, error) {
	week, err := s.Week(ctx, start)
	if err != nil {
		return nil, err
	}

	usage := []models.StudioUsage{}
	for _, day := range week.Days {
		for _, item := range day.Items {
			if item.Type != models.ContentTypeLive || item.Live == nil {
				continue
			}
			studio := determineStudio(item.Live.Hosts, item.Live.Guests)
			usage = append(usage, models.StudioUsage{
				EventID:    item.ID,
				Title:      item.Title,
				StartTime:  item.StartTime,
				Studio:     studio,
				HostCount:  len(item.Live.Hosts),
				GuestCount: len(item.Live.Guests),
				Summary:    studioLabel(item.Title, studio, len(item.Live.Guests)),
			})
		}
	}
	return usage, nil
}

// OverviewLine formats a single item. An item ending exactly at dayEnd is shown as ending at 24:00.
func OverviewLine(item models.ContentItem, dayEnd time.Time) string {
	end := item.EndTime().Format("15:04")
	if item.EndTime().Equal(dayEnd) {
		end = "24:00"
	}
	return fmt.Sprintf("%s-%s %s: %s", item.StartTime.Format("15:04"), end, typeLabel(item.Type), item.Title)
}

func typeLabel(t models.ContentType) string {
	switch t {
	case models.ContentTypeMusic:
		return "[Music]"
	case models.ContentTypeReportage:
		return "[Reportage]"
	case models.ContentTypeLive:
		return "[Live]"
	default:
		return "[Unknown]"
	}
}

func studioLabel(title string, studio models.Studio, guests int) string {
	label := "Studio 2"
	if studio == models.Studio1 {
		label = "Studio 1 (cheaper)"
	}
	if guests > 0 {
		label += fmt.Sprintf(" + %d guest(s)", guests)
	}
	return fmt.Sprintf("%s: %s", title, label)
}
