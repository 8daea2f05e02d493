package service

import (
	"strings"
	"time"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ResolveDay maps a day name to the next date with that weekday on or after the day of now.
// "today" and "tomorrow" are accepted as well.
func ResolveDay(name string, now time.Time, loc *time.Location) (time.Time, error) {
	today := models.DayOf(now, loc)

	var target time.Weekday
	switch key := strings.ToLower(strings.TrimSpace(name)); key {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	default:
		weekday, ok := weekdayNames[key]
		if !ok {
			return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "unknown day name: "+name)
		}
		target = weekday
	}

	offset := (int(target) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, offset), nil
}
