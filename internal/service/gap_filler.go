package service

import (
	"time"

	"github.com/noah-isme/radio-schedule-api/internal/models"
)

// planMusicFill returns one music block per maximal uncovered gap of day.
// An already covered day yields nothing, which makes repeated fills no-ops.
func planMusicFill(day models.DaySchedule, title, genre string) []models.ContentItem {
	items := append([]models.ContentItem(nil), day.Items...)
	models.SortItems(items)

	dayStart, dayEnd := day.Start(), day.End()
	cursor := dayStart
	var blocks []models.ContentItem

	for _, item := range items {
		gapEnd := minTime(item.StartTime, dayEnd)
		if cursor.Before(gapEnd) {
			blocks = append(blocks, models.NewMusicBlock(title, genre, cursor, gapEnd))
		}
		if end := item.EndTime(); end.After(cursor) {
			cursor = end
		}
		if !cursor.Before(dayEnd) {
			return blocks
		}
	}

	if cursor.Before(dayEnd) {
		blocks = append(blocks, models.NewMusicBlock(title, genre, cursor, dayEnd))
	}
	return blocks
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
