package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

type conflictCase string

const (
	conflictRemoveProgram  conflictCase = "remove_program"
	conflictSplitMusic     conflictCase = "split_music"
	conflictTrimMusicEnd   conflictCase = "trim_music_end"
	conflictMoveMusicStart conflictCase = "move_music_start"
	conflictRemoveMusic    conflictCase = "remove_music"
)

// conflictResolution is the batch clearing [start, end) plus the cases that produced it.
type conflictResolution struct {
	batch   models.ContentBatch
	cases   []conflictCase
	removed []models.ContentItem
}

// resolveConflicts computes the edits needed so that nothing in items overlaps [start, start+duration).
// items is not modified. skipID excludes one item, used when an existing item is being moved.
func resolveConflicts(items []models.ContentItem, start time.Time, duration time.Duration, skipID int64) (conflictResolution, error) {
	end := start.Add(duration)
	var res conflictResolution

	for _, existing := range items {
		if skipID != 0 && existing.ID == skipID {
			continue
		}
		if !existing.Overlaps(start, end) {
			continue
		}

		itemStart, itemEnd := existing.StartTime, existing.EndTime()
		switch {
		case !existing.IsMusic():
			res.batch.Deletes = append(res.batch.Deletes, existing.ID)
			res.removed = append(res.removed, existing)
			res.cases = append(res.cases, conflictRemoveProgram)

		case itemStart.Before(start) && itemEnd.After(end):
			head := existing.Clone()
			head.Duration = start.Sub(itemStart)
			tail := existing.Clone()
			tail.ID = 0
			tail.StartTime = end
			tail.Duration = itemEnd.Sub(end)
			res.batch.Updates = append(res.batch.Updates, head)
			res.batch.Inserts = append(res.batch.Inserts, tail)
			res.cases = append(res.cases, conflictSplitMusic)

		case itemStart.Before(start) && !itemEnd.After(end) && itemEnd.After(start):
			trimmed := existing.Clone()
			trimmed.Duration = start.Sub(itemStart)
			res.batch.Updates = append(res.batch.Updates, trimmed)
			res.cases = append(res.cases, conflictTrimMusicEnd)

		case !itemStart.Before(start) && itemStart.Before(end) && itemEnd.After(end):
			moved := existing.Clone()
			moved.StartTime = end
			moved.Duration = itemEnd.Sub(end)
			res.batch.Updates = append(res.batch.Updates, moved)
			res.cases = append(res.cases, conflictMoveMusicStart)

		case !itemStart.Before(start) && !itemEnd.After(end):
			res.batch.Deletes = append(res.batch.Deletes, existing.ID)
			res.removed = append(res.removed, existing)
			res.cases = append(res.cases, conflictRemoveMusic)

		default:
			return conflictResolution{}, appErrors.Wrap(
				fmt.Errorf("item %d [%s, %s) against [%s, %s)", existing.ID, itemStart.Format(time.RFC3339), itemEnd.Format(time.RFC3339), start.Format(time.RFC3339), end.Format(time.RFC3339)),
				appErrors.ErrConflictInternal.Code, appErrors.ErrConflictInternal.Status, appErrors.ErrConflictInternal.Message)
		}
	}

	return res, nil
}

// applyBatch returns items with batch applied in memory. Inserted items keep ID 0 unless already assigned.
func applyBatch(items []models.ContentItem, batch models.ContentBatch) []models.ContentItem {
	deleted := make(map[int64]struct{}, len(batch.Deletes))
	for _, id := range batch.Deletes {
		deleted[id] = struct{}{}
	}
	updated := make(map[int64]models.ContentItem, len(batch.Updates))
	for _, item := range batch.Updates {
		updated[item.ID] = item
	}

	out := make([]models.ContentItem, 0, len(items)+len(batch.Inserts))
	for _, item := range items {
		if _, ok := deleted[item.ID]; ok {
			continue
		}
		if u, ok := updated[item.ID]; ok {
			item = u
		}
		out = append(out, item)
	}
	out = append(out, batch.Inserts...)
	models.SortItems(out)
	return out
}
