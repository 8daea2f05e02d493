package service

import (
	"sort"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// dayLocks serialises mutations per calendar day inside one process.
// Cross-process exclusion comes from the advisory lock taken in the same transaction.
type dayLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDayLocks() *dayLocks {
	return &dayLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires every day in ascending order and returns the matching unlock.
func (d *dayLocks) lock(days []time.Time) func() {
	keys := dayKeys(days)

	held := make([]*sync.Mutex, 0, len(keys))
	for _, key := range keys {
		d.mu.Lock()
		m, ok := d.locks[key]
		if !ok {
			m = &sync.Mutex{}
			d.locks[key] = m
		}
		d.mu.Unlock()

		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// uniqueDays sorts days and drops duplicates.
func uniqueDays(days []time.Time) []time.Time {
	out := make([]time.Time, 0, len(days))
	seen := make(map[string]struct{}, len(days))
	for _, day := range days {
		key := day.Format(dateLayout)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func dayKeys(days []time.Time) []string {
	unique := uniqueDays(days)
	keys := make([]string, len(unique))
	for i, day := range unique {
		keys[i] = day.Format(dateLayout)
	}
	return keys
}
