package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newTestScheduleService(t *testing.T, cfg ScheduleConfig) (*ScheduleService, *memContentRepo, *recordingPublisher) {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	expectTransactions(mock, 500)
	repo := newMemContentRepo()
	tx.bind(repo)
	publisher := &recordingPublisher{}
	svc := NewScheduleService(repo, tx, nil, nil, publisher, nil, zap.NewNop(), cfg)
	return svc, repo, publisher
}

func dayItems(t *testing.T, repo *memContentRepo, day time.Time) []models.ContentItem {
	t.Helper()
	items, err := repo.ListByDay(context.Background(), nil, day)
	require.NoError(t, err)
	return items
}

func TestScheduleServiceMorningShowOverFilledDay(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()

	filled, err := svc.FillWithMusic(ctx, monday)
	require.NoError(t, err)
	assert.Equal(t, 7, filled)

	show, err := svc.ScheduleLiveSession(ctx, LiveSessionRequest{Title: "Morning Show", StartTime: at(monday, 6, 0), Duration: 2 * time.Hour, Hosts: []string{"Ann"}})
	require.NoError(t, err)
	assert.NotZero(t, show.ID)
	assert.Equal(t, models.Studio1, show.Live.Studio)

	items := dayItems(t, repo, monday)
	require.Len(t, items, 3)
	assert.Equal(t, models.ContentTypeMusic, items[0].Type)
	assert.Equal(t, at(monday, 0, 0), items[0].StartTime)
	assert.Equal(t, 6*time.Hour, items[0].Duration)
	assert.Equal(t, show.ID, items[1].ID)
	assert.Equal(t, models.ContentTypeMusic, items[2].Type)
	assert.Equal(t, at(monday, 8, 0), items[2].StartTime)
	assert.Equal(t, 16*time.Hour, items[2].Duration)
	assertCovers(t, monday, items)
	assertNoOverlap(t, items)
}

func TestScheduleServiceSplitsContainingMusic(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ids := repo.seed(monday, musicItem(at(monday, 6, 0), 6*time.Hour))

	_, err := svc.ScheduleReportage(context.Background(), ReportageRequest{Title: "News", StartTime: at(monday, 8, 0), Duration: time.Hour, Topic: "City", Reporter: "Dana"})
	require.NoError(t, err)

	items := dayItems(t, repo, monday)
	require.Len(t, items, 3)
	assert.Equal(t, ids[0], items[0].ID)
	assert.Equal(t, [2]time.Time{at(monday, 6, 0), at(monday, 8, 0)}, [2]time.Time{items[0].StartTime, items[0].EndTime()})
	assert.Equal(t, models.ContentTypeReportage, items[1].Type)
	assert.Equal(t, [2]time.Time{at(monday, 9, 0), at(monday, 12, 0)}, [2]time.Time{items[2].StartTime, items[2].EndTime()})
	assert.Equal(t, "Mixed", items[2].Music.Genre)
}

func TestScheduleServiceAdjacentItemsUntouched(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ids := repo.seed(monday, musicItem(at(monday, 6, 0), 2*time.Hour), reportageItem("Late", at(monday, 9, 0), time.Hour))

	_, err := svc.ScheduleLiveSession(context.Background(), LiveSessionRequest{Title: "Slot", StartTime: at(monday, 8, 0), Duration: time.Hour, Hosts: []string{"Ann"}})
	require.NoError(t, err)

	items := dayItems(t, repo, monday)
	require.Len(t, items, 3)
	assert.Equal(t, ids[0], items[0].ID)
	assert.Equal(t, 2*time.Hour, items[0].Duration)
	assert.Equal(t, ids[1], items[2].ID)
	assert.Equal(t, at(monday, 9, 0), items[2].StartTime)
}

func TestScheduleServiceRemovesOverlappedProgram(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	repo.seed(monday, reportageItem("Old", at(monday, 8, 0), time.Hour))

	created, err := svc.ScheduleLiveSession(context.Background(), LiveSessionRequest{Title: "New", StartTime: at(monday, 8, 30), Duration: time.Hour, Hosts: []string{"Ann"}, Guests: []string{"Bob"}})
	require.NoError(t, err)
	assert.Equal(t, models.Studio2, created.Live.Studio)

	items := dayItems(t, repo, monday)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
}

func TestScheduleServiceValidation(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()

	cases := []struct {
		name string
		run  func() error
	}{
		{"zero duration", func() error {
			_, err := svc.ScheduleReportage(ctx, ReportageRequest{Title: "x", StartTime: at(monday, 8, 0), Topic: "t", Reporter: "r"})
			return err
		}},
		{"spans midnight", func() error {
			_, err := svc.ScheduleReportage(ctx, ReportageRequest{Title: "x", StartTime: at(monday, 23, 0), Duration: 2 * time.Hour, Topic: "t", Reporter: "r"})
			return err
		}},
		{"missing reporter", func() error {
			_, err := svc.ScheduleReportage(ctx, ReportageRequest{Title: "x", StartTime: at(monday, 8, 0), Duration: time.Hour, Topic: "t"})
			return err
		}},
		{"no hosts", func() error {
			_, err := svc.ScheduleLiveSession(ctx, LiveSessionRequest{Title: "x", StartTime: at(monday, 8, 0), Duration: time.Hour})
			return err
		}},
		{"blank host", func() error {
			_, err := svc.ScheduleLiveSession(ctx, LiveSessionRequest{Title: "x", StartTime: at(monday, 8, 0), Duration: time.Hour, Hosts: []string{"  "}})
			return err
		}},
		{"blank title", func() error {
			_, err := svc.ScheduleLiveSession(ctx, LiveSessionRequest{Title: " ", StartTime: at(monday, 8, 0), Duration: time.Hour, Hosts: []string{"Ann"}})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, dayItems(t, repo, monday))
}

func TestScheduleServiceItemEndingAtMidnight(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})

	_, err := svc.ScheduleReportage(context.Background(), ReportageRequest{Title: "Late", StartTime: at(monday, 23, 0), Duration: time.Hour, Topic: "t", Reporter: "r"})
	require.NoError(t, err)
	assert.Len(t, dayItems(t, repo, monday), 1)
	assert.Empty(t, dayItems(t, repo, monday.AddDate(0, 0, 1)))
}

func TestScheduleServiceFillIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()
	repo.seed(monday, reportageItem("News", at(monday, 8, 0), time.Hour), liveItem("Talk", at(monday, 12, 0), 2*time.Hour, []string{"Ann"}, nil))

	first, err := svc.FillWithMusic(ctx, monday)
	require.NoError(t, err)
	assert.Equal(t, 3+6, first)

	items := dayItems(t, repo, monday)
	assertCovers(t, monday, items)
	assertNoOverlap(t, items)
	for _, item := range items {
		if item.IsMusic() {
			assert.Equal(t, "Music Playlist", item.Title)
			assert.True(t, item.AutoFilled)
		}
	}

	second, err := svc.FillWithMusic(ctx, monday)
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.Len(t, dayItems(t, repo, monday), len(items))
}

func TestScheduleServiceStudioFollowsParticipants(t *testing.T) {
	svc, _, _ := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()

	show, err := svc.ScheduleLiveSession(ctx, LiveSessionRequest{Title: "Talk", StartTime: at(monday, 10, 0), Duration: time.Hour, Hosts: []string{"Ann"}})
	require.NoError(t, err)
	assert.Equal(t, models.Studio1, show.Live.Studio)

	studio := func() models.Studio {
		item, err := svc.GetEventByID(ctx, show.ID)
		require.NoError(t, err)
		return item.Live.Studio
	}

	ok, err := svc.AddGuest(ctx, show.ID, "Bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.Studio2, studio())

	ok, err = svc.RemoveGuest(ctx, show.ID, "Bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.Studio1, studio())

	ok, err = svc.AddHost(ctx, show.ID, "Cleo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.Studio2, studio())

	ok, err = svc.RemoveHost(ctx, show.ID, "Ann")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.Studio1, studio())
}

func TestScheduleServiceParticipantNoOps(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()
	ids := repo.seed(monday, liveItem("Talk", at(monday, 10, 0), time.Hour, []string{"Ann"}, nil), musicItem(at(monday, 12, 0), time.Hour))

	ok, err := svc.AddHost(ctx, ids[0], "Ann")
	require.NoError(t, err)
	assert.False(t, ok, "duplicate host")

	ok, err = svc.RemoveGuest(ctx, ids[0], "Nobody")
	require.NoError(t, err)
	assert.False(t, ok, "absent guest")

	ok, err = svc.AddGuest(ctx, ids[1], "Bob")
	require.NoError(t, err)
	assert.False(t, ok, "music block has no guests")

	ok, err = svc.AddHost(ctx, 999, "Bob")
	require.NoError(t, err)
	assert.False(t, ok, "missing event")

	_, err = svc.AddHost(ctx, ids[0], " ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceRescheduleRoundTrip(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()
	ids := repo.seed(monday, reportageItem("News", at(monday, 10, 0), 45*time.Minute))

	ok, err := svc.RescheduleEvent(ctx, ids[0], at(monday, 14, 0))
	require.NoError(t, err)
	require.True(t, ok)

	moved, err := svc.GetEventByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, at(monday, 14, 0), moved.StartTime)
	assert.Equal(t, 45*time.Minute, moved.Duration)

	ok, err = svc.RescheduleEvent(ctx, ids[0], at(monday, 10, 0))
	require.NoError(t, err)
	require.True(t, ok)

	back, err := svc.GetEventByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, at(monday, 10, 0), back.StartTime)
	assert.Equal(t, 45*time.Minute, back.Duration)
	assert.Equal(t, "News", back.Title)
}

func TestScheduleServiceRescheduleAcrossDays(t *testing.T) {
	svc, repo, publisher := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()
	tuesday := monday.AddDate(0, 0, 1)
	ids := repo.seed(monday, reportageItem("News", at(monday, 10, 0), time.Hour))

	ok, err := svc.RescheduleEvent(ctx, ids[0], at(tuesday, 9, 0))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Empty(t, dayItems(t, repo, monday))
	items := dayItems(t, repo, tuesday)
	require.Len(t, items, 1)
	assert.Equal(t, ids[0], items[0].ID)
	assert.Equal(t, []string{"2024-03-04", "2024-03-05"}, repo.locked[len(repo.locked)-2:])

	require.Len(t, publisher.changes, 2)
	assert.Equal(t, ActionReschedule, publisher.changes[0].Action)
}

func TestScheduleServiceRescheduleLeavesOverlapByDefault(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ids := repo.seed(monday, musicItem(at(monday, 10, 0), 2*time.Hour), reportageItem("News", at(monday, 14, 0), time.Hour))

	ok, err := svc.RescheduleEvent(context.Background(), ids[1], at(monday, 11, 0))
	require.NoError(t, err)
	require.True(t, ok)

	items := dayItems(t, repo, monday)
	require.Len(t, items, 2)
	assert.Equal(t, 2*time.Hour, items[0].Duration)
}

func TestScheduleServiceStrictRescheduleResolvesConflicts(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{StrictReschedule: true})
	ids := repo.seed(monday, musicItem(at(monday, 10, 0), 2*time.Hour), reportageItem("News", at(monday, 14, 0), time.Hour))

	ok, err := svc.RescheduleEvent(context.Background(), ids[1], at(monday, 11, 0))
	require.NoError(t, err)
	require.True(t, ok)

	items := dayItems(t, repo, monday)
	require.Len(t, items, 2)
	assert.Equal(t, time.Hour, items[0].Duration)
	assert.Equal(t, ids[1], items[1].ID)
	assertNoOverlap(t, items)
}

func TestScheduleServiceRescheduleRejectsMidnightSpan(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ids := repo.seed(monday, reportageItem("News", at(monday, 10, 0), 2*time.Hour))

	_, err := svc.RescheduleEvent(context.Background(), ids[0], at(monday, 23, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, at(monday, 10, 0), dayItems(t, repo, monday)[0].StartTime)
}

func TestScheduleServiceMissingEvent(t *testing.T) {
	svc, _, publisher := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()

	ok, err := svc.RescheduleEvent(ctx, 42, at(monday, 10, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.DeleteEvent(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.GetEventByID(ctx, 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, publisher.changes)
}

func TestScheduleServiceDeleteEvent(t *testing.T) {
	svc, repo, publisher := newTestScheduleService(t, ScheduleConfig{})
	ids := repo.seed(monday, reportageItem("News", at(monday, 10, 0), time.Hour))

	ok, err := svc.DeleteEvent(context.Background(), ids[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, dayItems(t, repo, monday))
	require.Len(t, publisher.changes, 1)
	assert.Equal(t, models.ScheduleChange{Action: ActionDelete, Date: "2024-03-04", ItemID: ids[0], OccurredAt: publisher.changes[0].OccurredAt}, publisher.changes[0])
}

func TestScheduleServiceAutoFillAfterDelete(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{AutoFill: true})
	ctx := context.Background()

	created, err := svc.ScheduleReportage(ctx, ReportageRequest{Title: "News", StartTime: at(monday, 10, 0), Duration: time.Hour, Topic: "t", Reporter: "r"})
	require.NoError(t, err)
	assert.Len(t, dayItems(t, repo, monday), 3)

	ok, err := svc.DeleteEvent(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	items := dayItems(t, repo, monday)
	assertCovers(t, monday, items)
	for _, item := range items {
		assert.True(t, item.IsMusic())
	}
}

func TestScheduleServicePublishFailureDoesNotFailMutation(t *testing.T) {
	svc, repo, publisher := newTestScheduleService(t, ScheduleConfig{})
	publisher.err = errors.New("broker down")

	_, err := svc.ScheduleReportage(context.Background(), ReportageRequest{Title: "News", StartTime: at(monday, 10, 0), Duration: time.Hour, Topic: "t", Reporter: "r"})
	require.NoError(t, err)
	assert.Len(t, dayItems(t, repo, monday), 1)
	assert.Len(t, publisher.changes, 1)
}

func TestScheduleServicePersistFailure(t *testing.T) {
	svc, repo, publisher := newTestScheduleService(t, ScheduleConfig{})
	repo.applyErr = errors.New("disk full")

	_, err := svc.ScheduleReportage(context.Background(), ReportageRequest{Title: "News", StartTime: at(monday, 10, 0), Duration: time.Hour, Topic: "t", Reporter: "r"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, publisher.changes)
}

func TestScheduleServiceRollsBackWhenAutoFillFails(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	repo := newMemContentRepo()
	tx.bind(repo)
	repo.seed(monday,
		musicItem(at(monday, 0, 0), 12*time.Hour),
		reportageItem("Noon News", at(monday, 12, 0), time.Hour),
	)
	before := dayItems(t, repo, monday)
	// The resolver batch succeeds, the music fill after it fails.
	repo.failAt = repo.applyCalls + 2
	publisher := &recordingPublisher{}
	svc := NewScheduleService(repo, tx, nil, nil, publisher, nil, zap.NewNop(), ScheduleConfig{AutoFill: true})

	_, err := svc.ScheduleLiveSession(context.Background(), LiveSessionRequest{
		Title: "Morning Show", StartTime: at(monday, 7, 0), Duration: time.Hour, Hosts: []string{"Mike"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, before, dayItems(t, repo, monday))
	assert.Equal(t, 2, repo.batches, "seed plus the staged resolver batch")
	assert.Equal(t, 1, repo.rollbacks)
	assert.Zero(t, repo.commits)
	assert.Empty(t, publisher.changes)
}

func TestScheduleServiceCommitPublishesStagedWrites(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	repo := newMemContentRepo()
	tx.bind(repo)
	svc := NewScheduleService(repo, tx, nil, nil, nil, nil, zap.NewNop(), ScheduleConfig{AutoFill: true})

	_, err := svc.ScheduleLiveSession(context.Background(), LiveSessionRequest{
		Title: "Morning Show", StartTime: at(monday, 7, 0), Duration: time.Hour, Hosts: []string{"Mike"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	items := dayItems(t, repo, monday)
	require.Len(t, items, 3)
	assertCovers(t, monday, items)
	assert.Equal(t, 1, repo.commits)
	assert.Zero(t, repo.rollbacks)
}

func TestScheduleServiceBeginFailure(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))
	svc := NewScheduleService(newMemContentRepo(), tx, nil, nil, nil, nil, nil, ScheduleConfig{})

	_, err := svc.FillWithMusic(context.Background(), monday)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceUsesStationDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{Location: loc})
	localTuesday := time.Date(2024, 3, 5, 0, 0, 0, 0, loc)

	created, err := svc.ScheduleReportage(context.Background(), ReportageRequest{Title: "Early", StartTime: time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC), Duration: time.Hour, Topic: "t", Reporter: "r"})
	require.NoError(t, err)
	assert.Equal(t, 1, created.StartTime.Hour())

	items := dayItems(t, repo, localTuesday)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
}

func TestScheduleServiceConcurrentPlacementsStayDisjoint(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ScheduleReportage(ctx, ReportageRequest{
				Title:     fmt.Sprintf("Segment %d", i),
				StartTime: at(monday, i, 30),
				Duration:  90 * time.Minute,
				Topic:     "t",
				Reporter:  "r",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items := dayItems(t, repo, monday)
	assert.NotEmpty(t, items)
	assertNoOverlap(t, items)
}

func TestScheduleServiceRandomPlacementsKeepInvariants(t *testing.T) {
	svc, repo, _ := newTestScheduleService(t, ScheduleConfig{})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 60; i++ {
		if i%10 == 0 {
			_, err := svc.FillWithMusic(ctx, monday)
			require.NoError(t, err)
		}
		startMinute := rng.Intn(23 * 60)
		maxDuration := 24*60 - startMinute
		duration := 15 + rng.Intn(120)
		if duration > maxDuration {
			duration = maxDuration
		}
		start := monday.Add(time.Duration(startMinute) * time.Minute)

		var err error
		if rng.Intn(2) == 0 {
			_, err = svc.ScheduleLiveSession(ctx, LiveSessionRequest{Title: "Live", StartTime: start, Duration: time.Duration(duration) * time.Minute, Hosts: []string{"Ann"}})
		} else {
			_, err = svc.ScheduleReportage(ctx, ReportageRequest{Title: "Report", StartTime: start, Duration: time.Duration(duration) * time.Minute, Topic: "t", Reporter: "r"})
		}
		require.NoError(t, err)
		assertNoOverlap(t, dayItems(t, repo, monday))
	}

	_, err := svc.FillWithMusic(ctx, monday)
	require.NoError(t, err)
	items := dayItems(t, repo, monday)
	assertNoOverlap(t, items)
	assertCovers(t, monday, items)
}
