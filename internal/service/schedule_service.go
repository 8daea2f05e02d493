package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
	"github.com/noah-isme/radio-schedule-api/pkg/notify"
)

const (
	scheduleCachePattern = scheduleKeyPrefix + ":*"
	maxItemLockAttempts  = 3

	ActionScheduleLive      = "schedule_live"
	ActionScheduleReportage = "schedule_reportage"
	ActionReschedule        = "reschedule"
	ActionAddHost           = "add_host"
	ActionRemoveHost        = "remove_host"
	ActionAddGuest          = "add_guest"
	ActionRemoveGuest       = "remove_guest"
	ActionDelete            = "delete"
	ActionFill              = "fill"
)

var errItemMoved = errors.New("item moved to another day while waiting for lock")

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type contentRepository interface {
	ListByDay(ctx context.Context, exec sqlx.ExtContext, day time.Time) ([]models.ContentItem, error)
	ListByRange(ctx context.Context, from, to time.Time) ([]models.ContentItem, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ContentItem, error)
	LockDay(ctx context.Context, exec sqlx.ExtContext, day time.Time) error
	ApplyBatch(ctx context.Context, exec sqlx.ExtContext, batch *models.ContentBatch) error
}

// LiveSessionRequest describes a live session to place on the schedule.
type LiveSessionRequest struct {
	Title     string    `validate:"required"`
	StartTime time.Time `validate:"required"`
	Duration  time.Duration
	Hosts     []string `validate:"required,min=1,dive,required"`
	Guests    []string `validate:"dive,required"`
}

// ReportageRequest describes a reportage segment to place on the schedule.
type ReportageRequest struct {
	Title     string    `validate:"required"`
	StartTime time.Time `validate:"required"`
	Duration  time.Duration
	Topic     string `validate:"required"`
	Reporter  string `validate:"required"`
}

// ScheduleConfig tunes the schedule engine.
type ScheduleConfig struct {
	Location         *time.Location
	MusicTitle       string
	MusicGenre       string
	AutoFill         bool
	StrictReschedule bool
	CacheTTL         time.Duration
}

// ScheduleService owns the weekly timeline. Every mutation runs inside one transaction holding the affected days.
type ScheduleService struct {
	repo      contentRepository
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	publisher notify.Publisher
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleConfig
	locks     *dayLocks
	now       func() time.Time
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo contentRepository, tx txProvider, cache *CacheService, metrics *MetricsService, publisher notify.Publisher, validate *validator.Validate, logger *zap.Logger, cfg ScheduleConfig) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MusicTitle == "" {
		cfg.MusicTitle = "Music Playlist"
	}
	if cfg.MusicGenre == "" {
		cfg.MusicGenre = "Mixed"
	}
	return &ScheduleService{
		repo:      repo,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		publisher: publisher,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		locks:     newDayLocks(),
		now:       time.Now,
	}
}

// Location returns the station timezone used for day boundaries.
func (s *ScheduleService) Location() *time.Location {
	return s.cfg.Location
}

// ScheduleLiveSession clears room for the session and stores it with a derived studio.
func (s *ScheduleService) ScheduleLiveSession(ctx context.Context, req LiveSessionRequest) (*models.ContentItem, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Hosts = trimNames(req.Hosts)
	req.Guests = trimNames(req.Guests)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid live session payload")
	}
	start := req.StartTime.In(s.cfg.Location).Truncate(time.Second)
	duration := req.Duration.Truncate(time.Second)
	if err := s.validateSlot(start, duration); err != nil {
		return nil, err
	}

	item := models.ContentItem{
		Type:      models.ContentTypeLive,
		Title:     req.Title,
		StartTime: start,
		Duration:  duration,
		Live: &models.LiveSessionDetails{
			Hosts:  req.Hosts,
			Guests: req.Guests,
			Studio: determineStudio(req.Hosts, req.Guests),
		},
	}
	return s.place(ctx, item, ActionScheduleLive)
}

// ScheduleReportage clears room for the segment and stores it.
func (s *ScheduleService) ScheduleReportage(ctx context.Context, req ReportageRequest) (*models.ContentItem, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Topic = strings.TrimSpace(req.Topic)
	req.Reporter = strings.TrimSpace(req.Reporter)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reportage payload")
	}
	start := req.StartTime.In(s.cfg.Location).Truncate(time.Second)
	duration := req.Duration.Truncate(time.Second)
	if err := s.validateSlot(start, duration); err != nil {
		return nil, err
	}

	item := models.ContentItem{
		Type:      models.ContentTypeReportage,
		Title:     req.Title,
		StartTime: start,
		Duration:  duration,
		Reportage: &models.ReportageDetails{Topic: req.Topic, Reporter: req.Reporter},
	}
	return s.place(ctx, item, ActionScheduleReportage)
}

func (s *ScheduleService) place(ctx context.Context, item models.ContentItem, action string) (*models.ContentItem, error) {
	day := models.DayOf(item.StartTime, s.cfg.Location)

	var (
		created    models.ContentItem
		resolution conflictResolution
	)
	err := s.withDays(ctx, []time.Time{day}, func(tx *sqlx.Tx) error {
		items, err := s.repo.ListByDay(ctx, tx, day)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
		}
		s.localizeAll(items)

		resolution, err = resolveConflicts(items, item.StartTime, item.Duration, 0)
		if err != nil {
			s.logger.Error("unclassified schedule overlap", zap.String("date", day.Format(dateLayout)), zap.Error(err))
			return err
		}

		batch := resolution.batch
		batch.Day = day
		batch.Inserts = append(batch.Inserts, item)
		if err := s.repo.ApplyBatch(ctx, tx, &batch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule changes")
		}
		created = batch.Inserts[len(batch.Inserts)-1]

		if s.cfg.AutoFill {
			if _, err := s.fillDayTx(ctx, tx, day); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, removed := range resolution.removed {
		if !removed.IsMusic() {
			s.logger.Warn("existing program removed to make room",
				zap.Int64("removed_id", removed.ID),
				zap.String("removed_title", removed.Title),
				zap.Int64("new_id", created.ID))
		}
	}
	for _, c := range resolution.cases {
		s.metrics.RecordConflictResolution(string(c))
	}
	s.logger.Info("content scheduled",
		zap.String("action", action),
		zap.Int64("id", created.ID),
		zap.Time("start", created.StartTime),
		zap.Duration("duration", created.Duration),
		zap.Int("conflicts", len(resolution.cases)))
	s.afterCommit(ctx, action, []time.Time{day}, created.ID)

	return &created, nil
}

// RescheduleEvent moves an item to newStart keeping its duration. It returns false when the item does not exist.
// Overlaps at the destination are left as they are unless strict rescheduling is enabled.
func (s *ScheduleService) RescheduleEvent(ctx context.Context, id int64, newStart time.Time) (bool, error) {
	newStart = newStart.In(s.cfg.Location).Truncate(time.Second)
	if newStart.IsZero() {
		return false, appErrors.Clone(appErrors.ErrValidation, "new start time is required")
	}
	dst := models.DayOf(newStart, s.cfg.Location)

	var cases []conflictCase
	ok, days, err := s.withItem(ctx, id, []time.Time{dst}, func(tx *sqlx.Tx, src time.Time, item *models.ContentItem) (bool, error) {
		if err := s.validateSlot(newStart, item.Duration); err != nil {
			return false, err
		}
		item.StartTime = newStart

		batch := models.ContentBatch{Day: dst}
		if s.cfg.StrictReschedule {
			items, err := s.repo.ListByDay(ctx, tx, dst)
			if err != nil {
				return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
			}
			resolution, err := resolveConflicts(items, newStart, item.Duration, item.ID)
			if err != nil {
				return false, err
			}
			batch = resolution.batch
			batch.Day = dst
			cases = resolution.cases
		}
		batch.Updates = append(batch.Updates, *item)
		if err := s.repo.ApplyBatch(ctx, tx, &batch); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule event")
		}

		if s.cfg.AutoFill {
			for _, day := range uniqueDays([]time.Time{src, dst}) {
				if _, err := s.fillDayTx(ctx, tx, day); err != nil {
					return false, err
				}
			}
		}
		return true, nil
	})
	if err != nil || !ok {
		return ok, err
	}

	for _, c := range cases {
		s.metrics.RecordConflictResolution(string(c))
	}
	s.logger.Info("event rescheduled", zap.Int64("id", id), zap.Time("start", newStart))
	s.afterCommit(ctx, ActionReschedule, days, id)
	return true, nil
}

// AddHost appends name to a live session's hosts and re-derives its studio.
func (s *ScheduleService) AddHost(ctx context.Context, id int64, name string) (bool, error) {
	return s.mutateParticipants(ctx, id, name, ActionAddHost, func(live *models.LiveSessionDetails, name string) bool {
		return addName(&live.Hosts, name)
	})
}

// RemoveHost drops name from a live session's hosts and re-derives its studio.
func (s *ScheduleService) RemoveHost(ctx context.Context, id int64, name string) (bool, error) {
	return s.mutateParticipants(ctx, id, name, ActionRemoveHost, func(live *models.LiveSessionDetails, name string) bool {
		return removeName(&live.Hosts, name)
	})
}

// AddGuest appends name to a live session's guests and re-derives its studio.
func (s *ScheduleService) AddGuest(ctx context.Context, id int64, name string) (bool, error) {
	return s.mutateParticipants(ctx, id, name, ActionAddGuest, func(live *models.LiveSessionDetails, name string) bool {
		return addName(&live.Guests, name)
	})
}

// RemoveGuest drops name from a live session's guests and re-derives its studio.
func (s *ScheduleService) RemoveGuest(ctx context.Context, id int64, name string) (bool, error) {
	return s.mutateParticipants(ctx, id, name, ActionRemoveGuest, func(live *models.LiveSessionDetails, name string) bool {
		return removeName(&live.Guests, name)
	})
}

func (s *ScheduleService) mutateParticipants(ctx context.Context, id int64, name, action string, mutate func(*models.LiveSessionDetails, string) bool) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	ok, days, err := s.withItem(ctx, id, nil, func(tx *sqlx.Tx, day time.Time, item *models.ContentItem) (bool, error) {
		if item.Type != models.ContentTypeLive || item.Live == nil {
			return false, nil
		}
		if !mutate(item.Live, name) {
			return false, nil
		}
		item.Live.Studio = determineStudio(item.Live.Hosts, item.Live.Guests)

		batch := models.ContentBatch{Day: day, Updates: []models.ContentItem{*item}}
		if err := s.repo.ApplyBatch(ctx, tx, &batch); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update live session")
		}
		return true, nil
	})
	if err != nil || !ok {
		return ok, err
	}

	s.logger.Info("live session updated", zap.String("action", action), zap.Int64("id", id), zap.String("name", name))
	s.afterCommit(ctx, action, days, id)
	return true, nil
}

// DeleteEvent removes an item permanently. It returns false when the item does not exist.
func (s *ScheduleService) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	ok, days, err := s.withItem(ctx, id, nil, func(tx *sqlx.Tx, day time.Time, item *models.ContentItem) (bool, error) {
		batch := models.ContentBatch{Day: day, Deletes: []int64{item.ID}}
		if err := s.repo.ApplyBatch(ctx, tx, &batch); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
		}
		if s.cfg.AutoFill {
			if _, err := s.fillDayTx(ctx, tx, day); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil || !ok {
		return ok, err
	}

	s.logger.Info("event deleted", zap.Int64("id", id))
	s.afterCommit(ctx, ActionDelete, days, id)
	return true, nil
}

// FillWithMusic fills every gap of the seven days starting at start. It returns the number of blocks created.
func (s *ScheduleService) FillWithMusic(ctx context.Context, start time.Time) (int, error) {
	first := models.DayOf(start, s.cfg.Location)
	days := make([]time.Time, models.DaysInWeek)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}

	filled := make(map[string]int, len(days))
	err := s.withDays(ctx, days, func(tx *sqlx.Tx) error {
		for _, day := range days {
			n, err := s.fillDayTx(ctx, tx, day)
			if err != nil {
				return err
			}
			filled[day.Format(dateLayout)] = n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	total := 0
	var changed []time.Time
	for _, day := range days {
		if n := filled[day.Format(dateLayout)]; n > 0 {
			total += n
			changed = append(changed, day)
		}
	}
	s.metrics.RecordMusicBlocks(total)
	if total > 0 {
		s.logger.Info("week filled with music", zap.String("start", first.Format(dateLayout)), zap.Int("blocks", total))
		s.afterCommit(ctx, ActionFill, changed, 0)
	}
	return total, nil
}

// GetEventByID loads a single item.
func (s *ScheduleService) GetEventByID(ctx context.Context, id int64) (*models.ContentItem, error) {
	item, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	s.localize(item)
	return item, nil
}

func (s *ScheduleService) fillDayTx(ctx context.Context, tx *sqlx.Tx, day time.Time) (int, error) {
	items, err := s.repo.ListByDay(ctx, tx, day)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	s.localizeAll(items)

	blocks := planMusicFill(models.DaySchedule{Date: day, Items: items}, s.cfg.MusicTitle, s.cfg.MusicGenre)
	if len(blocks) == 0 {
		return 0, nil
	}
	batch := models.ContentBatch{Day: day, Inserts: blocks}
	if err := s.repo.ApplyBatch(ctx, tx, &batch); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store music blocks")
	}
	return len(blocks), nil
}

func (s *ScheduleService) validateSlot(start time.Time, duration time.Duration) error {
	if duration <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "duration must be positive")
	}
	day := models.DayOf(start, s.cfg.Location)
	if start.Add(duration).After(day.AddDate(0, 0, 1)) {
		return appErrors.Clone(appErrors.ErrValidation, "content must end by midnight of its start day")
	}
	return nil
}

// withDays runs fn in one transaction while holding every day exclusively.
func (s *ScheduleService) withDays(ctx context.Context, days []time.Time, fn func(tx *sqlx.Tx) error) (err error) {
	days = uniqueDays(days)
	unlock := s.locks.lock(days)
	defer unlock()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, day := range days {
		if err = s.repo.LockDay(ctx, tx, day); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock day schedule")
		}
	}

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

// withItem locks the day holding item id (plus extra) and passes the freshly read item to fn.
// It reports false without error when the item does not exist.
func (s *ScheduleService) withItem(ctx context.Context, id int64, extra []time.Time, fn func(tx *sqlx.Tx, day time.Time, item *models.ContentItem) (bool, error)) (bool, []time.Time, error) {
	for attempt := 0; attempt < maxItemLockAttempts; attempt++ {
		item, err := s.repo.FindByID(ctx, nil, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil, nil
			}
			return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
		}
		day := models.DayOf(item.StartTime, s.cfg.Location)
		days := uniqueDays(append([]time.Time{day}, extra...))

		changed := false
		err = s.withDays(ctx, days, func(tx *sqlx.Tx) error {
			locked, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
			}
			s.localize(locked)
			if !models.DayOf(locked.StartTime, s.cfg.Location).Equal(day) {
				return errItemMoved
			}
			changed, err = fn(tx, day, locked)
			return err
		})
		if errors.Is(err, errItemMoved) {
			continue
		}
		return changed, days, err
	}
	return false, nil, appErrors.Wrap(errItemMoved, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock event")
}

// afterCommit runs best-effort side effects of a committed mutation.
func (s *ScheduleService) afterCommit(ctx context.Context, action string, days []time.Time, id int64) {
	s.metrics.RecordScheduleMutation(action)

	if err := s.cache.Advance(ctx); err != nil {
		s.logger.Warn("failed to advance schedule cache generation", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, scheduleCachePattern); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.Error(err))
	}

	occurred := s.now().UTC()
	for _, day := range days {
		change := models.ScheduleChange{Action: action, Date: day.Format(dateLayout), ItemID: id, OccurredAt: occurred}
		if err := s.publisher.Publish(ctx, change); err != nil {
			s.logger.Warn("failed to publish schedule change", zap.String("action", action), zap.String("date", change.Date), zap.Error(err))
		}
	}
}

func (s *ScheduleService) localize(item *models.ContentItem) {
	if item != nil {
		item.StartTime = item.StartTime.In(s.cfg.Location)
	}
}

func (s *ScheduleService) localizeAll(items []models.ContentItem) {
	for i := range items {
		s.localize(&items[i])
	}
}

func trimNames(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = strings.TrimSpace(name)
	}
	return out
}

func addName(names *[]string, name string) bool {
	for _, existing := range *names {
		if existing == name {
			return false
		}
	}
	*names = append(*names, name)
	return true
}

func removeName(names *[]string, name string) bool {
	for i, existing := range *names {
		if existing == name {
			*names = append((*names)[:i], (*names)[i+1:]...)
			return true
		}
	}
	return false
}
