package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/radio-schedule-api/internal/models"
)

const (
	contentColumns = `id, schedule_date, content_type, title, start_time, duration_seconds, genre, topic, reporter, hosts, guests, studio, auto_filled, created_at, updated_at`
	dateLayout     = "2006-01-02"
)

type contentRow struct {
	ID              int64          `db:"id"`
	ScheduleDate    time.Time      `db:"schedule_date"`
	ContentType     string         `db:"content_type"`
	Title           string         `db:"title"`
	StartTime       time.Time      `db:"start_time"`
	DurationSeconds int64          `db:"duration_seconds"`
	Genre           sql.NullString `db:"genre"`
	Topic           sql.NullString `db:"topic"`
	Reporter        sql.NullString `db:"reporter"`
	Hosts           pq.StringArray `db:"hosts"`
	Guests          pq.StringArray `db:"guests"`
	Studio          sql.NullString `db:"studio"`
	AutoFilled      bool           `db:"auto_filled"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r contentRow) toModel() models.ContentItem {
	item := models.ContentItem{
		ID:         r.ID,
		Type:       models.ContentType(r.ContentType),
		Title:      r.Title,
		StartTime:  r.StartTime,
		Duration:   time.Duration(r.DurationSeconds) * time.Second,
		AutoFilled: r.AutoFilled,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	switch item.Type {
	case models.ContentTypeMusic:
		item.Music = &models.MusicDetails{Genre: r.Genre.String}
	case models.ContentTypeReportage:
		item.Reportage = &models.ReportageDetails{Topic: r.Topic.String, Reporter: r.Reporter.String}
	case models.ContentTypeLive:
		item.Live = &models.LiveSessionDetails{
			Hosts:  append([]string{}, r.Hosts...),
			Guests: append([]string{}, r.Guests...),
			Studio: models.Studio(r.Studio.String),
		}
	}
	return item
}

func contentRowFromModel(item models.ContentItem, day time.Time) contentRow {
	row := contentRow{
		ID:              item.ID,
		ScheduleDate:    day,
		ContentType:     string(item.Type),
		Title:           item.Title,
		StartTime:       item.StartTime.UTC(),
		DurationSeconds: int64(item.Duration / time.Second),
		Hosts:           pq.StringArray{},
		Guests:          pq.StringArray{},
		AutoFilled:      item.AutoFilled,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
	if item.Music != nil {
		row.Genre = sql.NullString{String: item.Music.Genre, Valid: true}
	}
	if item.Reportage != nil {
		row.Topic = sql.NullString{String: item.Reportage.Topic, Valid: true}
		row.Reporter = sql.NullString{String: item.Reportage.Reporter, Valid: true}
	}
	if item.Live != nil {
		row.Hosts = append(pq.StringArray{}, item.Live.Hosts...)
		row.Guests = append(pq.StringArray{}, item.Live.Guests...)
		row.Studio = sql.NullString{String: string(item.Live.Studio), Valid: true}
	}
	return row
}

// ContentRepository persists scheduled content items grouped by broadcast day.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new content repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// BeginTxx starts a transaction on the underlying database.
func (r *ContentRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// ListByDay returns the items filed under day ordered by start and id. A day without rows yields an empty slice.
func (r *ContentRepository) ListByDay(ctx context.Context, exec sqlx.ExtContext, day time.Time) ([]models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM scheduled_contents WHERE schedule_date = $1 ORDER BY start_time ASC, id ASC`
	var rows []contentRow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, day.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("list contents by day: %w", err)
	}
	return toContentItems(rows), nil
}

// ListByRange returns the items filed under days in [from, to).
func (r *ContentRepository) ListByRange(ctx context.Context, from, to time.Time) ([]models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM scheduled_contents WHERE schedule_date >= $1 AND schedule_date < $2 ORDER BY start_time ASC, id ASC`
	var rows []contentRow
	if err := r.db.SelectContext(ctx, &rows, query, from.Format(dateLayout), to.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("list contents by range: %w", err)
	}
	return toContentItems(rows), nil
}

// FindByID loads a single item. It returns sql.ErrNoRows when absent.
func (r *ContentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM scheduled_contents WHERE id = $1`
	var row contentRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, id); err != nil {
		return nil, err
	}
	item := row.toModel()
	return &item, nil
}

// LockDay takes a transaction-scoped advisory lock on day. exec must be a transaction.
func (r *ContentRepository) LockDay(ctx context.Context, exec sqlx.ExtContext, day time.Time) error {
	const query = `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := r.exec(exec).ExecContext(ctx, query, "schedule:"+day.Format(dateLayout)); err != nil {
		return fmt.Errorf("lock day %s: %w", day.Format(dateLayout), err)
	}
	return nil
}

// ApplyBatch writes deletes, updates and inserts in that order. Inserted items receive their ids in place.
func (r *ContentRepository) ApplyBatch(ctx context.Context, exec sqlx.ExtContext, batch *models.ContentBatch) error {
	if batch.Empty() {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	day := batch.Day.Format(dateLayout)

	if len(batch.Inserts) > 0 || len(batch.Updates) > 0 {
		const ensureDay = `INSERT INTO day_schedules (date, created_at) VALUES ($1, $2) ON CONFLICT (date) DO NOTHING`
		if _, err := target.ExecContext(ctx, ensureDay, day, now); err != nil {
			return fmt.Errorf("ensure day schedule %s: %w", day, err)
		}
	}

	if len(batch.Deletes) > 0 {
		const deleteQuery = `DELETE FROM scheduled_contents WHERE id = ANY($1)`
		if _, err := target.ExecContext(ctx, deleteQuery, pq.Array(batch.Deletes)); err != nil {
			return fmt.Errorf("delete contents: %w", err)
		}
	}

	const updateQuery = `UPDATE scheduled_contents SET schedule_date = $1, content_type = $2, title = $3, start_time = $4, duration_seconds = $5, genre = $6, topic = $7, reporter = $8, hosts = $9, guests = $10, studio = $11, auto_filled = $12, updated_at = $13 WHERE id = $14`
	for i := range batch.Updates {
		batch.Updates[i].UpdatedAt = now
		row := contentRowFromModel(batch.Updates[i], batch.Day)
		res, err := target.ExecContext(ctx, updateQuery,
			day, row.ContentType, row.Title, row.StartTime, row.DurationSeconds,
			row.Genre, row.Topic, row.Reporter, row.Hosts, row.Guests, row.Studio,
			row.AutoFilled, row.UpdatedAt, row.ID,
		)
		if err != nil {
			return fmt.Errorf("update content %d: %w", row.ID, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("update content %d: %w", row.ID, sql.ErrNoRows)
		}
	}

	const insertQuery = `INSERT INTO scheduled_contents (schedule_date, content_type, title, start_time, duration_seconds, genre, topic, reporter, hosts, guests, studio, auto_filled, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	for i := range batch.Inserts {
		batch.Inserts[i].CreatedAt = now
		batch.Inserts[i].UpdatedAt = now
		row := contentRowFromModel(batch.Inserts[i], batch.Day)
		var id int64
		if err := target.QueryRowxContext(ctx, insertQuery,
			day, row.ContentType, row.Title, row.StartTime, row.DurationSeconds,
			row.Genre, row.Topic, row.Reporter, row.Hosts, row.Guests, row.Studio,
			row.AutoFilled, row.CreatedAt, row.UpdatedAt,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
		batch.Inserts[i].ID = id
	}

	return nil
}

func toContentItems(rows []contentRow) []models.ContentItem {
	items := make([]models.ContentItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items
}
