package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/radio-schedule-api/internal/models"
)

// hookedTx reports the outcome of a transaction back to the in-memory repository.
type hookedTx struct {
	driver.Tx
	onCommit   func()
	onRollback func()
}

func (t *hookedTx) Commit() error {
	if err := t.Tx.Commit(); err != nil {
		t.finish(t.onRollback)
		return err
	}
	t.finish(t.onCommit)
	return nil
}

func (t *hookedTx) Rollback() error {
	err := t.Tx.Rollback()
	t.finish(t.onRollback)
	return err
}

func (t *hookedTx) finish(fn func()) {
	if fn != nil {
		fn()
	}
}

// hookedConn wraps the sqlmock connection so every driver transaction is a hookedTx.
type hookedConn struct {
	driver.Conn
	begun *hookedTx
}

func (c *hookedConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	tx, err := c.Conn.(driver.ConnBeginTx).BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	c.begun = &hookedTx{Tx: tx}
	return c.begun, nil
}

// Close leaves the shared sqlmock connection open; the mock database owns it.
func (c *hookedConn) Close() error { return nil }

type hookedConnector struct {
	conn *hookedConn
	drv  driver.Driver
}

func (c hookedConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }

func (c hookedConnector) Driver() driver.Driver { return c.drv }

type txProviderMock struct {
	mu   sync.Mutex
	db   *sqlx.DB
	conn *hookedConn
	repo *memContentRepo
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	conn := &hookedConn{Conn: mock.(driver.Conn)}
	db := sql.OpenDB(hookedConnector{conn: conn, drv: mockDB.Driver()})
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock"), conn: conn}, mock
}

// bind makes repo stage writes per transaction and publish them only on commit.
func (p *txProviderMock) bind(repo *memContentRepo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repo = repo
}

func (p *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, err := p.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	if p.repo != nil {
		p.repo.track(tx, p.conn.begun)
	}
	return tx, nil
}

// expectTransactions allows up to n transactions in any order.
func expectTransactions(mock sqlmock.Sqlmock, n int) {
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
}

type storedContent struct {
	day  string
	item models.ContentItem
}

// memTx holds the writes of one open transaction.
type memTx struct {
	ops []func(rows map[int64]storedContent)
}

// memContentRepo keeps content in memory and honours batches like the SQL repository.
// Writes through a tracked transaction stay private to it until commit.
type memContentRepo struct {
	mu         sync.Mutex
	rows       map[int64]storedContent
	pending    map[sqlx.ExtContext]*memTx
	nextID     int64
	applyErr   error
	failAt     int
	applyCalls int
	locked     []string
	batches    int
	commits    int
	rollbacks  int
	findCalls  int
}

func newMemContentRepo() *memContentRepo {
	return &memContentRepo{rows: make(map[int64]storedContent), pending: make(map[sqlx.ExtContext]*memTx), nextID: 1}
}

func (m *memContentRepo) track(tx *sqlx.Tx, hooked *hookedTx) {
	m.mu.Lock()
	m.pending[tx] = &memTx{}
	m.mu.Unlock()
	hooked.onCommit = func() { m.finish(tx, true) }
	hooked.onRollback = func() { m.finish(tx, false) }
}

func (m *memContentRepo) finish(tx *sqlx.Tx, commit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.pending[tx]
	if !ok {
		return
	}
	delete(m.pending, tx)
	if !commit {
		m.rollbacks++
		return
	}
	for _, op := range state.ops {
		op(m.rows)
	}
	m.commits++
}

// view returns the rows as seen by exec. Callers hold m.mu.
func (m *memContentRepo) view(exec sqlx.ExtContext) map[int64]storedContent {
	state, ok := m.pending[exec]
	if !ok || len(state.ops) == 0 {
		return m.rows
	}
	rows := make(map[int64]storedContent, len(m.rows))
	for id, row := range m.rows {
		rows[id] = row
	}
	for _, op := range state.ops {
		op(rows)
	}
	return rows
}

func (m *memContentRepo) ListByDay(ctx context.Context, exec sqlx.ExtContext, day time.Time) ([]models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := day.Format(dateLayout)
	items := []models.ContentItem{}
	for _, row := range m.view(exec) {
		if row.day == key {
			items = append(items, row.item.Clone())
		}
	}
	models.SortItems(items)
	return items, nil
}

func (m *memContentRepo) ListByRange(ctx context.Context, from, to time.Time) ([]models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lo, hi := from.Format(dateLayout), to.Format(dateLayout)
	items := []models.ContentItem{}
	for _, row := range m.rows {
		if row.day >= lo && row.day < hi {
			items = append(items, row.item.Clone())
		}
	}
	models.SortItems(items)
	return items, nil
}

func (m *memContentRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	row, ok := m.view(exec)[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	item := row.item.Clone()
	return &item, nil
}

func (m *memContentRepo) LockDay(ctx context.Context, exec sqlx.ExtContext, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = append(m.locked, day.Format(dateLayout))
	return nil
}

func (m *memContentRepo) ApplyBatch(ctx context.Context, exec sqlx.ExtContext, batch *models.ContentBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyCalls++
	if m.applyErr != nil {
		return m.applyErr
	}
	if m.failAt > 0 && m.applyCalls == m.failAt {
		return errors.New("disk full")
	}

	current := m.view(exec)
	for _, item := range batch.Updates {
		if _, ok := current[item.ID]; !ok {
			return sql.ErrNoRows
		}
	}
	for i := range batch.Inserts {
		batch.Inserts[i].ID = m.nextID
		m.nextID++
	}

	key := batch.Day.Format(dateLayout)
	deletes := append([]int64(nil), batch.Deletes...)
	writes := make([]models.ContentItem, 0, len(batch.Updates)+len(batch.Inserts))
	for _, item := range batch.Updates {
		writes = append(writes, item.Clone())
	}
	for _, item := range batch.Inserts {
		writes = append(writes, item.Clone())
	}
	op := func(rows map[int64]storedContent) {
		for _, id := range deletes {
			delete(rows, id)
		}
		for _, item := range writes {
			rows[item.ID] = storedContent{day: key, item: item.Clone()}
		}
	}

	m.batches++
	if state, ok := m.pending[exec]; ok {
		state.ops = append(state.ops, op)
		return nil
	}
	op(m.rows)
	return nil
}

func (m *memContentRepo) seed(day time.Time, items ...models.ContentItem) []int64 {
	batch := &models.ContentBatch{Day: day, Inserts: items}
	if err := m.ApplyBatch(context.Background(), nil, batch); err != nil {
		panic(err)
	}
	ids := make([]int64, len(batch.Inserts))
	for i, item := range batch.Inserts {
		ids[i] = item.ID
	}
	return ids
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.ScheduleChange
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, change models.ScheduleChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

func musicItem(start time.Time, d time.Duration) models.ContentItem {
	return models.ContentItem{Type: models.ContentTypeMusic, Title: "Music Playlist", StartTime: start, Duration: d, Music: &models.MusicDetails{Genre: "Mixed"}}
}

func reportageItem(title string, start time.Time, d time.Duration) models.ContentItem {
	return models.ContentItem{Type: models.ContentTypeReportage, Title: title, StartTime: start, Duration: d, Reportage: &models.ReportageDetails{Topic: "News", Reporter: "Dana"}}
}

func liveItem(title string, start time.Time, d time.Duration, hosts, guests []string) models.ContentItem {
	return models.ContentItem{Type: models.ContentTypeLive, Title: title, StartTime: start, Duration: d,
		Live: &models.LiveSessionDetails{Hosts: hosts, Guests: guests, Studio: determineStudio(hosts, guests)}}
}

// assertNoOverlap fails when two items of the same list overlap.
func assertNoOverlap(t *testing.T, items []models.ContentItem) {
	t.Helper()
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[i].Overlaps(items[j].StartTime, items[j].EndTime()) {
				t.Fatalf("items %d [%s, %s) and %d [%s, %s) overlap",
					items[i].ID, items[i].StartTime.Format("15:04"), items[i].EndTime().Format("15:04"),
					items[j].ID, items[j].StartTime.Format("15:04"), items[j].EndTime().Format("15:04"))
			}
		}
	}
}

// assertCovers fails unless items tile [day, day+24h) without gaps.
func assertCovers(t *testing.T, day time.Time, items []models.ContentItem) {
	t.Helper()
	sorted := append([]models.ContentItem(nil), items...)
	models.SortItems(sorted)
	cursor := day
	for _, item := range sorted {
		if item.StartTime.After(cursor) {
			t.Fatalf("gap [%s, %s)", cursor.Format("15:04"), item.StartTime.Format("15:04"))
		}
		if item.EndTime().After(cursor) {
			cursor = item.EndTime()
		}
	}
	if cursor.Before(day.AddDate(0, 0, 1)) {
		t.Fatalf("day not covered after %s", cursor.Format("15:04"))
	}
}
