package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"
	_ "modernc.org/sqlite" // Register sqlite driver
)

// TimeLayout is the on-disk timestamp format: UTC, microsecond precision, fixed width.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

var _ storage.ReadingStore = (*Adapter)(nil)

// Adapter implements storage.ReadingStore on an embedded SQLite file.
type Adapter struct {
	db         *sql.DB
	stmtAppend *sql.Stmt
	stmtRecent *sql.Stmt
	stmtSince  *sql.Stmt
	stmtCount  *sql.Stmt
	now        func() time.Time
}

// DefaultMaxOpenConns bounds the pool when the caller passes none.
// Readers share the pool under WAL; the ingestion gate serializes writers.
const DefaultMaxOpenConns = 4

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

// Open opens (or creates) the SQLite database at path with a pool of up to
// maxOpenConns connections. ":memory:" is limited to one connection, since
// each connection would otherwise see its own database.
func Open(path string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", pragmaDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}
	if path == ":memory:" {
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, storage.Unavailable("connect", err)
	}

	slog.Info("[SQLite] Database opened", "path", path, "max_open_conns", maxOpenConns)
	return db, nil
}

// pragmaDSN appends the pragmas as modernc.org/sqlite _pragma parameters.
func pragmaDSN(path string) string {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + sep + strings.Join(params, "&")
}

// NewAdapter prepares the reading statements on an open database.
// The readings table must exist; run migrations first.
func NewAdapter(db *sql.DB) (*Adapter, error) {
	a := &Adapter{db: db, now: time.Now}

	var err error
	if a.stmtAppend, err = db.Prepare(queryAppendReading); err != nil {
		return nil, fmt.Errorf("failed to prepare append statement (did you run migrations?): %w", err)
	}
	if a.stmtRecent, err = db.Prepare(queryRecentReadings); err != nil {
		a.closeStatements()
		return nil, fmt.Errorf("failed to prepare recent statement: %w", err)
	}
	if a.stmtSince, err = db.Prepare(querySinceReadings); err != nil {
		a.closeStatements()
		return nil, fmt.Errorf("failed to prepare since statement: %w", err)
	}
	if a.stmtCount, err = db.Prepare(queryCountReadings); err != nil {
		a.closeStatements()
		return nil, fmt.Errorf("failed to prepare count statement: %w", err)
	}

	slog.Info("[SQLite] Adapter initialized with prepared statements")
	return a, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		// Rows written by other tools may carry RFC3339 text.
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("invalid observed_at %q: %w", s, err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReadingRow(row scanner) (v1.Reading, error) {
	var (
		r          v1.Reading
		observedAt string
	)
	if err := row.Scan(&r.SequenceID, &observedAt, &r.Temperature, &r.Humidity, &r.Distance); err != nil {
		return v1.Reading{}, fmt.Errorf("failed to scan reading row: %w", err)
	}
	t, err := parseTime(observedAt)
	if err != nil {
		return v1.Reading{}, err
	}
	r.ObservedAt = t
	return r, nil
}

func collectReadings(rows *sql.Rows) ([]v1.Reading, error) {
	defer rows.Close()

	readings := []v1.Reading{}
	for rows.Next() {
		r, err := scanReadingRow(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating readings: %w", err)
	}
	return readings, nil
}

// Append inserts the draft and returns the stored reading with its sequence id.
func (a *Adapter) Append(ctx context.Context, draft v1.Draft) (*v1.Reading, error) {
	draft.ObservedAt = storage.StoredTime(draft.ObservedAt)

	var seq int64
	err := a.stmtAppend.QueryRowContext(ctx,
		formatTime(draft.ObservedAt),
		draft.Temperature,
		draft.Humidity,
		draft.Distance,
	).Scan(&seq)
	if err != nil {
		return nil, storage.Unavailable("append", err)
	}

	slog.Debug("[SQLite] Appended reading", "sequence_id", seq)
	return &v1.Reading{SequenceID: seq, Draft: draft}, nil
}

// Recent returns up to limit readings ordered by sequence_id DESC.
func (a *Adapter) Recent(ctx context.Context, limit int) ([]v1.Reading, error) {
	if limit <= 0 {
		return []v1.Reading{}, nil
	}

	rows, err := a.stmtRecent.QueryContext(ctx, limit)
	if err != nil {
		return nil, storage.Unavailable("recent", err)
	}
	readings, err := collectReadings(rows)
	if err != nil {
		return nil, storage.Unavailable("recent", err)
	}
	return readings, nil
}

// Since returns readings with observed_at newer than now-window, ordered by sequence_id ASC.
func (a *Adapter) Since(ctx context.Context, window time.Duration) ([]v1.Reading, error) {
	cutoff := formatTime(a.now().Add(-window))

	rows, err := a.stmtSince.QueryContext(ctx, cutoff)
	if err != nil {
		return nil, storage.Unavailable("since", err)
	}
	readings, err := collectReadings(rows)
	if err != nil {
		return nil, storage.Unavailable("since", err)
	}
	return readings, nil
}

// Count returns the number of stored readings.
func (a *Adapter) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.stmtCount.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, storage.Unavailable("count", err)
	}
	return n, nil
}

// Ping checks that the database file is still reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

// DB returns the underlying *sql.DB.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

func (a *Adapter) closeStatements() error {
	var firstErr error
	for _, stmt := range []*sql.Stmt{a.stmtAppend, a.stmtRecent, a.stmtSince, a.stmtCount} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close statement: %w", err)
		}
	}
	return firstErr
}

// Close closes the prepared statements and the database.
func (a *Adapter) Close() error {
	firstErr := a.closeStatements()

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close database: %w", err)
	}
	if firstErr != nil {
		return firstErr
	}

	slog.Info("[SQLite] Adapter closed gracefully")
	return nil
}
