package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"
	"github.com/sensorwatch-lab/sensorwatch/internal/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "readings.db"), 0)
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrations(db, migrations.DriverSQLite, true))

	a, err := NewAdapter(db)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func draftAt(ts time.Time, temp float64) v1.Draft {
	return v1.Draft{ObservedAt: ts, Temperature: temp, Humidity: 50, Distance: 120}
}

func TestAdapter_AppendAssignsIncreasingSequence(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := a.Append(ctx, draftAt(base, 20))
	require.NoError(t, err)
	second, err := a.Append(ctx, draftAt(base.Add(time.Second), 21))
	require.NoError(t, err)

	require.Greater(t, second.SequenceID, first.SequenceID)
	require.Equal(t, 21.0, second.Temperature)

	n, err := a.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestAdapter_AppendReturnsStoredForm(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	tests := []struct {
		name string
		at   time.Time
	}{
		{name: "wall clock with monotonic reading", at: time.Now()},
		{name: "nanoseconds in another zone", at: time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.FixedZone("CET", 3600))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appended, err := a.Append(ctx, draftAt(tt.at, 22.5))
			require.NoError(t, err)
			require.Equal(t, storage.StoredTime(tt.at), appended.ObservedAt)

			got, err := a.Recent(ctx, 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Equal(t, *appended, got[0])
		})
	}
}

func TestAdapter_RecentNewestFirst(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := a.Append(ctx, draftAt(base.Add(time.Duration(i)*time.Second), float64(i)))
		require.NoError(t, err)
	}

	got, err := a.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []float64{4, 3, 2}, []float64{got[0].Temperature, got[1].Temperature, got[2].Temperature})

	all, err := a.Recent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, all, 5)

	none, err := a.Recent(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestAdapter_SinceWindowAscending(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	_, err := a.Append(ctx, draftAt(now.Add(-2*time.Minute), 1))
	require.NoError(t, err)
	_, err = a.Append(ctx, draftAt(now.Add(-30*time.Second), 2))
	require.NoError(t, err)
	_, err = a.Append(ctx, draftAt(now.Add(-1*time.Second), 3))
	require.NoError(t, err)

	got, err := a.Since(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 2.0, got[0].Temperature)
	require.Equal(t, 3.0, got[1].Temperature)
	require.Equal(t, now.Add(-30*time.Second), got[0].ObservedAt)
	require.Equal(t, time.UTC, got[0].ObservedAt.Location())

	empty, err := a.Since(ctx, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestAdapter_TimestampRoundTripMicroseconds(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 123456000, time.FixedZone("CET", 3600))

	_, err := a.Append(ctx, draftAt(ts, 22.5))
	require.NoError(t, err)

	got, err := a.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, ts.Equal(got[0].ObservedAt))
	require.Equal(t, "2026-03-01T09:00:00.123456Z", formatTime(got[0].ObservedAt))
}

func TestAdapter_ConcurrentAppendsUniqueSequence(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	const writers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := a.Append(ctx, draftAt(base.Add(time.Duration(i)*time.Millisecond), float64(i)))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[r.SequenceID] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, seen, writers)
}

func TestOpen_PooledConnectionsShareSettings(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pool.db"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.Equal(t, 3, db.Stats().MaxOpenConnections)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		conn, err := db.Conn(ctx) // held open so the next iteration gets a new connection
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })

		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		require.Equal(t, "wal", mode)

		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		require.Equal(t, 5000, timeout)
	}
}

func TestAdapter_ReadsProceedDuringWrite(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.Append(ctx, draftAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), 20))
	require.NoError(t, err)

	tx, err := a.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO readings (observed_at, temperature, humidity, distance) VALUES (?, ?, ?, ?)",
		"2026-03-01T10:00:01.000000Z", 21.0, 50.0, 120)
	require.NoError(t, err)

	readCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	got, err := a.Recent(readCtx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 20.0, got[0].Temperature)
}

func TestPragmaDSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "plain path", path: "data/readings.db", want: "file:data/readings.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"},
		{name: "uri with params", path: "file:r.db?mode=rwc", want: "file:r.db?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"},
		{name: "memory", path: ":memory:", want: "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, pragmaDSN(tt.path))
		})
	}
}

func TestAdapter_ClosedDatabaseIsUnavailable(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "closed.db"), 0)
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrations(db, migrations.DriverSQLite, true))
	a, err := NewAdapter(db)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = a.Recent(context.Background(), 5)
	require.Error(t, err)
	require.True(t, errors.Is(err, storage.ErrUnavailable))

	require.ErrorIs(t, a.Ping(context.Background()), storage.ErrUnavailable)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2026-03-01T09:00:00.000001Z")
	require.NoError(t, err)
	require.Equal(t, 1000, got.Nanosecond())

	got, err = parseTime("2026-03-01T10:00:00+01:00")
	require.NoError(t, err)
	require.Equal(t, 9, got.Hour())

	_, err = parseTime("yesterday")
	require.Error(t, err)
}
