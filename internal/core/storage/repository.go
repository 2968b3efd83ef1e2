package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
)

// ErrUnavailable marks failures of the backing store. Callers must surface it
// rather than treat it as "no data".
var ErrUnavailable = errors.New("storage unavailable")

// UnavailableError wraps a driver error for one store operation.
// errors.Is(err, ErrUnavailable) reports true for it.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Unavailable builds an UnavailableError for op.
func Unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}

// Precision is the timestamp resolution every store keeps.
const Precision = time.Microsecond

// StoredTime converts t to the form a store persists and reads back:
// UTC, truncated to Precision, with no monotonic clock reading.
func StoredTime(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}

// ReadingStore is the append-only log of validated readings.
type ReadingStore interface {
	// Append persists the draft and returns it with its assigned SequenceID.
	// The returned ObservedAt is normalized with StoredTime, so it equals
	// what later reads return.
	// A successful return means the row is visible to every later read.
	Append(ctx context.Context, draft v1.Draft) (*v1.Reading, error)

	// Recent returns up to limit readings, most recently appended first.
	// An empty store (or limit <= 0) yields an empty slice, not an error.
	Recent(ctx context.Context, limit int) ([]v1.Reading, error)

	// Since returns every reading observed within window of now, oldest first.
	Since(ctx context.Context, window time.Duration) ([]v1.Reading, error)

	// Count returns the number of stored readings.
	Count(ctx context.Context) (int64, error)

	// Ping checks that the store can be reached.
	Ping(ctx context.Context) error
}
