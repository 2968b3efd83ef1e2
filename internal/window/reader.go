package window

import (
	"context"
	"time"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"
)

const (
	DefaultSpan          = 60 * time.Second
	DefaultMaxDistance   = 400
	DefaultFarDistance   = 100
	DefaultFallbackCount = 5
)

// Options controls distance normalization and the empty-window fallback.
type Options struct {
	// MaxDistance is the largest plausible sensor distance. Zero disables the upper bound.
	MaxDistance int
	// FarDistance replaces distances that are non-positive or above MaxDistance.
	FarDistance int
	// FallbackEnabled makes Trailing return the last FallbackCount readings
	// when nothing falls inside the window.
	FallbackEnabled bool
	FallbackCount   int
}

func DefaultOptions() Options {
	return Options{
		MaxDistance:     DefaultMaxDistance,
		FarDistance:     DefaultFarDistance,
		FallbackEnabled: true,
		FallbackCount:   DefaultFallbackCount,
	}
}

// NormalizeDistance maps "nothing detected" and out-of-range echoes to FarDistance.
func (o Options) NormalizeDistance(d int) int {
	if d <= 0 || (o.MaxDistance > 0 && d > o.MaxDistance) {
		return o.FarDistance
	}
	return d
}

// Window is a chronological slice of readings.
type Window struct {
	Readings []v1.Reading `json:"readings"`
	// Span is the requested trailing duration; zero for count windows.
	Span time.Duration `json:"-"`
	// Fallback is true when Span held no readings and the newest readings were used instead.
	Fallback bool `json:"fallback"`
}

// Reader turns store queries into normalized, chronologically ordered windows.
type Reader struct {
	store storage.ReadingStore
	opts  Options
}

func NewReader(store storage.ReadingStore, opts Options) *Reader {
	if store == nil {
		panic("window: store must not be nil")
	}
	return &Reader{store: store, opts: opts}
}

// Options returns the reader's normalization settings.
func (r *Reader) Options() Options {
	return r.opts
}

// Recent returns up to n normalized readings, newest first.
func (r *Reader) Recent(ctx context.Context, n int) ([]v1.Reading, error) {
	readings, err := r.store.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	return r.normalize(readings), nil
}

// Count returns up to n of the newest readings in chronological order.
func (r *Reader) Count(ctx context.Context, n int) ([]v1.Reading, error) {
	readings, err := r.store.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	out := r.normalize(readings)
	reverse(out)
	return out, nil
}

// Trailing returns readings observed within span of now, oldest first.
// An empty span falls back to the newest FallbackCount readings when enabled.
func (r *Reader) Trailing(ctx context.Context, span time.Duration) (Window, error) {
	readings, err := r.store.Since(ctx, span)
	if err != nil {
		return Window{}, err
	}

	w := Window{Span: span}
	if len(readings) == 0 && r.opts.FallbackEnabled && r.opts.FallbackCount > 0 {
		recent, err := r.store.Recent(ctx, r.opts.FallbackCount)
		if err != nil {
			return Window{}, err
		}
		w.Readings = r.normalize(recent)
		reverse(w.Readings)
		w.Fallback = len(w.Readings) > 0
		return w, nil
	}

	w.Readings = r.normalize(readings)
	return w, nil
}

// normalize returns a copy of readings with distances normalized. Never nil.
func (r *Reader) normalize(readings []v1.Reading) []v1.Reading {
	out := make([]v1.Reading, len(readings))
	for i, rd := range readings {
		rd.Distance = r.opts.NormalizeDistance(rd.Distance)
		out[i] = rd
	}
	return out
}

func reverse(readings []v1.Reading) {
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
}
