package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sensorwatch-lab/sensorwatch/internal/anomaly"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/insight"
	"github.com/sensorwatch-lab/sensorwatch/internal/liveness"
	"github.com/sensorwatch-lab/sensorwatch/internal/window"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLatestLimit = 100
	defaultMaxLimit    = 500
	defaultRecentCount = 10
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid query")

// Options tunes the query layer.
type Options struct {
	// Span is the trailing window used when a request names none.
	Span time.Duration
	// LatestLimit is the default number of readings for Latest; MaxLimit caps it.
	LatestLimit int
	MaxLimit    int
	// RecentCount is how many readings a Snapshot carries.
	RecentCount int
}

func DefaultOptions() Options {
	return Options{
		Span:        window.DefaultSpan,
		LatestLimit: defaultLatestLimit,
		MaxLimit:    defaultMaxLimit,
		RecentCount: defaultRecentCount,
	}
}

// Service implements the query layer over the window reader.
// It never writes and never caches: every call reflects the store as of the call.
type Service struct {
	reader  *window.Reader
	scorer  *anomaly.Scorer
	monitor *liveness.Monitor
	rules   insight.Rules
	opts    Options
	nowFn   func() time.Time
}

// NewService creates a new projection service.
func NewService(
	reader *window.Reader,
	scorer *anomaly.Scorer,
	monitor *liveness.Monitor,
	rules insight.Rules,
	opts Options,
) *Service {
	def := DefaultOptions()
	if opts.Span <= 0 {
		opts.Span = def.Span
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	if opts.LatestLimit <= 0 || opts.LatestLimit > opts.MaxLimit {
		opts.LatestLimit = min(def.LatestLimit, opts.MaxLimit)
	}
	if opts.RecentCount <= 0 {
		opts.RecentCount = def.RecentCount
	}

	return &Service{
		reader:  reader,
		scorer:  scorer,
		monitor: monitor,
		rules:   rules,
		opts:    opts,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Latest returns up to limit normalized readings, newest first.
// limit <= 0 uses the default; limits above MaxLimit are rejected.
func (s *Service) Latest(ctx context.Context, limit int) ([]v1.Reading, error) {
	if limit <= 0 {
		limit = s.opts.LatestLimit
	}
	if limit > s.opts.MaxLimit {
		return nil, invalidQueryf("limit must be at most %d, got %d", s.opts.MaxLimit, limit)
	}
	return s.reader.Recent(ctx, limit)
}

// Window returns the trailing window, oldest first. span <= 0 uses the default span.
func (s *Service) Window(ctx context.Context, span time.Duration) (window.Window, error) {
	return s.reader.Trailing(ctx, s.spanOrDefault(span))
}

// Score scores the newest reading of metric against the trailing window.
func (s *Service) Score(ctx context.Context, metric v1.Metric, span time.Duration) (*ScoreReport, error) {
	w, err := s.Window(ctx, span)
	if err != nil {
		return nil, err
	}
	report := s.scoreMetric(metric, w)
	return &report, nil
}

// Liveness classifies the newest stored reading relative to now.
func (s *Service) Liveness(ctx context.Context, now time.Time) (liveness.Report, error) {
	latest, err := s.reader.Recent(ctx, 1)
	if err != nil {
		return liveness.Report{}, err
	}
	if len(latest) == 0 {
		return liveness.NoData(), nil
	}
	return s.monitor.Classify(latest[0].ObservedAt, now), nil
}

// Status assembles a full snapshot. The recent readings and the trailing
// window are fetched concurrently; either failing fails the snapshot.
// Both are cut at the newest sequence id the two reads share, so Latest and
// every score's Current describe the same reading.
func (s *Service) Status(ctx context.Context) (*Snapshot, error) {
	now := s.nowFn()

	var (
		recent []v1.Reading
		w      window.Window
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = s.reader.Recent(gctx, s.opts.RecentCount)
		return err
	})
	g.Go(func() error {
		var err error
		w, err = s.reader.Trailing(gctx, s.opts.Span)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	recent, w.Readings = alignAt(recent, w.Readings)

	snap := &Snapshot{
		State:       StateNoData,
		GeneratedAt: now,
		Liveness:    liveness.NoData(),
		Scores:      make(map[v1.Metric]ScoreReport, len(v1.Metrics)),
		Insights:    []insight.Insight{},
		WindowSize:  len(w.Readings),
		Span:        s.opts.Span.String(),
		Fallback:    w.Fallback,
		Recent:      recent,
	}
	for _, m := range v1.Metrics {
		snap.Scores[m] = s.scoreMetric(m, w)
	}

	if len(recent) == 0 {
		return snap, nil
	}

	latest := recent[0]
	snap.State = StateOK
	snap.Latest = &latest
	snap.Liveness = s.monitor.Classify(latest.ObservedAt, now)
	snap.Insights = s.rules.Evaluate(latest)
	return snap, nil
}

func (s *Service) scoreMetric(metric v1.Metric, w window.Window) ScoreReport {
	series := v1.Series(w.Readings, metric)
	result := s.scorer.ScoreMetric(metric, series)

	report := ScoreReport{
		State:    StateNoData,
		Metric:   metric,
		Z:        result.Z,
		Label:    result.Label,
		Samples:  len(series),
		Span:     w.Span.String(),
		Fallback: w.Fallback,
	}
	if len(series) > 0 {
		current := series[len(series)-1]
		report.State = StateOK
		report.Current = &current
	}
	return report
}

// alignAt drops readings appended between the two reads. recent is newest
// first and chron oldest first.
func alignAt(recent, chron []v1.Reading) ([]v1.Reading, []v1.Reading) {
	if len(recent) == 0 || len(chron) == 0 {
		return recent, chron
	}

	cut := min(recent[0].SequenceID, chron[len(chron)-1].SequenceID)

	i := 0
	for i < len(recent) && recent[i].SequenceID > cut {
		i++
	}
	j := len(chron)
	for j > 0 && chron[j-1].SequenceID > cut {
		j--
	}
	return recent[i:], chron[:j]
}

func (s *Service) spanOrDefault(span time.Duration) time.Duration {
	if span <= 0 {
		return s.opts.Span
	}
	return span
}

func invalidQueryf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
