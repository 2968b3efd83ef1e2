package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sensorwatch-lab/sensorwatch/internal/anomaly"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/liveness"
	"github.com/sensorwatch-lab/sensorwatch/internal/metrics"
	"github.com/sensorwatch-lab/sensorwatch/internal/projection"
)

// StatusSource produces status snapshots. Satisfied by *projection.Service.
type StatusSource interface {
	Status(ctx context.Context) (*projection.Snapshot, error)
}

// Monitor pulls a status snapshot on a fixed interval, exports it as
// metrics and logs liveness and label transitions.
// It only reads; ingestion never waits on it.
type Monitor struct {
	interval time.Duration
	source   StatusSource
	metrics  *metrics.Metrics

	mu         sync.Mutex
	last       *projection.Snapshot
	lastStatus liveness.Status
	lastLabels map[v1.Metric]anomaly.Label
}

// New creates a monitor. m may be nil.
func New(interval time.Duration, source StatusSource, m *metrics.Metrics) *Monitor {
	return &Monitor{
		interval:   interval,
		source:     source,
		metrics:    m,
		lastLabels: make(map[v1.Metric]anomaly.Label, len(v1.Metrics)),
	}
}

// Start refreshes immediately and then on every tick.
// Runs until context is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("[Monitor] Starting status monitor", "interval", m.interval)

	m.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			m.refresh(ctx)
		case <-ctx.Done():
			slog.Info("[Monitor] Stopping (context cancelled)")
			return nil
		}
	}
}

// Last returns the most recent successful snapshot, or nil.
func (m *Monitor) Last() *projection.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// refresh bounds each pull by the interval so a slow store cannot stack ticks.
func (m *Monitor) refresh(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	snap, err := m.source.Status(tickCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.metrics.RefreshFailed()
		slog.Error("[Monitor] Failed to compute status", "error", err)
		return
	}

	m.observe(snap)
}

func (m *Monitor) observe(snap *projection.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = snap

	known := make([]string, len(liveness.Statuses))
	for i, s := range liveness.Statuses {
		known[i] = string(s)
	}
	m.metrics.ObserveLiveness(string(snap.Liveness.Status), snap.Liveness.Latency, known)
	m.metrics.ObserveWindow(snap.WindowSize)

	if snap.Liveness.Status != m.lastStatus {
		slog.Info("[Monitor] Liveness changed",
			"from", m.lastStatus,
			"to", snap.Liveness.Status,
			"latency_seconds", snap.Liveness.LatencySeconds,
		)
		m.lastStatus = snap.Liveness.Status
	}

	for _, metric := range v1.Metrics {
		score, ok := snap.Scores[metric]
		if !ok {
			continue
		}
		m.metrics.ObserveScore(string(metric), score.Z, score.Label.Level())

		prev, seen := m.lastLabels[metric]
		if seen && prev == score.Label {
			continue
		}
		m.lastLabels[metric] = score.Label
		if !seen && score.Label == anomaly.LabelNormal {
			continue
		}

		log := slog.Info
		if score.Label == anomaly.LabelAnomaly {
			log = slog.Warn
		}
		log("[Monitor] Score label changed",
			"metric", metric,
			"from", prev,
			"to", score.Label,
			"z", score.Z,
			"samples", score.Samples,
		)
	}
}
