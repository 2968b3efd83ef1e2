package anomaly

import (
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
)

// Scorer applies per-metric thresholds, falling back to a shared default.
type Scorer struct {
	defaults  Thresholds
	overrides map[v1.Metric]Thresholds
}

func NewScorer(defaults Thresholds, overrides map[v1.Metric]Thresholds) *Scorer {
	s := &Scorer{
		defaults:  defaults,
		overrides: make(map[v1.Metric]Thresholds, len(overrides)),
	}
	for m, t := range overrides {
		s.overrides[m] = t
	}
	return s
}

// Thresholds returns the thresholds in effect for m.
func (s *Scorer) Thresholds(m v1.Metric) Thresholds {
	if t, ok := s.overrides[m]; ok {
		return t
	}
	return s.defaults
}

// Score scores series with the default thresholds.
func (s *Scorer) Score(series []float64) Result {
	return s.defaults.Score(series)
}

// ScoreMetric scores series with the thresholds for m.
func (s *Scorer) ScoreMetric(m v1.Metric, series []float64) Result {
	return s.Thresholds(m).Score(series)
}

// ScoreWindow scores every metric over the same chronological readings.
func (s *Scorer) ScoreWindow(readings []v1.Reading) map[v1.Metric]Result {
	out := make(map[v1.Metric]Result, len(v1.Metrics))
	for _, m := range v1.Metrics {
		out[m] = s.ScoreMetric(m, v1.Series(readings, m))
	}
	return out
}
