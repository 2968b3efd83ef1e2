package anomaly

import (
	"testing"
	"time"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/stretchr/testify/require"
)

func TestScorer_ScoreWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	readings := make([]v1.Reading, 0, 15)
	for i := 0; i < 14; i++ {
		readings = append(readings, v1.Reading{
			SequenceID: int64(i + 1),
			Draft:      v1.Draft{ObservedAt: base.Add(time.Duration(i) * time.Second), Temperature: 20, Humidity: 50, Distance: 120},
		})
	}
	readings = append(readings, v1.Reading{
		SequenceID: 15,
		Draft:      v1.Draft{ObservedAt: base.Add(15 * time.Second), Temperature: 22, Humidity: 50.6, Distance: 120},
	})

	s := NewScorer(DefaultThresholds(), map[v1.Metric]Thresholds{
		v1.MetricHumidity: {MinSamples: 15, StdFloor: 1, Low: 0.5, High: 5},
	})

	got := s.ScoreWindow(readings)
	require.Len(t, got, 3)
	require.Equal(t, Result{Z: 4, Label: LabelAnomaly}, got[v1.MetricTemperature])
	require.Equal(t, Result{Z: 0.6, Label: LabelWarning}, got[v1.MetricHumidity])
	require.Equal(t, Result{Z: 0, Label: LabelNormal}, got[v1.MetricDistance])
}

func TestScorer_ThresholdsFallback(t *testing.T) {
	override := Thresholds{MinSamples: 5, StdFloor: 2, Low: 1, High: 2}
	s := NewScorer(DefaultThresholds(), map[v1.Metric]Thresholds{v1.MetricDistance: override})

	require.Equal(t, override, s.Thresholds(v1.MetricDistance))
	require.Equal(t, DefaultThresholds(), s.Thresholds(v1.MetricTemperature))
	require.Equal(t, Result{Z: 0, Label: LabelNormal}, s.Score([]float64{1, 2, 3}))
}
