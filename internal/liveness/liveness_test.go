package liveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitor_Classify(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMonitor(DefaultThresholds())

	tests := []struct {
		name    string
		age     time.Duration
		want    Status
		latency float64
	}{
		{name: "fresh", age: 0, want: StatusOnline, latency: 0},
		{name: "just under online", age: 4999 * time.Millisecond, want: StatusOnline, latency: 5},
		{name: "online boundary is delayed", age: 5 * time.Second, want: StatusDelayed, latency: 5},
		{name: "delayed", age: 12345 * time.Millisecond, want: StatusDelayed, latency: 12.35},
		{name: "offline boundary", age: 15 * time.Second, want: StatusOffline, latency: 15},
		{name: "long gone", age: time.Hour, want: StatusOffline, latency: 3600},
		{name: "future reading clamps", age: -3 * time.Second, want: StatusOnline, latency: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Classify(now.Add(-tt.age), now)
			require.Equal(t, tt.want, got.Status)
			require.Equal(t, tt.latency, got.LatencySeconds)
			require.GreaterOrEqual(t, got.Latency, time.Duration(0))
			require.NotNil(t, got.LastSeen)
		})
	}
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
	require.Error(t, Thresholds{Online: 0, Offline: time.Second}.Validate())
	require.Error(t, Thresholds{Online: 10 * time.Second, Offline: 10 * time.Second}.Validate())
}

func TestNoData(t *testing.T) {
	r := NoData()
	require.Equal(t, StatusNoData, r.Status)
	require.Nil(t, r.LastSeen)
}
