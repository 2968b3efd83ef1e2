package liveness

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status describes whether the sensor is still reporting.
type Status string

const (
	StatusOnline  Status = "online"
	StatusDelayed Status = "delayed"
	StatusOffline Status = "offline"
	// StatusNoData means nothing has ever been stored.
	StatusNoData Status = "no_data"
)

// Statuses lists every status, used to reset one-hot gauges.
var Statuses = []Status{StatusOnline, StatusDelayed, StatusOffline, StatusNoData}

// Default latency cutoffs.
const (
	DefaultOnline  = 5 * time.Second
	DefaultOffline = 15 * time.Second
)

// Thresholds holds the latency cutoffs. Latency below Online is online,
// below Offline is delayed, anything else is offline.
type Thresholds struct {
	Online  time.Duration `koanf:"online" yaml:"online"`
	Offline time.Duration `koanf:"offline" yaml:"offline"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Online: DefaultOnline, Offline: DefaultOffline}
}

func (t Thresholds) Validate() error {
	if t.Online <= 0 {
		return fmt.Errorf("online threshold must be positive, got %s", t.Online)
	}
	if t.Offline <= t.Online {
		return fmt.Errorf("offline threshold (%s) must exceed online threshold (%s)", t.Offline, t.Online)
	}
	return nil
}

// Report is the liveness of the stream at one instant.
type Report struct {
	Status         Status        `json:"status"`
	Latency        time.Duration `json:"-"`
	LatencySeconds float64       `json:"latency_seconds"`
	LastSeen       *time.Time    `json:"last_seen,omitempty"`
}

// NoData is the report for an empty store.
func NoData() Report {
	return Report{Status: StatusNoData}
}

// Monitor classifies the age of the newest reading.
type Monitor struct {
	thresholds Thresholds
}

func NewMonitor(t Thresholds) *Monitor {
	return &Monitor{thresholds: t}
}

// Classify reports liveness for a newest reading observed at latest.
// A latest in the future (clock skew) counts as zero latency.
func (m *Monitor) Classify(latest, now time.Time) Report {
	latency := now.Sub(latest)
	if latency < 0 {
		latency = 0
	}

	status := StatusOffline
	switch {
	case latency < m.thresholds.Online:
		status = StatusOnline
	case latency < m.thresholds.Offline:
		status = StatusDelayed
	}

	seen := latest.UTC()
	return Report{
		Status:         status,
		Latency:        latency,
		LatencySeconds: decimal.NewFromFloat(latency.Seconds()).Round(2).InexactFloat64(),
		LastSeen:       &seen,
	}
}
