package projection

import (
	"time"

	"github.com/sensorwatch-lab/sensorwatch/internal/anomaly"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/insight"
	"github.com/sensorwatch-lab/sensorwatch/internal/liveness"
)

// Data states reported alongside every query result.
const (
	StateOK     = "ok"
	StateNoData = "no_data"
)

// LatestQuery represents the query parameters for GET /v1/readings/latest.
type LatestQuery struct {
	Limit int `form:"limit"`
}

// SpanQuery represents the span query parameter for windowed endpoints.
type SpanQuery struct {
	Span string `form:"span"`
}

// ReadingsResponse is returned by the readings endpoints.
type ReadingsResponse struct {
	State    string       `json:"status"`
	Count    int          `json:"count"`
	Span     string       `json:"span,omitempty"`
	Fallback bool         `json:"fallback,omitempty"`
	Readings []v1.Reading `json:"readings"`
}

// ScoreReport is the z-score of the newest reading of one metric against its window.
type ScoreReport struct {
	State    string        `json:"status"`
	Metric   v1.Metric     `json:"metric"`
	Z        float64       `json:"z"`
	Label    anomaly.Label `json:"label"`
	Samples  int           `json:"samples"`
	Current  *float64      `json:"current,omitempty"`
	Span     string        `json:"span"`
	Fallback bool          `json:"fallback"`
}

// Snapshot is everything a dashboard or assistant needs in one read.
type Snapshot struct {
	State       string                    `json:"status"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Latest      *v1.Reading               `json:"latest,omitempty"`
	Liveness    liveness.Report           `json:"liveness"`
	Scores      map[v1.Metric]ScoreReport `json:"scores"`
	Insights    []insight.Insight         `json:"insights"`
	WindowSize  int                       `json:"window_size"`
	Span        string                    `json:"span"`
	Fallback    bool                      `json:"fallback"`
	Recent      []v1.Reading              `json:"recent"`
}
