package v1

import (
	"fmt"
	"math"
	"time"
)

// Metric names a monitored quantity carried by every Reading.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricDistance    Metric = "distance"
)

// Metrics lists the monitored metrics in payload validation order.
var Metrics = []Metric{MetricTemperature, MetricHumidity, MetricDistance}

// ParseMetric resolves a metric name.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Payload is an inbound sensor message after wire decoding.
// Only the three metric keys are read; anything else is ignored.
type Payload map[string]interface{}

// Draft is a validated reading that has not been stored yet.
// Only the ingestion gate builds one.
type Draft struct {
	// ObservedAt is the ingestion clock reading, not a sensor timestamp.
	ObservedAt time.Time `json:"observed_at"`

	// Temperature in degrees Celsius. No range is enforced.
	Temperature float64 `json:"temperature"`

	// Humidity in percent.
	Humidity float64 `json:"humidity"`

	// Distance in centimeters. Zero means "nothing detected" on most
	// ultrasonic sensors and is normalized by readers, never here.
	Distance int `json:"distance"`
}

// Validate ensures the draft can be appended.
func (d *Draft) Validate() error {
	if d.ObservedAt.IsZero() {
		return fmt.Errorf("observed_at is required")
	}
	if math.IsNaN(d.Temperature) || math.IsInf(d.Temperature, 0) {
		return fmt.Errorf("temperature must be finite")
	}
	if math.IsNaN(d.Humidity) || math.IsInf(d.Humidity, 0) {
		return fmt.Errorf("humidity must be finite")
	}
	if d.Distance < 0 {
		return fmt.Errorf("distance must not be negative")
	}
	return nil
}

// Reading is an immutable stored measurement.
type Reading struct {
	// SequenceID is assigned by the store at write time and is the only
	// ordering authority. ObservedAt may tie.
	SequenceID int64 `json:"sequence_id"`

	Draft
}

// Value returns the reading's value for m as a float.
func (r Reading) Value(m Metric) float64 {
	switch m {
	case MetricTemperature:
		return r.Temperature
	case MetricHumidity:
		return r.Humidity
	case MetricDistance:
		return float64(r.Distance)
	}
	return math.NaN()
}

// Series extracts the values of m from readings, preserving order.
func Series(readings []Reading, m Metric) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Value(m)
	}
	return out
}
