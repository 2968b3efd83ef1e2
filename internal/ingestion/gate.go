package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"
	"github.com/sensorwatch-lab/sensorwatch/internal/metrics"
)

// ErrValidation is matched by every payload rejection.
var ErrValidation = errors.New("payload validation failed")

// Reason classifies a rejected field. Values double as metric labels.
type Reason string

const (
	ReasonMissing    Reason = "missing_field"
	ReasonNotNumeric Reason = "not_numeric"
	ReasonNotFinite  Reason = "not_finite"
	ReasonOutOfRange Reason = "out_of_range"
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason Reason
	Value  interface{}
}

func (e *ValidationError) Error() string {
	if e.Reason == ReasonMissing {
		return fmt.Sprintf("missing required field: %s", e.Field)
	}
	return fmt.Sprintf("invalid field %s: %s (got %v)", e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Gate validates raw payloads and appends them to the store.
// Stamping and appending happen under one lock so ObservedAt never
// decreases as SequenceID increases.
type Gate struct {
	store   storage.ReadingStore
	metrics *metrics.Metrics
	nowFn   func() time.Time

	mu sync.Mutex
}

// NewGate creates a gate over store. m may be nil.
func NewGate(store storage.ReadingStore, m *metrics.Metrics) *Gate {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	return &Gate{
		store:   store,
		metrics: m,
		nowFn:   time.Now,
	}
}

// Ingest validates payload, stamps it with the ingestion clock and appends it.
// Rejections match ErrValidation; store errors are returned as-is.
func (g *Gate) Ingest(ctx context.Context, payload v1.Payload) (*v1.Reading, error) {
	draft, verr := coerce(payload)
	if verr != nil {
		g.metrics.ReadingRejected(string(verr.Reason))
		slog.Warn("[Ingestion] Payload rejected", "field", verr.Field, "reason", verr.Reason)
		return nil, verr
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	draft.ObservedAt = storage.StoredTime(g.nowFn())
	if err := draft.Validate(); err != nil {
		g.metrics.ReadingRejected("invalid")
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	reading, err := g.store.Append(ctx, draft)
	if err != nil {
		g.metrics.ReadingRejected("storage")
		slog.Error("[Ingestion] Failed to append reading", "error", err)
		return nil, err
	}

	g.metrics.ReadingIngested()
	slog.Debug("[Ingestion] Reading stored",
		"sequence_id", reading.SequenceID,
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
		"distance", reading.Distance)
	return reading, nil
}

// coerce checks the required keys in order and converts their values.
func coerce(payload v1.Payload) (v1.Draft, *ValidationError) {
	for _, m := range v1.Metrics {
		if _, ok := payload[string(m)]; !ok {
			return v1.Draft{}, &ValidationError{Field: string(m), Reason: ReasonMissing}
		}
	}

	var (
		d      v1.Draft
		reason Reason
	)
	if d.Temperature, reason = toFloat(payload[string(v1.MetricTemperature)]); reason != "" {
		return v1.Draft{}, fieldError(v1.MetricTemperature, reason, payload)
	}
	if d.Humidity, reason = toFloat(payload[string(v1.MetricHumidity)]); reason != "" {
		return v1.Draft{}, fieldError(v1.MetricHumidity, reason, payload)
	}
	if d.Distance, reason = toInt(payload[string(v1.MetricDistance)]); reason != "" {
		return v1.Draft{}, fieldError(v1.MetricDistance, reason, payload)
	}
	// Negative distances are the same "nothing detected" sentinel as zero.
	if d.Distance < 0 {
		d.Distance = 0
	}
	return d, nil
}

func fieldError(m v1.Metric, reason Reason, payload v1.Payload) *ValidationError {
	return &ValidationError{Field: string(m), Reason: reason, Value: payload[string(m)]}
}

func toFloat(v interface{}) (float64, Reason) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, ReasonNotNumeric
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, ReasonNotNumeric
		}
		f = parsed
	default:
		// nil, bool, maps, slices
		return 0, ReasonNotNumeric
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ReasonNotFinite
	}
	return f, ""
}

// toInt converts like toFloat, then truncates toward zero.
func toInt(v interface{}) (int, Reason) {
	switch x := v.(type) {
	case int:
		return x, ""
	case int32:
		return int(x), ""
	case int64:
		if x > math.MaxInt32 || x < math.MinInt32 {
			return 0, ReasonOutOfRange
		}
		return int(x), ""
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 32); err == nil {
			return int(n), ""
		}
	}

	f, reason := toFloat(v)
	if reason != "" {
		return 0, reason
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, ReasonOutOfRange
	}
	return int(f), ""
}
