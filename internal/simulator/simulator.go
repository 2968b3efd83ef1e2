package simulator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/shopspring/decimal"
)

const DefaultInterval = 2 * time.Second

// Bounds describes one random-walk channel.
type Bounds struct {
	Start float64
	Drift float64
	Min   float64
	Max   float64
}

var (
	TemperatureBounds = Bounds{Start: 25.0, Drift: 0.3, Min: 15, Max: 40}
	HumidityBounds    = Bounds{Start: 60.0, Drift: 0.8, Min: 20, Max: 90}
	DistanceBounds    = Bounds{Start: 120, Drift: 3, Min: 5, Max: 200}
)

// Walk produces a room-like stream of readings by drifting each metric
// a small random step and clamping it to a realistic range.
type Walk struct {
	rng *rand.Rand

	temperature float64
	humidity    float64
	distance    int
}

// NewWalk starts a walk at the default baseline. rng may be nil.
func NewWalk(rng *rand.Rand) *Walk {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Walk{
		rng:         rng,
		temperature: TemperatureBounds.Start,
		humidity:    HumidityBounds.Start,
		distance:    int(DistanceBounds.Start),
	}
}

// Next advances the walk one step and returns the payload to send.
func (w *Walk) Next() v1.Payload {
	w.temperature = clamp(w.temperature+w.uniform(TemperatureBounds.Drift), TemperatureBounds)
	w.humidity = clamp(w.humidity+w.uniform(HumidityBounds.Drift), HumidityBounds)

	step := int(DistanceBounds.Drift)
	w.distance += w.rng.IntN(2*step+1) - step
	w.distance = int(clamp(float64(w.distance), DistanceBounds))

	return v1.Payload{
		string(v1.MetricTemperature): round2(w.temperature),
		string(v1.MetricHumidity):    round2(w.humidity),
		string(v1.MetricDistance):    w.distance,
	}
}

// uniform returns a value in [-d, d).
func (w *Walk) uniform(d float64) float64 {
	return w.rng.Float64()*2*d - d
}

func clamp(v float64, b Bounds) float64 {
	return max(b.Min, min(b.Max, v))
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Sink receives simulated payloads. Satisfied by *mqtt.Publisher.
type Sink interface {
	Publish(ctx context.Context, payload v1.Payload) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, payload v1.Payload) error

func (f SinkFunc) Publish(ctx context.Context, payload v1.Payload) error { return f(ctx, payload) }

// Simulator sends one payload per interval until count is reached
// (0 means unlimited) or the context is cancelled.
type Simulator struct {
	walk     *Walk
	sink     Sink
	interval time.Duration
	count    int
}

func New(walk *Walk, sink Sink, interval time.Duration, count int) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Simulator{walk: walk, sink: sink, interval: interval, count: count}
}

// Run sends the first payload immediately. Send failures are logged and
// the walk continues.
func (s *Simulator) Run(ctx context.Context) (int, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Simulator] Starting live sensor simulator", "interval", s.interval, "count", s.count)

	sent := 0
	for {
		payload := s.walk.Next()
		if err := s.sink.Publish(ctx, payload); err != nil {
			if ctx.Err() != nil {
				return sent, nil
			}
			slog.Warn("[Simulator] Failed to send reading", "error", err)
		} else {
			sent++
			slog.Info("[Simulator] Sent reading",
				"temperature", payload[string(v1.MetricTemperature)],
				"humidity", payload[string(v1.MetricHumidity)],
				"distance", payload[string(v1.MetricDistance)],
			)
		}

		if s.count > 0 && sent >= s.count {
			return sent, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			slog.Info("[Simulator] Stopping (context cancelled)", "sent", sent)
			return sent, nil
		}
	}
}
