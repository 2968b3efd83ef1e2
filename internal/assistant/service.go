package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/projection"
)

const (
	NoDataAnswer      = "No sensor data available yet."
	UnavailableAnswer = "Unable to respond right now."

	DefaultContextReadings = 10
)

// Answer states.
const (
	StateAnswered    = "answered"
	StateNoData      = "no_data"
	StateUnavailable = "unavailable"
)

var ErrEmptyQuestion = errors.New("question must not be empty")

// Provider turns a prompt into a completion.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StatusSource produces status snapshots. Satisfied by *projection.Service.
type StatusSource interface {
	Status(ctx context.Context) (*projection.Snapshot, error)
}

type Answer struct {
	State    string    `json:"status"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// Service answers free-form questions about the current sensor state.
// Provider failures degrade to UnavailableAnswer; only store failures
// are returned as errors.
type Service struct {
	source          StatusSource
	provider        Provider
	contextReadings int
	nowFn           func() time.Time
}

func NewService(source StatusSource, provider Provider, contextReadings int) *Service {
	if contextReadings <= 0 {
		contextReadings = DefaultContextReadings
	}
	return &Service{
		source:          source,
		provider:        provider,
		contextReadings: contextReadings,
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	snap, err := s.source.Status(ctx)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Question: question, AskedAt: s.nowFn()}
	if snap.Latest == nil {
		answer.State = StateNoData
		answer.Answer = NoDataAnswer
		return answer, nil
	}

	text, err := s.provider.Generate(ctx, BuildPrompt(snap, question, s.contextReadings))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		slog.Warn("[Assistant] Provider failed", "error", err)
		answer.State = StateUnavailable
		answer.Answer = UnavailableAnswer
		return answer, nil
	}

	answer.State = StateAnswered
	answer.Answer = text
	return answer, nil
}

// BuildPrompt renders the snapshot as plain-text context followed by the question.
// At most n recent readings are included, newest first.
func BuildPrompt(snap *projection.Snapshot, question string, n int) string {
	var b strings.Builder

	b.WriteString("You are analyzing IoT environmental sensor data.\n\n")

	latest := snap.Latest
	b.WriteString("Current readings:\n")
	fmt.Fprintf(&b, "Temperature: %.2f °C\n", latest.Temperature)
	fmt.Fprintf(&b, "Humidity: %.2f %%\n", latest.Humidity)
	fmt.Fprintf(&b, "Distance: %d cm\n", latest.Distance)
	fmt.Fprintf(&b, "Sensor status: %s (last reading %.2fs ago)\n\n",
		snap.Liveness.Status, snap.Liveness.LatencySeconds)

	b.WriteString("Pattern analysis:\n")
	for _, m := range v1.Metrics {
		score, ok := snap.Scores[m]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s z-score: %.2f (%s)\n", m, score.Z, score.Label)
	}

	if len(snap.Insights) > 0 {
		b.WriteString("\nObservations:\n")
		for _, in := range snap.Insights {
			fmt.Fprintf(&b, "- %s\n", in.Message)
		}
	}

	recent := snap.Recent
	if len(recent) > n {
		recent = recent[:n]
	}
	if len(recent) > 0 {
		b.WriteString("\nRecent readings:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "%s | T:%.2fC H:%.2f%% D:%dcm\n",
				r.ObservedAt.Format(time.RFC3339), r.Temperature, r.Humidity, r.Distance)
		}
	}

	b.WriteString("\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\nRespond in 3 short lines.\n")
	return b.String()
}
