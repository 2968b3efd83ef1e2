package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultURL     = "http://localhost:11434"
	DefaultModel   = "gemma3:1b"
	DefaultTimeout = 20 * time.Second
)

// ErrProvider is matched by every generation failure.
var ErrProvider = errors.New("ollama request failed")

type Config struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// Provider generates completions with a local Ollama server.
type Provider struct {
	client *api.Client
	cfg    Config
}

// New creates a provider. It does not verify connectivity.
func New(cfg Config) (*Provider, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", cfg.URL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse ollama url %q: scheme and host are required", cfg.URL)
	}

	return &Provider{
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		cfg:    cfg,
	}, nil
}

// Generate sends a single non-streaming prompt and returns the trimmed response.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	noStream := false
	req := &api.GenerateRequest{
		Model:  p.cfg.Model,
		Prompt: prompt,
		Stream: &noStream,
	}

	var out strings.Builder
	err := p.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", mapError(err)
	}
	return strings.TrimSpace(out.String()), nil
}

// mapError keeps the status detail and makes every failure match ErrProvider.
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: timed out or cancelled: %w", ErrProvider, err)
	}

	var se api.StatusError
	if errors.As(err, &se) {
		msg := se.ErrorMessage
		if msg == "" {
			msg = se.Status
		}
		return fmt.Errorf("%w: status %d: %s", ErrProvider, se.StatusCode, msg)
	}

	return fmt.Errorf("%w: %w", ErrProvider, err)
}
