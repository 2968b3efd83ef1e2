package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generateBody struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream *bool  `json:"stream"`
}

// mockOllama serves POST /api/generate with the given handler.
func mockOllama(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{URL: "://bad"})
	require.Error(t, err)

	_, err = New(Config{URL: "localhost"})
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	require.Equal(t, DefaultURL, p.cfg.URL)
	require.Equal(t, DefaultModel, p.cfg.Model)
	require.Equal(t, DefaultTimeout, p.cfg.Timeout)
}

func TestGenerate_Success(t *testing.T) {
	var got generateBody
	srv := mockOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    got.Model,
			"response": "  All readings look normal.\n",
			"done":     true,
		})
	})

	p, err := New(Config{URL: srv.URL, Model: "gemma3:1b", Timeout: 5 * time.Second})
	require.NoError(t, err)

	answer, err := p.Generate(context.Background(), "Is the room safe?")
	require.NoError(t, err)
	require.Equal(t, "All readings look normal.", answer)

	require.Equal(t, "gemma3:1b", got.Model)
	require.Equal(t, "Is the room safe?", got.Prompt)
	require.NotNil(t, got.Stream)
	require.False(t, *got.Stream)
}

func TestGenerate_ServerError(t *testing.T) {
	srv := mockOllama(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'gemma3:1b' not found"}`))
	})

	p, err := New(Config{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "hi")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProvider))
	require.True(t, strings.Contains(err.Error(), "not found"), err.Error())
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := mockOllama(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	p, err := New(Config{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "hi")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProvider))
}

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := New(Config{URL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "hi")
	require.ErrorIs(t, err, ErrProvider)
}
