package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sensorwatch-lab/sensorwatch/internal/metrics"
	"github.com/stretchr/testify/require"
)

type fakeStore struct{ err error }

func (f fakeStore) Ping(context.Context) error { return f.err }

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name           string
		store          HealthChecker
		expectedStatus int
		expectedState  string
	}{
		{name: "healthy", store: fakeStore{}, expectedStatus: http.StatusOK, expectedState: "healthy"},
		{name: "store down", store: fakeStore{err: errors.New("database is closed")}, expectedStatus: http.StatusServiceUnavailable, expectedState: "unhealthy"},
		{name: "no store", store: nil, expectedStatus: http.StatusOK, expectedState: "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Mode: "release"}, tt.store, nil, nil)

			w := httptest.NewRecorder()
			s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.expectedStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tt.expectedState, body["status"])
		})
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := New(Config{}, fakeStore{}, m, reg)
	s.Register(pingRoutes{})

	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/v1/ping",status="200"} 1`)
}

func TestServer_NoMetricsWithoutGatherer(t *testing.T) {
	s := New(Config{}, fakeStore{}, nil, nil)

	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RunShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := New(Config{Addr: addr, ShutdownTimeout: time.Second}, fakeStore{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && strings.Contains(string(body), "healthy")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	s := New(Config{Addr: l.Addr().String()}, fakeStore{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.Error(t, s.Run(ctx))
}
