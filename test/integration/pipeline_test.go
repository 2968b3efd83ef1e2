//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sensorwatch-lab/sensorwatch/internal/anomaly"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	corecfg "github.com/sensorwatch-lab/sensorwatch/internal/core/config"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage/backend"
	"github.com/sensorwatch-lab/sensorwatch/internal/ingestion"
	"github.com/sensorwatch-lab/sensorwatch/internal/insight"
	"github.com/sensorwatch-lab/sensorwatch/internal/liveness"
	"github.com/sensorwatch-lab/sensorwatch/internal/metrics"
	"github.com/sensorwatch-lab/sensorwatch/internal/projection"
	"github.com/sensorwatch-lab/sensorwatch/internal/server"
	"github.com/sensorwatch-lab/sensorwatch/internal/transport/mqtt"
	"github.com/sensorwatch-lab/sensorwatch/internal/window"
)

type integrationHarness struct {
	baseURL    string
	brokerURL  string
	client     *http.Client
	cancel     context.CancelFunc
	serverDone chan error
	mqttDone   chan error
	store      backend.Store
}

func (h *integrationHarness) close(t *testing.T) {
	t.Helper()

	h.cancel()
	for name, done := range map[string]chan error{"server": h.serverDone, "mqtt": h.mqttDone} {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Logf("%s shutdown timed out", name)
		}
	}

	require.NoError(t, h.store.Close())
}

func TestPipeline_SpikeIsFlaggedAsAnomaly(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	for i := 0; i < 20; i++ {
		status, body := postJSON(t, h.client, h.baseURL+"/v1/readings", map[string]interface{}{
			"temperature": 25.0,
			"humidity":    55.0,
			"distance":    120,
		})
		require.Equal(t, http.StatusCreated, status, string(body))
	}
	status, body := postJSON(t, h.client, h.baseURL+"/v1/readings", map[string]interface{}{
		"temperature": 30.0,
		"humidity":    55.0,
		"distance":    120,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var score projection.ScoreReport
	getJSON(t, h.client, h.baseURL+"/v1/scores/temperature", &score)
	require.Equal(t, projection.StateOK, score.State)
	require.Equal(t, anomaly.LabelAnomaly, score.Label)
	require.Equal(t, 10.0, score.Z)
	require.Equal(t, 21, score.Samples)

	getJSON(t, h.client, h.baseURL+"/v1/scores/humidity", &score)
	require.Equal(t, anomaly.LabelNormal, score.Label)
	require.Equal(t, 0.0, score.Z)

	var snap projection.Snapshot
	getJSON(t, h.client, h.baseURL+"/v1/status", &snap)
	require.Equal(t, projection.StateOK, snap.State)
	require.Equal(t, liveness.StatusOnline, snap.Liveness.Status)
	require.Equal(t, 21, snap.WindowSize)
	require.False(t, snap.Fallback)
	require.NotNil(t, snap.Latest)
	require.Equal(t, int64(21), snap.Latest.SequenceID)
	require.Len(t, snap.Insights, 3)
	require.Equal(t, insight.LevelComfortable, snap.Insights[0].Level)
}

func TestPipeline_RejectedPayloadIsNotStored(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	status, body := postJSON(t, h.client, h.baseURL+"/v1/readings", map[string]interface{}{
		"temperature": 25.0,
		"distance":    120,
	})
	require.Equal(t, http.StatusBadRequest, status, string(body))

	n, err := h.store.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	var resp projection.ReadingsResponse
	getJSON(t, h.client, h.baseURL+"/v1/readings/latest", &resp)
	require.Equal(t, projection.StateNoData, resp.State)
	require.Empty(t, resp.Readings)
}

func TestPipeline_EmptyStoreReportsNoData(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	var snap projection.Snapshot
	getJSON(t, h.client, h.baseURL+"/v1/status", &snap)
	require.Equal(t, projection.StateNoData, snap.State)
	require.Equal(t, liveness.StatusNoData, snap.Liveness.Status)
	require.Nil(t, snap.Latest)
	require.Zero(t, snap.WindowSize)
}

func TestPipeline_MQTTReadingsReachTheStore(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	pub := mqtt.NewPublisher(mqtt.Config{Broker: h.brokerURL, Topic: mqtt.DefaultTopic, QoS: 1}, ingestion.JSONCodec{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pub.Connect(ctx))
	defer pub.Close()

	// The subscriber may still be subscribing; republish until a reading lands.
	require.Eventually(t, func() bool {
		if err := pub.Publish(ctx, v1.Payload{"temperature": 26.5, "humidity": 58.2, "distance": 0}); err != nil {
			return false
		}
		n, err := h.store.Count(context.Background())
		return err == nil && n > 0
	}, 5*time.Second, 100*time.Millisecond)

	var resp projection.ReadingsResponse
	getJSON(t, h.client, h.baseURL+"/v1/readings/latest?limit=1", &resp)
	require.Equal(t, projection.StateOK, resp.State)
	require.Len(t, resp.Readings, 1)
	require.Equal(t, 26.5, resp.Readings[0].Temperature)
	// Zero distance means nothing was detected and reads back as far.
	require.Equal(t, window.DefaultFarDistance, resp.Readings[0].Distance)
}

func startHarness(t *testing.T) *integrationHarness {
	t.Helper()

	store, err := backend.Open(corecfg.DatabaseConfig{
		Type:         "sqlite",
		DSN:          filepath.Join(t.TempDir(), "sensorwatch.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)

	brokerURL := startBroker(t)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	gate := ingestion.NewGate(store, m)
	projectionSvc := projection.NewService(
		window.NewReader(store, window.DefaultOptions()),
		anomaly.NewScorer(anomaly.DefaultThresholds(), nil),
		liveness.NewMonitor(liveness.DefaultThresholds()),
		insight.DefaultRules(),
		projection.DefaultOptions(),
	)

	addr := fmt.Sprintf("127.0.0.1:%d", freePort(t))
	httpServer := server.New(server.Config{Addr: addr, Mode: "release"}, store, m, reg)
	httpServer.Register(ingestion.NewService(gate, 64*1024), projectionSvc)

	sub := mqtt.NewSubscriber(mqtt.Config{Broker: brokerURL, Topic: mqtt.DefaultTopic, QoS: 1}, ingestion.JSONCodec{}, gate, m)

	ctx, cancel := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	mqttDone := make(chan error, 1)
	go func() { serverDone <- httpServer.Run(ctx) }()
	go func() { mqttDone <- sub.Start(ctx) }()

	baseURL := "http://" + addr
	waitForHealthy(t, baseURL)

	return &integrationHarness{
		baseURL:    baseURL,
		brokerURL:  brokerURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		cancel:     cancel,
		serverDone: serverDone,
		mqttDone:   mqttDone,
		store:      store,
	}
}

func startBroker(t *testing.T) string {
	t.Helper()

	addr := fmt.Sprintf("127.0.0.1:%d", freePort(t))
	broker := mochi.New(nil)
	require.NoError(t, broker.AddHook(new(auth.AllowHook), nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "integration",
		Address: addr,
	})))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { _ = broker.Close() })

	return "tcp://" + addr
}

func waitForHealthy(t *testing.T, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server did not become healthy at %s", baseURL)
}

func postJSON(t *testing.T, client *http.Client, endpoint string, payload interface{}) (int, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func getJSON(t *testing.T, client *http.Client, endpoint string, out interface{}) {
	t.Helper()

	resp, err := client.Get(endpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, out))
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
