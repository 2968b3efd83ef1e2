package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sensorwatch"

// Metrics holds the Prometheus collectors shared by ingestion, the monitor and the HTTP server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	readingsIngested prometheus.Counter
	readingsRejected *prometheus.CounterVec
	mqttMessages     *prometheus.CounterVec

	zScore          *prometheus.GaugeVec
	anomalyLevel    *prometheus.GaugeVec
	windowSamples   prometheus.Gauge
	livenessLatency prometheus.Gauge
	livenessStatus  *prometheus.GaugeVec
	refreshErrors   prometheus.Counter

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		readingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Readings accepted and appended to the store.",
		}),
		readingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_rejected_total",
			Help:      "Payloads rejected by the ingestion gate.",
		}, []string{"reason"}),
		mqttMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_messages_total",
			Help:      "MQTT messages received, by outcome.",
		}, []string{"outcome"}),
		zScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zscore",
			Help:      "Latest z-score of the newest reading against its trailing window.",
		}, []string{"metric"}),
		anomalyLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "anomaly_level",
			Help:      "Latest classification per metric: 0 normal, 1 warning, 2 anomaly.",
		}, []string{"metric"}),
		windowSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_samples",
			Help:      "Readings in the trailing window used for scoring.",
		}),
		livenessLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "liveness_latency_seconds",
			Help:      "Seconds since the newest stored reading.",
		}),
		livenessStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "liveness_status",
			Help:      "1 for the current device liveness status, 0 otherwise.",
		}, []string{"status"}),
		refreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_refresh_errors_total",
			Help:      "Monitor ticks that failed to compute a status snapshot.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.readingsIngested,
		m.readingsRejected,
		m.mqttMessages,
		m.zScore,
		m.anomalyLevel,
		m.windowSamples,
		m.livenessLatency,
		m.livenessStatus,
		m.refreshErrors,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

func (m *Metrics) ReadingIngested() {
	if m == nil {
		return
	}
	m.readingsIngested.Inc()
}

func (m *Metrics) ReadingRejected(reason string) {
	if m == nil {
		return
	}
	m.readingsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) MQTTMessage(outcome string) {
	if m == nil {
		return
	}
	m.mqttMessages.WithLabelValues(outcome).Inc()
}

// ObserveScore records the z-score and its level (0 normal, 1 warning, 2 anomaly) for metric.
func (m *Metrics) ObserveScore(metric string, z float64, level int) {
	if m == nil {
		return
	}
	m.zScore.WithLabelValues(metric).Set(z)
	m.anomalyLevel.WithLabelValues(metric).Set(float64(level))
}

func (m *Metrics) ObserveWindow(samples int) {
	if m == nil {
		return
	}
	m.windowSamples.Set(float64(samples))
}

// ObserveLiveness sets status to 1 and every other known status to 0.
func (m *Metrics) ObserveLiveness(status string, latency time.Duration, known []string) {
	if m == nil {
		return
	}
	m.livenessLatency.Set(latency.Seconds())
	for _, s := range known {
		v := 0.0
		if s == status {
			v = 1
		}
		m.livenessStatus.WithLabelValues(s).Set(v)
	}
}

func (m *Metrics) RefreshFailed() {
	if m == nil {
		return
	}
	m.refreshErrors.Inc()
}

// Middleware records request count and duration, and propagates X-Request-ID.
// Requests that match no route are recorded under the path "unmatched".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)

		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
