package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "echobridge"

// Metrics 业务与 HTTP 指标, 注册在独立的 Registry 上
type Metrics struct {
	registry *prometheus.Registry

	relayed      *prometheus.CounterVec
	pairing      *prometheus.CounterVec
	skillReads   *prometheus.CounterVec
	transcodeDur *prometheus.HistogramVec

	httpReqs     *prometheus.CounterVec
	httpLat      *prometheus.HistogramVec
	httpInflight prometheus.Gauge
}

// NewMetrics 创建并注册全部指标
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "Messages accepted for relay by source channel, kind and outcome.",
		}, []string{"source", "kind", "outcome"}),
		pairing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairing_events_total",
			Help:      "Pairing codes issued and redemption attempts by outcome.",
		}, []string{"outcome"}),
		skillReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_reads_total",
			Help:      "Voice channel mailbox reads by result.",
		}, []string{"result"}),
		transcodeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Wall time of ffmpeg transcodes.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"outcome"}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.relayed, m.pairing, m.skillReads, m.transcodeDur,
		m.httpReqs, m.httpLat, m.httpInflight,
	)
	return m
}

// Registry 暴露给测试
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncRelayed counts one relay attempt, e.g. ("telegram", "VOICE", "delivered").
func (m *Metrics) IncRelayed(source, kind, outcome string) {
	m.relayed.WithLabelValues(source, kind, outcome).Inc()
}

// IncPairing counts issued codes and redemption outcomes.
func (m *Metrics) IncPairing(outcome string) {
	m.pairing.WithLabelValues(outcome).Inc()
}

// IncMailboxRead counts what a voice read returned (text, voice, empty, not_paired).
func (m *Metrics) IncMailboxRead(result string) {
	m.skillReads.WithLabelValues(result).Inc()
}

// ObserveTranscode 记录转码耗时
func (m *Metrics) ObserveTranscode(outcome string, elapsed time.Duration) {
	m.transcodeDur.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// GinMiddleware instruments requests. The path label is the registered route
// so label cardinality stays bounded.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpInflight.Inc()
		defer m.httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
