package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plotctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "plotctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	recordsDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plotctl",
			Subsystem: "ingest",
			Name:      "records_decoded_total",
			Help:      "Lines decoded into records, by numeric kind.",
		},
		[]string{"kind"},
	)
	parseErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "plotctl",
			Subsystem: "ingest",
			Name:      "parse_errors_total",
			Help:      "Lines dropped because a token did not parse.",
		},
	)
	queueOverflows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plotctl",
			Subsystem: "queue",
			Name:      "overflows_total",
			Help:      "Records discarded by the queue overflow policy.",
		},
		[]string{"policy"},
	)
	recordsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "plotctl",
			Subsystem: "buffer",
			Name:      "records_applied_total",
			Help:      "Records applied to the channel buffer.",
		},
	)
	bufferChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "plotctl",
			Subsystem: "buffer",
			Name:      "channels",
			Help:      "Current channel count.",
		},
	)
	bufferLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "plotctl",
			Subsystem: "buffer",
			Name:      "window_length",
			Help:      "Current shared window length.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			recordsDecoded,
			parseErrors,
			queueOverflows,
			recordsApplied,
			bufferChannels,
			bufferLength,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordDecoded(kind string) {
	RegisterMetrics()
	recordsDecoded.WithLabelValues(kind).Inc()
}

func RecordParseError() {
	RegisterMetrics()
	parseErrors.Inc()
}

func RecordQueueOverflow(policy string) {
	RegisterMetrics()
	queueOverflows.WithLabelValues(policy).Inc()
}

func RecordApplied(channels, length int) {
	RegisterMetrics()
	recordsApplied.Inc()
	bufferChannels.Set(float64(channels))
	bufferLength.Set(float64(length))
}
