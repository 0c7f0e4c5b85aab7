package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: calls sent to the API, by outcome.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleopenai_upstream_requests_total",
			Help: "Total number of requests sent to the API.",
		},
		[]string{"path", "method", "status_code"},
	)

	// Histogram: API call latency in seconds, including retries.
	UpstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simpleopenai_upstream_latency_seconds",
			Help:    "Latency of API calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"path", "method", "status_code"},
	)

	// Counter: request bodies rejected before transmission.
	ConstraintViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleopenai_constraint_violations_total",
			Help: "Total number of request bodies rejected by validation.",
		},
		[]string{"request"},
	)

	// Counter: how many times we served from exact cache.
	ExactHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simpleopenai_exact_hits_total",
			Help: "Total number of exact cache hits.",
		},
	)

	// Counter: service instances built by a provider.
	ServicesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleopenai_services_created_total",
			Help: "Total number of service instances constructed.",
		},
		[]string{"service"},
	)

	// Counter: realtime events by direction (sent|received) and type.
	RealtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleopenai_realtime_events_total",
			Help: "Total number of realtime events exchanged.",
		},
		[]string{"direction", "type"},
	)

	// Histogram: fake API server latency in seconds.
	ServerLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simpleopenai_fakeapi_latency_seconds",
			Help:    "HTTP request latency for the fake API server in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method", "status_code"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		UpstreamRequestsTotal,
		UpstreamLatencySeconds,
		ConstraintViolationsTotal,
		ExactHitsTotal,
		ServicesCreatedTotal,
		RealtimeEventsTotal,
		ServerLatencySeconds,
	}
}

// Register adds the collectors to reg (the default registerer when nil).
// Several providers may share a registerer, so collectors that are already
// registered are not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstream records one finished API call.
func ObserveUpstream(path, method string, statusCode int, elapsed time.Duration) {
	status := strconv.Itoa(statusCode)
	UpstreamRequestsTotal.WithLabelValues(path, method, status).Inc()
	UpstreamLatencySeconds.WithLabelValues(path, method, status).Observe(elapsed.Seconds())
}

// Middleware measures server latency for each HTTP request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// capture status code
		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		ServerLatencySeconds.
			WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets streamed responses pass through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: underlying ResponseWriter is not a Hijacker")
	}
	r.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
