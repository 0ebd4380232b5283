package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wayfound",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wayfound",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Places resolver metrics
	ResolverRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "resolver",
		Name:      "requests_total",
		Help:      "Total requests issued to the place lookup service",
	}, []string{"generation", "operation", "outcome"})

	ResolverFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "resolver",
		Name:      "fallbacks_total",
		Help:      "Times the current-generation endpoint failed and the legacy endpoint was tried",
	})

	ResolverDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wayfound",
		Subsystem: "resolver",
		Name:      "request_duration_seconds",
		Help:      "Duration of place lookup requests",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"generation", "operation"})

	// Discovery pipeline metrics
	DiscoveriesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "discovery",
		Name:      "created_total",
		Help:      "Total discovery records created",
	})

	DiscoveryRoutesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "discovery",
		Name:      "routes_resolved_total",
		Help:      "Route discovery calls, split by whether the resolver was needed",
	}, []string{"source"}) // "resolver" | "store"

	PlacesFilteredOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "discovery",
		Name:      "places_filtered_total",
		Help:      "Resolved places excluded before persistence",
	}, []string{"reason"}) // "mixed_use" | "category" | "invalid_location" | "duplicate"

	ReviewTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "review",
		Name:      "transitions_total",
		Help:      "Review state machine transitions applied",
	}, []string{"action"}) // "save" | "dismiss_temporary" | "dismiss_forever" | "undo" | "lazy_expiry"

	// Store metrics
	StoreDegradations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "store",
		Name:      "degraded_total",
		Help:      "Operations served from the local cache because the remote store failed",
	}, []string{"operation"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfound",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wayfound",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wayfound",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wayfound",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
// The narrow interface keeps pgxpool out of this package's imports.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
