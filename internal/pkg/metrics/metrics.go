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
		Namespace: "parcelview",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parcelview",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parcelview",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
	}, []string{"method", "path"})

	// Rendering
	RendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcelview",
		Subsystem: "render",
		Name:      "images_total",
		Help:      "Total images rendered, by outcome",
	}, []string{"result"})

	RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parcelview",
		Subsystem: "render",
		Name:      "duration_seconds",
		Help:      "Time spent decoding, drawing and encoding one image",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	OverlaysSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcelview",
		Subsystem: "render",
		Name:      "overlays_skipped_total",
		Help:      "Overlays skipped because their geometry could not be outlined",
	}, []string{"layer"})

	ImageFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcelview",
		Subsystem: "images",
		Name:      "fetches_total",
		Help:      "Base image fetches, by scheme and outcome",
	}, []string{"scheme", "result"})

	// Proximity search
	SearchResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parcelview",
		Subsystem: "search",
		Name:      "results",
		Help:      "Number of property IDs returned per proximity search",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
	}, []string{"backend"})

	IndexRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcelview",
		Subsystem: "search",
		Name:      "index_refreshes_total",
		Help:      "In-memory spatial index rebuilds, by outcome",
	}, []string{"result"})

	IndexSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parcelview",
		Subsystem: "search",
		Name:      "index_records",
		Help:      "Records held by the in-memory spatial index",
	})

	PropertiesImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcelview",
		Subsystem: "import",
		Name:      "properties_total",
		Help:      "Properties upserted by imports",
	}, []string{"source"})

	GeometriesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcelview",
		Subsystem: "import",
		Name:      "geometries_dropped_total",
		Help:      "Imported parcel or building geometries stored as NULL because their type cannot be outlined",
	}, []string{"layer", "type"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcelview",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcelview",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parcelview",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parcelview",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parcelview",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parcelview",
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
		// route pattern keeps /v1/display/:id at one series
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

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool stats into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
