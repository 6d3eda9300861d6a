package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/parcelview/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// legacyRoutes are the unversioned endpoints superseded by /v1.
var legacyRoutes = []DeprecatedRoute{
	{Path: "/properties", SunsetDate: legacySunset, Alternative: "/v1/properties"},
	{Path: "/properties/:id", SunsetDate: legacySunset, Alternative: "/v1/properties/:id"},
	{Path: "/find", SunsetDate: legacySunset, Alternative: "/v1/find"},
	{Path: "/display/:id", SunsetDate: legacySunset, Alternative: "/v1/display/:id"},
}

var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

func registerPropertyRoutes(r fiber.Router, deps *Dependencies, list fiber.Handler) {
	r.Get("/properties", timeout.NewWithContext(list, requestTimeout))
	r.Get("/properties/:id", timeout.NewWithContext(GetPropertyHandler(deps), requestTimeout))
	r.Post("/find", timeout.NewWithContext(FindPropertiesHandler(deps), requestTimeout))
	r.Get("/display/:id", timeout.NewWithContext(DisplayPropertyHandler(deps), requestTimeout))
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	registerPropertyRoutes(v1, deps, ListPropertiesHandler(deps))

	// Unversioned paths for existing clients; /properties keeps its unpaginated array
	legacy := app.Group("", DeprecationMiddleware(legacyRoutes))
	registerPropertyRoutes(legacy, deps, LegacyListPropertiesHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket (needs a NATS connection to relay from)
	if deps.NATS == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
