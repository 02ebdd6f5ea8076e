package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/frahmantamala/invoice-management/internal/category"
	"github.com/frahmantamala/invoice-management/internal/invoice"
	"github.com/frahmantamala/invoice-management/internal/metrics"
	"github.com/frahmantamala/invoice-management/internal/transport/middleware"
	"github.com/frahmantamala/invoice-management/internal/transport/swagger"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
)

const (
	APIPrefix   = "/api/v1"
	FilesPrefix = "/files"
)

type Handlers struct {
	Auth     *auth.Handler
	Invoice  *invoice.Handler
	Category *category.Handler
}

type Options struct {
	AllowedOrigins string
	Health         map[string]Pinger
	MetricsEnabled bool
	MetricsPath    string
	// OpenAPI is served on swagger.SpecPath; OpenAPIFile is the fallback
	// when the document could not be loaded.
	OpenAPI     *openapi3.T
	OpenAPIFile string
	// FilesDir serves locally stored uploads under FilesPrefix when set.
	FilesDir string
	Logger   *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, handlers Handlers, opts Options) {
	healthHandler := NewHealthHandler(opts.Health)

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.LoggingMiddleware(opts.Logger))
	router.Use(middleware.Metrics)

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get(swagger.SpecPath, swagger.SpecHandler(opts.OpenAPI, opts.OpenAPIFile))
	router.Handle("/swagger/*", swagger.Handler())

	if opts.MetricsEnabled {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, metrics.Handler())
	}

	if opts.FilesDir != "" {
		fileServer := http.StripPrefix(FilesPrefix, http.FileServer(http.Dir(opts.FilesDir)))
		router.Get(FilesPrefix+"/*", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route(APIPrefix, func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Public categories route (no auth required)
		if handlers.Category != nil {
			handlers.Category.RegisterRoutes(r)
		}

		if handlers.Auth != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(handlers.Auth.AuthMiddleware)

				if handlers.Invoice != nil {
					handlers.Invoice.RegisterRoutes(pr)
				}
			})
		}
	})
}
