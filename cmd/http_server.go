package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/frahmantamala/invoice-management/internal/category"
	"github.com/frahmantamala/invoice-management/internal/invoice"
	"github.com/frahmantamala/invoice-management/internal/transport"
	"github.com/frahmantamala/invoice-management/internal/transport/rest"
	"github.com/frahmantamala/invoice-management/internal/transport/swagger"
	"github.com/frahmantamala/invoice-management/internal/upload"
	"github.com/frahmantamala/invoice-management/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var openAPIFile string

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer(cmd.Context())
	},
}

func init() {
	httpServerCmd.Flags().StringVar(&openAPIFile, "openapi", "api/openapi.yml", "OpenAPI document served on "+swagger.SpecPath)
}

func startHTTPServer(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	setupRoutes(ctx, router, app)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting HTTP server", "address", server.Addr, "storage", cfg.Storage.Driver, "extraction", cfg.Extraction.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := app.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}

	log.Info("Server stopped")
	return nil
}

func setupRoutes(ctx context.Context, router *chi.Mux, app *App) {
	cfg := app.Config
	base := transport.NewBaseHandler(app.Logger)

	doc, err := swagger.LoadDocument(ctx, openAPIFile)
	if err != nil {
		app.Logger.Warn("serving raw openapi file", "error", err)
	}

	filesDir := ""
	if local, ok := app.Uploads.(*upload.LocalStorage); ok {
		filesDir = local.Dir()
	}

	verifier := auth.NewVerifierFromConfig(cfg.Security)

	rest.RegisterAllRoutes(router, rest.Handlers{
		Auth:     auth.NewHandler(base, verifier),
		Invoice:  invoice.NewHandler(base, app.Sessions, cfg.Upload.MaxFileSize),
		Category: category.NewHandler(base, app.Categories),
	}, rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Health:         map[string]rest.Pinger{"storage": app.Blobs},
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		OpenAPI:        doc,
		OpenAPIFile:    openAPIFile,
		FilesDir:       filesDir,
		Logger:         app.Logger,
	})
}
