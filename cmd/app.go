package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/category"
	"github.com/frahmantamala/invoice-management/internal/core/events"
	"github.com/frahmantamala/invoice-management/internal/invoice"
	"github.com/frahmantamala/invoice-management/internal/invoice/storage"
	"github.com/frahmantamala/invoice-management/internal/notify/amqp"
	"github.com/frahmantamala/invoice-management/internal/ocr"
	"github.com/frahmantamala/invoice-management/internal/upload"
)

// App holds the long lived collaborators shared by the server and the
// maintenance commands.
type App struct {
	Config     *internal.Config
	Logger     *slog.Logger
	Blobs      storage.BlobStore
	Uploads    upload.Storage
	Extractor  ocr.Extractor
	Categories *category.Registry
	Bus        *events.EventBus
	Forwarder  *amqp.Forwarder
	Sessions   *invoice.Sessions

	closeExtractor func() error
}

func newApp(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config:         cfg,
		Logger:         logger,
		closeExtractor: func() error { return nil },
	}

	blobs, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	app.Blobs = blobs

	uploads, err := upload.New(cfg.Upload, logger)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to initialize uploads: %w", err)
	}
	app.Uploads = uploads

	extractor, closeExtractor, err := ocr.New(ctx, cfg.Extraction, logger)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to initialize text extraction: %w", err)
	}
	app.Extractor = extractor
	app.closeExtractor = closeExtractor

	app.Categories = category.NewDefaultRegistry(logger)
	app.Bus = events.NewEventBus(logger)

	if cfg.Events.AMQPURL != "" {
		forwarder, err := amqp.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			app.Close(ctx)
			return nil, fmt.Errorf("failed to connect to amqp: %w", err)
		}
		forwarder.Attach(app.Bus)
		app.Forwarder = forwarder
	}

	app.Sessions = invoice.NewSessions(invoice.Dependencies{
		Stores: func(userID string) invoice.Store {
			return storage.NewInvoiceStore(blobs, storage.KeyForUser(userID), logger)
		},
		Uploads:     uploads,
		Extractor:   extractor,
		Categories:  app.Categories,
		Events:      app.Bus,
		MaxFileSize: cfg.Upload.MaxFileSize,
	}, logger)

	return app, nil
}

// Close drains pending events and releases every connection.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.Bus != nil {
		if err := a.Bus.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if a.Forwarder != nil {
		if err := a.Forwarder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if a.closeExtractor != nil {
		if err := a.closeExtractor(); err != nil {
			errs = append(errs, fmt.Errorf("extractor: %w", err))
		}
	}
	if a.Blobs != nil {
		if err := a.Blobs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}
