package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-engagement-backend/internal/config"
	httpapi "github.com/tbourn/go-engagement-backend/internal/http"
	"github.com/tbourn/go-engagement-backend/internal/kv"
	"github.com/tbourn/go-engagement-backend/internal/observability"
	"github.com/tbourn/go-engagement-backend/internal/repo"
)

// deps is everything a command needs, plus the teardown in reverse
// acquisition order.
type deps struct {
	app   *httpapi.App
	close func(context.Context) error
}

// bootstrap opens tracing, the database and the key-value store, migrates
// the schema and wires the services. Partial acquisitions are released on
// failure.
func bootstrap(ctx context.Context, cfg config.Config) (*deps, error) {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion())
	if err != nil {
		return nil, err
	}

	db, err := repo.Open(cfg.DB, cfg.OTEL.Enabled)
	if err != nil {
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = repo.Close(db)
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	store, err := kv.New(ctx, cfg.Redis)
	if err != nil {
		_ = repo.Close(db)
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	app := httpapi.NewApp(db, store, cfg.Tracking)
	app.Start()
	log.Info().Str("driver", cfg.DB.Driver).Str("redis", cfg.Redis.Addr).Msg("storage ready")

	return &deps{
		app: app,
		close: func(ctx context.Context) error {
			var errs []error
			if err := app.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("drain recompute queue: %w", err))
			}
			if err := store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
			if err := repo.Close(db); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
			if err := shutdownOTel(ctx); err != nil {
				errs = append(errs, fmt.Errorf("flush traces: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}
