package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"countryrates/internal/metrics"
	"countryrates/pkg/events"
	"countryrates/pkg/gdp"
	"countryrates/pkg/storage"
	"countryrates/pkg/store"
	"countryrates/services/countries/internal/fetcher"
)

// Config holds runtime configuration for the core application. Nil
// collaborators are built from the remaining fields where possible; the
// optional ones (artifacts, events, metrics) stay disabled.
type Config struct {
	DatabaseURL string
	Store       store.Store

	Fetcher      fetcher.Fetcher
	CountriesURL string
	RatesURL     string
	FetchTimeout time.Duration

	Multipliers gdp.MultiplierSource
	Artifacts   storage.ObjectStore
	Events      events.Publisher
	Metrics     *metrics.RefreshMetrics

	// Now returns the refresh timestamp; defaults to time.Now.
	Now func() time.Time
}

// App is the core application service wiring together storage, the
// upstream sources and domain logic.
type App struct {
	store     store.Store
	fetcher   fetcher.Fetcher
	estimator *gdp.Estimator
	artifacts storage.ObjectStore
	events    events.Publisher
	metrics   *metrics.RefreshMetrics
	now       func() time.Time
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	source := cfg.Fetcher
	if source == nil {
		source = fetcher.New(fetcher.Config{
			CountriesURL: cfg.CountriesURL,
			RatesURL:     cfg.RatesURL,
			Timeout:      cfg.FetchTimeout,
		})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		store:     dataStore,
		fetcher:   source,
		estimator: gdp.NewEstimator(cfg.Multipliers),
		artifacts: cfg.Artifacts,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		now:       now,
	}, nil
}

// Ping checks the database.
func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Close releases the store.
func (a *App) Close() error {
	if err := a.store.Close(); err != nil {
		slog.Warn("close store", "err", err)
		return err
	}
	return nil
}
