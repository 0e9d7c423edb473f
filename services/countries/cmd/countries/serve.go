package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"countryrates/internal/admintoken"
	"countryrates/internal/metrics"
	"countryrates/internal/ratelimit"
	"countryrates/internal/util"
	"countryrates/pkg/events"
	"countryrates/pkg/gdp"
	"countryrates/pkg/storage"
	"countryrates/services/countries/internal/app"
	"countryrates/services/countries/internal/server"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	refreshMetrics := metrics.New()

	appCfg := app.Config{
		DatabaseURL:  cfg.DatabaseURL,
		CountriesURL: cfg.CountriesURL,
		RatesURL:     cfg.RatesURL,
		FetchTimeout: cfg.FetchTimeout(),
		Multipliers:  gdp.RandomSource{},
		Metrics:      refreshMetrics,
	}
	if cfg.MinioEndpoint != "" {
		objects, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		appCfg.Artifacts = objects
	}
	if cfg.RedisAddr != "" {
		publisher, err := events.NewRedisStreamPublisher(events.RedisStreamConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.EventStream,
		})
		if err != nil {
			return fmt.Errorf("init event stream: %w", err)
		}
		defer publisher.Close()
		appCfg.Events = publisher
	}

	appCore, err := app.New(appCfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer appCore.Close()

	srvCfg := server.Config{App: appCore, Metrics: refreshMetrics}
	if cfg.AdminAuthEnabled() {
		verifyKeys, err := admintoken.ParseVerifyPublicKeys(cfg.AdminJWTVerifyPublicKeys)
		if err != nil {
			return fmt.Errorf("parse admin verify keys: %w", err)
		}
		verifier, err := admintoken.NewVerifier(admintoken.VerifierOptions{
			PublicKeyPath:      cfg.AdminJWTPublicKeyPath,
			VerifyPublicKeyMap: verifyKeys,
			DefaultKeyID:       cfg.AdminJWTKeyID,
		})
		if err != nil {
			return fmt.Errorf("init admin token verifier: %w", err)
		}
		srvCfg.AdminVerifier = verifier
		if cfg.RedisAddr != "" {
			revocations, err := admintoken.NewRedisRevocations(cfg.RedisAddr, cfg.RedisPassword)
			if err != nil {
				return fmt.Errorf("init token revocations: %w", err)
			}
			defer revocations.Close()
			srvCfg.Revocations = revocations
		}
	} else {
		slog.Warn("admin token verification disabled; refresh and delete are open")
	}
	if cfg.RefreshRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.RefreshRateLimitPerMinute, time.Minute)
		if err != nil {
			return fmt.Errorf("init refresh limiter: %w", err)
		}
		defer limiter.Close()
		srvCfg.RefreshLimiter = limiter
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}
	srvCfg.TrustedProxies = trusted

	httpServer, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("countries server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
