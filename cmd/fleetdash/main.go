package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetdash/internal/auth"
	"fleetdash/internal/backend"
	"fleetdash/internal/cache"
	"fleetdash/internal/cli"
	"fleetdash/internal/core"
	apphttp "fleetdash/internal/http"
	applog "fleetdash/internal/log"
	"fleetdash/internal/middleware/ratelimit"
	"fleetdash/internal/middleware/security"
	"fleetdash/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.UsesDefaultCredentials() {
		logger.Warn("Using default dashboard credentials; set DASHBOARD_USERNAME and DASHBOARD_PASSWORD or DASHBOARD_PASSWORD_HASH")
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	checker, err := auth.NewChecker(cfg.DashboardUsername, cfg.DashboardPassword, cfg.DashboardPasswordHash)
	if err != nil {
		logger.Error("Invalid dashboard credentials configuration", applog.FieldError, err)
		os.Exit(1)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
		if secret, err = auth.RandomSecret(); err != nil {
			logger.Error("Failed to generate session secret", applog.FieldError, err)
			os.Exit(1)
		}
	}
	sessions, err := auth.NewSessionManager(secret, cfg.SessionTTL, cfg.SessionCookieSecure)
	if err != nil {
		logger.Error("Failed to create session manager", applog.FieldError, err)
		os.Exit(1)
	}

	summaries := cache.NewLRUCache[core.DriverSummary](256, cfg.CacheTTL)
	janitor := cache.NewJanitor(cfg.CacheTTL, summaries)
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.PaymentRateLimit})

	dashboard := services.NewDashboardService(be.Store, be.Publisher, summaries)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Dashboard: dashboard,
		Checker:   checker,
		Sessions:  sessions,
		Limiter:   limiter,
		Detector:  security.NewDetector(),
		Logger:    logger,
		DateMin:   cfg.PaymentDateMin,
		DateMax:   cfg.PaymentDateMax,
	})
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error {
		logger.Info("Starting fleetdash server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
