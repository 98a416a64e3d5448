package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/opencliniq/frontdesk/internal/api/router"
	"github.com/opencliniq/frontdesk/internal/appointments"
	appconfig "github.com/opencliniq/frontdesk/internal/config"
	"github.com/opencliniq/frontdesk/internal/crm"
	"github.com/opencliniq/frontdesk/internal/http/handlers"
	"github.com/opencliniq/frontdesk/internal/observability/metrics"
	"github.com/opencliniq/frontdesk/internal/roster"
	"github.com/opencliniq/frontdesk/pkg/logging"
)

func main() {
	// Load .env for local development; ignore absence in deployed envs.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting frontdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	syncMetrics := metrics.NewSyncMetrics(nil)

	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIKey, logger,
		crm.WithMetrics(syncMetrics),
		crm.WithLoginPath(cfg.CRMLoginPath),
		crm.WithHTTPClient(&http.Client{Timeout: cfg.CRMTimeout}),
	)

	// Roster with an optional Redis snapshot store for warm starts.
	rosterOpts := []roster.Option{roster.WithWaitBudget(cfg.RosterWaitBudget)}
	if cfg.RedisAddr != "" {
		redisOpts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		store := roster.NewStore(redis.NewClient(redisOpts), cfg.RosterSnapshotTTL)
		rosterOpts = append(rosterOpts, roster.WithSnapshots(store))
	}
	ros := roster.New(crmClient, logger, rosterOpts...)
	ros.WarmStart(context.Background())
	go func() {
		if err := ros.Preload(context.Background()); err != nil {
			logger.Warn("initial roster preload failed", "error", err)
		}
	}()

	cache := appointments.NewCache(cfg.CacheTTL, appointments.WithCacheMetrics(syncMetrics))
	svc := appointments.NewService(crmClient, ros, cache, logger,
		appointments.WithSyncMetrics(syncMetrics))
	sessions := appointments.NewRegistry(svc, cfg.SessionIdleTTL)

	routerCfg := &router.Config{
		Logger:             logger,
		Appointments:       appointments.NewHandler(svc, sessions, logger),
		Team:               handlers.NewTeamHandler(crmClient, logger),
		Wallet:             handlers.NewWalletHandler(crmClient, logger),
		Login:              handlers.NewLoginHandler(crmClient, logger),
		AdminAuthSecret:    cfg.APIAuthSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSOrigins,
		MutationRate:       cfg.MutationRate,
		MutationBurst:      cfg.MutationBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
