// Command sweeper runs the background expiry job: it cancels booking holds
// past their expiry, closes out overdue RFPs, and expires stale offers, each
// with its audit trail. It exposes Prometheus metrics on METRICS_PORT and
// ships traces over OTLP when OTEL_ENABLED is set.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/goaguide/go-trip-backend/internal/config"
	"github.com/goaguide/go-trip-backend/internal/observability"
	"github.com/goaguide/go-trip-backend/internal/repo"
	"github.com/goaguide/go-trip-backend/internal/sweep"
	"github.com/goaguide/go-trip-backend/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", metricsSrv.Addr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	sw := sweep.New(db, log.Logger)
	sw.Interval = cfg.Sweep.Interval
	sw.Batch = cfg.Sweep.Batch
	sw.Limiter = rate.NewLimiter(rate.Limit(cfg.Sweep.RPS), cfg.Sweep.Batch)

	log.Info().
		Str("version", version).
		Dur("interval", sw.Interval).
		Int("batch", sw.Batch).
		Float64("rps", cfg.Sweep.RPS).
		Msg("sweeper starting")

	if sysutil.IsTruthy(os.Getenv("SWEEP_ONCE")) {
		// Single pass for cron-style deployments.
		if _, err := sw.SweepOnce(ctx); err != nil {
			log.Error().Err(err).Msg("sweep pass failed")
		}
	} else {
		sw.Run(ctx)
	}

	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(c); err != nil {
		log.Warn().Err(err).Msg("metrics shutdown")
	}
	log.Info().Msg("sweeper exited")
}
