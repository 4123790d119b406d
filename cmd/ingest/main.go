// Command ingest fetches avalanche advisories for every configured zone,
// normalizes them into canonical forecasts, and upserts them into postgres.
// It runs once by default; set INGEST_INTERVAL to keep it running on a
// schedule. Operational endpoints (/healthz, /readyz, /metrics) are served
// on INGEST_ADDR for the duration of the process.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slopesignal/slope-signal/internal/adapter/httpadapter"
	"github.com/slopesignal/slope-signal/internal/adapter/uac"
	"github.com/slopesignal/slope-signal/internal/config"
	"github.com/slopesignal/slope-signal/internal/ingest"
	"github.com/slopesignal/slope-signal/internal/observability"
	"github.com/slopesignal/slope-signal/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	zones, err := cfg.Zones()
	if err != nil {
		logger.Error("failed to load zones", "error", err)
		os.Exit(1)
	}
	rules, err := cfg.Rules()
	if err != nil {
		logger.Error("failed to load scoring rules", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := st.Migrate(); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	fetcher := uac.NewClient(cfg.FetchTimeout, logger)
	job := ingest.New(fetcher, st, zones, rules, logger, metrics, cfg.FetchRetries)

	srv := httpadapter.NewServer(cfg.IngestAddr, job, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runErr := runLoop(ctx, job, cfg.IngestInterval, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("ingest error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// runLoop runs the job once, then on every interval tick if one is
// configured, until the context is cancelled.
func runLoop(ctx context.Context, job *ingest.Job, interval time.Duration, logger *slog.Logger) error {
	if err := job.Run(ctx); err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}

	logger.Info("ingest scheduled", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				return err
			}
		}
	}
}
