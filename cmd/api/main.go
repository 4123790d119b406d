// Command api serves the Slope Signal query interface: the region list and
// per-region daily briefs with the computed risk index.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/slopesignal/slope-signal/internal/api"
	"github.com/slopesignal/slope-signal/internal/config"
	"github.com/slopesignal/slope-signal/internal/domain"
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

	cache := api.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if cfg.RedisAddr != "" && !cache.Available() {
		logger.Warn("redis unreachable, serving without cache", "addr", cfg.RedisAddr)
	}

	srv := api.NewServer(st, domain.NewScorer(rules), cache, logger)

	httpServer := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: srv.Router(cfg.CORSOrigins),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api server starting", "addr", cfg.APIAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Error("cache close error", "error", err)
	}

	logger.Info("shutdown complete")
}
