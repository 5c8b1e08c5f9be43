// Command slotserver is the save endpoint the editor posts slot lists to.
// It keeps each lot's labeled slots on disk and serves them back as JSON and
// as simple dashboard pages.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slot-editor/internal/app"
	"slot-editor/internal/config"
	"slot-editor/internal/server"
	"slot-editor/internal/version"
)

var (
	configPath = flag.String("config", "", "path to config file (defaults when empty)")
	dataDir    = flag.String("data", "", "directory for lot files, overrides config")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	var cfgErr error
	if *configPath != "" {
		cfg, cfgErr = config.Load(*configPath)
	}
	logger := app.NewJSONLogger(*debug || cfg.Debug, nil)
	if cfgErr != nil {
		logger.Warn("config unreadable, using defaults", "path", *configPath, slog.Any("err", cfgErr))
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	store, err := server.NewStore(cfg.DataDir, logger)
	if err != nil {
		logger.Error("open store", "dir", cfg.DataDir, slog.Any("err", err))
		os.Exit(1)
	}

	h := server.NewHandler(store, server.NewMetrics(store), logger)
	addr := server.ListenAddr(cfg.ListenAddr)
	srv := server.New(addr, server.NewRouter(h))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", addr, "data", cfg.DataDir, "lots", store.LotCount(), "version", version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("err", err))
	}
}
