package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allredmatt/server-based-job-site/internal/api"
	"github.com/allredmatt/server-based-job-site/internal/config"
	"github.com/allredmatt/server-based-job-site/internal/core"
	"github.com/allredmatt/server-based-job-site/internal/scraper"
	"github.com/allredmatt/server-based-job-site/internal/store"
)

const shutdownGrace = 30 * time.Second

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobScraper := scraper.NewFromConfig(cfg)
	opts := []api.Option{api.WithStaticDir(cfg.StaticDir)}

	// History is optional; without DATABASE_URL the service keeps no state.
	if cfg.HistoryEnabled() {
		dbStore, err := store.NewStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to store", "error", err)
			os.Exit(1)
		}
		defer dbStore.Close()

		if err := dbStore.RunMigrations(""); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		core.NewSchedulerService(dbStore, cfg.HistoryRetention).Start(ctx)
		opts = append(opts, api.WithHistory(dbStore))
	}

	srv := api.NewServer(jobScraper, opts...)

	httpServer := &http.Server{
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		slog.Error("failed to listen", "port", cfg.Port, "error", err)
		os.Exit(1)
	}

	slog.Info("starting server",
		"port", cfg.Port,
		"site", cfg.BaseURL,
		"location", cfg.Location,
		"fetch_mode", cfg.FetchMode,
		"history", cfg.HistoryEnabled(),
	)
	if err := serve(ctx, httpServer, ln, shutdownGrace); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// serve runs srv on ln until ctx is done, then stops accepting connections and
// waits up to grace for in-flight requests before returning.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "grace", grace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
