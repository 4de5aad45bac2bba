package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rvbeek/repolens/internal/config"
	"github.com/rvbeek/repolens/internal/manifest"
	"github.com/rvbeek/repolens/internal/navigation"
	"github.com/rvbeek/repolens/internal/session"
	"github.com/rvbeek/repolens/internal/store"
)

// state bundles everything the HTTP handlers need.
type state struct {
	cfg     config.File
	manager *session.Manager
	watcher *navigation.Watcher
	history *store.Store
	started time.Time
}

// Run starts the repolens service and blocks until ctx is canceled or the
// listener fails.
func Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var history *store.Store
	if cfg.DBPath != "" {
		history, err = store.Open(cfg.DBPath)
		if err != nil {
			// History is a convenience; the overlay engine works without it.
			slog.Warn("history store unavailable, continuing without it", "path", cfg.DBPath, "error", err)
			history = nil
		} else {
			defer func() { _ = history.Close() }()
		}
	}

	var onParse func(url string, records map[string]manifest.Record)
	if history != nil {
		h := history
		onParse = func(url string, records map[string]manifest.Record) {
			if err := h.RecordParse(url, records); err != nil {
				slog.Warn("record parse history failed", "url", url, "error", err)
			}
		}
	}

	manager := session.NewManager(ctx, session.Options{
		ManifestMarker:   cfg.ManifestMarker,
		ManifestPatterns: cfg.ManifestPatterns,
		Debounce:         cfg.Debounce(),
		RetryAttempts:    cfg.InitRetryAttempts,
		RetryInterval:    cfg.InitRetryInterval(),
		URLPollInterval:  cfg.URLPollInterval(),
	}, onParse)

	s := &state{
		cfg:     cfg,
		manager: manager,
		watcher: navigation.NewWatcher(cfg.SiteDomain, manager),
		history: history,
		started: time.Now().UTC(),
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           buildRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopMDNS := func() {}
	if cfg.MDNSEnabled() {
		stopMDNS = startMDNSAdvertiser(cfg.ListenAddr)
	}
	defer stopMDNS()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("repolens server started", "addr", cfg.ListenAddr, "site", cfg.SiteDomain)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		slog.Info("repolens server stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		slog.Info("repolens server stopped")
		return nil
	}
}

func loadConfig() (config.File, error) {
	cfg := config.Default()
	if path := os.Getenv("REPOLENS_CONFIG"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return config.File{}, fmt.Errorf("load config: %w", err)
		}
	}
	cfg.ListenAddr = envOrDefault("REPOLENS_ADDR", cfg.ListenAddr)
	cfg.DBPath = envOrDefault("REPOLENS_DB_PATH", cfg.DBPath)
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
