package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/mse-history/internal/config"
	"github.com/rickgao/mse-history/internal/poller"
	"github.com/rickgao/mse-history/internal/pool"
	"github.com/rickgao/mse-history/internal/store"
)

func pollerConfig(cfg config.ScheduleConfig) poller.Config {
	return poller.Config{
		Schedule:   cfg.Cron,
		RunOnStart: cfg.RunOnStart,
		Timeout:    cfg.CycleTimeout,
	}
}

// serve runs sync cycles on the configured schedule until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	p, err := poller.New(pollerConfig(a.cfg.Schedule), poller.CycleFunc(func(ctx context.Context) error {
		_, err := a.runCycle(ctx, nil)
		return err
	}), a.logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/health", healthHandler(a.store, p, a.report, a.logger))
	if a.cfg.Metrics.Enabled {
		mux.Handle(a.cfg.Metrics.Path, a.metrics.Handler())
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting health server", "port", a.cfg.Metrics.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if err := p.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		a.logger.Error("health server error", "err", err)
	}

	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.Stop(shutdownCtx); err != nil {
		a.logger.Warn("poller stop timed out", "err", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("health server shutdown failed", "err", err)
	}

	a.logger.Info("mse-sync stopped")
	return nil
}

type lastRun struct {
	RunID    string   `json:"run_id"`
	Started  string   `json:"started"`
	Duration string   `json:"duration"`
	Updated  int      `json:"updated"`
	Rows     int      `json:"rows"`
	UpToDate int      `json:"up_to_date"`
	Failures []string `json:"failures"`
}

// healthHandler reports store reachability, whether a cycle is running and
// a summary of the last completed run.
func healthHandler(st store.Store, p *poller.Poller, report func() *pool.Report, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := st.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["store"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["store"] = "connected"
		}

		health.Components["poller"] = map[string]bool{"running": p.Running()}

		if rep := report(); rep != nil {
			health.Components["last_run"] = lastRun{
				RunID:    rep.RunID.String(),
				Started:  rep.Started.UTC().Format(time.RFC3339),
				Duration: rep.Duration.Round(time.Millisecond).String(),
				Updated:  rep.Updated,
				Rows:     rep.RowsSaved,
				UpToDate: len(rep.UpToDate),
				Failures: rep.FailureMessages(),
			}
			if len(rep.Failures) > 0 && rep.Updated == 0 && rep.Current == 0 {
				health.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Warn("write health response", "err", err)
		}
	})
}
