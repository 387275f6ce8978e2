package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/config"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/health"
	middleware "github.com/mohammed-shakir/hazard-curve-service/internal/core/middleware"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/router"
)

type Deps struct {
	Handlers *router.Handlers
	Store    health.Pinger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the chi routes for the hazard API.
func NewRouter(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(d.Store, cfg.StoreOpTimeout))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	api := func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Get("/curve.json", d.Handlers.Curve)
		r.Get("/editions.json", d.Handlers.Editions)
		r.Get("/regions.json", d.Handlers.Regions)
		r.Get("/spectralPeriods.json", d.Handlers.SpectralPeriods)
		r.Get("/vs30.json", d.Handlers.Vs30s)
	}
	if cfg.MountPath == "" {
		r.Group(api)
	} else {
		r.Route(cfg.MountPath, api)
	}
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr, "mount", cfg.MountPath)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
