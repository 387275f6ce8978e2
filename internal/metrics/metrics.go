// Package metrics owns the Prometheus registry of a hazard binary and the
// optional standalone listener that exposes it.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

type Config struct {
	// Service labels hazard_build_info.
	Service string
	Build   BuildInfo
}

type Provider struct {
	reg       *prometheus.Registry
	buildInfo *prometheus.GaugeVec
}

// Init builds a fresh registry with runtime collectors and build info, then
// registers extra collectors.
func Init(cfg Config, extra ...prometheus.Collector) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hazard_build_info",
			Help: "Build info of the running hazard binary (value is always 1).",
		},
		[]string{"service", "version", "revision", "branch", "build_date", "go_version"},
	)
	reg.MustRegister(build)

	b := cfg.Build
	if b.Version == "" {
		b.Version = "dev"
	}
	svc := cfg.Service
	if svc == "" {
		svc = "hazard"
	}
	build.WithLabelValues(svc, b.Version, b.Revision, b.Branch, b.BuildDate, runtime.Version()).Set(1)

	p := &Provider{reg: reg, buildInfo: build}
	if err := p.Register(extra...); err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{
		Registry:          p.reg,
		EnableOpenMetrics: true,
	})
}

// Register adds collectors, skipping ones that are already registered.
func (p *Provider) Register(cs ...prometheus.Collector) error {
	var errs []error
	for _, c := range cs {
		if err := p.reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

func (p *Provider) Gatherer() prometheus.Gatherer { return p.reg }

// Serve exposes the registry on its own listener until ctx is done.
func (p *Provider) Serve(ctx context.Context, log *slog.Logger, addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, p.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown error", "err", err)
		}
	}()

	log.Info("metrics listening", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
