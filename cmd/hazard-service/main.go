package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/config"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/observability"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/router"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/server"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hitevents"
	"github.com/mohammed-shakir/hazard-curve-service/internal/logger"
	"github.com/mohammed-shakir/hazard-curve-service/internal/metrics"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store/cached"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store/redisstore"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "hazard-service",
		Version:   cfg.Build.Version,
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)
	slog.SetDefault(appLog)

	appLog.Info("starting hazard service",
		"addr", cfg.Addr,
		"mount", cfg.MountPath,
		"redis", cfg.RedisAddr,
		"max_workers", cfg.CurveMaxWorkers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		p := metrics.Init(metrics.Config{
			Service: "hazard-service",
			Build: metrics.BuildInfo{
				Version:   cfg.Build.Version,
				Revision:  cfg.Build.Revision,
				Branch:    cfg.Build.Branch,
				BuildDate: cfg.Build.BuildDate,
			},
		}, observability.Collectors()...)

		if cfg.Metrics.Addr == "" {
			metricsHandler = p.Handler()
		} else {
			go func() {
				if err := p.Serve(ctx, appLog, cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
					appLog.Error("metrics server exited", "err", err)
				}
			}()
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rc, err := redisstore.New(connectCtx, cfg.RedisAddr, redisstore.WithOpTimeout(cfg.StoreOpTimeout))
	cancel()
	if err != nil {
		appLog.Error("failed to connect to redis", "addr", cfg.RedisAddr, "err", err)
		return 1
	}
	defer func() { _ = rc.Close() }()

	var sink hitevents.Sink = hitevents.Nop{}
	if cfg.HitEvents.Enabled {
		pub, err := hitevents.NewPublisher(cfg.HitEvents.Brokers, cfg.HitEvents.Topic, cfg.HitEvents.Queue, appLog)
		if err != nil {
			appLog.Error("hit events disabled", "err", err)
		} else {
			defer func() {
				if err := pub.Close(); err != nil {
					appLog.Warn("hit events close", "err", err)
				}
			}()
			sink = pub
			appLog.Info("hit events enabled", "topic", cfg.HitEvents.Topic, "brokers", cfg.HitEvents.Brokers)
		}
	}

	svc := hazard.New(cached.New(rc, cfg.MetadataCacheSize, cfg.MetadataCacheTTL),
		hazard.WithLogger(appLog),
		hazard.WithMaxWorkers(cfg.CurveMaxWorkers),
		hazard.WithH3Resolution(cfg.H3Res),
		hazard.WithSink(sink),
	)

	h := server.NewRouter(cfg, appLog, server.Deps{
		Handlers: router.New(appLog, svc, nil),
		Store:    rc,
		Metrics:  metricsHandler,
	})

	if err := server.Run(ctx, cfg, appLog, h); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
