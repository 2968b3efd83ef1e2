package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sensorwatch-lab/sensorwatch/internal/anomaly"
	"github.com/sensorwatch-lab/sensorwatch/internal/assistant"
	"github.com/sensorwatch-lab/sensorwatch/internal/assistant/ollama"
	corecfg "github.com/sensorwatch-lab/sensorwatch/internal/core/config"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage/backend"
	"github.com/sensorwatch-lab/sensorwatch/internal/ingestion"
	"github.com/sensorwatch-lab/sensorwatch/internal/liveness"
	"github.com/sensorwatch-lab/sensorwatch/internal/metrics"
	"github.com/sensorwatch-lab/sensorwatch/internal/monitor"
	"github.com/sensorwatch-lab/sensorwatch/internal/projection"
	"github.com/sensorwatch-lab/sensorwatch/internal/server"
	"github.com/sensorwatch-lab/sensorwatch/internal/transport/mqtt"
	"github.com/sensorwatch-lab/sensorwatch/internal/window"
)

func main() {
	configPath := flag.String("config", corecfg.DefaultPath, "Path to configuration file")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration as YAML and exit")
	flag.Parse()

	// 0. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		if err := yaml.NewEncoder(os.Stdout).Encode(cfg.Redacted()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to print config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// 1. Initialize Logger
	zl, err := corecfg.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()
	slog.SetDefault(corecfg.NewSlogLogger(zl))

	slog.Info("Loaded config", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *corecfg.Config) error {
	// 2. Initialize Storage and run migrations
	store, err := backend.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 4. Ingestion
	gate := ingestion.NewGate(store, m)
	ingestionSvc := ingestion.NewService(gate, cfg.Server.MaxBodyBytes)

	// 5. Window, scoring, liveness and the query layer
	overrides, err := cfg.Scoring.Overrides()
	if err != nil {
		return err
	}
	reader := window.NewReader(store, window.Options{
		MaxDistance:     cfg.Window.MaxDistance,
		FarDistance:     cfg.Window.FarDistance,
		FallbackEnabled: cfg.Window.FallbackEnabled,
		FallbackCount:   cfg.Window.FallbackCount,
	})
	projectionSvc := projection.NewService(
		reader,
		anomaly.NewScorer(cfg.Scoring.Defaults, overrides),
		liveness.NewMonitor(cfg.Liveness),
		cfg.Insight,
		projection.Options{
			Span:        cfg.Window.Span,
			LatestLimit: cfg.Window.LatestLimit,
			MaxLimit:    cfg.Window.MaxLimit,
			RecentCount: cfg.Window.RecentCount,
		},
	)

	// 6. Server
	srv := server.New(server.Config{
		Addr:            fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Mode:            cfg.Server.Mode,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, store, m, reg)
	srv.Register(ingestionSvc, projectionSvc)

	// 7. Assistant
	if cfg.Assistant.Enabled {
		provider, err := ollama.New(ollama.Config{
			URL:     cfg.Assistant.BaseURL,
			Model:   cfg.Assistant.Model,
			Timeout: cfg.Assistant.Timeout,
		})
		if err != nil {
			return err
		}
		srv.Register(assistant.NewService(projectionSvc, provider, cfg.Assistant.ContextReadings))
		slog.Info("Assistant enabled", "base_url", cfg.Assistant.BaseURL, "model", cfg.Assistant.Model)
	}

	// 8. Start Services
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return srv.Run(gctx) })

	if cfg.MQTT.Enabled {
		codec, err := ingestion.CodecFor(cfg.MQTT.Encoding)
		if err != nil {
			return err
		}
		sub := mqtt.NewSubscriber(mqtt.Config{
			Broker:         cfg.MQTT.Broker,
			Topic:          cfg.MQTT.Topic,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			QoS:            cfg.MQTT.QoS,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
			QueueSize:      cfg.MQTT.QueueSize,
		}, codec, gate, m)
		g.Go(func() error { return sub.Start(gctx) })
	} else {
		slog.Info("MQTT subscriber disabled by config")
	}

	if cfg.Monitor.Enabled {
		mon := monitor.New(cfg.Monitor.Interval, projectionSvc, m)
		g.Go(func() error { return mon.Start(gctx) })
	} else {
		slog.Info("Status monitor disabled by config")
	}

	return g.Wait()
}
