package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	corecfg "github.com/sensorwatch-lab/sensorwatch/internal/core/config"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage/backend"
	"github.com/sensorwatch-lab/sensorwatch/internal/ingestion"
	"github.com/sensorwatch-lab/sensorwatch/internal/simulator"
	"github.com/sensorwatch-lab/sensorwatch/internal/transport/mqtt"
)

func main() {
	configPath := flag.String("config", corecfg.DefaultPath, "Path to configuration file")
	direct := flag.Bool("direct", false, "Ingest straight into the configured store instead of publishing over MQTT")
	interval := flag.Duration("interval", simulator.DefaultInterval, "Time between readings")
	count := flag.Int("count", 0, "Number of readings to send (0 = until interrupted)")
	seed := flag.Uint64("seed", 0, "Random seed (0 = random)")
	flag.Parse()

	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zl, err := corecfg.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()
	slog.SetDefault(corecfg.NewSlogLogger(zl))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewPCG(*seed, *seed))
	}

	sink, closeSink, err := newSink(ctx, cfg, *direct)
	if err != nil {
		slog.Error("Failed to initialize simulator sink", "error", err)
		os.Exit(1)
	}
	defer closeSink()

	sent, err := simulator.New(simulator.NewWalk(rng), sink, *interval, *count).Run(ctx)
	if err != nil {
		slog.Error("Simulator stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Simulator finished", "sent", sent)
}

func newSink(ctx context.Context, cfg *corecfg.Config, direct bool) (simulator.Sink, func(), error) {
	if direct {
		store, err := backend.Open(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		gate := ingestion.NewGate(store, nil)
		sink := simulator.SinkFunc(func(ctx context.Context, p v1.Payload) error {
			_, err := gate.Ingest(ctx, p)
			return err
		})
		return sink, func() { _ = store.Close() }, nil
	}

	codec, err := ingestion.CodecFor(cfg.MQTT.Encoding)
	if err != nil {
		return nil, nil, err
	}
	pub := mqtt.NewPublisher(mqtt.Config{
		Broker:         cfg.MQTT.Broker,
		Topic:          cfg.MQTT.Topic,
		ClientID:       cfg.MQTT.ClientID + "-sim",
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		QoS:            cfg.MQTT.QoS,
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
	}, codec)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.MQTT.ConnectTimeout)
	defer cancel()
	if err := pub.Connect(connectCtx); err != nil {
		return nil, nil, err
	}
	return pub, pub.Close, nil
}
