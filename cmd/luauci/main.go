package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrej220/luauci/internal/lg"
	"github.com/andrej220/luauci/internal/monitor"
	"github.com/andrej220/luauci/pkg/cloud"
	"github.com/andrej220/luauci/pkg/config"
	"github.com/andrej220/luauci/pkg/notify"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		universe  = flag.Int64("universe", 0, "universe ID (required)")
		places    = flag.String("places", "", "comma-separated place IDs (required)")
		script    = flag.String("script", "", "path to the Luau test script (overrides config)")
		timeout   = flag.Int("timeout", 0, "overall deadline in seconds (overrides config)")
		interval  = flag.Int("interval", 0, "poll interval in seconds (overrides config)")
		cfgPath   = flag.String("config", "", "path to a YAML config file")
		debug     = flag.Bool("debug", false, "enable debug logging")
		logFormat = flag.String("log-format", "json", "json or console")
	)
	flag.Parse()

	logger := lg.New(&lg.Config{ServiceName: SERVICENAME, Debug: *debug, Format: *logFormat})
	defer logger.Sync()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			logger.Error("failed to load config", lg.Err(err))
			return 2
		}
		cfg = loaded
	}
	if *script != "" {
		cfg.ScriptPath = *script
	}
	if *timeout > 0 {
		cfg.TimeoutSeconds = *timeout
	}
	if *interval > 0 {
		cfg.PollIntervalSeconds = *interval
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("bad configuration", lg.Err(err))
		return 2
	}

	if *universe <= 0 {
		logger.Error("universe ID is required and must be positive")
		return 2
	}
	placeIDs, err := parsePlaceIDs(*places)
	if err != nil {
		logger.Error("bad places flag", lg.Err(err))
		return 2
	}

	apiKey := os.Getenv(APIKEYENV)
	if apiKey == "" {
		logger.Error("API key is not set", lg.String("env", APIKEYENV))
		return 2
	}

	source, err := os.ReadFile(cfg.ScriptPath)
	if err != nil {
		logger.Error("failed to read test script", lg.String("path", cfg.ScriptPath), lg.Err(err))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := cloud.NewClient(cfg.BaseURL, apiKey)

	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	if len(cfg.Kafka.Brokers) > 0 {
		kn := notify.NewKafkaNotifier(notify.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}, logger)
		defer kn.Close()
		notifier = notify.Multi{notifier, kn}
	}

	deadline := time.Duration(cfg.TimeoutSeconds) * time.Second
	pollEvery := time.Duration(cfg.PollIntervalSeconds) * time.Second

	// one independent monitor per place; no shared mutable state
	verdicts := make([]monitor.Verdict, len(placeIDs))
	g := new(errgroup.Group)
	for i, placeID := range placeIDs {
		i, placeID := i, placeID
		g.Go(func() error {
			m := monitor.New(client, logger, monitor.Config{Interval: pollEvery, Notifier: notifier})
			verdicts[i] = m.Run(ctx, cloud.SubmissionRequest{
				Script:     string(source),
				UniverseID: *universe,
				PlaceID:    placeID,
				APIKey:     apiKey,
			}, deadline)
			return nil
		})
	}
	_ = g.Wait() // monitors report through verdicts, never errors

	code := 0
	for i, placeID := range placeIDs {
		v := verdicts[i]
		fmt.Fprintf(os.Stderr, "place %d: %s\n", placeID, v.Outcome)
		if v.Message != "" {
			fmt.Fprintln(os.Stderr, v.Message)
		}
		if c := v.ExitCode(); c > code {
			code = c
		}
	}
	return code
}
