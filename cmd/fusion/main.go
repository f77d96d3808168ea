package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polyfusion/config"
	"github.com/alejandrodnm/polyfusion/internal/adapters/notify"
	"github.com/alejandrodnm/polyfusion/internal/adapters/replay"
	"github.com/alejandrodnm/polyfusion/internal/adapters/storage"
	"github.com/alejandrodnm/polyfusion/internal/application/pipeline"
	"github.com/alejandrodnm/polyfusion/internal/metrics"
	"github.com/alejandrodnm/polyfusion/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	scenarioPath := flag.String("scenario", "", "YAML scenario to replay into the pipeline (required)")
	once := flag.Bool("once", false, "run one decision cycle and exit")
	dryRun := flag.Bool("dry-run", false, "do not write the decision journal")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full tables (default: compact 1-line)")
	metricsAddr := flag.String("metrics-addr", "", "serve prometheus /metrics on this address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	setupLogger(cfg.Log)

	if *scenarioPath == "" {
		slog.Error("missing -scenario: live feeds are not wired, replay a scenario instead")
		os.Exit(2)
	}

	slog.Info("polyfusion starting",
		"config", *configPath,
		"scenario", *scenarioPath,
		"interval", cfg.Interval(),
		"dry_run", *dryRun,
		"once", *once,
	)

	sc, err := replay.Load(*scenarioPath)
	if err != nil {
		slog.Error("failed to load scenario", "err", err, "path", *scenarioPath)
		os.Exit(1)
	}

	var store ports.DecisionStore
	if !*dryRun {
		journal, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer journal.Close()
		store = journal
	}

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		slog.Info("metrics listening", "addr", cfg.Metrics.Addr)
	}

	notifier := notify.NewConsole(*table)

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.Interval = cfg.Interval()
	pipeCfg.Workers = cfg.Pipeline.Workers
	pipeCfg.SessionsPerSecond = cfg.Pipeline.SessionsPerSecond
	pipeCfg.Bankroll = cfg.Bankroll()
	pipeCfg.StopLossPct = cfg.Risk.StopLossPct
	pipeCfg.TakeProfitEdge = cfg.Risk.TakeProfitEdge
	pipeCfg.Once = *once

	p := pipeline.New(pipeCfg, buildComponents(cfg), store, notifier, sc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	if err := sc.Replay(ctx, p); err != nil {
		slog.Error("replay failed", "err", err)
		os.Exit(1)
	}
	slog.Info("scenario replayed",
		"name", sc.Name,
		"events", sc.Len(),
		"until", sc.End().Format(time.RFC3339),
		"took", time.Since(start).Round(time.Millisecond),
	)

	if err := p.Run(ctx); err != nil {
		slog.Error("pipeline exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("polyfusion stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
