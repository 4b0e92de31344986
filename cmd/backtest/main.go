package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"tick-backtest/internal/backtest"
	"tick-backtest/internal/config"
	"tick-backtest/internal/logger"
	"tick-backtest/internal/observability"
	"tick-backtest/internal/reporting"
	"tick-backtest/internal/wiring"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default configs/backtest.yaml if present)")
	csvSources := flag.String("csv", "", "Comma-separated SYMBOL=path CSV sources, overrides data.csv")
	strategyName := flag.String("strategy", "", "Strategy name, overrides strategy.name")
	outputDir := flag.String("output-dir", "", "Directory for report files (markdown, CSV, JSON)")
	format := flag.String("format", "markdown", "Report printed to stdout: markdown, json, none")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address, overrides metrics.addr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, *csvSources, *strategyName, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	defer log.Close()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithFields(logrus.Fields{"signal": sig.String()}).Warn("shutting down")
		cancel()
	}()

	var m *observability.Metrics
	if cfg.Metrics.Addr != "" {
		m = observability.NewMetrics("backtest", prometheus.DefaultRegisterer)
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	if err := run(ctx, cfg, m, log, *outputDir, *format); err != nil {
		log.WithError(err).Error("backtest failed")
		log.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, m *observability.Metrics, log *logger.Logger, outputDir, format string) error {
	stores, cleanup, err := wiring.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer cleanup()

	ticks, err := backtest.LoadTicks(ctx, cfg.Data, stores.Ticks)
	if err != nil {
		return fmt.Errorf("load ticks: %w", err)
	}
	log.WithFields(logrus.Fields{"ticks": len(ticks), "symbols": cfg.Data.Symbols}).Info("ticks loaded")

	out, err := backtest.NewRunner(stores.Backtest(), m, log).Run(ctx, cfg, ticks)
	if err != nil {
		return err
	}

	report, err := reporting.Build(out.Run, out.Results, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if outputDir != "" {
		files, err := reporting.WriteFiles(outputDir, report)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.WithFields(logrus.Fields{"dir": outputDir, "files": len(files)}).Info("report files written")
	}

	switch format {
	case "markdown":
		fmt.Print(reporting.RenderMarkdown(report))
	case "json":
		return reporting.WriteJSON(os.Stdout, report)
	case "none":
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

func applyFlags(cfg *config.Config, csvSources, strategyName, metricsAddr string) error {
	if csvSources != "" {
		sources, err := config.ParseCSVSources(strings.Split(csvSources, ","))
		if err != nil {
			return err
		}
		cfg.Data.CSV = sources
		cfg.Data.Symbols = make([]string, 0, len(sources))
		for sym := range sources {
			cfg.Data.Symbols = append(cfg.Data.Symbols, sym)
		}
		sort.Strings(cfg.Data.Symbols)
	}
	if strategyName != "" {
		cfg.Strategy.Name = strategyName
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	return nil
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", observability.Handler())

	log.WithFields(logrus.Fields{"addr": addr}).Info("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("metrics server failed")
	}
}
