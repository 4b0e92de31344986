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

	"tick-backtest/internal/config"
	"tick-backtest/internal/ingestion"
	"tick-backtest/internal/logger"
	"tick-backtest/internal/observability"
	"tick-backtest/internal/wiring"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default configs/backtest.yaml if present)")
	csvSources := flag.String("csv", "", "Comma-separated SYMBOL=path CSV files, overrides data.csv")
	batchSize := flag.Int("batch-size", ingestion.DefaultBatchSize, "Ticks per store write")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address, overrides metrics.addr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *csvSources != "" {
		sources, err := config.ParseCSVSources(strings.Split(*csvSources, ","))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Data.CSV = sources
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Data.CSV) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no CSV sources, use -csv or data.csv")
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	defer log.Close()

	if cfg.Storage.Backend == config.BackendMemory {
		log.Warn("memory backend selected, ingested ticks are discarded on exit")
	}

	var m *observability.Metrics
	if cfg.Metrics.Addr != "" {
		m = observability.NewMetrics("ingest", prometheus.DefaultRegisterer)
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			log.WithFields(logrus.Fields{"signal": sig.String()}).Warn("initiating graceful shutdown")
			cancel()
		case <-done:
			return
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.WithFields(logrus.Fields{"signal": sig.String()}).Error("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, *batchSize, m, log)
	close(done)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("ingestion failed")
		log.Close()
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, batchSize int, m *observability.Metrics, log *logger.Logger) error {
	stores, cleanup, err := wiring.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer cleanup()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		TickStore:     stores.Ticks,
		ProgressStore: stores.Progress,
		BatchSize:     batchSize,
		Metrics:       m,
		Logger:        log,
	})

	symbols := make([]string, 0, len(cfg.Data.CSV))
	for sym := range cfg.Data.CSV {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		stats, err := runner.IngestFile(ctx, sym, cfg.Data.CSV[sym])
		if err != nil {
			return fmt.Errorf("ingest %s: %w", sym, err)
		}
		fmt.Printf("%s: read=%d written=%d skipped=%d existing=%d last_id=%d\n",
			stats.Symbol, stats.Read, stats.Written, stats.Skipped, stats.Existing, stats.LastID)
	}
	return nil
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.WithFields(logrus.Fields{"addr": addr}).Info("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("metrics server failed")
	}
}
