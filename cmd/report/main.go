package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"tick-backtest/internal/backtest"
	"tick-backtest/internal/config"
	"tick-backtest/internal/logger"
	"tick-backtest/internal/reporting"
	"tick-backtest/internal/storage"
	"tick-backtest/internal/verification"
	"tick-backtest/internal/wiring"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default configs/backtest.yaml if present)")
	executionID := flag.String("execution-id", "", "Execution to report on (required)")
	outputDir := flag.String("output-dir", "", "Directory for report files (markdown, CSV, JSON)")
	format := flag.String("format", "markdown", "Report printed to stdout: markdown, json, none")
	verify := flag.Bool("verify", false, "Replay the execution over the configured data and compare with the stored ledger")
	flag.Parse()

	if *executionID == "" {
		fmt.Fprintln(os.Stderr, "Error: --execution-id is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Backend == config.BackendMemory {
		fmt.Fprintln(os.Stderr, "Error: reports are read from stored runs, configure the postgres backend")
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	defer log.Close()

	ctx := context.Background()
	if *verify {
		if err := runVerify(ctx, cfg, *executionID, log); err != nil {
			log.WithError(err).Error("verification failed")
			log.Close()
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, *executionID, *outputDir, *format, log); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.WithFields(logrus.Fields{"execution_id": *executionID}).Error("execution not found")
		} else {
			log.WithError(err).Error("report failed")
		}
		log.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, executionID, outputDir, format string, log *logger.Logger) error {
	stores, cleanup, err := wiring.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer cleanup()

	report, err := reporting.NewGenerator(stores.Report()).Generate(ctx, executionID)
	if err != nil {
		return err
	}
	log.WithRun(report.Run.RunID, executionID).WithFields(logrus.Fields{
		"symbols": len(report.Symbols),
		"trades":  report.TotalTrades(),
	}).Info("report generated")

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

// runVerify replays the execution with the loaded config. The config must
// select the same strategy and data the execution was recorded with.
func runVerify(ctx context.Context, cfg *config.Config, executionID string, log *logger.Logger) error {
	stores, cleanup, err := wiring.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer cleanup()

	ticks, err := backtest.LoadTicks(ctx, cfg.Data, stores.Ticks)
	if err != nil {
		return fmt.Errorf("load ticks: %w", err)
	}

	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		RunStore:     stores.Runs,
		TradeStore:   stores.Trades,
		SummaryStore: stores.Summaries,
		Logger:       log,
	})
	report, err := v.Verify(ctx, executionID, cfg, ticks)
	if err != nil {
		return err
	}

	fmt.Printf("execution %s: run_id stored=%s replayed=%s trades stored=%d replayed=%d\n",
		report.ExecutionID, report.RunID, report.ReplayedRunID, report.TradesStored, report.TradesReplayed)
	for _, d := range report.Divergences {
		fmt.Println("  " + d.String())
	}
	if !report.Match() {
		return fmt.Errorf("execution %s does not replay: %d divergences", executionID, len(report.Divergences))
	}
	fmt.Println("OK")
	return nil
}
