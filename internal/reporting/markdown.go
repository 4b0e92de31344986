package reporting

import (
	"fmt"
	"strings"
	"time"

	"tick-backtest/internal/metrics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339)))

	// Run
	sb.WriteString("## Run\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", r.Run.Strategy))
	sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Run.RunID))
	sb.WriteString(fmt.Sprintf("| Execution ID | %s |\n", r.Run.ExecutionID))
	sb.WriteString(fmt.Sprintf("| Symbols | %s |\n", strings.Join(r.Run.Symbols, ", ")))
	sb.WriteString(fmt.Sprintf("| Ticks Fed | %d |\n", r.Run.TicksFed))
	if !r.Run.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("| Started | %s |\n", r.Run.StartedAt.UTC().Format(time.RFC3339)))
	}
	if !r.Run.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("| Finished | %s |\n", r.Run.FinishedAt.UTC().Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.TotalTrades()))
	sb.WriteString(fmt.Sprintf("| Total PnL | %s |\n", formatNum(r.TotalPnL(), 4)))
	sb.WriteString("\n")

	// Summary
	sb.WriteString("## Summary\n\n")
	if len(r.Symbols) > 0 {
		sb.WriteString("| Symbol | Trades | Long | Short | Win% | AvgPnL | TotalPnL | MaxDD | Sharpe | Sortino | R² | Stopped |\n")
		sb.WriteString("|--------|--------|------|-------|------|--------|----------|-------|--------|---------|----|---------|\n")
		for _, sec := range r.Symbols {
			s := sec.Summary
			stopped := sec.StopReason
			if stopped == "" {
				stopped = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				sec.Symbol, s.TradesTotal, s.TradesLong, s.TradesShort,
				formatPct(s.PctWin), formatNum(s.AvgPnL, 4), formatNum(s.TotalPnL, 4),
				formatNum(s.MaxDrawDown, 4), formatNum(s.Sharpe, 2), formatNum(s.Sortino, 2),
				formatNum(s.RSquared, 2), stopped))
		}
	} else {
		sb.WriteString("No symbols in run.\n")
	}
	sb.WriteString("\n")

	// Trade distribution
	sb.WriteString("## Trade Distribution\n\n")
	if r.Distribution != nil {
		sb.WriteString("| Scope | Trades | WinRate | Mean | Median | P10 | P90 | PF | Expectancy | MaxDD | MaxLoss |\n")
		sb.WriteString("|-------|--------|---------|------|--------|-----|-----|----|------------|-------|---------|\n")
		writeDistributionRow(&sb, "all", r.Distribution.Overall)
		for _, sym := range r.Distribution.Symbols {
			writeDistributionRow(&sb, sym, r.Distribution.BySymbol[sym])
		}
	} else {
		sb.WriteString("No closed trades.\n")
	}
	sb.WriteString("\n")

	// Day history
	sb.WriteString("## Day Performance\n\n")
	wroteDays := false
	for _, sec := range r.Symbols {
		if len(sec.Days) == 0 {
			continue
		}
		wroteDays = true
		sb.WriteString(fmt.Sprintf("### %s\n\n", sec.Symbol))
		sb.WriteString("| Date | Return | PnL | DrawDown | AvgTradePnL | Trades |\n")
		sb.WriteString("|------|--------|-----|----------|-------------|--------|\n")
		for _, d := range sec.Days {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d |\n",
				formatDate(d.Date), formatNum(d.Return, 4), formatNum(d.PnL, 4),
				formatNum(d.DrawDown, 4), formatNum(d.AvgTradePnL, 4), d.NTrades))
		}
		sb.WriteString("\n")
	}
	if !wroteDays {
		sb.WriteString("No day closes recorded.\n\n")
	}

	return sb.String()
}

func writeDistributionRow(sb *strings.Builder, scope string, d metrics.Distribution) {
	sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s | %s | %s | %s | %s | %d |\n",
		scope, d.Trades, formatPct(d.WinRate),
		formatNum(d.Mean, 4), formatNum(d.Median, 4), formatNum(d.P10, 4), formatNum(d.P90, 4),
		formatNum(d.ProfitFactor, 2), formatNum(d.Expectancy, 4),
		formatNum(d.MaxDrawdown, 4), d.MaxConsecutiveLosses))
}
