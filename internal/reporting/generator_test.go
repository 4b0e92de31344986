package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
	"tick-backtest/internal/storage/memory"
)

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func testTrade(symbol string, id int, exit, pnlRel float64) domain.Trade {
	return domain.Trade{
		TradeID:    id,
		Symbol:     symbol,
		Side:       domain.TradeSideLong,
		State:      domain.TradeStateClosed,
		TimeEnter:  exit - 60,
		PriceEnter: 100,
		TimeExit:   exit,
		PriceExit:  100 * (1 + pnlRel),
		PnL:        100 * pnlRel,
		PnLRel:     pnlRel,
	}
}

func testResults() []domain.Result {
	return []domain.Result{
		{
			Symbol: "BBB",
			Summary: domain.Summary{
				TradesTotal: 1, TradesLong: 1, TradesLoss: 1,
				PctWin: 0, TotalPnL: -0.05, AvgPnL: -0.05,
				Sharpe: math.NaN(), Sortino: math.NaN(), RSquared: math.NaN(),
			},
			Trades:     []domain.Trade{testTrade("BBB", 1, 1704070800, -0.05)},
			StopReason: "max drawdown",
		},
		{
			Symbol: "AAA",
			Summary: domain.Summary{
				TradesTotal: 2, TradesLong: 2, TradesWin: 1, TradesLoss: 1,
				PctWin: 0.5, TotalPnL: 0.05, AvgPnL: 0.025,
				Sharpe: 1.25, Sortino: 2, RSquared: 0.5,
			},
			Trades: []domain.Trade{
				testTrade("AAA", 1, 1704067500, 0.10),
				testTrade("AAA", 2, 1704068000, -0.05),
			},
			Orders: []domain.OrderRecord{
				{OrderID: 1, TradeID: 1, Symbol: "AAA", Side: domain.SideBuy, Type: domain.OrderTypeMarket,
					State: domain.OrderStateExecuted, Price: math.NaN(), ExecutionPrice: 100, TimeSent: 1704067200, TimeProcessed: 1704067201},
			},
			Days: []domain.DayPerformance{
				{Date: 19723, Return: 0.05, PnL: 0.05, DrawDown: -0.05, AvgTradePnL: 0.025, NTrades: 2},
			},
		},
	}
}

func testRun() domain.RunRecord {
	return domain.RunRecord{
		ExecutionID: "exec-1",
		RunID:       "run-1",
		Strategy:    "crossover",
		Symbols:     []string{"AAA", "BBB"},
		StartedAt:   fixedNow.Add(-time.Minute),
		FinishedAt:  fixedNow,
		TicksFed:    1000,
		Config:      []byte(`{"fast":5}`),
	}
}

func TestBuild(t *testing.T) {
	r, err := Build(testRun(), testResults(), fixedNow)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(r.Symbols) != 2 || r.Symbols[0].Symbol != "AAA" || r.Symbols[1].Symbol != "BBB" {
		t.Fatalf("expected sections sorted by symbol, got %+v", r.Symbols)
	}
	if r.TotalTrades() != 3 {
		t.Errorf("expected 3 total trades, got %d", r.TotalTrades())
	}
	if math.Abs(r.TotalPnL()) > 1e-12 {
		t.Errorf("expected total PnL 0, got %f", r.TotalPnL())
	}
	if r.Distribution == nil {
		t.Fatal("expected distribution")
	}
	if r.Distribution.Overall.Trades != 3 {
		t.Errorf("expected 3 closed trades in distribution, got %d", r.Distribution.Overall.Trades)
	}
}

func TestBuild_NoTrades(t *testing.T) {
	r, err := Build(testRun(), []domain.Result{{Symbol: "AAA"}}, fixedNow)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if r.Distribution != nil {
		t.Error("expected nil distribution without closed trades")
	}
	md := RenderMarkdown(r)
	if !strings.Contains(md, "No closed trades.") {
		t.Error("markdown should note missing trades")
	}
}

func TestRenderMarkdown(t *testing.T) {
	r, err := Build(testRun(), testResults(), fixedNow)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	md := RenderMarkdown(r)

	expected := []string{
		"# Backtest Report",
		"Generated: 2024-01-15T12:00:00Z",
		"| Strategy | crossover |",
		"| Execution ID | exec-1 |",
		"| Symbols | AAA, BBB |",
		"| Total Trades | 3 |",
		"| AAA | 2 | 2 | 0 | 50.00% | 0.0250 | 0.0500 |",
		"| NaN | NaN | NaN | max drawdown |",
		"| all | 3 |",
		"### AAA",
		"| 2024-01-01 | 0.0500 | 0.0500 | -0.0500 | 0.0250 | 2 |",
	}
	for _, s := range expected {
		if !strings.Contains(md, s) {
			t.Errorf("markdown missing %q", s)
		}
	}
	if strings.Contains(md, "### BBB") {
		t.Error("symbols without day closes should not get a day table")
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	r, err := Build(testRun(), testResults(), fixedNow)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, r); err != nil {
		t.Fatalf("WriteSummaryCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "symbol" || rows[1][0] != "AAA" || rows[2][0] != "BBB" {
		t.Errorf("unexpected symbol column: %v %v %v", rows[0][0], rows[1][0], rows[2][0])
	}
	if rows[2][1] != "max drawdown" {
		t.Errorf("expected stop reason, got %q", rows[2][1])
	}
	if rows[1][15] != "0.050000" {
		t.Errorf("expected total_pnl 0.050000, got %q", rows[1][15])
	}
	if rows[2][18] != "NaN" {
		t.Errorf("expected NaN sharpe, got %q", rows[2][18])
	}
}

func TestWriteTradesAndOrdersCSV(t *testing.T) {
	r, err := Build(testRun(), testResults(), fixedNow)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var trades bytes.Buffer
	if err := WriteTradesCSV(&trades, r); err != nil {
		t.Fatalf("WriteTradesCSV failed: %v", err)
	}
	rows, err := csv.NewReader(&trades).ReadAll()
	if err != nil {
		t.Fatalf("read back CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 trades, got %d", len(rows))
	}
	if rows[1][7] != "2024-01-01T00:05:00Z" {
		t.Errorf("expected exit time 2024-01-01T00:05:00Z, got %q", rows[1][7])
	}

	var orders bytes.Buffer
	if err := WriteOrdersCSV(&orders, r); err != nil {
		t.Fatalf("WriteOrdersCSV failed: %v", err)
	}
	rows, err = csv.NewReader(&orders).ReadAll()
	if err != nil {
		t.Fatalf("read back CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 order, got %d", len(rows))
	}
	if rows[1][6] != "NaN" || rows[1][7] != "100.000000" {
		t.Errorf("unexpected prices: %q %q", rows[1][6], rows[1][7])
	}
}

func TestWriteCandlesAndDaysCSV(t *testing.T) {
	var buf bytes.Buffer
	candles := []domain.Candle{
		{ID: 1, Time: 1704067260, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10},
		{ID: 2, Time: 1704067320, Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: math.NaN(), IsEmpty: true},
	}
	if err := WriteCandlesCSV(&buf, candles); err != nil {
		t.Fatalf("WriteCandlesCSV failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2024-01-01T00:01:00Z,100.000000,101.000000,99.000000,100.500000,10,false") {
		t.Errorf("unexpected candle CSV:\n%s", out)
	}
	if !strings.Contains(out, "NaN,NaN,NaN,NaN,0,true") {
		t.Errorf("empty candle should render NaN prices:\n%s", out)
	}

	buf.Reset()
	if err := WriteDaysCSV(&buf, []domain.DayPerformance{{Date: 19723, NTrades: 1}}); err != nil {
		t.Fatalf("WriteDaysCSV failed: %v", err)
	}
	if !strings.Contains(buf.String(), "2024-01-01,0.000000,0.000000,0.000000,0.000000,1") {
		t.Errorf("unexpected day CSV:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	r, err := Build(testRun(), testResults(), fixedNow)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded struct {
		ExecutionID string `json:"execution_id"`
		Config      struct {
			Fast int `json:"fast"`
		} `json:"config"`
		Symbols []struct {
			Symbol string   `json:"symbol"`
			Sharpe *float64 `json:"sharpe"`
		} `json:"symbols"`
		Distribution struct {
			Overall struct {
				Trades int `json:"trades"`
			} `json:"overall"`
		} `json:"distribution"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.ExecutionID != "exec-1" || decoded.Config.Fast != 5 {
		t.Errorf("unexpected run fields: %+v", decoded)
	}
	if len(decoded.Symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(decoded.Symbols))
	}
	if decoded.Symbols[0].Sharpe == nil || *decoded.Symbols[0].Sharpe != 1.25 {
		t.Errorf("expected AAA sharpe 1.25, got %v", decoded.Symbols[0].Sharpe)
	}
	if decoded.Symbols[1].Sharpe != nil {
		t.Errorf("NaN sharpe should encode as null, got %v", *decoded.Symbols[1].Sharpe)
	}
	if decoded.Distribution.Overall.Trades != 3 {
		t.Errorf("expected 3 trades, got %d", decoded.Distribution.Overall.Trades)
	}
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	src := Sources{
		Runs:      memory.NewRunStore(),
		Summaries: memory.NewSummaryStore(),
		Orders:    memory.NewOrderStore(),
		Trades:    memory.NewTradeStore(),
		Days:      memory.NewDayPerformanceStore(),
		Candles:   memory.NewCandleStore(),
	}

	run := testRun()
	if err := src.Runs.Insert(ctx, &run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}
	for _, res := range testResults() {
		err := src.Summaries.Insert(ctx, run.ExecutionID, domain.SymbolSummary{
			Symbol: res.Symbol, StopReason: res.StopReason, Summary: res.Summary,
		})
		if err != nil {
			t.Fatalf("Insert summary failed: %v", err)
		}
		if err := src.Orders.InsertBulk(ctx, run.ExecutionID, res.Orders); err != nil {
			t.Fatalf("Insert orders failed: %v", err)
		}
		if err := src.Trades.InsertBulk(ctx, run.ExecutionID, res.Trades); err != nil {
			t.Fatalf("Insert trades failed: %v", err)
		}
		if err := src.Days.InsertBulk(ctx, run.ExecutionID, res.Symbol, res.Days); err != nil {
			t.Fatalf("Insert days failed: %v", err)
		}
	}

	gen := NewGenerator(src).WithClock(func() time.Time { return fixedNow })
	r, err := gen.Generate(ctx, "exec-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	built, err := Build(run, testResults(), fixedNow)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// A stored run renders exactly like the in-memory one.
	if got, want := RenderMarkdown(r), RenderMarkdown(built); got != want {
		t.Errorf("stored report differs from built report\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestGenerator_NotFound(t *testing.T) {
	src := Sources{
		Runs:      memory.NewRunStore(),
		Summaries: memory.NewSummaryStore(),
		Orders:    memory.NewOrderStore(),
		Trades:    memory.NewTradeStore(),
		Days:      memory.NewDayPerformanceStore(),
	}
	_, err := NewGenerator(src).Generate(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
