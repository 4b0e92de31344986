package reporting

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"tick-backtest/internal/metrics"
)

// number marshals NaN and infinities as null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

type jsonReport struct {
	GeneratedAt  string          `json:"generated_at"`
	ExecutionID  string          `json:"execution_id"`
	RunID        string          `json:"run_id"`
	Strategy     string          `json:"strategy"`
	TicksFed     int64           `json:"ticks_fed"`
	Symbols      []jsonSymbol    `json:"symbols"`
	Distribution *jsonBreakdown  `json:"distribution,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
}

type jsonSymbol struct {
	Symbol      string `json:"symbol"`
	StopReason  string `json:"stop_reason,omitempty"`
	TestStart   number `json:"test_start"`
	TestEnd     number `json:"test_end"`
	DaysTested  int    `json:"days_tested"`
	DaysTraded  int    `json:"days_traded"`
	TradesTotal int    `json:"trades_total"`
	TradesLong  int    `json:"trades_long"`
	TradesShort int    `json:"trades_short"`
	TradesWin   int    `json:"trades_win"`
	TradesLoss  int    `json:"trades_loss"`
	PctWin      number `json:"pct_win"`
	AvgPnL      number `json:"avg_pnl"`
	TotalPnL    number `json:"total_pnl"`
	MaxDrawDown number `json:"max_drawdown"`
	AvgDrawDown number `json:"avg_drawdown"`
	Sharpe      number `json:"sharpe"`
	Sortino     number `json:"sortino"`
	RSquared    number `json:"r_squared"`
	Orders      int    `json:"orders"`
	Candles     int    `json:"candles"`
}

type jsonDistribution struct {
	Trades               int    `json:"trades"`
	WinRate              number `json:"win_rate"`
	Mean                 number `json:"mean"`
	Stddev               number `json:"stddev"`
	Median               number `json:"median"`
	P10                  number `json:"p10"`
	P25                  number `json:"p25"`
	P75                  number `json:"p75"`
	P90                  number `json:"p90"`
	ProfitFactor         number `json:"profit_factor"`
	Expectancy           number `json:"expectancy"`
	MaxDrawdown          number `json:"max_drawdown"`
	MaxConsecutiveLosses int    `json:"max_consecutive_losses"`
}

type jsonBreakdown struct {
	Overall  jsonDistribution            `json:"overall"`
	BySymbol map[string]jsonDistribution `json:"by_symbol"`
}

// WriteJSON writes the run, per-symbol summaries and the trade distribution as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	out := jsonReport{
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		ExecutionID: r.Run.ExecutionID,
		RunID:       r.Run.RunID,
		Strategy:    r.Run.Strategy,
		TicksFed:    r.Run.TicksFed,
		Symbols:     make([]jsonSymbol, 0, len(r.Symbols)),
	}
	if json.Valid(r.Run.Config) {
		out.Config = r.Run.Config
	}

	for _, sec := range r.Symbols {
		s := sec.Summary
		out.Symbols = append(out.Symbols, jsonSymbol{
			Symbol:      sec.Symbol,
			StopReason:  sec.StopReason,
			TestStart:   number(s.TestStart),
			TestEnd:     number(s.TestEnd),
			DaysTested:  s.DaysTested,
			DaysTraded:  s.DaysTraded,
			TradesTotal: s.TradesTotal,
			TradesLong:  s.TradesLong,
			TradesShort: s.TradesShort,
			TradesWin:   s.TradesWin,
			TradesLoss:  s.TradesLoss,
			PctWin:      number(s.PctWin),
			AvgPnL:      number(s.AvgPnL),
			TotalPnL:    number(s.TotalPnL),
			MaxDrawDown: number(s.MaxDrawDown),
			AvgDrawDown: number(s.AvgDrawDown),
			Sharpe:      number(s.Sharpe),
			Sortino:     number(s.Sortino),
			RSquared:    number(s.RSquared),
			Orders:      len(sec.Orders),
			Candles:     len(sec.Candles),
		})
	}

	if r.Distribution != nil {
		b := &jsonBreakdown{
			Overall:  toJSONDistribution(r.Distribution.Overall),
			BySymbol: make(map[string]jsonDistribution, len(r.Distribution.BySymbol)),
		}
		for sym, d := range r.Distribution.BySymbol {
			b.BySymbol[sym] = toJSONDistribution(d)
		}
		out.Distribution = b
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONDistribution(d metrics.Distribution) jsonDistribution {
	return jsonDistribution{
		Trades:               d.Trades,
		WinRate:              number(d.WinRate),
		Mean:                 number(d.Mean),
		Stddev:               number(d.Stddev),
		Median:               number(d.Median),
		P10:                  number(d.P10),
		P25:                  number(d.P25),
		P75:                  number(d.P75),
		P90:                  number(d.P90),
		ProfitFactor:         number(d.ProfitFactor),
		Expectancy:           number(d.Expectancy),
		MaxDrawdown:          number(d.MaxDrawdown),
		MaxConsecutiveLosses: d.MaxConsecutiveLosses,
	}
}
