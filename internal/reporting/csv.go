package reporting

import (
	"encoding/csv"
	"io"
	"strconv"

	"tick-backtest/internal/domain"
)

// WriteSummaryCSV writes one summary row per symbol.
func WriteSummaryCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"symbol", "stop_reason", "test_start", "test_end", "days_tested", "days_traded",
		"trades_total", "trades_long", "trades_short", "trades_win", "trades_loss",
		"pct_win", "avg_win", "avg_loss", "avg_pnl", "total_pnl",
		"max_drawdown", "avg_drawdown", "sharpe", "sortino", "r_squared",
	}); err != nil {
		return err
	}

	for _, sec := range r.Symbols {
		s := sec.Summary
		if err := cw.Write([]string{
			sec.Symbol,
			sec.StopReason,
			formatTime(s.TestStart),
			formatTime(s.TestEnd),
			strconv.Itoa(s.DaysTested),
			strconv.Itoa(s.DaysTraded),
			strconv.Itoa(s.TradesTotal),
			strconv.Itoa(s.TradesLong),
			strconv.Itoa(s.TradesShort),
			strconv.Itoa(s.TradesWin),
			strconv.Itoa(s.TradesLoss),
			formatNum(s.PctWin, 6),
			formatNum(s.AvgWin, 6),
			formatNum(s.AvgLoss, 6),
			formatNum(s.AvgPnL, 6),
			formatNum(s.TotalPnL, 6),
			formatNum(s.MaxDrawDown, 6),
			formatNum(s.AvgDrawDown, 6),
			formatNum(s.Sharpe, 4),
			formatNum(s.Sortino, 4),
			formatNum(s.RSquared, 4),
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes every trade of every symbol.
func WriteTradesCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"symbol", "trade_id", "side", "state",
		"time_sent", "time_enter", "price_enter", "time_exit", "price_exit",
		"pnl", "pnl_rel", "cost", "mtm_min", "mtm_max",
	}); err != nil {
		return err
	}

	for _, sec := range r.Symbols {
		for _, t := range sec.Trades {
			if err := cw.Write([]string{
				t.Symbol,
				strconv.Itoa(t.TradeID),
				string(t.Side),
				string(t.State),
				formatTime(t.TimeSent),
				formatTime(t.TimeEnter),
				formatNum(t.PriceEnter, 6),
				formatTime(t.TimeExit),
				formatNum(t.PriceExit, 6),
				formatNum(t.PnL, 6),
				formatNum(t.PnLRel, 6),
				formatNum(t.Cost, 6),
				formatNum(t.MtmMin, 6),
				formatNum(t.MtmMax, 6),
			}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteOrdersCSV writes the order ledger of every symbol.
func WriteOrdersCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"symbol", "order_id", "trade_id", "side", "type", "state",
		"price", "execution_price", "time_sent", "time_processed", "comment",
	}); err != nil {
		return err
	}

	for _, sec := range r.Symbols {
		for _, o := range sec.Orders {
			if err := cw.Write([]string{
				o.Symbol,
				strconv.Itoa(o.OrderID),
				strconv.Itoa(o.TradeID),
				string(o.Side),
				string(o.Type),
				string(o.State),
				formatNum(o.Price, 6),
				formatNum(o.ExecutionPrice, 6),
				formatTime(o.TimeSent),
				formatTime(o.TimeProcessed),
				o.Comment,
			}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCandlesCSV writes the candles of one symbol.
func WriteCandlesCSV(w io.Writer, candles []domain.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume", "empty"}); err != nil {
		return err
	}
	for _, c := range candles {
		if err := cw.Write([]string{
			formatTime(c.Time),
			formatNum(c.Open, 6),
			formatNum(c.High, 6),
			formatNum(c.Low, 6),
			formatNum(c.Close, 6),
			strconv.FormatInt(c.Volume, 10),
			strconv.FormatBool(c.IsEmpty),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDaysCSV writes the day-close performance history of one symbol.
func WriteDaysCSV(w io.Writer, days []domain.DayPerformance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "return", "pnl", "drawdown", "avg_trade_pnl", "trades"}); err != nil {
		return err
	}
	for _, d := range days {
		if err := cw.Write([]string{
			formatDate(d.Date),
			formatNum(d.Return, 6),
			formatNum(d.PnL, 6),
			formatNum(d.DrawDown, 6),
			formatNum(d.AvgTradePnL, 6),
			strconv.Itoa(d.NTrades),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
