// Package trade pairs order executions into trades and accounts for their
// costs and mark-to-market extremes.
package trade

import (
	"math"
	"sort"

	"github.com/tidwall/btree"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/order"
)

// CommentFlatten is the comment of orders sent to flatten trades when
// trading is stopped.
const CommentFlatten = "close (trading stopped)"

// Ledger tracks all trades of one processor.
// Open trades are keyed by trade id; closed trades are archived and never
// reopened.
type Ledger struct {
	symbol string
	cost   domain.Cost
	open   *btree.Map[int, *domain.Trade]
	closed []domain.Trade
	done   map[int]struct{}
}

// NewLedger creates an empty ledger applying the given fee schedule.
func NewLedger(symbol string, cost domain.Cost) *Ledger {
	if cost.PointValue == 0 {
		cost.PointValue = 1
	}
	return &Ledger{
		symbol: symbol,
		cost:   cost,
		open:   btree.NewMap[int, *domain.Trade](32),
		done:   make(map[int]struct{}),
	}
}

// OnOrder applies the events of one order update. The first order seen for a
// trade id creates the trade. It returns the trade when this update closed it.
func (l *Ledger) OnOrder(o *order.Order, events []order.Event) (domain.Trade, bool) {
	if _, closed := l.done[o.TradeID()]; closed {
		return domain.Trade{}, false
	}

	tr, ok := l.open.Get(o.TradeID())
	if !ok {
		side := domain.TradeSideShort
		if o.IsBuy() {
			side = domain.TradeSideLong
		}
		created := domain.NewTrade(o.TradeID(), side)
		created.Symbol = l.symbol
		created.IDSent = o.IDSent()
		created.TimeSent = o.TimeSent()
		created.Cost = -l.cost.Order
		tr = &created
		l.open.Set(tr.TradeID, tr)
	} else if has(events, order.EventSent) {
		tr.Cost -= l.cost.Order
	}

	pv := l.cost.PointValue

	if has(events, order.EventExecuted) {
		price := o.ExecutionPrice()
		tr.Cost -= l.cost.StockAbs + l.cost.TradeAbs + l.cost.TradeRel*price*pv

		switch tr.State {
		case domain.TradeStateNew:
			tr.IDEnter = o.IDProcessed()
			tr.TimeEnter = o.TimeProcessed()
			tr.PriceEnter = price
			tr.State = domain.TradeStateOpened
		case domain.TradeStateOpened, domain.TradeStateClosing:
			tr.IDExit = o.IDProcessed()
			tr.TimeExit = o.TimeProcessed()
			tr.PriceExit = price
			tr.PnL = tr.Side.Sign()*(tr.PriceExit-tr.PriceEnter)*pv + tr.Cost
			tr.PnLRel = tr.PnL / (tr.PriceEnter * pv)
			tr.State = domain.TradeStateClosed
		}
	}

	if has(events, order.EventCancelled) {
		tr.Cost -= l.cost.Cancel
	}

	l.updateCostRel(tr)

	if tr.State == domain.TradeStateClosed {
		l.open.Delete(tr.TradeID)
		l.done[tr.TradeID] = struct{}{}
		l.closed = append(l.closed, *tr)
		return *tr, true
	}
	return domain.Trade{}, false
}

// OnTick accrues overnight holding fees for nights elapsed since the previous
// tick, charged on mark, and refreshes mark-to-market extremes of open trades.
func (l *Ledger) OnTick(tick domain.Tick, nights int, mark float64) {
	pv := l.cost.PointValue

	l.open.Scan(func(_ int, tr *domain.Trade) bool {
		if tr.State != domain.TradeStateOpened && tr.State != domain.TradeStateClosing {
			return true
		}

		if nights > 0 && !math.IsNaN(mark) {
			n := float64(nights)
			if tr.Side == domain.TradeSideLong {
				tr.Cost -= n*l.cost.LongAbs + n*l.cost.LongRel*mark*pv
			} else {
				tr.Cost -= n*l.cost.ShortAbs + n*l.cost.ShortRel*mark*pv
			}
			l.updateCostRel(tr)
		}

		if !tick.IsSynthetic {
			sign := tr.Side.Sign()
			mtm := sign * (tick.Price - tr.PriceEnter)
			mtmRel := sign * (tick.Price/tr.PriceEnter - 1)
			tr.MtmMax = math.Max(tr.MtmMax, mtm)
			tr.MtmMin = math.Min(tr.MtmMin, mtm)
			tr.MtmMaxRel = math.Max(tr.MtmMaxRel, mtmRel)
			tr.MtmMinRel = math.Min(tr.MtmMinRel, mtmRel)
		}
		return true
	})
}

// Flatten sends one opposing market order for every opened trade and marks
// it CLOSING. Trades already closing are skipped, as are trades for which
// exiting reports a live order on the closing side; those are checked again
// on the next call. exiting may be nil.
func (l *Ledger) Flatten(send func(order.Params) error, exiting func(tradeID int, side domain.Side) bool) error {
	var opened []*domain.Trade
	l.open.Scan(func(_ int, tr *domain.Trade) bool {
		if tr.State == domain.TradeStateOpened {
			opened = append(opened, tr)
		}
		return true
	})

	for _, tr := range opened {
		side := domain.SideSell
		if tr.Side == domain.TradeSideShort {
			side = domain.SideBuy
		}
		if exiting != nil && exiting(tr.TradeID, side) {
			continue
		}
		if err := send(order.Market(side, tr.TradeID, CommentFlatten)); err != nil {
			return err
		}
		tr.State = domain.TradeStateClosing
	}
	return nil
}

func (l *Ledger) updateCostRel(tr *domain.Trade) {
	if math.IsNaN(tr.PriceEnter) {
		tr.CostRel = 0
		return
	}
	tr.CostRel = tr.Cost / (tr.PriceEnter * l.cost.PointValue)
}

// OpenCount returns the number of trades not yet closed.
func (l *Ledger) OpenCount() int {
	return l.open.Len()
}

// Trade returns a copy of the trade with the given id.
func (l *Ledger) Trade(tradeID int) (domain.Trade, bool) {
	if tr, ok := l.open.Get(tradeID); ok {
		return *tr, true
	}
	for _, tr := range l.closed {
		if tr.TradeID == tradeID {
			return tr, true
		}
	}
	return domain.Trade{}, false
}

// Closed returns archived trades in the order they closed.
func (l *Ledger) Closed() []domain.Trade {
	out := make([]domain.Trade, len(l.closed))
	copy(out, l.closed)
	return out
}

// Trades returns all trades, closed and open, sorted by trade id.
func (l *Ledger) Trades() []domain.Trade {
	out := l.Closed()
	l.open.Scan(func(_ int, tr *domain.Trade) bool {
		out = append(out, *tr)
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].TradeID < out[j].TradeID })
	return out
}

// Reset discards all trades.
func (l *Ledger) Reset() {
	l.open = btree.NewMap[int, *domain.Trade](32)
	l.closed = nil
	l.done = make(map[int]struct{})
}

func has(events []order.Event, ev order.Event) bool {
	for _, e := range events {
		if e == ev {
			return true
		}
	}
	return false
}
