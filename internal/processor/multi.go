package processor

import (
	"fmt"
	"sort"

	"tick-backtest/internal/domain"
)

// Multi runs one independent Processor per symbol over a single interleaved
// tick stream. Each tick goes to its own symbol's processor; every other
// processor receives a synthetic tick with the same id and time, so all
// clocks stay aligned without sharing price state.
type Multi struct {
	symbols    []string
	processors map[string]*Processor
}

// NewMulti creates one processor per symbol. opts is used as a template with
// Symbol overridden; newStrategy is called once per symbol and may be nil.
func NewMulti(symbols []string, opts Options, newStrategy func(symbol string) Strategy) (*Multi, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols", ErrInvalidConfig)
	}

	m := &Multi{processors: make(map[string]*Processor, len(symbols))}
	for _, sym := range symbols {
		if sym == "" {
			return nil, fmt.Errorf("%w: empty symbol", ErrInvalidConfig)
		}
		if _, dup := m.processors[sym]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidConfig, sym)
		}

		o := opts
		o.Symbol = sym
		var s Strategy
		if newStrategy != nil {
			s = newStrategy(sym)
		}
		p, err := New(o, s)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", sym, err)
		}
		m.processors[sym] = p
		m.symbols = append(m.symbols, sym)
	}
	return m, nil
}

// Feed routes tick to the processor of tick.Symbol and a heartbeat to the
// others, in symbol registration order.
func (m *Multi) Feed(tick domain.Tick) error {
	if _, ok := m.processors[tick.Symbol]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSymbol, tick.Symbol)
	}

	for _, sym := range m.symbols {
		t := tick
		if sym != tick.Symbol {
			t = domain.NewSyntheticTick(tick.ID, tick.Time)
			t.Symbol = sym
		}
		if err := m.processors[sym].Feed(t); err != nil {
			return fmt.Errorf("symbol %s: %w", sym, err)
		}
	}
	return nil
}

// FeedAll feeds ticks in order, stopping at the first error.
func (m *Multi) FeedAll(ticks []domain.Tick) error {
	for _, t := range ticks {
		if err := m.Feed(t); err != nil {
			return err
		}
	}
	return nil
}

// Finalize finalizes every processor.
func (m *Multi) Finalize() {
	for _, sym := range m.symbols {
		m.processors[sym].Finalize()
	}
}

// StopTrading stops trading on every processor.
func (m *Multi) StopTrading(reason string) {
	for _, sym := range m.symbols {
		m.processors[sym].StopTrading(reason)
	}
}

// Processor returns the processor of a symbol.
func (m *Multi) Processor(symbol string) (*Processor, bool) {
	p, ok := m.processors[symbol]
	return p, ok
}

// Symbols returns symbols in registration order.
func (m *Multi) Symbols() []string {
	out := make([]string, len(m.symbols))
	copy(out, m.symbols)
	return out
}

// Results returns the results of all processors sorted by symbol.
func (m *Multi) Results() []domain.Result {
	out := make([]domain.Result, 0, len(m.symbols))
	for _, p := range m.processors {
		out = append(out, p.Result())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
