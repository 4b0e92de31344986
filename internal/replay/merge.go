package replay

import (
	"fmt"
	"sort"

	"github.com/tidwall/btree"

	"tick-backtest/internal/domain"
)

type mergeItem struct {
	tick   domain.Tick
	seq    int // index within its stream
	stream int
}

// Merge combines per-symbol streams into one time-ordered stream.
// Each stream must already be time ordered. Ties are broken by symbol, then
// by position within the stream. Every output tick carries its symbol and
// ids are renumbered from 1 in merged order.
func Merge(streams map[string][]domain.Tick) ([]domain.Tick, error) {
	symbols := make([]string, 0, len(streams))
	total := 0
	for sym, ticks := range streams {
		if err := ValidateOrdering(ticks); err != nil {
			return nil, fmt.Errorf("symbol %s: %w", sym, err)
		}
		symbols = append(symbols, sym)
		total += len(ticks)
	}
	sort.Strings(symbols)

	heads := btree.NewBTreeG(compareTicks)
	next := make([]int, len(symbols))
	push := func(stream int) {
		ticks := streams[symbols[stream]]
		i := next[stream]
		if i >= len(ticks) {
			return
		}
		t := ticks[i]
		t.Symbol = symbols[stream]
		heads.Set(mergeItem{tick: t, seq: i, stream: stream})
		next[stream]++
	}
	for i := range symbols {
		push(i)
	}

	merged := make([]domain.Tick, 0, total)
	for {
		item, ok := heads.PopMin()
		if !ok {
			break
		}
		t := item.tick
		t.ID = int64(len(merged) + 1)
		merged = append(merged, t)
		push(item.stream)
	}

	return merged, nil
}
