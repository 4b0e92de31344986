package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/processor"
)

func newMarketMaker(t *testing.T, opts processor.Options) (*BBandsMarketMaker, *processor.Processor) {
	t.Helper()
	s, err := NewBBandsMarketMaker(10, 1)
	require.NoError(t, err)
	p, err := processor.New(opts, s)
	require.NoError(t, err)
	return s, p
}

func TestBBandsMarketMaker_QuotesBothSides(t *testing.T) {
	opts := processor.DefaultOptions()
	opts.BarSize = 60
	s, p := newMarketMaker(t, opts)

	// ten ticks per candle, cycle of 20 candles
	ticks := sineTicks(0, 2000, 6, 5, 200)
	for _, tick := range ticks {
		require.NoError(t, p.Feed(tick))
		pos := p.Position()
		require.True(t, pos >= -1 && pos <= 1, "position %d at tick %d", pos, tick.ID)
	}

	trades := p.Trades()
	var closed int
	for _, tr := range trades {
		if tr.State == domain.TradeStateClosed {
			closed++
		}
	}
	assert.Positive(t, closed)
	assert.Greater(t, s.TradeID(), 1)

	levels := s.Levels()
	assert.Less(t, levels.Lower, levels.Mid)
	assert.Less(t, levels.Mid, levels.Upper)
}

func TestBBandsMarketMaker_OpenersShareTradeID(t *testing.T) {
	opts := processor.DefaultOptions()
	opts.BarSize = 60
	_, p := newMarketMaker(t, opts)

	require.NoError(t, p.FeedAll(sineTicks(0, 120, 6, 5, 200)))

	orders := p.Orders()
	require.GreaterOrEqual(t, len(orders), 2)
	assert.Equal(t, domain.SideBuy, orders[0].Side)
	assert.Equal(t, "long", orders[0].Comment)
	assert.Equal(t, domain.SideSell, orders[1].Side)
	assert.Equal(t, "short", orders[1].Comment)
	assert.Equal(t, orders[0].TradeID, orders[1].TradeID)
	assert.Less(t, orders[0].Price, orders[1].Price)
}

func TestBBandsMarketMaker_MarketCloseExitsPosition(t *testing.T) {
	opts := processor.DefaultOptions()
	opts.LatencySend = 0
	opts.LatencyReceive = 0
	s, p := newMarketMaker(t, opts)

	s.levels = Bands{Lower: 90, Mid: 100, Upper: 110}
	s.state = mmFlat
	require.NoError(t, s.quoteLongEnter(nil, ""))
	require.NoError(t, s.quoteShortEnter(nil, ""))

	// register both quotes, then fill the buy
	require.NoError(t, p.Feed(domain.Tick{ID: 1, Time: 1, Price: 100, Volume: 1}))
	require.NoError(t, p.Feed(domain.Tick{ID: 2, Time: 2, Price: 100, Volume: 1}))
	require.NoError(t, p.Feed(domain.Tick{ID: 3, Time: 3, Price: 89, Volume: 1}))
	require.NoError(t, p.Feed(domain.Tick{ID: 4, Time: 4, Price: 95, Volume: 1}))
	require.Equal(t, mmLong, s.state)
	require.Equal(t, 1, p.Position())

	require.NoError(t, s.OnMarketClose(p))
	assert.Equal(t, mmInit, s.state)
	assert.Equal(t, 2, s.TradeID())

	for i := int64(5); i < 10; i++ {
		require.NoError(t, p.Feed(domain.Tick{ID: i, Time: float64(i), Price: 95, Volume: 1}))
	}
	assert.Equal(t, 0, p.Position())
	assert.Empty(t, p.LiveOrders())

	trades := p.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, domain.TradeStateClosed, trades[0].State)
	assert.Equal(t, 90.0, trades[0].PriceEnter)
	assert.Equal(t, 95.0, trades[0].PriceExit)
}
