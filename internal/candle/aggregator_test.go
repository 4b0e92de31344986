package candle

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tick-backtest/internal/domain"
)

func tick(id int64, t, price float64, volume int64) domain.Tick {
	return domain.Tick{ID: id, Time: t, Price: price, Volume: volume, Bid: math.NaN(), Ask: math.NaN()}
}

func TestNewAggregator_InvalidBarSize(t *testing.T) {
	for _, size := range []float64{0, -60, math.NaN()} {
		_, err := NewAggregator(size)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidBarSize))
	}
}

func TestAggregator_Boundary(t *testing.T) {
	a, err := NewAggregator(60)
	require.NoError(t, err)

	assert.Equal(t, 60.0, a.Boundary(0))
	assert.Equal(t, 60.0, a.Boundary(59.999))
	assert.Equal(t, 120.0, a.Boundary(60))
	assert.Equal(t, 180.0, a.Boundary(179))
}

func TestAggregator_OHLCV(t *testing.T) {
	a, err := NewAggregator(60)
	require.NoError(t, err)

	ticks := []domain.Tick{
		tick(1, 1, 10, 1),
		tick(2, 5, 12, 2),
		tick(3, 20, 8, 3),
		tick(4, 59, 11, 4),
	}
	for _, tk := range ticks {
		_, ok := a.Add(tk)
		assert.False(t, ok)
	}

	// first tick of the next bar emits the previous candle
	c, ok := a.Add(tick(5, 61, 100, 5))
	require.True(t, ok)

	assert.Equal(t, 60.0, c.Time)
	assert.Equal(t, 10.0, c.Open)
	assert.Equal(t, 12.0, c.High)
	assert.Equal(t, 8.0, c.Low)
	assert.Equal(t, 11.0, c.Close)
	assert.Equal(t, int64(10), c.Volume)
	assert.Equal(t, int64(4), c.ID)
	assert.False(t, c.IsEmpty)

	cur, started := a.Current()
	require.True(t, started)
	assert.Equal(t, 120.0, cur.Time)
	assert.Equal(t, 100.0, cur.Open)
	assert.Len(t, a.History(), 1)
}

func TestAggregator_EmitsPreviousBoundary(t *testing.T) {
	a, err := NewAggregator(10)
	require.NoError(t, err)

	a.Add(tick(1, 3, 1, 1))
	// skip several bars: the emitted candle is the one the previous tick belonged to
	c, ok := a.Add(tick(2, 47, 2, 1))
	require.True(t, ok)
	assert.Equal(t, 10.0, c.Time)

	cur, _ := a.Current()
	assert.Equal(t, 50.0, cur.Time)
}

func TestAggregator_SyntheticTicks(t *testing.T) {
	a, err := NewAggregator(10)
	require.NoError(t, err)

	a.Add(tick(1, 1, 5, 2))
	a.Add(domain.NewSyntheticTick(2, 2))
	a.Add(domain.NewSyntheticTick(3, 3))

	cur, _ := a.Current()
	assert.Equal(t, 5.0, cur.High)
	assert.Equal(t, 5.0, cur.Close)
	assert.Equal(t, int64(2), cur.Volume)

	// synthetic ticks still roll the bar over
	c, ok := a.Add(domain.NewSyntheticTick(4, 12))
	require.True(t, ok)
	assert.Equal(t, 5.0, c.Close)

	// a bar that only saw synthetic ticks is empty
	c, ok = a.Add(domain.NewSyntheticTick(5, 25))
	require.True(t, ok)
	assert.True(t, c.IsEmpty)
	assert.True(t, math.IsNaN(c.Open))
	assert.Equal(t, int64(0), c.Volume)

	// the first real tick in an empty bar seeds all prices
	a.Add(tick(6, 26, 7, 1))
	cur, _ = a.Current()
	assert.False(t, cur.IsEmpty)
	assert.Equal(t, 7.0, cur.Open)
	assert.Equal(t, 7.0, cur.Low)
}

func TestAggregator_Reset(t *testing.T) {
	a, err := NewAggregator(10)
	require.NoError(t, err)

	a.Add(tick(1, 1, 5, 1))
	a.Add(tick(2, 11, 5, 1))
	require.Len(t, a.History(), 1)

	a.Reset()
	assert.Empty(t, a.History())
	_, started := a.Current()
	assert.False(t, started)
}
