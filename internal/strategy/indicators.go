package strategy

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWindow is returned when an indicator window is too short.
var ErrInvalidWindow = errors.New("invalid indicator window")

// SMA is a simple moving average over the last n values.
type SMA struct {
	n      int
	sum    float64
	window []float64
}

// NewSMA creates a moving average over n values. n must be positive.
func NewSMA(n int) (*SMA, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: sma window must be positive, got %d", ErrInvalidWindow, n)
	}
	return &SMA{n: n, window: make([]float64, 0, n+1)}, nil
}

// Add appends a value, dropping the oldest one once the window is full.
func (s *SMA) Add(v float64) {
	s.sum += v
	s.window = append(s.window, v)
	if len(s.window) > s.n {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}
}

// IsFormed reports whether the window is full.
func (s *SMA) IsFormed() bool { return len(s.window) == s.n }

// Value returns the average, or NaN until the window is full.
func (s *SMA) Value() float64 {
	if !s.IsFormed() {
		return math.NaN()
	}
	return s.sum / float64(s.n)
}

// Reset empties the window.
func (s *SMA) Reset() {
	s.sum = 0
	s.window = s.window[:0]
}

// RollSD is the rolling sample standard deviation over the last n values.
type RollSD struct {
	n      int
	sumX   float64
	sumXX  float64
	window []float64
}

// NewRollSD creates a rolling standard deviation over n values. n must be
// at least 2.
func NewRollSD(n int) (*RollSD, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: sd window must be at least 2, got %d", ErrInvalidWindow, n)
	}
	return &RollSD{n: n, window: make([]float64, 0, n+1)}, nil
}

// Add appends a value, dropping the oldest one once the window is full.
func (r *RollSD) Add(v float64) {
	r.sumX += v
	r.sumXX += v * v
	r.window = append(r.window, v)
	if len(r.window) > r.n {
		old := r.window[0]
		r.window = r.window[1:]
		r.sumX -= old
		r.sumXX -= old * old
	}
}

// IsFormed reports whether the window is full.
func (r *RollSD) IsFormed() bool { return len(r.window) == r.n }

// Value returns the standard deviation, or NaN until the window is full.
func (r *RollSD) Value() float64 {
	if !r.IsFormed() {
		return math.NaN()
	}
	n := float64(r.n)
	mean := r.sumX / n
	v := r.sumXX/n - mean*mean
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v * n / (n - 1))
}

// Reset empties the window.
func (r *RollSD) Reset() {
	r.sumX = 0
	r.sumXX = 0
	r.window = r.window[:0]
}

// Bands is one Bollinger bands reading.
type Bands struct {
	Lower float64
	Mid   float64
	Upper float64
}

// BBands computes Bollinger bands: a moving average plus and minus k rolling
// standard deviations.
type BBands struct {
	sma *SMA
	sd  *RollSD
	k   float64
}

// NewBBands creates bands over n values, k deviations wide.
func NewBBands(n int, k float64) (*BBands, error) {
	sma, err := NewSMA(n)
	if err != nil {
		return nil, err
	}
	sd, err := NewRollSD(n)
	if err != nil {
		return nil, err
	}
	if !(k > 0) {
		return nil, fmt.Errorf("%w: band width must be positive, got %v", ErrInvalidWindow, k)
	}
	return &BBands{sma: sma, sd: sd, k: k}, nil
}

// Add appends a value.
func (b *BBands) Add(v float64) {
	b.sma.Add(v)
	b.sd.Add(v)
}

// IsFormed reports whether both the average and deviation are formed.
func (b *BBands) IsFormed() bool { return b.sma.IsFormed() && b.sd.IsFormed() }

// Value returns the current bands.
func (b *BBands) Value() Bands {
	mid, sd := b.sma.Value(), b.sd.Value()
	return Bands{Lower: mid - b.k*sd, Mid: mid, Upper: mid + b.k*sd}
}

// Reset empties both windows.
func (b *BBands) Reset() {
	b.sma.Reset()
	b.sd.Reset()
}

// Cross is the signal reported by Crossover.
type Cross int

// Crossover signals
const (
	CrossNone Cross = iota
	CrossAbove
	CrossBelow
)

// Crossover detects when a fast series crosses a slow one.
// Equal readings keep the last unequal pair as reference.
type Crossover struct {
	fast, slow float64
	last       Cross
}

// NewCrossover creates a crossover detector with no reference pair.
func NewCrossover() *Crossover {
	c := &Crossover{}
	c.Reset()
	return c
}

// Add compares the pair against the reference and returns the signal.
func (c *Crossover) Add(fast, slow float64) Cross {
	switch {
	case c.fast > c.slow && fast < slow:
		c.last = CrossBelow
	case c.fast < c.slow && fast > slow:
		c.last = CrossAbove
	default:
		c.last = CrossNone
	}
	if fast != slow {
		c.fast, c.slow = fast, slow
	}
	return c.last
}

// IsAbove reports whether the last pair crossed the fast series above.
func (c *Crossover) IsAbove() bool { return c.last == CrossAbove }

// IsBelow reports whether the last pair crossed the fast series below.
func (c *Crossover) IsBelow() bool { return c.last == CrossBelow }

// Reset forgets the reference pair.
func (c *Crossover) Reset() {
	c.fast, c.slow = math.NaN(), math.NaN()
	c.last = CrossNone
}
