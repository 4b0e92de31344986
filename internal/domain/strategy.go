package domain

// StrategyConfig selects an example strategy and its numeric parameters.
type StrategyConfig struct {
	Name   string             // strategy name, see StrategyName* constants
	Params map[string]float64 // strategy-specific parameters
}

// Strategy name constants
const (
	StrategyNameSMACrossover      = "sma_crossover"
	StrategyNameBBandsMarketMaker = "bbands_market_maker"
)

// Param returns the named parameter and whether it is set.
func (c StrategyConfig) Param(name string) (float64, bool) {
	v, ok := c.Params[name]
	return v, ok
}
