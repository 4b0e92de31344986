// Package config loads backtest configuration from YAML and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/logger"
	"tick-backtest/internal/processor"
)

// EnvPrefix prefixes environment overrides, e.g. BACKTEST_ENGINE_BAR_SIZE.
const EnvPrefix = "BACKTEST"

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ErrInvalidConfig is returned when the loaded configuration is inconsistent.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Engine   EngineConfig
	Strategy StrategyConfig
	Data     DataConfig
	Storage  StorageConfig
	Log      logger.Config
	Metrics  MetricsConfig
}

type EngineConfig struct {
	BarSize        float64     `json:"bar_size"`
	LatencySend    float64     `json:"latency_send"`
	LatencyReceive float64     `json:"latency_receive"`
	ExecutionMode  string      `json:"execution_mode"`
	HitMarket      bool        `json:"hit_market"`
	ExactStop      bool        `json:"exact_stop"`
	TradingStart   float64     `json:"trading_start"`
	TradingEnd     float64     `json:"trading_end"`
	StopDrawDown   float64     `json:"stop_drawdown"`
	StopLoss       float64     `json:"stop_loss"`
	Cost           domain.Cost `json:"cost"`
}

type StrategyConfig struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params"`
}

// DataConfig selects the ticks to replay. CSV entries take the form
// SYMBOL=path. From/To bound store-backed loads (seconds since epoch, zero To
// means unbounded).
type DataConfig struct {
	Symbols []string
	CSV     map[string]string // symbol -> csv path
	From    float64
	To      float64
}

type StorageConfig struct {
	Backend       string
	PostgresDSN   string
	ClickhouseDSN string
}

type MetricsConfig struct {
	Addr string // empty disables the /metrics endpoint
}

// Load reads configuration from path, or from configs/backtest.yaml when path
// is empty. A missing default file is not an error; environment variables
// prefixed with BACKTEST_ override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("backtest")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}

	cfg.Engine = EngineConfig{
		BarSize:        v.GetFloat64("engine.bar_size"),
		LatencySend:    v.GetFloat64("engine.latency_send"),
		LatencyReceive: v.GetFloat64("engine.latency_receive"),
		ExecutionMode:  strings.ToUpper(v.GetString("engine.execution_mode")),
		HitMarket:      v.GetBool("engine.hit_market"),
		ExactStop:      v.GetBool("engine.exact_stop"),
		TradingStart:   v.GetFloat64("engine.trading_hours.start"),
		TradingEnd:     v.GetFloat64("engine.trading_hours.end"),
		StopDrawDown:   v.GetFloat64("engine.stop_drawdown"),
		StopLoss:       v.GetFloat64("engine.stop_loss"),
		Cost: domain.Cost{
			Cancel:     v.GetFloat64("engine.cost.cancel"),
			Order:      v.GetFloat64("engine.cost.order"),
			TradeAbs:   v.GetFloat64("engine.cost.trade_abs"),
			StockAbs:   v.GetFloat64("engine.cost.stock_abs"),
			TradeRel:   v.GetFloat64("engine.cost.trade_rel"),
			LongAbs:    v.GetFloat64("engine.cost.long_abs"),
			LongRel:    v.GetFloat64("engine.cost.long_rel"),
			ShortAbs:   v.GetFloat64("engine.cost.short_abs"),
			ShortRel:   v.GetFloat64("engine.cost.short_rel"),
			PointValue: v.GetFloat64("engine.cost.point_value"),
		},
	}

	params := make(map[string]float64)
	for k, raw := range v.GetStringMap("strategy.params") {
		f, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: strategy param %s: %v", ErrInvalidConfig, k, err)
		}
		params[k] = f
	}
	cfg.Strategy = StrategyConfig{
		Name:   v.GetString("strategy.name"),
		Params: params,
	}

	csvFiles, err := ParseCSVSources(v.GetStringSlice("data.csv"))
	if err != nil {
		return nil, err
	}
	cfg.Data = DataConfig{
		Symbols: v.GetStringSlice("data.symbols"),
		CSV:     csvFiles,
		From:    v.GetFloat64("data.from"),
		To:      v.GetFloat64("data.to"),
	}
	if len(cfg.Data.Symbols) == 0 {
		cfg.Data.Symbols = sortedKeys(csvFiles)
	}

	cfg.Storage = StorageConfig{
		Backend:       strings.ToLower(v.GetString("storage.backend")),
		PostgresDSN:   envSub(v.GetString("storage.postgres_dsn")),
		ClickhouseDSN: envSub(v.GetString("storage.clickhouse_dsn")),
	}

	cfg.Log = logger.Config{
		Level:      v.GetString("log.level"),
		Format:     v.GetString("log.format"),
		Output:     v.GetString("log.output"),
		MaxSize:    v.GetInt("log.max_size"),
		MaxBackups: v.GetInt("log.max_backups"),
		MaxAge:     v.GetInt("log.max_age"),
		Compress:   v.GetBool("log.compress"),
	}

	cfg.Metrics = MetricsConfig{
		Addr: v.GetString("metrics.addr"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := processor.DefaultOptions()
	v.SetDefault("engine.bar_size", def.BarSize)
	v.SetDefault("engine.latency_send", def.LatencySend)
	v.SetDefault("engine.latency_receive", def.LatencyReceive)
	v.SetDefault("engine.execution_mode", string(def.ExecutionMode))
	v.SetDefault("engine.hit_market", false)
	v.SetDefault("engine.exact_stop", false)
	v.SetDefault("engine.trading_hours.start", 0)
	v.SetDefault("engine.trading_hours.end", 0)
	v.SetDefault("engine.stop_drawdown", 0)
	v.SetDefault("engine.stop_loss", 0)
	for _, k := range []string{"cancel", "order", "trade_abs", "stock_abs", "trade_rel",
		"long_abs", "long_rel", "short_abs", "short_rel"} {
		v.SetDefault("engine.cost."+k, 0)
	}
	v.SetDefault("engine.cost.point_value", def.Cost.PointValue)

	v.SetDefault("strategy.name", domain.StrategyNameSMACrossover)
	v.SetDefault("data.symbols", []string{})
	v.SetDefault("data.csv", []string{})
	v.SetDefault("data.from", 0)
	v.SetDefault("data.to", 0)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)

	v.SetDefault("metrics.addr", "")
}

// Validate checks cross-field consistency. Engine options are validated by
// the processor itself.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("%w: postgres backend needs postgres_dsn and clickhouse_dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Data.To != 0 && c.Data.To < c.Data.From {
		return fmt.Errorf("%w: data.to precedes data.from", ErrInvalidConfig)
	}
	return nil
}

// EngineOptions converts the engine section for symbol into processor options.
// Equal trading start and end leave the market always open.
func (c *Config) EngineOptions(symbol string) processor.Options {
	e := c.Engine
	opts := processor.Options{
		Symbol:         symbol,
		BarSize:        e.BarSize,
		LatencySend:    e.LatencySend,
		LatencyReceive: e.LatencyReceive,
		ExecutionMode:  domain.ExecutionMode(e.ExecutionMode),
		HitMarket:      e.HitMarket,
		ExactStop:      e.ExactStop,
		Cost:           e.Cost,
		StopDrawDown:   e.StopDrawDown,
		StopLoss:       e.StopLoss,
	}
	if e.TradingStart != e.TradingEnd {
		opts.TradingHours = &processor.TradingHours{Open: e.TradingStart, Close: e.TradingEnd}
	}
	return opts
}

// StrategyDomainConfig returns the strategy section as a domain config.
func (c *Config) StrategyDomainConfig() domain.StrategyConfig {
	return domain.StrategyConfig{Name: c.Strategy.Name, Params: c.Strategy.Params}
}

// Fingerprint is the canonical JSON of the parts that determine results.
func (c *Config) Fingerprint() []byte {
	b, err := json.Marshal(struct {
		Engine   EngineConfig   `json:"engine"`
		Strategy StrategyConfig `json:"strategy"`
	}{c.Engine, c.Strategy})
	if err != nil {
		return nil
	}
	return b
}

// ParseCSVSources parses SYMBOL=path entries.
func ParseCSVSources(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		sym, path, ok := strings.Cut(e, "=")
		sym, path = strings.TrimSpace(sym), strings.TrimSpace(path)
		if !ok || sym == "" || path == "" {
			return nil, fmt.Errorf("%w: csv source %q is not SYMBOL=path", ErrInvalidConfig, e)
		}
		if _, dup := out[sym]; dup {
			return nil, fmt.Errorf("%w: duplicate csv source for %s", ErrInvalidConfig, sym)
		}
		out[sym] = path
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// envSub expands ${VAR} references from the environment.
func envSub(val string) string {
	if val == "" {
		return ""
	}
	return envPattern.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("not a number: %v", raw)
	}
}
