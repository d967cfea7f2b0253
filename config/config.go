// Package config loads and validates the session configuration from a
// YAML or JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/turtle/compliance"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/risk"
	"github.com/rustyeddy/turtle/strategy"
)

// Config is the complete session configuration.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Gateway  GatewayConfig  `json:"gateway" yaml:"gateway"`

	Symbols   []string          `json:"symbols" yaml:"symbols"`
	Aliases   map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Timeframe string            `json:"timeframe" yaml:"timeframe"`

	PollInterval string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
}

// AccountConfig seeds the session account.
type AccountConfig struct {
	Balance  float64 `json:"balance" yaml:"balance"`
	Currency string  `json:"currency" yaml:"currency"`
	Leverage float64 `json:"leverage" yaml:"leverage"`
}

// RiskConfig holds the sizing limits and the funded-account rule set.
type RiskConfig struct {
	MaxRiskPerTrade  float64 `json:"max_risk_per_trade" yaml:"max_risk_per_trade"`
	MaxDailyDrawdown float64 `json:"max_daily_drawdown" yaml:"max_daily_drawdown"`
	MaxTotalDrawdown float64 `json:"max_total_drawdown" yaml:"max_total_drawdown"`
	ProfitTarget     float64 `json:"profit_target" yaml:"profit_target"`
	MinTradingDays   int     `json:"min_trading_days" yaml:"min_trading_days"`
	MaxDailyTrades   int     `json:"max_daily_trades" yaml:"max_daily_trades"`

	MinLot    float64 `json:"min_lot" yaml:"min_lot"`
	MaxLot    float64 `json:"max_lot" yaml:"max_lot"`
	LotStep   float64 `json:"lot_step" yaml:"lot_step"`
	MaxVolume float64 `json:"max_volume" yaml:"max_volume"`
}

// StrategyConfig selects and parameterizes the signal generator.
type StrategyConfig struct {
	Name           string  `json:"name" yaml:"name"`
	EntryPeriod    int     `json:"entry_period" yaml:"entry_period"`
	ExitPeriod     int     `json:"exit_period" yaml:"exit_period"`
	ATRPeriod      int     `json:"atr_period" yaml:"atr_period"`
	ATRMultiplier  float64 `json:"atr_multiplier" yaml:"atr_multiplier"`
	BreakoutMargin float64 `json:"breakout_margin" yaml:"breakout_margin"`
	SwingMode      bool    `json:"swing_mode" yaml:"swing_mode"`
	UseTrendFilter bool    `json:"use_trend_filter" yaml:"use_trend_filter"`
	MaxUnits       int     `json:"max_pyramid_units" yaml:"max_pyramid_units"`
	PyramidDelay   int     `json:"pyramid_delay" yaml:"pyramid_delay"`
}

// JournalConfig selects the log backend.
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "csv", "sqlite", or "memory"
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RecordsFile string `json:"records_file,omitempty" yaml:"records_file,omitempty"`
	TradesFile  string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
}

// GatewayConfig points at the execution gateway. The token is usually
// provided through the environment rather than the file.
type GatewayConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
}

// LoadFromFile reads a YAML or JSON config and validates it. A config
// error here is fatal at startup; nothing else reads configuration later.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML (.yaml/.yml) or indented JSON.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration. Errors here abort startup.
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Risk.MaxRiskPerTrade <= 0 || c.Risk.MaxRiskPerTrade > 1 {
		return fmt.Errorf("risk.max_risk_per_trade must be in (0, 1]")
	}
	if c.Risk.MaxDailyDrawdown <= 0 || c.Risk.MaxDailyDrawdown > 1 {
		return fmt.Errorf("risk.max_daily_drawdown must be in (0, 1]")
	}
	if c.Risk.MaxDailyTrades <= 0 {
		return fmt.Errorf("risk.max_daily_trades must be positive")
	}
	if c.Risk.MinLot <= 0 || c.Risk.MaxLot < c.Risk.MinLot {
		return fmt.Errorf("risk lot bounds invalid: min %.2f max %.2f", c.Risk.MinLot, c.Risk.MaxLot)
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if c.Strategy.EntryPeriod <= 0 || c.Strategy.ExitPeriod <= 0 || c.Strategy.ATRPeriod <= 0 {
		return fmt.Errorf("strategy periods must be positive")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if market.Timeframe(c.Timeframe).Seconds() == 0 {
		return fmt.Errorf("unknown timeframe: %s", c.Timeframe)
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite")
		}
	case "csv":
		if c.Journal.RecordsFile == "" || c.Journal.TradesFile == "" {
			return fmt.Errorf("journal.records_file and journal.trades_file required for csv")
		}
	case "memory":
	default:
		return fmt.Errorf("journal.type must be sqlite, csv, or memory")
	}
	if _, err := c.Poll(); err != nil {
		return fmt.Errorf("poll_interval: %w", err)
	}
	return nil
}

// Poll parses the poll interval, defaulting to one minute.
func (c *Config) Poll() (time.Duration, error) {
	if c.PollInterval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(c.PollInterval)
}

// StrategyParams maps the strategy section onto the engine's parameters.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		EntryPeriod:    c.Strategy.EntryPeriod,
		ExitPeriod:     c.Strategy.ExitPeriod,
		ATRPeriod:      c.Strategy.ATRPeriod,
		ATRMultiplier:  c.Strategy.ATRMultiplier,
		BreakoutMargin: c.Strategy.BreakoutMargin,
		SwingMode:      c.Strategy.SwingMode,
		UseTrendFilter: c.Strategy.UseTrendFilter,
		MaxUnits:       c.Strategy.MaxUnits,
		PyramidDelay:   c.Strategy.PyramidDelay,
	}
}

// RiskLimits maps the risk section onto the sizer's limits.
func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MaxRiskPerTrade:  c.Risk.MaxRiskPerTrade,
		MaxDailyDrawdown: c.Risk.MaxDailyDrawdown,
		MaxDailyTrades:   c.Risk.MaxDailyTrades,
		MinLot:           c.Risk.MinLot,
		MaxLot:           c.Risk.MaxLot,
		LotStep:          c.Risk.LotStep,
		MaxVolume:        c.Risk.MaxVolume,
	}
}

// ComplianceRules maps the risk section onto the rule set.
func (c *Config) ComplianceRules() compliance.Rules {
	return compliance.Rules{
		ProfitTarget:     c.Risk.ProfitTarget,
		MaxDailyDrawdown: c.Risk.MaxDailyDrawdown,
		MaxTotalDrawdown: c.Risk.MaxTotalDrawdown,
		MinTradingDays:   c.Risk.MinTradingDays,
	}
}

// Default returns a runnable configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Balance:  100000,
			Currency: "USD",
			Leverage: 100,
		},
		Risk: RiskConfig{
			MaxRiskPerTrade:  0.01,
			MaxDailyDrawdown: 0.05,
			MaxTotalDrawdown: 0.10,
			ProfitTarget:     0.10,
			MinTradingDays:   5,
			MaxDailyTrades:   5,
			MinLot:           0.01,
			MaxLot:           10,
			LotStep:          0.01,
			MaxVolume:        50,
		},
		Strategy: StrategyConfig{
			Name:           "turtle",
			EntryPeriod:    20,
			ExitPeriod:     10,
			ATRPeriod:      14,
			ATRMultiplier:  2.0,
			BreakoutMargin: 0.001,
			UseTrendFilter: true,
			MaxUnits:       4,
			PyramidDelay:   3,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./turtle.db",
		},
		Gateway: GatewayConfig{
			BaseURL: "http://127.0.0.1:8787",
		},
		Symbols:      []string{"EURUSD"},
		Aliases:      map[string]string{"XAUUSD": "GOLD"},
		Timeframe:    string(market.H1),
		PollInterval: "1m",
	}
}
