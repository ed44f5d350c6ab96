// Package config loads and validates the bot configuration from a YAML file
// with SWINGBOT_* environment variable overrides.
package config

import (
	"fmt"
	"strings"

	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/spf13/viper"
)

type Config struct {
	Symbol          string  `mapstructure:"symbol"`
	TradeAmount     float64 `mapstructure:"trade_amount"`
	StartingBalance float64 `mapstructure:"starting_balance"`
	PaperMode       bool    `mapstructure:"paper_mode"`

	RSIPeriod     int     `mapstructure:"rsi_period"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
	EMAPeriod     int     `mapstructure:"ema_period"`

	Timeframe       string  `mapstructure:"timeframe"`
	Interval        string  `mapstructure:"interval"`
	MaxFetchRetries int     `mapstructure:"max_fetch_retries"`
	Slippage        float64 `mapstructure:"slippage"`
	FeeRate         float64 `mapstructure:"fee_rate"`

	StoragePath string `mapstructure:"storage_path"`
	LogLevel    string `mapstructure:"log_level"`

	Binance  BinanceConfig  `mapstructure:"binance"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type BinanceConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Testnet   bool   `mapstructure:"testnet"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Users   []int  `mapstructure:"users"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "BTCUSDT")
	v.SetDefault("trade_amount", 100.0)
	v.SetDefault("starting_balance", 1000.0)
	v.SetDefault("paper_mode", true)
	v.SetDefault("rsi_period", 14)
	v.SetDefault("rsi_oversold", 30.0)
	v.SetDefault("rsi_overbought", 70.0)
	v.SetDefault("ema_period", 50)
	v.SetDefault("timeframe", "1h")
	v.SetDefault("interval", "1m")
	v.SetDefault("max_fetch_retries", 3)
	v.SetDefault("slippage", 0.0)
	v.SetDefault("fee_rate", 0.001)
	v.SetDefault("storage_path", "swingbot.db")
	v.SetDefault("log_level", "info")

	// Nested keys need explicit defaults for env overrides to bind.
	v.SetDefault("binance.api_key", "")
	v.SetDefault("binance.api_secret", "")
	v.SetDefault("binance.testnet", false)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.users", []int{})
}

// Load reads the given YAML file (optional) and applies environment overrides.
// Nested keys map to underscored variables, e.g. SWINGBOT_TELEGRAM_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SWINGBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.TradeAmount <= 0 {
		return fmt.Errorf("trade_amount must be positive, got %f", c.TradeAmount)
	}
	if c.StartingBalance <= 0 {
		return fmt.Errorf("starting_balance must be positive, got %f", c.StartingBalance)
	}
	if c.RSIPeriod <= 1 {
		return fmt.Errorf("rsi_period must be greater than 1, got %d", c.RSIPeriod)
	}
	if c.EMAPeriod <= 0 {
		return fmt.Errorf("ema_period must be positive, got %d", c.EMAPeriod)
	}
	if c.RSIOversold <= 0 || c.RSIOverbought <= 0 {
		return fmt.Errorf("rsi thresholds must be positive")
	}
	if c.RSIOversold >= c.RSIOverbought {
		return fmt.Errorf("rsi_oversold (%.1f) must be below rsi_overbought (%.1f)",
			c.RSIOversold, c.RSIOverbought)
	}
	if c.MaxFetchRetries < 0 {
		return fmt.Errorf("max_fetch_retries cannot be negative")
	}
	if c.Slippage < 0 || c.FeeRate < 0 {
		return fmt.Errorf("slippage and fee_rate cannot be negative")
	}
	if _, err := str2duration.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("invalid interval %q: %w", c.Interval, err)
	}
	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			return fmt.Errorf("telegram.token is required when telegram is enabled")
		}
		if len(c.Telegram.Users) == 0 {
			return fmt.Errorf("telegram.users is required when telegram is enabled")
		}
	}
	if !c.PaperMode && c.Binance.APIKey == "" {
		return fmt.Errorf("binance.api_key is required for live trading")
	}
	return nil
}
