package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete retrieval-layer configuration.
type Config struct {
	// Symbol is used when a request does not name one.
	Symbol    string          `yaml:"symbol"`
	Binance   BinanceConfig   `yaml:"binance"`
	CoinGecko CoinGeckoConfig `yaml:"coingecko"`
	HTTP      HTTPConfig      `yaml:"http"`
	// Deadline bounds a whole fetch, primary plus fallback. Zero disables it.
	Deadline time.Duration `yaml:"deadline"`
	Log      LogConfig     `yaml:"log"`
}

// BinanceConfig configures the primary exchange klines provider.
type BinanceConfig struct {
	BaseURL   string          `yaml:"base_url"`
	MaxLimit  int             `yaml:"max_limit"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// CoinGeckoConfig configures the secondary aggregator OHLC provider.
type CoinGeckoConfig struct {
	BaseURL    string `yaml:"base_url"`
	VsCurrency string `yaml:"vs_currency"`
	// Coins maps exchange symbols to aggregator coin ids.
	Coins     map[string]string `yaml:"coins"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	Retry     RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts uint          `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// RateLimitConfig holds request budgets; zero means unlimited.
type RateLimitConfig struct {
	PerSecond int `yaml:"per_second"`
	PerMinute int `yaml:"per_minute"`
	PerHour   int `yaml:"per_hour"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	// File enables rotating file output instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func Default() *Config {
	return &Config{
		Symbol: "ETHUSDT",
		Binance: BinanceConfig{
			BaseURL:  "https://api.binance.com",
			MaxLimit: 1000,
		},
		CoinGecko: CoinGeckoConfig{
			BaseURL:    "https://api.coingecko.com",
			VsCurrency: "usd",
			Coins: map[string]string{
				"ETHUSDT": "ethereum",
				"BTCUSDT": "bitcoin",
				"SOLUSDT": "solana",
			},
			RateLimit: RateLimitConfig{PerMinute: 30},
		},
		HTTP: HTTPConfig{
			Timeout:   12 * time.Second,
			UserAgent: "cryptohlcv/1.0 (+https://github.com/shahid-2020/cryptohlcv)",
			Retry: RetryConfig{
				MaxAttempts: 4,
				BaseDelay:   1500 * time.Millisecond,
				MaxDelay:    30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadFromFile reads YAML from path on top of Default and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Symbol == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	if c.Binance.BaseURL == "" {
		errs = append(errs, errors.New("binance.base_url is required"))
	}
	if c.Binance.MaxLimit <= 0 {
		errs = append(errs, errors.New("binance.max_limit must be positive"))
	}
	if c.CoinGecko.BaseURL == "" {
		errs = append(errs, errors.New("coingecko.base_url is required"))
	}
	if c.CoinGecko.VsCurrency == "" {
		errs = append(errs, errors.New("coingecko.vs_currency is required"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	if c.HTTP.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("http.retry.max_attempts must be at least 1"))
	}
	if c.HTTP.Retry.BaseDelay < 0 {
		errs = append(errs, errors.New("http.retry.base_delay must not be negative"))
	}
	if c.Deadline < 0 {
		errs = append(errs, errors.New("deadline must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// CoinID resolves the aggregator coin id for an exchange symbol. Symbols
// match case-insensitively.
func (c CoinGeckoConfig) CoinID(symbol string) (string, bool) {
	if id, ok := c.Coins[strings.ToUpper(symbol)]; ok {
		return id, true
	}
	for s, id := range c.Coins {
		if strings.EqualFold(s, symbol) {
			return id, true
		}
	}
	return "", false
}
