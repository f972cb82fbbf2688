package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Quote  QuoteConfig  `json:"quote" yaml:"quote"`
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`
	Poller PollerConfig `json:"poller" yaml:"poller"`
	News   NewsConfig   `json:"news" yaml:"news"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// QuoteConfig tunes the quote cache. The upstream's latency and error
// distribution are unknown, so every knob lives here instead of in code.
type QuoteConfig struct {
	Provider     string   `json:"provider" yaml:"provider"` // "naver" or "sim"
	TTL          Duration `json:"ttl" yaml:"ttl"`
	StaleGrace   Duration `json:"stale_grace" yaml:"stale_grace"`
	FetchTimeout Duration `json:"fetch_timeout" yaml:"fetch_timeout"`
	IdleEviction Duration `json:"idle_eviction" yaml:"idle_eviction"`
}

// LedgerConfig tunes order validation and account lifecycle.
type LedgerConfig struct {
	DefaultCash   int64    `json:"default_cash" yaml:"default_cash"`
	MaxQuoteAge   Duration `json:"max_quote_age" yaml:"max_quote_age"`
	ResetKeepsLog bool     `json:"reset_keeps_log" yaml:"reset_keeps_log"`
}

// PollerConfig tunes the background refresh loop.
type PollerConfig struct {
	Interval   Duration `json:"interval" yaml:"interval"`
	TopSymbols []string `json:"top_symbols" yaml:"top_symbols"`
}

// NewsConfig lists the RSS feeds headlines come from. A "{symbol}"
// placeholder in a URL is replaced per request.
type NewsConfig struct {
	Feeds []string `json:"feeds,omitempty" yaml:"feeds,omitempty"`
	Limit int      `json:"limit" yaml:"limit"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // trace..panic, logrus levels
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
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

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Quote.Provider != "naver" && c.Quote.Provider != "sim" {
		return fmt.Errorf("quote.provider must be 'naver' or 'sim'")
	}
	if c.Quote.TTL <= 0 {
		return fmt.Errorf("quote.ttl must be positive")
	}
	if c.Quote.StaleGrace < c.Quote.TTL {
		return fmt.Errorf("quote.stale_grace must be at least quote.ttl")
	}
	if c.Quote.FetchTimeout <= 0 {
		return fmt.Errorf("quote.fetch_timeout must be positive")
	}
	if c.Quote.IdleEviction <= 0 {
		return fmt.Errorf("quote.idle_eviction must be positive")
	}
	if c.Ledger.DefaultCash <= 0 {
		return fmt.Errorf("ledger.default_cash must be positive")
	}
	if c.Ledger.MaxQuoteAge <= 0 {
		return fmt.Errorf("ledger.max_quote_age must be positive")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive")
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path is required")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Quote: QuoteConfig{
			Provider:     "naver",
			TTL:          Duration(2 * time.Second),
			StaleGrace:   Duration(2 * time.Minute),
			FetchTimeout: Duration(5 * time.Second),
			IdleEviction: Duration(10 * time.Minute),
		},
		Ledger: LedgerConfig{
			DefaultCash:   100_000_000,
			MaxQuoteAge:   Duration(30 * time.Second),
			ResetKeepsLog: true,
		},
		Poller: PollerConfig{
			Interval: Duration(time.Second),
			TopSymbols: []string{
				"005930", // Samsung Electronics
				"000660", // SK hynix
				"035420", // NAVER
				"373220", // LG Energy Solution
				"035720", // Kakao
				"005380", // Hyundai Motor
				"051910", // LG Chem
				"006400", // Samsung SDI
			},
		},
		News: NewsConfig{
			Limit: 20,
		},
		Store: StoreConfig{
			DBPath: "./paperstock.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
