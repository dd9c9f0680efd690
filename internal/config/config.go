// Package config loads the YAML configuration file and applies defaults.
// Secrets (API keys) never live in the file; they come from the environment.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr    string `yaml:"addr"`
	DevMode bool   `yaml:"dev_mode"`
}

type Log struct {
	Level  string `yaml:"level"` // trace | debug | info | warn | error
	Pretty bool   `yaml:"pretty"`
}

type Market struct {
	BaseURL         string `yaml:"base_url"`
	SearchURL       string `yaml:"search_url"`
	CandleURL       string `yaml:"candle_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MaxRetries      int    `yaml:"max_retries"`
	BackoffBaseMs   int    `yaml:"backoff_base_ms"`
	PriceCacheSize  int    `yaml:"price_cache_size"`
	PriceTTLSeconds int    `yaml:"price_ttl_seconds"`
	StaleWindowSecs int    `yaml:"stale_window_seconds"`
	HistoryTTLSecs  int    `yaml:"history_ttl_seconds"`
	SearchTTLSecs   int    `yaml:"search_ttl_seconds"`
	HistoryWorkers  int    `yaml:"history_workers"`
	DailyLimit      int    `yaml:"daily_limit"`
	HourlyLimit     int    `yaml:"hourly_limit"`
	APIKey          string `yaml:"-"` // GROWW_API_KEY
}

type News struct {
	BaseURL        string `yaml:"base_url"`
	Language       string `yaml:"language"`
	Country        string `yaml:"country"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheTTLSecs   int    `yaml:"cache_ttl_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	BackoffBaseMs  int    `yaml:"backoff_base_ms"`
	MinIntervalMs  int    `yaml:"min_interval_ms"`
	DailyLimit     int    `yaml:"daily_limit"`
	HourlyLimit    int    `yaml:"hourly_limit"`
	APIKey         string `yaml:"-"` // NEWSDATA_API_KEY
}

type Store struct {
	Path string `yaml:"path"`
}

// Jobs holds cron specs for the background maintenance jobs.
type Jobs struct {
	TrendingWarmup string `yaml:"trending_warmup"`
	BudgetReport   string `yaml:"budget_report"`
}

type Root struct {
	Server Server `yaml:"server"`
	Log    Log    `yaml:"log"`
	Market Market `yaml:"market"`
	News   News   `yaml:"news"`
	Store  Store  `yaml:"store"`
	Jobs   Jobs   `yaml:"jobs"`
}

// Load reads the YAML file at path, fills in defaults for anything unset,
// and overlays environment variables. An empty path loads pure defaults.
func Load(path string) (Root, error) {
	var c Root
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, err
		}
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/stockbro.db"
	}

	if c.Jobs.TrendingWarmup == "" {
		c.Jobs.TrendingWarmup = "@every 15m"
	}
	if c.Jobs.BudgetReport == "" {
		c.Jobs.BudgetReport = "@hourly"
	}

	// The data clients apply their own defaults for zero values, so only
	// the environment overlays happen here.
	c.Market.APIKey = os.Getenv("GROWW_API_KEY")
	c.News.APIKey = os.Getenv("NEWSDATA_API_KEY")
	if addr := os.Getenv("STOCKBRO_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if dbPath := os.Getenv("STOCKBRO_DB_PATH"); dbPath != "" {
		c.Store.Path = dbPath
	}

	return c, nil
}
