// Package config loads service settings from an optional JSON file, an
// optional .env file and the environment, in increasing precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type MetalsDev struct {
	Enabled        bool    `json:"enabled"`
	APIKey         string  `json:"api_key"`
	BaseURL        string  `json:"base_url"`
	Unit           string  `json:"unit"`
	TimeoutSec     int     `json:"timeout_sec"`
	MinGoldPerGram float64 `json:"min_gold_per_gram"`
}

type Relay struct {
	Enabled               bool     `json:"enabled"`
	Templates             []string `json:"templates"`
	TimeoutSec            int      `json:"timeout_sec"`
	MaxRequestsPerMinute  int      `json:"max_requests_per_minute"`
	MinRequestIntervalSec int      `json:"min_request_interval_sec"`
	Burst                 int      `json:"burst"`
}

type CoinGecko struct {
	Enabled               bool    `json:"enabled"`
	URL                   string  `json:"url"`
	AssetID               string  `json:"asset_id"`
	TimeoutSec            int     `json:"timeout_sec"`
	MinGoldPerOunce       float64 `json:"min_gold_per_ounce"`
	MaxRequestsPerMinute  int     `json:"max_requests_per_minute"`
	MinRequestIntervalSec int     `json:"min_request_interval_sec"`
	Burst                 int     `json:"burst"`
}

type Cache struct {
	Backend      string `json:"backend"` // memory | file | redis | postgres
	Key          string `json:"key"`
	Path         string `json:"path"`
	RedisURL     string `json:"redis_url"`
	RetentionSec int    `json:"retention_sec"`
	PostgresDSN  string `json:"postgres_dsn"`
	Table        string `json:"table"`
	FreshForSec  int    `json:"fresh_for_sec"`
}

type Refresh struct {
	Enabled bool   `json:"enabled"`
	Spec    string `json:"spec"`
}

type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type Config struct {
	Currency    string    `json:"currency"`
	SilverRatio float64   `json:"silver_ratio"`
	Server      Server    `json:"server"`
	MetalsDev   MetalsDev `json:"metalsdev"`
	Relay       Relay     `json:"relay"`
	CoinGecko   CoinGecko `json:"coingecko"`
	Cache       Cache     `json:"cache"`
	Refresh     Refresh   `json:"refresh"`
	Log         Log       `json:"log"`
}

func Default() Config {
	return Config{
		Currency:    "LKR",
		SilverRatio: 82,
		Server:      Server{Port: "8080", RequestTimeoutSec: 90},
		MetalsDev: MetalsDev{
			Enabled:        true,
			BaseURL:        "https://api.metals.dev",
			Unit:           "g",
			TimeoutSec:     10,
			MinGoldPerGram: 1000,
		},
		Relay: Relay{
			Enabled:              true,
			TimeoutSec:           12,
			MaxRequestsPerMinute: 30,
			Burst:                3,
		},
		CoinGecko: CoinGecko{
			Enabled:              true,
			URL:                  "https://api.coingecko.com/api/v3/simple/price",
			AssetID:              "pax-gold",
			TimeoutSec:           10,
			MinGoldPerOunce:      100000,
			MaxRequestsPerMinute: 10,
			Burst:                2,
		},
		Cache: Cache{
			Backend:     "memory",
			Key:         "metalprice:snapshot:v3",
			Path:        "data/snapshot.json",
			Table:       "price_cache",
			FreshForSec: 600,
		},
		Refresh: Refresh{Enabled: true, Spec: "@every 5m"},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads JSON config from path. If path is empty, ./config.json is used
// when present; a missing file yields defaults. A .env file in the working
// directory, when present, is loaded into the environment first without
// overriding variables that are already set. Environment variables win
// over the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Currency) == "" {
		return errors.New("config: currency is required")
	}
	if !(c.SilverRatio > 0) {
		return fmt.Errorf("config: silver_ratio must be positive, got %v", c.SilverRatio)
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "", "memory", "file", "redis", "postgres":
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

func (c Config) FreshFor() time.Duration { return seconds(c.Cache.FreshForSec) }

func (c Config) RequestTimeout() time.Duration { return seconds(c.Server.RequestTimeoutSec) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func applyEnv(cfg *Config) {
	str("CURRENCY", &cfg.Currency)
	float("SILVER_RATIO", &cfg.SilverRatio)

	str("PORT", &cfg.Server.Port)
	intv("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec)

	boolean("METALSDEV_ENABLED", &cfg.MetalsDev.Enabled)
	str("METALSDEV_API_KEY", &cfg.MetalsDev.APIKey)
	str("METALSDEV_BASE_URL", &cfg.MetalsDev.BaseURL)
	str("METALSDEV_UNIT", &cfg.MetalsDev.Unit)
	intv("METALSDEV_TIMEOUT_SEC", &cfg.MetalsDev.TimeoutSec)
	float("METALSDEV_MIN_GOLD_PER_GRAM", &cfg.MetalsDev.MinGoldPerGram)

	boolean("RELAY_ENABLED", &cfg.Relay.Enabled)
	if v := os.Getenv("RELAY_TEMPLATES"); v != "" {
		cfg.Relay.Templates = splitCSV(v)
	}
	intv("RELAY_TIMEOUT_SEC", &cfg.Relay.TimeoutSec)
	intv("RELAY_MAX_RPM", &cfg.Relay.MaxRequestsPerMinute)
	intv("RELAY_MIN_INTERVAL_SEC", &cfg.Relay.MinRequestIntervalSec)
	intv("RELAY_BURST", &cfg.Relay.Burst)

	boolean("COINGECKO_ENABLED", &cfg.CoinGecko.Enabled)
	str("COINGECKO_URL", &cfg.CoinGecko.URL)
	str("COINGECKO_ASSET_ID", &cfg.CoinGecko.AssetID)
	intv("COINGECKO_TIMEOUT_SEC", &cfg.CoinGecko.TimeoutSec)
	float("COINGECKO_MIN_GOLD_PER_OUNCE", &cfg.CoinGecko.MinGoldPerOunce)
	intv("COINGECKO_MAX_RPM", &cfg.CoinGecko.MaxRequestsPerMinute)
	intv("COINGECKO_MIN_INTERVAL_SEC", &cfg.CoinGecko.MinRequestIntervalSec)
	intv("COINGECKO_BURST", &cfg.CoinGecko.Burst)

	str("CACHE_BACKEND", &cfg.Cache.Backend)
	str("CACHE_KEY", &cfg.Cache.Key)
	str("CACHE_PATH", &cfg.Cache.Path)
	str("REDIS_URL", &cfg.Cache.RedisURL)
	intv("CACHE_RETENTION_SEC", &cfg.Cache.RetentionSec)
	str("DATABASE_URL", &cfg.Cache.PostgresDSN)
	str("CACHE_TABLE", &cfg.Cache.Table)
	intv("CACHE_FRESH_FOR_SEC", &cfg.Cache.FreshForSec)

	boolean("REFRESH_ENABLED", &cfg.Refresh.Enabled)
	str("REFRESH_SPEC", &cfg.Refresh.Spec)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
}

func str(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// intv ignores unparsable and negative values.
func intv(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if x, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && x >= 0 {
			*dst = x
		}
	}
}

func float(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if x, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && x > 0 {
			*dst = x
		}
	}
}

func boolean(key string, dst *bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
