package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MarketConfig carries the per-marketplace knobs: which backend sources to
// use, the geo default, and how aggressively we may hit it.
type MarketConfig struct {
	PrimarySource   string        `yaml:"primary_source"`   // structured | proxy
	FallbackSource  string        `yaml:"fallback_source"`  // optional
	Region          string        `yaml:"region"`           // default geo code
	RequestsPerSec  int           `yaml:"requests_per_sec"` // sliding-window budget
	Timeout         time.Duration `yaml:"timeout"`
	StructuredName  string        `yaml:"structured_name"`  // provider source string, e.g. "amazon_search"
	SearchURLFormat string        `yaml:"search_url"`       // %s = query, proxy source
	DetailURLFormat string        `yaml:"detail_url"`       // %s = product id, proxy source
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Backends struct {
		Proxy struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"` // overridable via env/keyring
		} `yaml:"proxy"`
		Structured struct {
			BaseURL  string `yaml:"base_url"`
			Username string `yaml:"username"`
			Password string `yaml:"password"` // overridable via env/keyring
		} `yaml:"structured"`
	} `yaml:"backends"`

	Limits struct {
		GlobalPerSec     float64       `yaml:"global_per_sec"`
		MaxConcurrent    int64         `yaml:"max_concurrent"`
		FailureThreshold int           `yaml:"failure_threshold"`
		Blackout         time.Duration `yaml:"blackout"`
	} `yaml:"limits"`

	Retry struct {
		MaxAttempts int           `yaml:"max_attempts"`
		BackoffBase time.Duration `yaml:"backoff_base"`
		BackoffMax  time.Duration `yaml:"backoff_max"`
	} `yaml:"retry"`

	Normalize struct {
		StrictPricing bool `yaml:"strict_pricing"`
	} `yaml:"normalize"`

	Cache struct {
		Size   int           `yaml:"size"`
		MaxTTL time.Duration `yaml:"max_ttl"`
	} `yaml:"cache"`

	Metrics struct {
		BatchSize      int           `yaml:"batch_size"`
		FlushInterval  time.Duration `yaml:"flush_interval"`
		PostgresDSN    string        `yaml:"postgres_dsn"` // empty = sqlite sink
		PostgresSchema string        `yaml:"postgres_schema"`
	} `yaml:"metrics"`

	Markets map[string]MarketConfig `yaml:"markets"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Default returns the shipped configuration: all four marketplaces enabled
// with the structured backend primary and the proxy as fallback.
func Default() Config {
	var cfg Config
	cfg.App.Port = 8090
	cfg.App.DataDir = "./data"

	cfg.Limits.GlobalPerSec = 20
	cfg.Limits.MaxConcurrent = 16
	cfg.Limits.FailureThreshold = 5
	cfg.Limits.Blackout = 5 * time.Minute

	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BackoffBase = time.Second
	cfg.Retry.BackoffMax = 30 * time.Second

	cfg.Normalize.StrictPricing = true

	cfg.Cache.Size = 2048
	cfg.Cache.MaxTTL = time.Hour

	cfg.Metrics.BatchSize = 10
	cfg.Metrics.FlushInterval = 30 * time.Second

	cfg.Markets = map[string]MarketConfig{
		"amazon": {
			PrimarySource:   "structured",
			FallbackSource:  "proxy",
			Region:          "us",
			RequestsPerSec:  5,
			Timeout:         20 * time.Second,
			StructuredName:  "amazon_search",
			SearchURLFormat: "https://www.amazon.com/s?k=%s",
			DetailURLFormat: "https://www.amazon.com/dp/%s",
		},
		"walmart": {
			PrimarySource:   "structured",
			FallbackSource:  "proxy",
			Region:          "us",
			RequestsPerSec:  4,
			Timeout:         30 * time.Second,
			StructuredName:  "walmart_search",
			SearchURLFormat: "https://www.walmart.com/search?q=%s",
			DetailURLFormat: "https://www.walmart.com/ip/%s",
		},
		"ebay": {
			PrimarySource:   "proxy",
			FallbackSource:  "structured",
			Region:          "us",
			RequestsPerSec:  4,
			Timeout:         30 * time.Second,
			StructuredName:  "ebay_search",
			SearchURLFormat: "https://www.ebay.com/sch/i.html?_nkw=%s",
			DetailURLFormat: "https://www.ebay.com/itm/%s",
		},
		"google_shopping": {
			PrimarySource:   "structured",
			FallbackSource:  "",
			Region:          "us",
			RequestsPerSec:  3,
			Timeout:         60 * time.Second,
			StructuredName:  "google_shopping_search",
			SearchURLFormat: "https://www.google.com/search?tbm=shop&q=%s",
			DetailURLFormat: "https://www.google.com/shopping/product/%s",
		},
	}

	return cfg
}
