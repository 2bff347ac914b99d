package config

import (
	"os"

	"github.com/joho/godotenv"
)

// OverlayEnv applies environment overrides on top of the file config.
// Credentials in particular should come from the environment (or the OS
// keyring, see internal/secrets) rather than the YAML file.
func OverlayEnv(cfg *Config) {
	_ = godotenv.Load() // a missing .env is fine

	if v := os.Getenv("PRICEHUNT_PROXY_API_KEY"); v != "" {
		cfg.Backends.Proxy.APIKey = v
	}
	if v := os.Getenv("PRICEHUNT_PROXY_BASE_URL"); v != "" {
		cfg.Backends.Proxy.BaseURL = v
	}
	if v := os.Getenv("PRICEHUNT_STRUCTURED_USERNAME"); v != "" {
		cfg.Backends.Structured.Username = v
	}
	if v := os.Getenv("PRICEHUNT_STRUCTURED_PASSWORD"); v != "" {
		cfg.Backends.Structured.Password = v
	}
	if v := os.Getenv("PRICEHUNT_STRUCTURED_BASE_URL"); v != "" {
		cfg.Backends.Structured.BaseURL = v
	}
	if v := os.Getenv("PRICEHUNT_METRICS_PG_DSN"); v != "" {
		cfg.Metrics.PostgresDSN = v
	}
	if v := os.Getenv("PRICEHUNT_DATA_DIR"); v != "" {
		cfg.App.DataDir = v
	}
}
