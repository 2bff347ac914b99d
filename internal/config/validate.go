package config

import (
	"fmt"
	"strings"

	"pricehunt-engine/internal/domain"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// questionable about the configuration.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if strings.TrimSpace(out.App.DataDir) == "" {
		res.addErr("app.data_dir is required")
	}

	if out.Limits.GlobalPerSec <= 0 {
		res.addErr("limits.global_per_sec must be > 0")
	}
	if out.Limits.MaxConcurrent <= 0 {
		res.addErr("limits.max_concurrent must be > 0")
	}
	if out.Limits.FailureThreshold <= 0 {
		res.addErr("limits.failure_threshold must be > 0")
	}
	if out.Limits.Blackout <= 0 {
		res.addErr("limits.blackout must be > 0")
	}

	if out.Retry.MaxAttempts <= 0 {
		res.addErr("retry.max_attempts must be > 0")
	} else if out.Retry.MaxAttempts > 6 {
		res.addWarn("retry.max_attempts is high (%d); backends bill per attempt.", out.Retry.MaxAttempts)
	}
	if out.Retry.BackoffBase <= 0 {
		res.addErr("retry.backoff_base must be > 0")
	}
	if out.Retry.BackoffMax > 0 && out.Retry.BackoffBase > out.Retry.BackoffMax {
		res.addErr("retry.backoff_base cannot exceed retry.backoff_max")
	}

	if len(out.Markets) == 0 {
		res.addErr("markets: at least one marketplace must be configured")
	}
	for name, mc := range out.Markets {
		if _, err := domain.ParseMarketplace(name); err != nil {
			res.addErr("markets.%s: %v", name, err)
			continue
		}
		if mc.PrimarySource != "structured" && mc.PrimarySource != "proxy" {
			res.addErr("markets.%s.primary_source must be structured or proxy", name)
		}
		if mc.FallbackSource != "" && mc.FallbackSource != "structured" && mc.FallbackSource != "proxy" {
			res.addErr("markets.%s.fallback_source must be structured, proxy, or empty", name)
		}
		if mc.FallbackSource == mc.PrimarySource && mc.FallbackSource != "" {
			res.addWarn("markets.%s: fallback_source equals primary_source; fallback is a no-op", name)
		}
		if mc.RequestsPerSec <= 0 {
			res.addErr("markets.%s.requests_per_sec must be > 0", name)
		}
		if mc.Timeout <= 0 {
			res.addErr("markets.%s.timeout must be > 0", name)
		}
		if mc.FallbackSource == "" {
			res.addWarn("markets.%s has no fallback_source; transient failures will surface to callers.", name)
		}
	}

	if out.Backends.Proxy.BaseURL == "" && out.Backends.Structured.BaseURL == "" {
		res.addWarn("backends: no base_url configured; every scrape will fail until one is set.")
	}

	if out.Metrics.BatchSize <= 0 {
		out.Metrics.BatchSize = 10
	}
	if out.Cache.Size <= 0 {
		out.Cache.Size = 2048
	}

	return out, res
}
