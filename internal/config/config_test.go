package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	cfg.Backends.Structured.BaseURL = "https://backend.example/v1"

	_, res := NormalizeAndValidate(cfg)
	if !res.OK() {
		t.Fatalf("default config invalid: %v", res.Errors)
	}
}

func TestValidateCatchesBadMarkets(t *testing.T) {
	cfg := Default()
	cfg.Backends.Structured.BaseURL = "https://backend.example/v1"

	mc := cfg.Markets["amazon"]
	mc.PrimarySource = "carrier_pigeon"
	mc.RequestsPerSec = 0
	cfg.Markets["amazon"] = mc
	cfg.Markets["myspace"] = MarketConfig{PrimarySource: "proxy", RequestsPerSec: 1, Timeout: time.Second}

	_, res := NormalizeAndValidate(cfg)
	if res.OK() {
		t.Fatal("expected validation errors")
	}
	if len(res.Errors) < 3 {
		t.Fatalf("errors = %v, want at least 3", res.Errors)
	}
}

func TestEnsureUserConfigAndReload(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path = %q", path)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Markets["amazon"].RequestsPerSec != 5 {
		t.Fatalf("amazon rps = %d, want 5", cfg.Markets["amazon"].RequestsPerSec)
	}
	if cfg.Markets["google_shopping"].Timeout != 60*time.Second {
		t.Fatalf("google timeout = %v, want 60s", cfg.Markets["google_shopping"].Timeout)
	}

	// second call must not overwrite
	again, err := EnsureUserConfig(dir)
	if err != nil || again != path {
		t.Fatalf("second ensure: path=%q err=%v", again, err)
	}
}

func TestOverlayEnv(t *testing.T) {
	t.Setenv("PRICEHUNT_PROXY_API_KEY", "from-env")
	t.Setenv("PRICEHUNT_STRUCTURED_PASSWORD", "hunter2")

	cfg := Default()
	cfg.Backends.Proxy.APIKey = "from-file"
	OverlayEnv(&cfg)

	if cfg.Backends.Proxy.APIKey != "from-env" {
		t.Fatalf("api key = %q, want env override", cfg.Backends.Proxy.APIKey)
	}
	if cfg.Backends.Structured.Password != "hunter2" {
		t.Fatalf("password = %q", cfg.Backends.Structured.Password)
	}
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := Default()
	cfg.Backends.Structured.BaseURL = "https://backend.example/v1"
	cfg.App.Port = 9999

	if err := SaveAtomic(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.App.Port != 9999 {
		t.Fatalf("port = %d, want 9999", got.App.Port)
	}

	// invalid config must be rejected before touching the file
	bad := cfg
	bad.App.Port = -1
	if err := SaveAtomic(path, bad); err == nil {
		t.Fatal("expected validation failure")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("original file lost: %v", err)
	}
}
