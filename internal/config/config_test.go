package config

import (
	"log/slog"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LogLevel != slog.LevelInfo || cfg.CompareAndSwap {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LoginRatePerMinute != 10 {
		t.Errorf("LoginRatePerMinute = %d, want 10", cfg.LoginRatePerMinute)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("COMPARE_AND_SWAP", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.LogLevel != slog.LevelDebug || !cfg.CompareAndSwap {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if limit, burst := cfg.LoginLimit(); limit != 0 || burst != 0 {
		t.Errorf("LoginLimit = %v, %d, want disabled", limit, burst)
	}
}

func TestLoadRejectsNegativeRate(t *testing.T) {
	t.Setenv("LOGIN_RATE_PER_MINUTE", "-1")
	if _, err := Load(); err == nil {
		t.Error("Load accepted a negative rate")
	}
}

func TestLoginLimit(t *testing.T) {
	cfg := &Config{LoginRatePerMinute: 6}
	limit, burst := cfg.LoginLimit()
	if limit != rate.Every(10*time.Second) || burst != 6 {
		t.Errorf("LoginLimit = %v, %d", limit, burst)
	}
}

func TestLoadClient(t *testing.T) {
	t.Setenv("STARHUNT_SERVER", "http://hunt.example:8080")
	t.Setenv("STARHUNT_TIMEOUT", "3s")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.Server != "http://hunt.example:8080" || cfg.Timeout != 3*time.Second || cfg.StatePath == "" {
		t.Errorf("cfg = %+v", cfg)
	}
}
