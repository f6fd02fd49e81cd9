package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/time/rate"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/starhunt.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	// LogFile enables size-based log rotation into that file. Empty logs to
	// stdout.
	LogFile string `env:"LOG_FILE"`
	// RedisURL enables the cross-instance feed bridge.
	RedisURL string `env:"REDIS_URL"`
	// AdminPin seeds the admin account on first start.
	AdminPin       string `env:"ADMIN_PIN"`
	CompareAndSwap bool   `env:"COMPARE_AND_SWAP" envDefault:"false"`
	// LoginRatePerMinute caps login attempts per client IP; zero disables it.
	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.LoginRatePerMinute < 0 {
		return nil, fmt.Errorf("LOGIN_RATE_PER_MINUTE must not be negative, got %d", cfg.LoginRatePerMinute)
	}
	return &cfg, nil
}

// LoginLimit converts LoginRatePerMinute to a token bucket rate and burst.
func (c *Config) LoginLimit() (rate.Limit, int) {
	if c.LoginRatePerMinute == 0 {
		return 0, 0
	}
	return rate.Every(time.Minute / time.Duration(c.LoginRatePerMinute)), c.LoginRatePerMinute
}

// Client configures the starhunt command-line client.
type Client struct {
	Server string `env:"STARHUNT_SERVER" envDefault:"http://localhost:8080"`
	// StatePath is the local session file.
	StatePath string        `env:"STARHUNT_STATE" envDefault:"starhunt-session.db"`
	Timeout   time.Duration `env:"STARHUNT_TIMEOUT" envDefault:"10s"`
}

func LoadClient() (*Client, error) {
	cfg, err := env.ParseAs[Client]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
