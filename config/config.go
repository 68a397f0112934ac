package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver              string
	DBDSN                 string
	Port                  string
	GinMode               string
	JWTSecret             string
	NATSURL               string
	AllowedOrigin         string
	ChangeMonitorInterval time.Duration
	InventoryAtomic       bool
	RateLimitPerSecond    float64
	SeedDemo              bool
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:              getEnv("DB_DRIVER", "sqlite"),
		DBDSN:                 getEnv("DB_DSN", "file:restaurant.db?_busy_timeout=5000"),
		Port:                  getEnv("PORT", "8080"),
		GinMode:               getEnv("GIN_MODE", "debug"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		NATSURL:               os.Getenv("NATS_URL"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "*"),
		ChangeMonitorInterval: 500 * time.Millisecond,
		InventoryAtomic:       true,
		RateLimitPerSecond:    50,
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if v := os.Getenv("CHANGE_MONITOR_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid CHANGE_MONITOR_INTERVAL %q", v)
		}
		cfg.ChangeMonitorInterval = d
	}
	if v := os.Getenv("INVENTORY_ATOMIC"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid INVENTORY_ATOMIC %q", v)
		}
		cfg.InventoryAtomic = b
	}
	if v := os.Getenv("RATE_LIMIT_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SECOND %q", v)
		}
		cfg.RateLimitPerSecond = f
	}
	if v := os.Getenv("SEED_DEMO"); v != "" {
		cfg.SeedDemo, _ = strconv.ParseBool(v)
	}

	cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
