package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FollowerConfig configures a read-only device that mirrors one restaurant.
type FollowerConfig struct {
	ServerURL    string
	Token        string
	RestaurantID uint
	NATSURL      string
	PollInterval time.Duration
}

func LoadFollower() (*FollowerConfig, error) {
	_ = godotenv.Load()

	cfg := &FollowerConfig{
		ServerURL:    getEnv("POS_URL", "http://localhost:8080"),
		Token:        os.Getenv("POS_TOKEN"),
		NATSURL:      os.Getenv("NATS_URL"),
		PollInterval: 15 * time.Second,
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("POS_TOKEN environment variable is required")
	}

	id, err := strconv.ParseUint(os.Getenv("RESTAURANT_ID"), 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid RESTAURANT_ID %q", os.Getenv("RESTAURANT_ID"))
	}
	cfg.RestaurantID = uint(id)

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q", v)
		}
		cfg.PollInterval = d
	}
	return cfg, nil
}

// WebsocketURL is the change feed endpoint of ServerURL.
func (c *FollowerConfig) WebsocketURL() string {
	base := strings.TrimRight(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	}
	return base + "/ws"
}
