package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full application configuration, loaded once at startup and
// passed explicitly to every component. There is no ambient global state.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Notifx   NotifxConfig
	Jobx     JobxConfig
}

// Load reads the whole configuration from the environment.
func Load() *Config {
	return &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		Auth:     loadAuthConfig(),
		Notifx:   loadNotifxConfig(),
		Jobx:     loadJobxConfig(),
	}
}

// Validate checks invariants that must hold before the server starts.
// Token signing with a missing secret or an unpinned algorithm is a
// deployment error, not a per-request condition.
func (c *Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if c.Database.Name == "" {
		return fmt.Errorf("config: database name is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "1" || strings.EqualFold(value, "true")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvStringSlice(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
