package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// rawConfig holds env values before post-parse validation.
type rawConfig struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	DBPath        string        `env:"DB_PATH" envDefault:"agenda.db"`
	BotReplyLimit int           `env:"BOT_REPLY_LIMIT" envDefault:"5"`
}

// Config aggregates the whole service configuration.
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Store  StoreConfig
	Relay  RelayConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// AuthConfig describes token signing and lifetime.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// StoreConfig describes persistence.
type StoreConfig struct {
	DBPath string
}

// RelayConfig describes the chat relay policy.
type RelayConfig struct {
	BotReplyLimit int
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var raw rawConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	addr, err := normalizeAddr(raw.Port)
	if err != nil {
		return nil, err
	}

	secret := strings.TrimSpace(raw.JWTSecret)
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if raw.TokenTTL <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL value: %s", raw.TokenTTL)
	}

	if raw.BotReplyLimit < 1 {
		return nil, fmt.Errorf("invalid BOT_REPLY_LIMIT value: %d", raw.BotReplyLimit)
	}

	return &Config{
		Server: ServerConfig{Addr: addr},
		Auth:   AuthConfig{JWTSecret: secret, TokenTTL: raw.TokenTTL},
		Store:  StoreConfig{DBPath: strings.TrimSpace(raw.DBPath)},
		Relay:  RelayConfig{BotReplyLimit: raw.BotReplyLimit},
	}, nil
}

// normalizeAddr accepts "8080", ":8080", or "127.0.0.1:8080".
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}
