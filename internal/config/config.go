// Package config loads bot configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"log"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the framework-level configuration.
type Config struct {
	DiscordToken string   `env:"DISCORD_TOKEN,required"`
	StoragePath  string   `env:"STORAGE_PATH" envDefault:"datastore.json"`
	OwnerIDs     []string `env:"OWNER_IDS" envSeparator:","`
}

// New loads the configuration, reading .env first when present.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// IsOwner reports whether userID is in the configured owner list.
func (c *Config) IsOwner(userID string) bool {
	return slices.Contains(c.OwnerIDs, userID)
}
