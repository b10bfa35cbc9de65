// Package config loads environment driven configuration for the presence bot.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"
)

// Config captures the process environment values the bot needs. Slack tokens
// are required; everything else has a sensible default.
type Config struct {
	BotToken   string   `env:"SLACK_BOT_TOKEN,required"`
	AppToken   string   `env:"SLACK_APP_TOKEN,required"`
	AdminUsers []string `env:"ADMIN_USERS" envSeparator:","`

	// Timezone is the single display zone every date computation uses.
	Timezone string `env:"PRESENCE_TIMEZONE" envDefault:"Asia/Tokyo"`

	// StateFile backs the JSON snapshot store. Ignored when SQLiteDSN is set.
	StateFile string `env:"PRESENCE_STATE_FILE" envDefault:"state.json"`

	// SQLiteDSN, when non-empty, selects the SQLite snapshot store instead
	// of the JSON file.
	SQLiteDSN string `env:"PRESENCE_SQLITE_DSN"`

	// CleanupCron schedules the periodic stale-entry sweep and board refresh.
	CleanupCron string `env:"PRESENCE_CLEANUP_CRON" envDefault:"0 0 * * *"`

	location *time.Location
}

// Load parses and validates configuration from the current process
// environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = "Asia/Tokyo"
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	c.StateFile = strings.TrimSpace(c.StateFile)
	c.SQLiteDSN = strings.TrimSpace(c.SQLiteDSN)
	if c.StateFile == "" && c.SQLiteDSN == "" {
		c.StateFile = "state.json"
	}

	if strings.TrimSpace(c.CleanupCron) == "" {
		c.CleanupCron = "0 0 * * *"
	}

	admins := make([]string, 0, len(c.AdminUsers))
	for _, id := range c.AdminUsers {
		if id = strings.TrimSpace(id); id != "" {
			admins = append(admins, id)
		}
	}
	c.AdminUsers = admins
	return nil
}

// Location returns the parsed display timezone.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.UTC
}
