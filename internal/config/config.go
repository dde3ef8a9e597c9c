// Package config loads process configuration from the environment,
// following the teacher's env(key, default)/fail-fast pattern in
// cmd/server/main.go rather than a flag or file-based loader.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every environment-derived setting the core needs.
type Config struct {
	BotToken           string
	DatabaseURL        string
	AdminID            int64
	ChannelID          string
	ChannelInviteLink  string
	LogChannelID       string // optional; empty disables the archive
	Env                string
	HTTPAddr           string
}

// Load reads Config from the process environment. Required variables
// missing from the environment are reported as a single aggregate error
// so an operator sees every missing variable in one run, matching the
// teacher's "FATAL: ..." startup checks that explain exactly what's
// wrong. A non-integer ADMIN_ID is reported on its own, at once, without
// the list of missing variables.
func Load() (Config, error) {
	cfg := Config{
		BotToken:          os.Getenv("BOT_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ChannelID:         os.Getenv("CHANNEL_ID"),
		ChannelInviteLink: os.Getenv("CHANNEL_INVITE_LINK"),
		LogChannelID:      os.Getenv("LOG_CHANNEL_ID"),
		Env:               os.Getenv("ENV"),
		HTTPAddr:          env("HTTP_ADDR", ":8080"),
	}

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.ChannelID == "" {
		missing = append(missing, "CHANNEL_ID")
	}
	if cfg.ChannelInviteLink == "" {
		missing = append(missing, "CHANNEL_INVITE_LINK")
	}

	adminRaw := os.Getenv("ADMIN_ID")
	if adminRaw == "" {
		missing = append(missing, "ADMIN_ID")
	} else {
		id, err := strconv.ParseInt(adminRaw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("ADMIN_ID must be an integer: %w", err)
		}
		cfg.AdminID = id
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

// IsDevMode reports whether ENV is explicitly set to "dev". Unset or
// misspelled values stay false, same fail-secure default as the teacher's
// JWT DevMode check.
func (c Config) IsDevMode() bool {
	return c.Env == "dev"
}

// ArchiveEnabled reports whether a log channel was configured.
func (c Config) ArchiveEnabled() bool {
	return c.LogChannelID != ""
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
