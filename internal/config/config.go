// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones for minimal container images.
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AdminUsers       []int64
	Timezone         string
	ImportInterval   time.Duration

	location *time.Location
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/noticeboard.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var adminUsers []int64
	if raw := os.Getenv("ADMIN_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ADMIN_USERS: %w", s, err)
			}
			adminUsers = append(adminUsers, uid)
		}
	}

	tz := os.Getenv("TIMEZONE")
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	interval := 15
	if raw := os.Getenv("IMPORT_INTERVAL_MINUTES"); raw != "" {
		interval, err = strconv.Atoi(raw)
		if err != nil || interval < 1 || interval > 1440 {
			return nil, fmt.Errorf("IMPORT_INTERVAL_MINUTES must be between 1 and 1440, got %q", raw)
		}
	}

	return &Config{
		TelegramBotToken: token,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
		AdminUsers:       adminUsers,
		Timezone:         tz,
		ImportInterval:   time.Duration(interval) * time.Minute,
		location:         loc,
	}, nil
}

// Location returns the time zone scheduled notices are evaluated in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// IsAdmin checks whether a Telegram user ID is in the bootstrap admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUsers {
		if id == userID {
			return true
		}
	}
	return false
}
