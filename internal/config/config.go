// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	AnnouncementsFeedURL string
	BlogFeedURL          string
	DatabasePath         string
	SyncInterval         time.Duration
	RetentionDays        int
	PreviewLimit         int
	LogLevel             string
	TelegramBotToken     string
	TelegramChatID       int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	announcementsURL := os.Getenv("ANNOUNCEMENTS_FEED_URL")
	if announcementsURL == "" {
		return nil, fmt.Errorf("ANNOUNCEMENTS_FEED_URL is required")
	}
	blogURL := os.Getenv("BLOG_FEED_URL")
	if blogURL == "" {
		return nil, fmt.Errorf("BLOG_FEED_URL is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/content.db"
	}

	intervalMinutes, err := intEnv("SYNC_INTERVAL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	retentionDays, err := intEnv("RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	previewLimit, err := intEnv("PREVIEW_LIMIT", 3)
	if err != nil {
		return nil, err
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	var chatID int64
	if token != "" {
		raw := os.Getenv("TELEGRAM_CHAT_ID")
		if raw == "" {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
		}
		chatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
	}

	return &Config{
		AnnouncementsFeedURL: announcementsURL,
		BlogFeedURL:          blogURL,
		DatabasePath:         dbPath,
		SyncInterval:         time.Duration(intervalMinutes) * time.Minute,
		RetentionDays:        retentionDays,
		PreviewLimit:         previewLimit,
		LogLevel:             logLevel,
		TelegramBotToken:     token,
		TelegramChatID:       chatID,
	}, nil
}

// Retention returns the staleness window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}
