package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	DatabaseURL string
	RedisURL    string

	GraphAPIBase    string
	PageAccessToken string
	VerifyToken     string

	ListenAddr    string
	PublicBaseURL string

	ReminderDelaySec int

	MessageDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		GraphAPIBase:     "https://graph.facebook.com/v2.6",
		ListenAddr:       ":8080",
		ReminderDelaySec: 86400,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	if v := strings.TrimSpace(os.Getenv("GRAPH_API_BASE")); v != "" {
		cfg.GraphAPIBase = v
	}
	cfg.PageAccessToken = strings.TrimSpace(os.Getenv("PAGE_ACCESS_TOKEN"))
	cfg.VerifyToken = strings.TrimSpace(os.Getenv("VERIFY_TOKEN"))

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.PublicBaseURL = strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL"))

	if v := strings.TrimSpace(os.Getenv("REMINDER_DELAY_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReminderDelaySec = n
		}
	}

	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.PageAccessToken == "" {
		return nil, errors.New("PAGE_ACCESS_TOKEN is required")
	}
	if cfg.VerifyToken == "" {
		return nil, errors.New("VERIFY_TOKEN is required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, errors.New("PUBLIC_BASE_URL is required")
	}

	return cfg, nil
}
