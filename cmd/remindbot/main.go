// remindbot runs one reminder sweep and exits. It is meant to be invoked
// from cron or a platform scheduler.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	appcfg "github.com/kapu/messenger-chess-bot/internal/config"
	"github.com/kapu/messenger-chess-bot/internal/messenger"
	"github.com/kapu/messenger-chess-bot/internal/msgcat"
	"github.com/kapu/messenger-chess-bot/internal/obslog"
	"github.com/kapu/messenger-chess-bot/internal/reminder"
	"github.com/kapu/messenger-chess-bot/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	repo, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer func() { _ = repo.Close() }()

	client := messenger.NewClient(cfg.GraphAPIBase, cfg.PageAccessToken, cfg.PublicBaseURL)
	threshold := time.Duration(cfg.ReminderDelaySec) * time.Second
	sweeper := reminder.NewSweeper(repo, cat, client, threshold)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
		log.Fatalf("sweep error: %v", err)
	}
}
