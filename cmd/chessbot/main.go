package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appcfg "github.com/kapu/messenger-chess-bot/internal/config"
	"github.com/kapu/messenger-chess-bot/internal/dedup"
	"github.com/kapu/messenger-chess-bot/internal/game"
	"github.com/kapu/messenger-chess-bot/internal/messenger"
	"github.com/kapu/messenger-chess-bot/internal/msgcat"
	"github.com/kapu/messenger-chess-bot/internal/obslog"
	"github.com/kapu/messenger-chess-bot/internal/router"
	"github.com/kapu/messenger-chess-bot/internal/social"
	"github.com/kapu/messenger-chess-bot/internal/store"
	"github.com/kapu/messenger-chess-bot/internal/webhook"
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

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.EnsureSchema(bootCtx); err != nil {
		bootCancel()
		log.Fatalf("schema error: %v", err)
	}
	bootCancel()

	deduper, err := dedup.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer func() { _ = deduper.Close() }()
	if deduper == nil {
		obslog.L().Warn("REDIS_URL unset, duplicate webhook events will not be filtered")
	}

	client := messenger.NewClient(cfg.GraphAPIBase, cfg.PageAccessToken, cfg.PublicBaseURL)
	rt := router.New(social.New(repo), game.NewManager(repo), cat, client)
	srv := webhook.New(cfg.VerifyToken, rt, deduper)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		obslog.L().Fatal("server error", zap.Error(err))
	}
	obslog.L().Info("shutdown complete")
}
