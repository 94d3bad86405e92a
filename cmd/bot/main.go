package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/app"
	"github.com/xaenox/terrenos-bot/internal/bot"
	"github.com/xaenox/terrenos-bot/pkg/config"
	"github.com/xaenox/terrenos-bot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		l, _ := zap.NewProduction()
		l.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Telegram.Token == "" {
		log.Fatal("Telegram token is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	b, err := bot.New(bot.Config{
		Token:        cfg.Telegram.Token,
		Debug:        cfg.Telegram.Debug,
		Timeout:      cfg.Telegram.Timeout,
		HistoryLimit: cfg.Chat.HistoryLimit,
	}, a.Chat, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	log.Info("Bot started")
	if err := b.Start(ctx); err != nil {
		log.Error("Bot error", zap.Error(err))
	}
	log.Info("Bot stopped")
}
