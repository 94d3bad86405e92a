// Package app assembles the chat service from configuration. Both binaries
// share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/classifier"
	"github.com/xaenox/terrenos-bot/internal/events"
	"github.com/xaenox/terrenos-bot/internal/knowledge"
	"github.com/xaenox/terrenos-bot/internal/models"
	"github.com/xaenox/terrenos-bot/internal/responder"
	"github.com/xaenox/terrenos-bot/internal/service"
	"github.com/xaenox/terrenos-bot/internal/storage"
	"github.com/xaenox/terrenos-bot/pkg/config"
)

type App struct {
	Chat  *service.ChatService
	Store storage.Storage
	KB    *models.KnowledgeBase

	closers []func()
}

// New opens storage, loads and validates the knowledge base and builds the
// chat service. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}

	store, err := openStorage(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close storage", zap.Error(err))
		}
	})

	kb, err := loadKnowledge(ctx, cfg.Knowledge, store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.KB = kb
	logger.Info("Knowledge base loaded",
		zap.String("source", cfg.Knowledge.Source),
		zap.Bool("from_database", cfg.Knowledge.FromDatabase),
		zap.Int("listings", len(kb.Listings)))

	var opts []responder.Option
	if cfg.Chat.Seed != 0 {
		opts = append(opts, responder.WithSeed(cfg.Chat.Seed))
	}
	r, err := responder.New(kb, opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create responder: %w", err)
	}

	var svcOpts []service.Option
	if cfg.OpenAI.Enabled {
		assist := classifier.NewGPTClassifier(classifier.GPTConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		}, logger)
		svcOpts = append(svcOpts, service.WithAssist(assist, cfg.Chat.AssistTimeout))
		logger.Info("Topic assist enabled", zap.String("model", cfg.OpenAI.Model))
	}

	if cfg.NATS.URL != "" {
		pub, err := events.Connect(events.Config{
			URL:   cfg.NATS.URL,
			Token: cfg.NATS.Token,
			Name:  "terrenos-bot",
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		svcOpts = append(svcOpts, service.WithPublisher(pub))
		logger.Info("Publishing conversation events", zap.String("url", cfg.NATS.URL))
	}

	a.Chat = service.NewChatService(r, store, logger, svcOpts...)
	return a, nil
}

// Close releases everything New opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	if cfg.UseInMemory {
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}

	logger.Info("Using PostgreSQL storage", zap.String("host", cfg.Host), zap.String("dbname", cfg.DBName))
	store, err := storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
		URL:          cfg.URL,
		Host:         cfg.Host,
		Port:         cfg.Port,
		User:         cfg.User,
		Password:     cfg.Password,
		DBName:       cfg.DBName,
		SSLMode:      cfg.SSLMode,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func loadKnowledge(ctx context.Context, cfg config.KnowledgeConfig, store storage.Storage) (*models.KnowledgeBase, error) {
	base, err := knowledge.Resolve(cfg.Source)
	if err != nil {
		return nil, err
	}
	if !cfg.FromDatabase {
		return base, nil
	}

	src, ok := store.(knowledge.ListingSource)
	if !ok {
		return nil, errors.New("knowledge.from_database requires PostgreSQL storage")
	}
	return knowledge.FromSource(ctx, src, base)
}
