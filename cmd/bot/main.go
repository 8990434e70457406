package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"kopilka/internal/bot"
	"kopilka/internal/category"
	"kopilka/internal/config"
	"kopilka/internal/dialog"
	"kopilka/internal/log"
	"kopilka/internal/repository"
	"kopilka/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.New(0).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := log.New(cfg.LogLevel)
	log.SetDefault(logger)

	repo, err := newRepository(cfg)
	if err != nil {
		logger.Error("failed to initialize storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("storage initialized", "backend", cfg.StorageBackend)

	tracker := service.NewExpenseTracker(repo)
	registry := category.NewRegistry(repo)
	engine := dialog.NewEngine(tracker, registry, logger)

	b, err := bot.NewBot(cfg.TelegramToken, tracker, engine, logger)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if cfg.WebhookListenAddr != "" {
			return b.StartWebhook(ctx, cfg.WebhookListenAddr, cfg.WebhookURL)
		}
		return b.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down gracefully")
}

func newRepository(cfg *config.Config) (repository.Repository, error) {
	if cfg.StorageBackend == config.BackendSupabase {
		return repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
	}
	return repository.NewSQLiteRepository(cfg.SQLiteDBPath)
}
