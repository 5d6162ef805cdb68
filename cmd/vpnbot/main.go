package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/episthema/vpnbot/internal/bot"
	"github.com/episthema/vpnbot/internal/config"
	"github.com/episthema/vpnbot/internal/database"
	"github.com/episthema/vpnbot/internal/gate"
	"github.com/episthema/vpnbot/internal/logger"
	"github.com/episthema/vpnbot/internal/session"
	"github.com/episthema/vpnbot/internal/storage"
	"github.com/episthema/vpnbot/internal/telegram"
	"github.com/episthema/vpnbot/internal/vpnid"
	"log/slog"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Shutdown() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.L.Error("database connection failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.RunMigrations(cfg.Database); err != nil {
		logger.L.Error("migrations failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	store := storage.New(db, vpnid.New())
	if err := store.SeedDefaultConfig(ctx); err != nil {
		logger.L.Error("config seed failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	app := bot.New(cfg, store, session.NewMemoryManager(), gate.New(cfg.Telegram.AdminIDs))

	if err := telegram.RunTelegram(ctx, app.RunOptions()); err != nil {
		logger.L.Error("bot stopped with error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger.L.Info("bot stopped")
}
