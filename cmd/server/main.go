package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	"chatrelay/internal/history"
	"chatrelay/internal/identity"
	"chatrelay/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("starting chat relay",
		"port", cfg.Port,
		"history_store", cfg.History.Store,
		"unauth_policy", cfg.UnauthPolicy,
		"auth_mode", cfg.Auth.Mode,
	)

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open history store", "error", err)
		os.Exit(1)
	}

	gateway := history.NewGateway(store, cfg.History.QueueSize, logger)
	gateway.Start()

	hub := chat.NewHub(chat.Options{
		NoticeTimestamps: cfg.NoticeTimestamps,
		SendBuffer:       cfg.SendBuffer,
		MaxMessageSize:   cfg.MaxMessageSize,
		RateLimitBurst:   cfg.RateLimit.Burst,
		RateLimitRefill:  cfg.RateLimit.RefillInterval,
	}, gateway, logger)

	handler := server.NewHandler(hub, newProvider(cfg), cfg, logger)
	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(handler))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, logger)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
		}
	}

	_ = server.ShutdownServer(httpServer, shutdownTimeout, logger)
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		logger.Warn("hub shutdown", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := gateway.Stop(ctx); err != nil {
		logger.Warn("history gateway stop", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Warn("close history store", "error", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadAndValidate(path)
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (history.Store, error) {
	switch cfg.History.Store {
	case config.StoreSQLite:
		return history.NewSQLiteStore(cfg.History.SQLitePath)
	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return history.NewPostgresStore(ctx, cfg.History.PostgresURL)
	default:
		logger.Info("using in-memory history store; messages will not survive restarts")
		return history.NewMemoryStore(), nil
	}
}

func newProvider(cfg *config.Config) identity.Provider {
	if cfg.Auth.Mode == config.AuthModeJWT {
		return identity.NewJWTProvider(cfg.Auth.JWTSecret)
	}
	return identity.NewQueryProvider(cfg.Auth.QueryParam)
}
