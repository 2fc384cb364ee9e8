package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jwren/castellan/internal/api"
	"github.com/jwren/castellan/internal/config"
	"github.com/jwren/castellan/internal/factory"
	"github.com/jwren/castellan/internal/services/auth"
	"github.com/jwren/castellan/internal/services/handoff"
	"github.com/jwren/castellan/internal/services/matchmaking"
	redisstorage "github.com/jwren/castellan/internal/storage/redis"
	"github.com/jwren/castellan/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	nodes, err := cfg.LoadNodes()
	if err != nil {
		logger.Error("failed to load node list", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(nodes) == 0 {
		logger.Warn("no game nodes configured; games cannot start")
	}

	appCfg := factory.Config{
		Logger:            logger,
		StorageType:       cfg.StorageType,
		TokenSecret:       []byte(cfg.TokenSecret),
		HandoffSecret:     []byte(cfg.HandoffSecret),
		AuthConfig:        auth.Config{TokenDuration: cfg.TokenDuration},
		HandoffConfig:     handoff.Config{Expiry: cfg.HandoffExpiry},
		MatchmakingConfig: matchmaking.Config{StaleTimeout: cfg.StaleGameTimeout},
		LobbyConfig:       ws.Config{MinClientVersion: cfg.MinClientVersion},
		Nodes:             nodes,
	}

	if cfg.StorageType == factory.StorageTypeRedis {
		if cfg.RedisURL == "" {
			logger.Error("CASTELLAN_REDIS_URL required when CASTELLAN_STORAGE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		appCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(appCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Connections: app.Connections,
		Sessions:    app.Sessions,
		Controller:  app.Controller,
		NodeRouter:  app.Pool,
		Lobby:       app.LobbyServer,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Background loops: stale-game sweeping and node event reconciliation
	go app.Controller.RunSweeper(ctx)
	go app.Reconciler.Run(ctx)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("lobby server started",
		slog.String("addr", server.Addr()),
		slog.Int("nodes", len(nodes)),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
