package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
	"github.com/spellstone/spellstone-server-go/internal/config"
	"github.com/spellstone/spellstone-server-go/internal/game"
	"github.com/spellstone/spellstone-server-go/internal/server"
	"github.com/spellstone/spellstone-server-go/internal/store"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting spellstone server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	cat, err := catalog.Standard()
	if err != nil {
		logger.Fatal("failed to build card catalog", zap.Error(err))
	}

	var gameStore game.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgres(ctx, cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pg.Close()
		gameStore = pg
		logger.Info("using postgres game store")
	} else {
		gameStore = store.NewMemory()
		logger.Info("using in-memory game store")
	}

	rules := game.Rules{
		StartingHealth:   cfg.Game.StartingHealth,
		StartingEnergy:   cfg.Game.StartingEnergy,
		EnergyCap:        cfg.Game.EnergyCap,
		StartingHandSize: cfg.Game.StartingHandSize,
	}
	engine := game.NewEngine(gameStore, cat, rules, logger)
	logger.Info("rule engine initialized",
		zap.Int("starting_health", rules.StartingHealth),
		zap.Int("energy_cap", rules.EnergyCap),
	)

	gateway := server.NewGateway(cfg.Server.Addr(), engine, logger)
	if err := gateway.Run(ctx); err != nil {
		logger.Fatal("gateway failed", zap.Error(err))
	}

	logger.Info("spellstone server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
