package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/config"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/notifier"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/repository"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/scoring"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/server"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/service"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting Cyber Guard API...", zap.String("env", cfg.App.Env))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownMetrics, err := telemetry.InitMetrics(ctx, cfg.Telemetry, cfg.App.Name, logger)
	if err != nil {
		logger.Warn("Failed to initialize metrics, continuing without them", zap.Error(err))
	}

	if cfg.Database.Type == repository.DriverSQLite {
		// Create data directory if not exists
		if err := os.MkdirAll("./data", 0o755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	engine, err := scoring.NewEngineFromConfig(cfg.Scoring, repository.NewIocRepository(db, logger), logger)
	if err != nil {
		logger.Fatal("Failed to build scoring engine", zap.Error(err))
	}

	// The notifier is optional; keep the interface nil when it is off.
	var verdictNotifier service.VerdictNotifier
	bot, err := notifier.NewTelegram(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
	} else if bot != nil {
		verdictNotifier = bot
		go bot.Run(ctx)
	}

	srv := server.NewServer(cfg, db, engine, verdictNotifier, logger)
	if err := srv.SeedUsers(ctx); err != nil {
		logger.Fatal("Failed to seed users", zap.Error(err))
	}

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		logger.Warn("Failed to flush metrics", zap.Error(err))
	}
	logger.Info("Server exited")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
