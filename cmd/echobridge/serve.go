package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/application"
	"github.com/korjavin/echobridge/internal/infrastructure/config"
	"github.com/korjavin/echobridge/internal/infrastructure/logger"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, loader, used, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, level, err := logger.NewLoggerWithLevel(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: "stdout",
	})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	log.Info("Starting EchoBridge",
		zap.String("version", version),
		zap.String("config_file", used),
	)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := application.NewApp(cfg, log, application.WithLogLevel(level))
	if err != nil {
		log.Error("Failed to initialize application", zap.Error(err))
		return err
	}

	loader.Watch(func(next *config.Config, e fsnotify.Event) {
		app.ApplyConfig(next, e)
	}, func(err error) {
		log.Warn("Ignoring unreadable config change", zap.Error(err))
	})

	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		return err
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		return err
	}
	return nil
}
