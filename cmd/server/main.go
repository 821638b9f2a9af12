// Package main is the entry point for the photo-autopilot HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/photo-autopilot/internal/config"
	"github.com/fleveque/photo-autopilot/internal/pipeline"
	"github.com/fleveque/photo-autopilot/internal/provider"
	"github.com/fleveque/photo-autopilot/internal/server"
	"github.com/fleveque/photo-autopilot/internal/service"
	"github.com/fleveque/photo-autopilot/internal/storage"
	"github.com/fleveque/photo-autopilot/internal/vision"
)

func main() {
	// run() is separate so deferred cleanup executes before os.Exit
	// (deferred functions don't run when os.Exit is called directly).
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("AUTOPILOT_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// zap outputs JSON in production and human-readable text in development.
	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync flushes buffered entries; its error is ignored on purpose because
	// it commonly fails on stdout/stderr without meaning anything.
	defer func() { _ = logger.Sync() }()

	// Storage
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fs, err := storage.NewFileSystem(cfg.Storage.ImageDir)
	if err != nil {
		return fmt.Errorf("creating image storage: %w", err)
	}

	enhRepo := storage.NewEnhancementRepository(db)
	callRepo := storage.NewProviderCallRepository(db)

	// Transform adapters + orchestrator
	providerCfg := provider.Config{
		BaseURL:       cfg.Providers.BaseURL,
		APIKey:        cfg.Providers.APIKey,
		Timeout:       cfg.Providers.Timeout(),
		RatePerMinute: cfg.Providers.RatePerMinute,
		ToneModel:     cfg.Providers.ToneModel,
		DetailModel:   cfg.Providers.DetailModel,
		UpscaleModel:  cfg.Providers.UpscaleModel,
	}
	orchestrator := pipeline.NewOrchestrator(provider.NewRegistry(providerCfg, logger), logger)
	if !providerCfg.HasCredentials() {
		logger.Warn("no transform API key configured — enhance requests will be rejected")
	}

	tagger := buildTagger(cfg, callRepo, logger)

	autopilot := service.NewAutopilotService(orchestrator, providerCfg, tagger, enhRepo, callRepo, fs, logger)

	srv := server.New(cfg, server.Deps{
		Autopilot: autopilot,
		EnhRepo:   enhRepo,
		CallRepo:  callRepo,
	}, logger)

	// Graceful shutdown: SIGINT (Ctrl+C) or SIGTERM (docker stop).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight enhancement runs time to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

// buildTagger assembles the optional vision tagger from whichever providers
// have keys, in the configured order. Returns nil when none are configured —
// the analyze flow then scores without issue tags.
func buildTagger(cfg *config.Config, callRepo storage.ProviderCallRepository, logger *zap.Logger) *vision.Tagger {
	var clients []vision.Client
	for _, name := range cfg.Vision.ProviderOrder {
		switch name {
		case "anthropic":
			if cfg.Vision.Anthropic.APIKey != "" {
				clients = append(clients, vision.NewAnthropicClient(cfg.Vision.Anthropic.APIKey, cfg.Vision.Anthropic.Model))
			}
		case "openai":
			if cfg.Vision.OpenAI.APIKey != "" {
				clients = append(clients, vision.NewOpenAIClient(cfg.Vision.OpenAI.APIKey, cfg.Vision.OpenAI.Model))
			}
		default:
			logger.Warn("unknown vision provider in provider_order", zap.String("provider", name))
		}
	}

	if len(clients) == 0 {
		logger.Info("no vision providers configured — analysis runs without issue tags")
		return nil
	}

	logger.Info("vision tagging enabled", zap.Int("providers", len(clients)))
	return vision.NewTagger(clients, cfg.Vision.RatePerMinute, cfg.Vision.MaxUploadBytes, callRepo, logger)
}
