// Package main provides the CLI tool for photo-autopilot. Uses Cobra for
// command parsing — the same framework behind kubectl and docker.
//
// Run with: go run ./cmd/cli analyze photo.jpg
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/photo-autopilot/internal/config"
	"github.com/fleveque/photo-autopilot/internal/model"
	"github.com/fleveque/photo-autopilot/internal/pipeline"
	"github.com/fleveque/photo-autopilot/internal/provider"
	"github.com/fleveque/photo-autopilot/internal/service"
	"github.com/fleveque/photo-autopilot/internal/storage"
	"github.com/fleveque/photo-autopilot/internal/vision"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "autopilot",
		Short: "Photo autopilot CLI tools",
	}

	root.AddCommand(analyzeCmd())
	root.AddCommand(enhanceCmd())
	return root
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image-file>",
		Short: "Score an image and print the recommended enhancement plan",
		Args:  cobra.ExactArgs(1),
		// RunE returns an error (vs Run which doesn't); Cobra prints it.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0])
		},
	}
}

func enhanceCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "enhance <image-file>",
		Short: "Run the full enhancement pipeline and write the final image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnhance(args[0], outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path for the final image (default: <input>.enhanced.<ext>)")
	return cmd
}

func runAnalyze(path string) error {
	svc, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	payload, err := readPayload(path)
	if err != nil {
		return err
	}

	report, err := svc.Analyze(contextWithSignals(), payload)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runEnhance(path, outPath string) error {
	svc, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	payload, err := readPayload(path)
	if err != nil {
		return err
	}

	// nil plan = analyze-then-enhance in one call
	outcome, err := svc.Enhance(contextWithSignals(), payload, nil)
	if err != nil {
		return err
	}

	fmt.Printf("enhancement %s: %d/%d steps succeeded\n",
		outcome.ID, outcome.Result.StepsSucceeded, outcome.Result.StepsAttempted)
	for _, step := range outcome.Result.Steps {
		status := "ok"
		if !step.Success {
			status = "failed: " + step.Error
		}
		fmt.Printf("  %-8s %6dms  %s\n", step.Type, step.DurationMs, status)
	}

	if len(outcome.Result.Final.Data) == 0 {
		fmt.Println("no step produced output; nothing written")
		return nil
	}

	if outPath == "" {
		ext := outcome.Result.Final.MediaType.Ext()
		outPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".enhanced." + ext
	}
	if err := os.WriteFile(outPath, outcome.Result.Final.Data, 0644); err != nil {
		return fmt.Errorf("writing final image: %w", err)
	}
	fmt.Printf("final image written to %s\n", outPath)
	return nil
}

// contextWithSignals returns a context cancelled on Ctrl+C, so a long
// pipeline run stops between steps and still reports what it finished.
func contextWithSignals() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return ctx
}

// readPayload loads the file and declares its type from the extension,
// leaving the declaration empty (sniffed downstream) for unknown extensions.
func readPayload(path string) (model.ImagePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ImagePayload{}, fmt.Errorf("reading %s: %w", path, err)
	}

	declared := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !model.ValidMediaType(declared) {
		declared = ""
	}
	return model.ImagePayload{Data: data, DeclaredType: declared}, nil
}

// buildService wires the same dependency graph as the server, with a
// development logger. The returned cleanup closes the database.
func buildService() (*service.AutopilotService, func(), error) {
	cfg, err := config.Load(os.Getenv("AUTOPILOT_CONFIG_PATH"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	fs, err := storage.NewFileSystem(cfg.Storage.ImageDir)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating image storage: %w", err)
	}

	enhRepo := storage.NewEnhancementRepository(db)
	callRepo := storage.NewProviderCallRepository(db)

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
		}
	}
	var tagger *vision.Tagger
	if len(clients) > 0 {
		tagger = vision.NewTagger(clients, cfg.Vision.RatePerMinute, cfg.Vision.MaxUploadBytes, callRepo, logger)
	}

	svc := service.NewAutopilotService(orchestrator, providerCfg, tagger, enhRepo, callRepo, fs, logger)

	cleanup := func() {
		_ = logger.Sync()
		db.Close()
	}
	return svc, cleanup, nil
}
