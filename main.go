package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"prwarden/internal/config"
	"prwarden/internal/gitea"
	"prwarden/internal/handlers"
	"prwarden/internal/llm"
	"prwarden/internal/logging"
	"prwarden/internal/review"
	"prwarden/internal/server"
	"prwarden/internal/tokenizer"
	"prwarden/internal/webhook"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to config.yaml")
		envFile    = pflag.String("env-file", "", "path to a .env file to load")
	)
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := checkCredentials(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:      logging.ParseLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: logging.DefaultConfig().TimeFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialize logging: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting prwarden",
		"gitea", cfg.SCM.URL, "model", cfg.LLM.Model,
		"threshold", cfg.Review.QualityThreshold)

	// Build the review pipeline
	scmClient := gitea.NewClient(cfg.SCM, logger.With("component", "gitea"))
	llmClient := llm.NewClient(cfg.LLM, logger.With("component", "llm"))
	counter := tokenizer.New(cfg.LLM.Model)

	reviewLogger := logger.With("component", "review")
	chunker := review.NewChunker(counter, cfg.LLM.MaxTokens, reviewLogger)
	builder := review.NewContextBuilder(scmClient, cfg.Review.IgnorePatterns, cfg.SCM.ContextWindow, reviewLogger)
	analyzer := review.NewAnalyzer(llmClient, chunker, reviewLogger)
	reviewSvc := review.NewService(scmClient, builder, analyzer, cfg.Review, reviewLogger)

	// Webhook intake
	webhookLogger := logger.With("component", "webhook")
	webhookProc := webhook.NewProcessor(reviewSvc, webhookLogger)
	webhookAsync := webhook.NewAsyncProcessor(webhookProc, webhook.AsyncConfig{
		QueueSize: cfg.Server.QueueSize,
		Workers:   cfg.Server.Workers,
	}, webhookLogger)

	// Setup HTTP server
	srv := server.NewServer(cfg.Server, logger.With("component", "server"))
	handler := handlers.NewHandler(webhookAsync, cfg.Server.WebhookSecret, logger.With("component", "handlers"))

	// Register routes
	srv.Router().GET("/health", handler.Health)
	srv.Router().POST("/webhook/gitea", handler.GiteaWebhook)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	if err := webhookAsync.Stop(ctx); err != nil {
		logger.Error("webhook processor shutdown error", "error", err)
	}

	logger.Info("server exited")
}

// checkCredentials verifies the settings that Validate leaves to the
// caller: a server cannot run without forge and model credentials.
func checkCredentials(cfg *config.Config) error {
	if cfg.SCM.URL == "" {
		return fmt.Errorf("gitea url is required (set GITEA_URL or scm.url)")
	}
	if cfg.SCM.Token == "" {
		return fmt.Errorf("gitea token is required (set GITEA_TOKEN or scm.token)")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required (set LLM_API_KEY or llm.api_key)")
	}
	return nil
}
