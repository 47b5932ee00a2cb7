//go:build ignore

// Manual review runner. Reviews a single pull request with the same
// pipeline the server uses:
//
//	go run tools/reviewpr.go alice/widget 42
//
// Or write a starter configuration file:
//
//	go run tools/reviewpr.go --write-config config.yaml
package main

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/pflag"

	"prwarden/internal/config"
	"prwarden/internal/gitea"
	"prwarden/internal/llm"
	"prwarden/internal/logging"
	"prwarden/internal/review"
	"prwarden/internal/tokenizer"
)

func main() {
	var (
		configPath  = pflag.String("config", "", "path to config.yaml")
		envFile     = pflag.String("env-file", "", "path to a .env file to load")
		writeConfig = pflag.String("write-config", "", "write the default configuration to this path and exit")
	)
	pflag.Parse()

	if *writeConfig != "" {
		if err := config.Default().Save(*writeConfig); err != nil {
			log.Fatalf("write config: %v", err)
		}
		fmt.Printf("wrote %s\n", *writeConfig)
		return
	}

	args := pflag.Args()
	if len(args) != 2 {
		log.Fatal("usage: go run tools/reviewpr.go [flags] <owner/repo> <pr-number>")
	}

	owner, repo, err := gitea.ParseRepoFullName(args[0])
	if err != nil {
		log.Fatalf("bad repository: %v", err)
	}
	number, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || number <= 0 {
		log.Fatalf("bad pull request number %q", args[1])
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("initialize logging: %v", err)
	}

	scmClient := gitea.NewClient(cfg.SCM, logger)
	llmClient := llm.NewClient(cfg.LLM, logger)
	chunker := review.NewChunker(tokenizer.New(cfg.LLM.Model), cfg.LLM.MaxTokens, logger)
	builder := review.NewContextBuilder(scmClient, cfg.Review.IgnorePatterns, cfg.SCM.ContextWindow, logger)
	analyzer := review.NewAnalyzer(llmClient, chunker, logger)
	svc := review.NewService(scmClient, builder, analyzer, cfg.Review, logger)

	outcome, err := svc.ReviewPR(context.Background(), owner, repo, number)
	if err != nil {
		log.Fatalf("review failed: %v", err)
	}

	fmt.Printf("Run: %s\n", outcome.RunID)
	fmt.Printf("Commits: %d (reviewed %d, skipped %d)\n", outcome.Commits, outcome.Reviewed, outcome.Skipped)
	if outcome.Reviewed > 0 {
		fmt.Printf("Score: %.1f (threshold %.1f)\n", outcome.Score, cfg.Review.QualityThreshold)
	}
	fmt.Printf("Approved: %v\nMerged: %v\n", outcome.Approved, outcome.Merged)
}
