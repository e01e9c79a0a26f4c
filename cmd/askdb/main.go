package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/askdb/askdb/internal/cli"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/gatewayclient"
	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/redact"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: askdb [gateway-url]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Ask questions in plain language; askdb turns them into SQL and runs\nthem through the execution gateway. Configuration comes from the\nenvironment and an optional .env file.\n")
	}
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("askdb")
	if err != nil {
		fmt.Fprintf(os.Stderr, "askdb: %v\n", err)
		os.Exit(1)
	}
	if gatewayURL := flag.Arg(0); gatewayURL != "" {
		cfg.Gateway.URL = gatewayURL
	}
	if err := cfg.RequireLLM(); err != nil {
		fmt.Fprintf(os.Stderr, "askdb: %v\nSet model_name, api_base and api_key in the environment or a .env file.\n", err)
		os.Exit(1)
	}

	logger := observability.NewSessionLogger(cfg, os.Stderr)

	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		FewShot:     cfg.LLM.FewShot,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "askdb: initialize translator: %v\n", err)
		os.Exit(1)
	}

	client, err := gatewayclient.NewClient(gatewayclient.Config{
		BaseURL: cfg.Gateway.URL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "askdb: initialize gateway client: %v\n", err)
		os.Exit(1)
	}

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.NewStore(cfg.History.Path)
		if err != nil {
			logger.Warn("question history disabled", slog.Any("error", err))
			store = nil
		}
	}

	asker, err := pipeline.New(pipeline.Options{
		Translator:     translator,
		Gateway:        client,
		Redactor:       redact.New(cfg.Redact.SensitiveFields),
		History:        store,
		Logger:         logger,
		MaxRows:        cfg.DB.MaxRows,
		SchemaInPrompt: cfg.LLM.SchemaInPrompt,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "askdb: %v\n", err)
		os.Exit(1)
	}

	terminal, err := cli.NewTerminal(cli.Options{
		Asker:   asker,
		Gateway: client,
		History: store,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "askdb: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: gateway %s is not responding: %v\n", cfg.Gateway.URL, err)
	}
	cancel()

	if err := cli.Run(ctx, terminal, inputHistoryPath(cfg)); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "askdb: %v\n", err)
		os.Exit(1)
	}
}

// inputHistoryPath keeps readline's input history next to the question log.
// An empty path disables persistence.
func inputHistoryPath(cfg config.Config) string {
	if cfg.History.Path == "" {
		return ""
	}
	dir := filepath.Dir(cfg.History.Path)
	if dir == "." {
		return ".askdb_input_history"
	}
	return filepath.Join(dir, ".askdb_input_history")
}
