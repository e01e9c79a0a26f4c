package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/gatewayclient"
	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/redact"
	"github.com/askdb/askdb/internal/web"
	"github.com/askdb/askdb/internal/web/static"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("askdb-web")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	if err := cfg.RequireLLM(); err != nil {
		logger.Error("llm configuration incomplete", slog.Any("error", err))
		os.Exit(1)
	}

	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		FewShot:     cfg.LLM.FewShot,
	})
	if err != nil {
		logger.Error("failed to initialize translator", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := gatewayclient.NewClient(gatewayclient.Config{
		BaseURL: cfg.Gateway.URL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize gateway client", slog.Any("error", err))
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
		logger.Error("failed to build ask pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	handler := web.NewHandler(cfg, web.Dependencies{
		Logger:  logger,
		Asker:   asker,
		Gateway: client,
		History: store,
		UI:      static.Handler(),
	})
	server := &http.Server{
		Addr:         cfg.Web.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(
			"starting web dashboard",
			slog.String("addr", cfg.Web.Address),
			slog.String("gateway_url", cfg.Gateway.URL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down web server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
