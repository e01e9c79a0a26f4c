package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/dbexec"
	"github.com/askdb/askdb/internal/demo"
	"github.com/askdb/askdb/internal/gateway"
	"github.com/askdb/askdb/internal/observability"
)

func main() {
	seedDemo := flag.Bool("seed-demo", false, "create and fill the demo student/course schema before serving")
	flag.Parse()

	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("askdb-gateway")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	if err := cfg.RequireDB(); err != nil {
		logger.Error("database configuration incomplete", slog.Any("error", err))
		os.Exit(1)
	}

	if *seedDemo {
		if err := demo.Seed(context.Background(), cfg.DB.Driver, cfg.DB.DSN(), logger); err != nil {
			logger.Error("failed to seed demo data", slog.Any("error", err))
			os.Exit(1)
		}
	}

	engine, err := dbexec.Open(context.Background(), dbexec.Config{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN(),
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		QueryTimeout:    cfg.DB.QueryTimeout,
		MaxRows:         cfg.DB.MaxRows,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()

	deps := gateway.Dependencies{
		Logger: logger,
		Engine: engine,
		Readiness: gateway.CombineReadinessChecks(
			gateway.CheckDatabaseConfig(cfg),
			gateway.DatabaseReadiness(engine),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := gateway.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(
			"starting gateway server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("driver", cfg.DB.Driver),
			slog.Bool("auth_required", cfg.Auth.Required),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down gateway server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
