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

	"github.com/sqlgate/sqlgate/internal/agent"
	"github.com/sqlgate/sqlgate/internal/api"
	"github.com/sqlgate/sqlgate/internal/auth"
	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/nl2sql"
	"github.com/sqlgate/sqlgate/internal/observability"
	"github.com/sqlgate/sqlgate/internal/postgres"
	"github.com/sqlgate/sqlgate/internal/safety"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlgate-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := postgres.Open(context.Background(), postgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	client := postgres.NewClient(db)
	schemaProvider := agent.SchemaProviderFunc(client.FetchSchema)
	if cfg.SQL.IncludeSystemSchemas {
		schemaProvider = agent.SchemaProviderFunc(client.FetchSchemaIncludingSystem)
	}

	var planner nl2sql.Planner
	if cfg.AI.Enabled {
		planner, err = nl2sql.NewOpenAIPlanner(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize planner", slog.Any("error", err))
			os.Exit(1)
		}
	}

	agentService, err := agent.NewService(schemaProvider, client, planner, agent.Config{
		Mode:             safety.Mode(cfg.SQL.Mode),
		MaxStatements:    cfg.SQL.MaxStatements,
		MaxRows:          cfg.SQL.MaxRows,
		StatementTimeout: cfg.SQL.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to build agent service", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:         logger,
		Agent:          agentService,
		SchemaProvider: schemaProvider,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseDSN(cfg),
			client.HealthCheck,
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

	handler := api.NewHandler(cfg, deps)
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
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
