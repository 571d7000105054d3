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

	"example.com/banking-assistant/backend/internal/ai"
	"example.com/banking-assistant/backend/internal/config"
	"example.com/banking-assistant/backend/internal/database"
	"example.com/banking-assistant/backend/internal/server"
	"example.com/banking-assistant/backend/internal/store"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var source store.Source
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := database.Open(context.Background(), cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		source = store.NewPostgresStore(pool)
	default:
		source = store.NewFileStore(cfg.Store.DataDir)
	}

	var client ai.Client
	switch cfg.LLM.Provider {
	case "openai":
		client = ai.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout, cfg.LLM.MaxOutputTokens)
	default:
		client = ai.NewOllamaClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)
	}
	compiler := ai.NewCompiler(client)

	if cfg.LLM.Warmup {
		// Прогрев не обязан удаваться, сервис стартует в любом случае.
		go func() {
			warmupCtx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout)
			defer cancel()
			if err := compiler.Warmup(warmupCtx); err != nil {
				logger.Warn("model warmup failed", slog.String("error", err.Error()))
				return
			}
			logger.Info("model warmup completed")
		}()
	}

	e := server.New(cfg, logger, source, compiler)
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
