package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource"
	_ "github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource/mssql"
	_ "github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource/postgres"
	_ "github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource/sqlite"
	"github.com/queryloop-ai/queryloop-engine/pkg/config"
	"github.com/queryloop-ai/queryloop-engine/pkg/handlers"
	"github.com/queryloop-ai/queryloop-engine/pkg/llm"
	"github.com/queryloop-ai/queryloop-engine/pkg/logging"
	"github.com/queryloop-ai/queryloop-engine/pkg/metadata"
	"github.com/queryloop-ai/queryloop-engine/pkg/search"
	"github.com/queryloop-ai/queryloop-engine/pkg/text2sql"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("dialect", cfg.Database.Dialect),
		zap.String("dsn", logging.SanitizeDSN(cfg.Database.DSN)),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
		zap.String("search_index", cfg.Search.Index))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	index, err := search.NewClient(&search.ClientConfig{
		Endpoint: cfg.Search.Endpoint,
		Index:    cfg.Search.Index,
		APIKey:   cfg.Search.APIKey,
		Timeout:  cfg.Search.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create search client", zap.Error(err))
	}

	// Embeddings always go through the OpenAI-compatible client; the
	// Anthropic API has no embedding endpoint.
	embedClient, err := llm.NewClient(&llm.Config{
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.EmbeddingModel,
		APIKey:   cfg.AI.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	var chat llm.ChatClient
	switch cfg.AI.Provider {
	case "anthropic":
		chat = llm.NewAnthropicClient(cfg.AI.APIKey, cfg.AI.Model, logger)
	default:
		chatClient, err := llm.NewClient(&llm.Config{
			Endpoint: cfg.AI.Endpoint,
			Model:    cfg.AI.Model,
			APIKey:   cfg.AI.APIKey,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create chat client", zap.Error(err))
		}
		chat = chatClient
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	adapter, err := datasource.New(connectCtx, cfg.Database.Dialect, cfg.Database.DSN, logger)
	connectCancel()
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("dialect", cfg.Database.Dialect),
			zap.Error(err))
	}
	defer func() { _ = adapter.Close() }()

	retriever := metadata.NewRetriever(index, embedClient, cfg.AI.EmbeddingModel, nil, logger)
	generator := text2sql.NewGenerator(chat, cfg.AI.Temperature, cfg.AI.Timeout, nil, logger)
	controller := text2sql.NewController(retriever, generator, adapter, text2sql.ControllerConfig{
		MaxExecutionAttempts: cfg.Engine.MaxExecutionAttempts,
		MaxPreviewRows:       cfg.Engine.MaxPreviewRows,
		TopK:                 cfg.Search.TopK,
		QueryTimeout:         cfg.Database.Timeout,
		Context: text2sql.ContextConfig{
			MaxSnippets:   cfg.Engine.MaxContextSnippets,
			SnippetMaxLen: cfg.Engine.SnippetMaxLen,
			MaxTables:     cfg.Engine.MaxContextTables,
		},
	}, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAskHandler(controller, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Starting queryloop-engine",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
