package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/config"
	"github.com/prasann/table-talks-sub000/pkg/database"
	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/logging"
	"github.com/prasann/table-talks-sub000/pkg/repositories"
	"github.com/prasann/table-talks-sub000/pkg/resolver"
	"github.com/prasann/table-talks-sub000/pkg/semantic"
	"github.com/prasann/table-talks-sub000/pkg/tools"
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
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting table-talks",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to schema store", zap.Error(err))
	}
	defer db.Close()

	if err := migrate(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	chat := buildChatClient(cfg, logger)
	engine := buildSemanticEngine(cfg, logger)
	store := repositories.NewSchemaStore(db)

	registry := tools.NewRegistry(logger)
	deps := &tools.SchemaToolDeps{
		Store:               store,
		Engine:              engine,
		Logger:              logger,
		SimilarityThreshold: cfg.Resolver.SimilarityThreshold,
	}
	tools.RegisterSchemaTools(registry, deps)

	var sqlStrategy *resolver.SQLGenerationStrategy
	if cfg.Resolver.EnableSQLGeneration && chat != nil {
		tools.RegisterSQLTool(registry, deps)
		sqlStrategy = resolver.NewSQLGenerationStrategy(chat, store, registry, logger)
	}

	res := resolver.New(chat, registry, sqlStrategy, cfg.AI.SupportsFunctionCalling(), resolver.Config{
		LLMTimeout:    cfg.Resolver.LLMTimeout(),
		MaxSQLRetries: cfg.Resolver.MaxSQLRetries,
		Synthesize:    cfg.Resolver.SynthesizeResponses,
	}, logger)

	runREPL(ctx, res, store, logger)
}

// migrate opens a short-lived database/sql connection for golang-migrate.
func migrate(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}

func buildChatClient(cfg *config.Config, logger *zap.Logger) llm.ChatClient {
	if !cfg.AI.HasChat() {
		logger.Warn("No chat model configured, falling back to keyword matching only")
		return nil
	}

	chat, err := llm.NewChatClient(&llm.Config{
		Provider: cfg.AI.Provider,
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
	}, logger)
	if err != nil {
		logger.Warn("Chat client unavailable, falling back to keyword matching only", zap.Error(err))
		return nil
	}

	logger.Info("Chat model configured",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.Model),
		zap.Bool("function_calling", cfg.AI.SupportsFunctionCalling()))
	return chat
}

func buildSemanticEngine(cfg *config.Config, logger *zap.Logger) *semantic.Engine {
	if !cfg.AI.HasEmbeddings() {
		logger.Warn("No embedding endpoint configured, semantic matching degrades to substring search")
		return semantic.NewEngine(nil, "", logger)
	}

	embedder, err := llm.NewEmbedder(&llm.Config{
		Endpoint: cfg.AI.EmbeddingEndpoint,
		Model:    cfg.AI.EmbeddingModel,
		APIKey:   cfg.AI.EmbeddingAPIKey,
	}, logger)
	if err != nil {
		logger.Warn("Embedding client unavailable, semantic matching degrades to substring search", zap.Error(err))
		return semantic.NewEngine(nil, "", logger)
	}

	logger.Info("Embeddings configured", zap.String("model", cfg.AI.EmbeddingModel))
	return semantic.NewEngine(embedder, cfg.AI.EmbeddingModel, logger)
}

func runREPL(ctx context.Context, res *resolver.Resolver, store repositories.SchemaStore, logger *zap.Logger) {
	fmt.Println("table-talks: ask questions about your scanned files. Type 'help' for examples, 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("Bye.")
			return
		case "help":
			fmt.Println(res.HelpText())
			continue
		case "status":
			fmt.Println(res.Status())
			continue
		}

		result, err := res.ResolveAndExecute(ctx, query, availableFiles(ctx, store, logger))
		if err != nil {
			logger.Warn("Query resolution degraded",
				zap.String("resolution_id", result.ResolutionID),
				zap.Error(err))
		}
		fmt.Println(result.Answer)
	}

	if err := scanner.Err(); err != nil {
		logger.Error("Input read failed", zap.Error(err))
	}
}

// availableFiles feeds file names to the strategies for mention matching. A
// store failure here is non-fatal; resolution proceeds without the hints.
func availableFiles(ctx context.Context, store repositories.SchemaStore, logger *zap.Logger) []string {
	files, err := store.ListFiles(ctx)
	if err != nil {
		logger.Warn("Could not list files for resolution context", zap.Error(err))
		return nil
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.FileName
	}
	return names
}
