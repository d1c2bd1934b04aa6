package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/benchmark"
	"github.com/hmorsi/coursewright/internal/cache"
	"github.com/hmorsi/coursewright/internal/config"
	"github.com/hmorsi/coursewright/internal/embeddings"
	"github.com/hmorsi/coursewright/internal/generator"
	"github.com/hmorsi/coursewright/internal/llm"
	"github.com/hmorsi/coursewright/internal/logger"
	"github.com/hmorsi/coursewright/internal/pipeline"
	"github.com/hmorsi/coursewright/internal/qa"
	"github.com/hmorsi/coursewright/internal/retrieval"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `coursewright init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildLogger creates the shared logger; --verbose forces debug level.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logger.New(level, cfg.LogFormat)
}

// buildCache returns Redis when configured, otherwise the in-process cache.
func buildCache(ctx context.Context, cfg *config.Config, log *zap.Logger) cache.Cache {
	if cfg.Redis.Addr == "" {
		return cache.NewMemory()
	}
	c, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("redis unavailable, using in-process cache", zap.Error(err))
		return cache.NewMemory()
	}
	return c
}

// buildEmbedder creates the embedding backend wrapped in the cache.
func buildEmbedder(cfg *config.Config, c cache.Cache) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = config.ProviderOpenAI
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(provider).EmbeddingModel
	}
	embedder, err := embeddings.NewEmbedder(string(provider), model)
	if err != nil {
		return nil, err
	}
	return embeddings.NewCachedEmbedder(embedder, c), nil
}

// buildKnowledgeStore opens the persisted vector store from the data
// directory. The store must have been seeded first.
func buildKnowledgeStore(cfg *config.Config, c cache.Cache) (*retrieval.ChromemStore, error) {
	embedder, err := buildEmbedder(cfg, c)
	if err != nil {
		return nil, err
	}
	store, err := retrieval.NewChromemStore(embedder)
	if err != nil {
		return nil, err
	}
	if err := store.Load(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("loading knowledge base from %s: %w\nRun `coursewright seed` first", cfg.DataDir, err)
	}
	return store, nil
}

// buildPipeline wires the full generation stack from config.
func buildPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...pipeline.OrchestratorOption) (*pipeline.Orchestrator, *pipeline.SQLiteStore, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, nil, err
	}

	c := buildCache(ctx, cfg, log)
	knowledge, err := buildKnowledgeStore(cfg, c)
	if err != nil {
		return nil, nil, err
	}

	gen := generator.New(provider, knowledge, cfg.Model, log,
		generator.WithCache(c),
		generator.WithCacheTTL(time.Duration(cfg.CacheTTLHours)*time.Hour),
	)

	store, err := pipeline.OpenStore(filepath.Join(cfg.DataDir, "jobs.db"))
	if err != nil {
		return nil, nil, err
	}

	orch := pipeline.NewOrchestrator(
		store,
		gen,
		knowledge,
		qa.New(cfg.ConfidenceFloor),
		benchmark.New(knowledge, gen, log),
		log,
		append([]pipeline.OrchestratorOption{pipeline.WithConcurrency(cfg.MaxConcurrency)}, opts...)...,
	)
	return orch, store, nil
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
