package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gwi.com/drive-agent/internal/config"
	"gwi.com/drive-agent/internal/core"
	"gwi.com/drive-agent/internal/extract"
	"gwi.com/drive-agent/internal/session"
	"gwi.com/drive-agent/internal/source"
	"gwi.com/drive-agent/internal/store"
)

type model interface {
	core.Generator
	core.Embedder
}

// app holds the long-lived components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	store  store.VectorStore
	model  model
	closer []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	vs, err := openVectorStore(ctx, cfg.VectorStore, logger)
	if err != nil {
		return nil, err
	}
	a.store = vs
	a.closer = append(a.closer, func() { vs.Close() })

	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		a.model = core.NewOpenAIService(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL,
			cfg.LLM.OpenAIModel, cfg.LLM.OpenAIEmbeddingModel, cfg.LLM.OpenAIEmbeddingDimensions)
	default:
		gemini, err := core.NewLLMService(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, cfg.LLM.GeminiEmbeddingModel, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.model = gemini
		a.closer = append(a.closer, gemini.Close)
	}
	logger.Info("model configured", zap.String("provider", cfg.LLM.Provider), zap.String("embedding_model", a.model.ModelName()))
	return a, nil
}

func openVectorStore(ctx context.Context, cfg config.VectorStoreConfig, logger *zap.Logger) (store.VectorStore, error) {
	switch cfg.Type {
	case config.StorePostgres:
		s, err := store.NewPostgresStore(ctx, cfg.PostgresDSN, cfg.EmbeddingDimension)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return s, nil
	default:
		s, err := store.NewSQLiteStore(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return s, nil
	}
}

func (a *app) ingestion(ctx context.Context) (*core.IngestionCoordinator, error) {
	var (
		src source.Client
		err error
	)
	switch a.cfg.Source.Type {
	case config.SourceS3:
		s3cfg := a.cfg.Source.S3
		src, err = source.NewS3Client(ctx, source.S3Config{
			Endpoint:        s3cfg.Endpoint,
			Region:          s3cfg.Region,
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
	default:
		src, err = source.NewDriveClient(ctx, a.cfg.Source.GoogleCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file source: %w", err)
	}

	opts := core.IngestionOptions{
		DownloadDir: a.cfg.Ingestion.DownloadDir,
		ChunkSize:   a.cfg.Ingestion.ChunkSize,
	}
	return core.NewIngestionCoordinator(src, a.store, extract.New(), a.model, opts, a.logger.Named("ingest")), nil
}

func (a *app) chat(ctx context.Context) (*core.ChatService, error) {
	ttl := time.Duration(a.cfg.Session.TTLMinutes) * time.Minute

	var states core.StateStore
	switch a.cfg.Session.Store {
	case config.SessionRedis:
		rs, err := session.NewRedisStore(ctx, a.cfg.Session.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		a.closer = append(a.closer, func() { rs.Close() })
		states = rs
	default:
		states = session.NewMemoryStore(ttl)
	}

	retriever := core.NewRetrievalService(a.store, a.model, a.cfg.LLM.EmbedCacheSize, a.logger.Named("retrieval"))
	return core.NewChatService(retriever, a.model, states, a.cfg.Ingestion.TopN, a.logger.Named("chat")), nil
}

// Close releases components in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		a.closer[i]()
	}
}
