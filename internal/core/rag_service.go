package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"gwi.com/drive-agent/internal/store"
)

const (
	NumRelevantChunks = 3 // chunks retrieved per question

	embedCacheTTL = 30 * time.Minute
)

// RetrievalService finds the stored chunks most similar to a query. Query embeddings
// are cached so a repeated question does not hit the embedding API again.
type RetrievalService struct {
	docs     store.Documents
	embedder Embedder
	cache    *expirable.LRU[string, []float32]
	logger   *zap.Logger
}

func NewRetrievalService(docs store.Documents, embedder Embedder, cacheSize int, logger *zap.Logger) *RetrievalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RetrievalService{docs: docs, embedder: embedder, logger: logger}
	if cacheSize > 0 {
		s.cache = expirable.NewLRU[string, []float32](cacheSize, nil, embedCacheTTL)
	}
	return s
}

// Search returns the text of up to topN chunks, most relevant first. A blank query
// matches nothing and is never embedded.
func (s *RetrievalService) Search(ctx context.Context, query string, topN int) ([]string, error) {
	if topN <= 0 {
		topN = NumRelevantChunks
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vec, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}

	chunks, err := s.docs.Query(ctx, vec, topN)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	s.logger.Debug("retrieved chunks", zap.Int("count", len(texts)), zap.Int("top_n", topN))
	return texts, nil
}

func (s *RetrievalService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if s.cache == nil {
		return s.embedder.Embed(ctx, query)
	}
	key := s.embedder.ModelName() + "\x00" + query
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, vec)
	return vec, nil
}
