package core

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService is the OpenAI-compatible alternative to LLMService.
type OpenAIService struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	dimensions     int
}

// NewOpenAIService builds the client. A positive dimensions asks the embedding model
// for vectors of that size; zero keeps the model's native size.
func NewOpenAIService(apiKey, baseURL, chatModel, embeddingModel string, dimensions int) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{
		client:         openai.NewClientWithConfig(cfg),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		dimensions:     dimensions,
	}
}

func (s *OpenAIService) ModelName() string {
	return s.embeddingModel
}

func (s *OpenAIService) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(s.embeddingModel),
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai returned no embedding data")
	}
	return resp.Data[0].Embedding, nil
}

var (
	_ Generator = (*OpenAIService)(nil)
	_ Embedder  = (*OpenAIService)(nil)
)
