package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Common errors for embedding operations
var (
	ErrEmptyText         = errors.New("no text provided for embedding")
	ErrMissingAPIKey     = errors.New("OPENAI_API_KEY not set")
	ErrEmbeddingService  = errors.New("embedding service request failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder turns one text into one vector with a synchronous call.
// It performs no retries; callers decide what to do with a failure.
type Embedder interface {
	// Embed returns the embedding vector for text
	Embed(ctx context.Context, text string) ([]float32, error)

	// GetModel returns the embedding model identifier
	GetModel() string
}

// OpenAIEmbedder implements the Embedder interface using OpenAI's API
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates a new OpenAI embedder instance.
// A dimension of 0 leaves the vector length to the model.
func NewOpenAIEmbedder(apiKey, model string, dimension int, opts ...option.RequestOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     model,
		dimension: dimension,
	}, nil
}

// GetModel returns the embedding model identifier
func (e *OpenAIEmbedder) GetModel() string {
	return e.model
}

// GetDimension returns the requested vector dimension, 0 for the model default
func (e *OpenAIEmbedder) GetDimension() int {
	return e.dimension
}

// Embed generates the embedding for text using OpenAI's API
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingService)
	}

	data := resp.Data[0].Embedding
	embedding := make([]float32, len(data))
	for i, val := range data {
		embedding[i] = float32(val)
	}

	if e.dimension > 0 && len(embedding) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), e.dimension)
	}

	return embedding, nil
}
