// Package orchestrator answers questions about PDF documents: it loads or
// builds the embedding cache for a document, retrieves the most similar
// chunks and asks the configured chat backend for an answer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yates-Labs/pdfchat/internal/chat"
	"github.com/Yates-Labs/pdfchat/internal/document"
	"github.com/Yates-Labs/pdfchat/internal/pkg/logger"
	"github.com/Yates-Labs/pdfchat/internal/rag"
	"github.com/Yates-Labs/pdfchat/internal/rag/store"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrMissingComponent = errors.New("pipeline component missing")

// Config holds the tunables of the question-answering pipeline.
type Config struct {
	// ChunkSize is the chunk length in code points
	ChunkSize int

	// TopN is the number of chunks joined into the context. Unlike the
	// other fields zero is kept as is and retrieves nothing, so every
	// question gets the no-context reply.
	TopN int

	// HistorySize is how many turns each conversation remembers
	HistorySize int

	// ContentHashKeys derives cache keys from the document bytes as well as
	// its name, so an edited document is embedded again
	ContentHashKeys bool
}

// DefaultConfig returns sensible defaults for the pipeline.
func DefaultConfig() Config {
	return Config{
		ChunkSize:   document.DefaultChunkSize,
		TopN:        rag.DefaultTopN,
		HistorySize: chat.DefaultHistorySize,
	}
}

// Components are the parts shared by every conversation.
type Components struct {
	Loader    *document.Loader
	Embedder  rag.Embedder
	Store     store.Store
	Generator *chat.Generator
}

func (c Components) validate() error {
	switch {
	case c.Loader == nil:
		return fmt.Errorf("%w: loader", ErrMissingComponent)
	case c.Embedder == nil:
		return fmt.Errorf("%w: embedder", ErrMissingComponent)
	case c.Store == nil:
		return fmt.Errorf("%w: store", ErrMissingComponent)
	case c.Generator == nil:
		return fmt.Errorf("%w: generator", ErrMissingComponent)
	}
	return nil
}

// engine owns the embedding cache lifecycle. Concurrent first-time
// ingestion of one key inside this process is collapsed into one run.
type engine struct {
	Components
	config  Config
	flights singleflight.Group
}

func newEngine(c Components, cfg Config) (*engine, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = document.DefaultChunkSize
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = chat.DefaultHistorySize
	}
	return &engine{Components: c, config: cfg}, nil
}

func (e *engine) newProcessor() *Processor {
	return &Processor{
		engine: e,
		memory: chat.NewMemory(e.config.HistorySize),
	}
}

// key derives the cache key for a document name.
func (e *engine) key(name string) (string, error) {
	if !e.config.ContentHashKeys {
		return store.KeyFor(name), nil
	}
	data, err := e.Loader.ReadRaw(name)
	if err != nil {
		return "", err
	}
	return store.ContentKeyFor(name, data), nil
}

// entry returns the cached embeddings for a document, building and saving
// them first when no entry exists.
func (e *engine) entry(ctx context.Context, name string) (store.Entry, error) {
	key, err := e.key(name)
	if err != nil {
		return store.Entry{}, err
	}

	exists, err := e.Store.Exists(ctx, key)
	if err != nil {
		return store.Entry{}, err
	}
	if exists {
		ctxzap.Info(ctx, "loading precomputed embeddings", zap.String("key", key))
		return e.Store.Load(ctx, key)
	}

	// The flight outlives the caller that started it; each caller stops
	// waiting on its own context.
	flightCtx := context.WithoutCancel(ctx)
	ch := e.flights.DoChan(key, func() (any, error) {
		// Another flight may have finished between Exists and DoChan.
		if ok, err := e.Store.Exists(flightCtx, key); err == nil && ok {
			return e.Store.Load(flightCtx, key)
		}
		return e.ingest(flightCtx, name, key)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return store.Entry{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return store.Entry{}, res.Err
	}
	if res.Shared {
		ctxzap.Debug(ctx, "joined in-flight ingestion", zap.String("key", key))
	}
	return res.Val.(store.Entry), nil
}

// ingest extracts, chunks and embeds a document, one embedding call per
// chunk, and saves the result under key.
func (e *engine) ingest(ctx context.Context, name, key string) (store.Entry, error) {
	ctxzap.Info(ctx, "processing and embedding document", zap.String("key", key))

	text, err := e.Loader.Load(ctx, name)
	if err != nil {
		return store.Entry{}, err
	}

	chunks := document.Split(text, e.config.ChunkSize)
	embeddings := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := e.Embedder.Embed(ctx, chunk)
		if err != nil {
			return store.Entry{}, fmt.Errorf("embed chunk %d/%d of %s: %w", i+1, len(chunks), name, err)
		}
		embeddings = append(embeddings, vec)
	}

	entry := store.Entry{Embeddings: embeddings, Chunks: chunks}
	if err := e.Store.Save(ctx, key, entry); err != nil {
		return store.Entry{}, fmt.Errorf("save embeddings for %s: %w", name, err)
	}

	ctxzap.Info(ctx, "document embedded",
		zap.String("key", key),
		zap.Int("chunks", len(chunks)),
		zap.String("model", e.Embedder.GetModel()),
	)
	return entry, nil
}

// invalidate removes the cache entry of a document.
func (e *engine) invalidate(ctx context.Context, name string) error {
	key, err := e.key(name)
	if err != nil {
		return err
	}
	ctxzap.Info(ctx, "invalidating embedding cache", zap.String("key", key))
	return e.Store.Delete(ctx, key)
}

// Processor answers questions for one conversation. Its memory is private
// to it; a Processor must not be used by two goroutines at once.
type Processor struct {
	*engine
	memory *chat.Memory
}

// NewProcessor creates a standalone processor with its own memory.
func NewProcessor(c Components, cfg Config) (*Processor, error) {
	e, err := newEngine(c, cfg)
	if err != nil {
		return nil, err
	}
	return e.newProcessor(), nil
}

// Memory returns the processor's conversation memory.
func (p *Processor) Memory() *chat.Memory {
	return p.memory
}

// ClearConversationHistory forgets every remembered turn.
func (p *Processor) ClearConversationHistory() {
	p.memory.Clear()
}

// Ingest builds the embedding cache for a document if it is missing and
// returns the number of chunks it holds. Cancelling ctx stops the wait but
// not an ingestion already running for other callers.
func (p *Processor) Ingest(ctx context.Context, name string) (int, error) {
	ctx = logger.AddFields(ctx, zap.String("document", name))
	entry, err := p.entry(ctx, name)
	if err != nil {
		return 0, err
	}
	return len(entry.Chunks), nil
}

// Invalidate removes the cached embeddings of a document so the next
// question embeds it again.
func (p *Processor) Invalidate(ctx context.Context, name string) error {
	return p.invalidate(logger.AddFields(ctx, zap.String("document", name)), name)
}

// ProcessPDFAndAnswer answers question from the content of the named
// document. Loading, cache and embedding failures are returned as errors;
// generation failures are not, they come back as a fixed apology text.
func (p *Processor) ProcessPDFAndAnswer(ctx context.Context, name, question, systemPrompt string) (string, error) {
	ctx = logger.AddFields(ctx, zap.String("document", name))

	// Stage 1: embeddings for the document, cached
	entry, err := p.entry(ctx, name)
	if err != nil {
		return "", err
	}

	// Stage 2: embed the question
	queryVec, err := p.Embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}
	if len(entry.Embeddings) > 0 && len(entry.Embeddings[0]) != len(queryVec) {
		return "", fmt.Errorf("%w: cached %d, query %d", rag.ErrDimensionMismatch, len(entry.Embeddings[0]), len(queryVec))
	}

	// Stage 3: retrieval
	contextText := rag.Retrieve(queryVec, entry.Embeddings, entry.Chunks, p.config.TopN)
	ctxzap.Debug(ctx, "context retrieved",
		zap.Int("top_n", p.config.TopN),
		zap.Int("context_chars", len(contextText)),
	)

	// Stage 4: generation
	return p.Generator.Answer(ctx, p.memory, question, contextText, systemPrompt), nil
}
