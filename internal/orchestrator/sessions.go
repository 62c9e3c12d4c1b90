package orchestrator

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultSessionTTL is how long an idle conversation keeps its memory.
const DefaultSessionTTL = time.Hour

// Sessions hands out one Processor per conversation key, so every chat topic
// has its own bounded memory while sharing the embedding cache and backend.
// Conversations idle for longer than the TTL are forgotten.
type Sessions struct {
	engine     *engine
	processors *cache.Cache
}

// NewSessions creates a registry over the shared components.
func NewSessions(c Components, cfg Config, ttl time.Duration) (*Sessions, error) {
	e, err := newEngine(c, cfg)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		engine:     e,
		processors: cache.New(ttl, ttl/2),
	}, nil
}

// Processor returns the processor for key, creating it on first use. Each
// access restarts the idle timer.
func (s *Sessions) Processor(key string) *Processor {
	if v, ok := s.processors.Get(key); ok {
		s.processors.Set(key, v, cache.DefaultExpiration)
		return v.(*Processor)
	}

	p := s.engine.newProcessor()
	if err := s.processors.Add(key, p, cache.DefaultExpiration); err != nil {
		// Lost a race with another caller creating the same key.
		if v, ok := s.processors.Get(key); ok {
			return v.(*Processor)
		}
	}
	return p
}

// Ask answers question within the conversation identified by key.
func (s *Sessions) Ask(ctx context.Context, key, name, question, systemPrompt string) (string, error) {
	return s.Processor(key).ProcessPDFAndAnswer(ctx, name, question, systemPrompt)
}

// Reset clears the memory of one conversation.
func (s *Sessions) Reset(key string) {
	if v, ok := s.processors.Get(key); ok {
		v.(*Processor).ClearConversationHistory()
	}
}

// Forget drops a conversation entirely.
func (s *Sessions) Forget(key string) {
	s.processors.Delete(key)
}

// Len returns the number of live conversations.
func (s *Sessions) Len() int {
	return s.processors.ItemCount()
}

// Ingest builds the embedding cache for a document.
func (s *Sessions) Ingest(ctx context.Context, name string) (int, error) {
	return s.engine.newProcessor().Ingest(ctx, name)
}

// Invalidate removes the cached embeddings of a document.
func (s *Sessions) Invalidate(ctx context.Context, name string) error {
	return s.engine.newProcessor().Invalidate(ctx, name)
}
