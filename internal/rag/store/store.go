// Package store persists the (embeddings, chunks) pair computed for a document
// so that a document is embedded only once.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// KeySuffix is appended to the document base name to form a cache key.
const KeySuffix = "_embeddings"

var (
	ErrNotCached    = errors.New("no cache entry for key")
	ErrCorruptCache = errors.New("corrupt embedding cache entry")
	ErrInvalidEntry = errors.New("invalid embedding cache entry")
	ErrInvalidKey   = errors.New("invalid cache key")
)

// CorruptCacheError reports an entry that cannot be decoded or whose
// embeddings and chunks have different lengths.
type CorruptCacheError struct {
	Key    string
	Reason string
	Err    error
}

func (e *CorruptCacheError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %s: %v", ErrCorruptCache, e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %q: %s", ErrCorruptCache, e.Key, e.Reason)
}

func (e *CorruptCacheError) Is(target error) bool {
	return target == ErrCorruptCache
}

func (e *CorruptCacheError) Unwrap() error {
	return e.Err
}

// Entry pairs chunk texts with their embeddings by position.
type Entry struct {
	Embeddings [][]float32
	Chunks     []string
}

// Validate checks the positional pairing invariant.
func (e Entry) Validate() error {
	if len(e.Embeddings) != len(e.Chunks) {
		return fmt.Errorf("%w: %d embeddings for %d chunks", ErrInvalidEntry, len(e.Embeddings), len(e.Chunks))
	}
	return nil
}

// Store reads and writes cache entries. A successful Load always returns
// exactly what the last Save wrote for that key.
type Store interface {
	// Exists reports whether an entry is stored under key
	Exists(ctx context.Context, key string) (bool, error)

	// Load returns the entry under key, ErrNotCached if there is none,
	// or a *CorruptCacheError if it cannot be read back intact
	Load(ctx context.Context, key string) (Entry, error)

	// Save replaces the entry under key; readers never see a partial write
	Save(ctx context.Context, key string, entry Entry) error

	// Delete removes the entry under key; missing entries are not an error
	Delete(ctx context.Context, key string) error
}

// KeyFor derives the cache key from a document name: the base name without
// its extension plus KeySuffix. A changed document keeps the same key.
func KeyFor(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + KeySuffix
}

// ContentKeyFor is KeyFor with a short content hash, so editing a document
// produces a new key instead of reusing stale embeddings.
func ContentKeyFor(name string, content []byte) string {
	sum := sha256.Sum256(content)
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_" + hex.EncodeToString(sum[:6]) + KeySuffix
}
