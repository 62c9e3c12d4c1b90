package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	fileExt       = ".gob"
	formatVersion = 1

	defaultHotTTL     = 30 * time.Minute
	defaultHotCleanup = 10 * time.Minute
)

var _ Store = (*FileStore)(nil)

// fileEntry is the on-disk layout of one cache file.
type fileEntry struct {
	Version    int
	Embeddings [][]float32
	Chunks     []string
}

// FileStore keeps one gob file per key in a directory and remembers recently
// used entries in memory. It is safe for concurrent use; concurrent writers
// of the same key race and the last rename wins.
type FileStore struct {
	dir string
	hot *cache.Cache
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithHotCache overrides how long loaded entries stay in memory.
func WithHotCache(ttl, cleanup time.Duration) FileStoreOption {
	return func(s *FileStore) {
		s.hot = cache.New(ttl, cleanup)
	}
}

// NewFileStore creates dir if needed and returns a store over it.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create embeddings directory: %w", err)
	}

	s := &FileStore{
		dir: dir,
		hot: cache.New(defaultHotTTL, defaultHotCleanup),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory holding the cache files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || !filepath.IsLocal(key) || filepath.Base(key) != key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

// Exists reports whether an entry is stored under key.
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, ok := s.hot.Get(key); ok {
		return true, nil
	}

	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat cache entry: %w", err)
	}
}

// Load returns the entry under key. The returned slices are shared with the
// in-memory copy and must not be modified.
func (s *FileStore) Load(ctx context.Context, key string) (Entry, error) {
	path, err := s.path(key)
	if err != nil {
		return Entry{}, err
	}
	if v, ok := s.hot.Get(key); ok {
		return v.(Entry), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, fmt.Errorf("%w: %q", ErrNotCached, key)
		}
		return Entry{}, fmt.Errorf("open cache entry: %w", err)
	}
	defer f.Close()

	var fe fileEntry
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&fe); err != nil {
		return Entry{}, &CorruptCacheError{Key: key, Reason: "decode failed", Err: err}
	}
	if fe.Version != formatVersion {
		return Entry{}, &CorruptCacheError{Key: key, Reason: fmt.Sprintf("unsupported format version %d", fe.Version)}
	}

	entry := Entry{Embeddings: fe.Embeddings, Chunks: fe.Chunks}
	if err := entry.Validate(); err != nil {
		return Entry{}, &CorruptCacheError{Key: key, Reason: "length mismatch", Err: err}
	}

	s.hot.Set(key, entry, cache.DefaultExpiration)
	ctxzap.Debug(ctx, "embedding cache entry loaded from disk",
		zap.String("key", key),
		zap.Int("chunks", len(entry.Chunks)),
	)
	return entry, nil
}

// Save writes entry to a temporary file next to the target and renames it
// into place.
func (s *FileStore) Save(ctx context.Context, key string, entry Entry) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	entry = cloneEntry(entry)

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	fe := fileEntry{Version: formatVersion, Embeddings: entry.Embeddings, Chunks: entry.Chunks}
	if err := gob.NewEncoder(w).Encode(&fe); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace cache entry: %w", err)
	}
	committed = true

	s.hot.Set(key, entry, cache.DefaultExpiration)
	ctxzap.Debug(ctx, "embedding cache entry saved",
		zap.String("key", key),
		zap.String("path", path),
		zap.Int("chunks", len(entry.Chunks)),
	)
	return nil
}

// Delete removes the entry under key from memory and disk.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.hot.Delete(key)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

func cloneEntry(e Entry) Entry {
	embeddings := make([][]float32, len(e.Embeddings))
	for i, v := range e.Embeddings {
		embeddings[i] = slices.Clone(v)
	}
	return Entry{
		Embeddings: embeddings,
		Chunks:     slices.Clone(e.Chunks),
	}
}
