package store

import (
	"context"
	"encoding/gob"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "embeddings"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

// reopen returns a second store over the same directory so reads hit disk.
func reopen(t *testing.T, s *FileStore) *FileStore {
	t.Helper()
	other, err := NewFileStore(s.Dir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return other
}

func sampleEntry() Entry {
	return Entry{
		Embeddings: [][]float32{
			{0.1, -0.2, math.MaxFloat32},
			{math.SmallestNonzeroFloat32, 0, 1e-7},
			{1.0 / 3.0, 2.0 / 3.0, -1},
		},
		Chunks: []string{"שעות פעילות", "מספר טלפון", "חוג שחייה"},
	}
}

func TestKeyFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"info.pdf", "info_embeddings"},
		{"general_info.pdf", "general_info_embeddings"},
		{"docs/nested/report.PDF", "report_embeddings"},
		{"archive.tar.gz", "archive.tar_embeddings"},
		{"noext", "noext_embeddings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyFor(tt.name); got != tt.want {
				t.Errorf("KeyFor(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestContentKeyFor(t *testing.T) {
	a := ContentKeyFor("info.pdf", []byte("v1"))
	b := ContentKeyFor("info.pdf", []byte("v2"))
	c := ContentKeyFor("other/info.pdf", []byte("v1"))

	if a == b {
		t.Error("different content must produce different keys")
	}
	if a != c {
		t.Errorf("same base name and content must match: %q vs %q", a, c)
	}
	if !strings.HasPrefix(a, "info_") || !strings.HasSuffix(a, KeySuffix) {
		t.Errorf("unexpected key shape %q", a)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	entry := sampleEntry()

	if err := s.Save(ctx, "info_embeddings", entry); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for name, st := range map[string]*FileStore{"hot": s, "disk": reopen(t, s)} {
		t.Run(name, func(t *testing.T) {
			got, err := st.Load(ctx, "info_embeddings")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			assertEntryEqual(t, entry, got)
		})
	}
}

func TestFileStore_SaveCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	entry := sampleEntry()

	if err := s.Save(ctx, "k", entry); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entry.Embeddings[0][0] = 42
	entry.Chunks[0] = "changed"

	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertEntryEqual(t, sampleEntry(), got)
}

func TestFileStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.Exists(ctx, "info_embeddings")
	if err != nil || ok {
		t.Fatalf("expected missing entry, got ok=%v err=%v", ok, err)
	}

	if err := s.Save(ctx, "info_embeddings", sampleEntry()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ok, err = reopen(t, s).Exists(ctx, "info_embeddings")
	if err != nil || !ok {
		t.Fatalf("expected stored entry, got ok=%v err=%v", ok, err)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	_, err := newTestStore(t).Load(context.Background(), "missing_embeddings")
	if !errors.Is(err, ErrNotCached) {
		t.Errorf("expected ErrNotCached, got %v", err)
	}
}

func TestFileStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Save(ctx, "k", sampleEntry()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := Entry{Embeddings: [][]float32{{9, 9}}, Chunks: []string{"only"}}
	if err := s.Save(ctx, "k", second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := reopen(t, s).Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertEntryEqual(t, second, got)

	files, _ := filepath.Glob(filepath.Join(s.Dir(), "*.tmp"))
	if len(files) != 0 {
		t.Errorf("temporary files left behind: %v", files)
	}
}

func TestFileStore_RejectsMismatchedEntry(t *testing.T) {
	err := newTestStore(t).Save(context.Background(), "k", Entry{
		Embeddings: [][]float32{{1}},
		Chunks:     []string{"a", "b"},
	})
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestFileStore_InvalidKey(t *testing.T) {
	s := newTestStore(t)
	for _, key := range []string{"", "../escape", "a/b", "/abs"} {
		if _, err := s.Exists(context.Background(), key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path := filepath.Join(s.Dir(), "bad_embeddings"+fileExt)
	if err := os.WriteFile(path, []byte("definitely not gob"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.Load(ctx, "bad_embeddings")
	if !errors.Is(err, ErrCorruptCache) {
		t.Fatalf("expected ErrCorruptCache, got %v", err)
	}
	var cce *CorruptCacheError
	if !errors.As(err, &cce) || cce.Key != "bad_embeddings" {
		t.Errorf("expected *CorruptCacheError for key, got %v", err)
	}
}

func TestFileStore_CorruptLengthMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Bypass Save's validation to simulate a damaged file.
	writeRaw(t, s, "odd_embeddings", fileEntry{
		Version:    formatVersion,
		Embeddings: [][]float32{{1}, {2}},
		Chunks:     []string{"one"},
	})

	_, err := s.Load(ctx, "odd_embeddings")
	if !errors.Is(err, ErrCorruptCache) {
		t.Fatalf("expected ErrCorruptCache, got %v", err)
	}
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("expected wrapped ErrInvalidEntry, got %v", err)
	}
}

func TestFileStore_CorruptVersion(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, s, "old_embeddings", fileEntry{Version: 99})

	_, err := s.Load(context.Background(), "old_embeddings")
	if !errors.Is(err, ErrCorruptCache) {
		t.Fatalf("expected ErrCorruptCache, got %v", err)
	}
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Save(ctx, "k", sampleEntry()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("entry still exists after delete")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting a missing entry should succeed, got %v", err)
	}
}

func TestFileStore_HotCacheExpiry(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), WithHotCache(time.Millisecond, time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "k", sampleEntry()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load after expiry: %v", err)
	}
	assertEntryEqual(t, sampleEntry(), got)
}

func TestFileStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := Entry{
				Embeddings: [][]float32{{float32(i), float32(i)}},
				Chunks:     []string{strings.Repeat("x", i+1)},
			}
			if err := s.Save(ctx, "race_embeddings", entry); err != nil {
				t.Errorf("Save %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := reopen(t, s).Load(ctx, "race_embeddings")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Chunks) != 1 || len(got.Embeddings) != 1 {
		t.Fatalf("unexpected entry shape %+v", got)
	}
	// Whichever writer won, its pair must be intact.
	i := len(got.Chunks[0]) - 1
	if got.Embeddings[0][0] != float32(i) {
		t.Errorf("embedding %v does not belong to chunk of writer %d", got.Embeddings[0], i)
	}
}

func assertEntryEqual(t *testing.T, want, got Entry) {
	t.Helper()
	if len(got.Chunks) != len(want.Chunks) || len(got.Embeddings) != len(want.Embeddings) {
		t.Fatalf("shape mismatch: got %d/%d, want %d/%d",
			len(got.Embeddings), len(got.Chunks), len(want.Embeddings), len(want.Chunks))
	}
	for i := range want.Chunks {
		if got.Chunks[i] != want.Chunks[i] {
			t.Errorf("chunk %d = %q, want %q", i, got.Chunks[i], want.Chunks[i])
		}
	}
	for i := range want.Embeddings {
		if len(got.Embeddings[i]) != len(want.Embeddings[i]) {
			t.Fatalf("embedding %d has %d values, want %d", i, len(got.Embeddings[i]), len(want.Embeddings[i]))
		}
		for j := range want.Embeddings[i] {
			if math.Float32bits(got.Embeddings[i][j]) != math.Float32bits(want.Embeddings[i][j]) {
				t.Errorf("embedding[%d][%d] = %v, want %v", i, j, got.Embeddings[i][j], want.Embeddings[i][j])
			}
		}
	}
}

func writeRaw(t *testing.T, s *FileStore, key string, fe fileEntry) {
	t.Helper()
	f, err := os.Create(filepath.Join(s.Dir(), key+fileExt))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(&fe); err != nil {
		t.Fatal(err)
	}
}
