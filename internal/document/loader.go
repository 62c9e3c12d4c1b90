// Package document turns PDF files from the documents directory into plain
// text and splits that text into fixed-size chunks for embedding.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrExtractionFailed = errors.New("text extraction failed")
)

// NotFoundError reports a document name that does not resolve to a file
// inside the documents directory.
type NotFoundError struct {
	Name string
	Dir  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q in %q", ErrNotFound, e.Name, e.Dir)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Extractor returns the text of every page of a document, in page order.
type Extractor interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// Loader reads documents by name from a read-only directory.
type Loader struct {
	dir       string
	extractor Extractor
}

// NewLoader creates a loader over dir. A nil extractor means PDFExtractor.
func NewLoader(dir string, extractor Extractor) *Loader {
	if extractor == nil {
		extractor = PDFExtractor{}
	}
	return &Loader{
		dir:       dir,
		extractor: extractor,
	}
}

// Dir returns the documents directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Path resolves name inside the documents directory. Names that would
// escape the directory are reported as not found.
func (l *Loader) Path(name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", &NotFoundError{Name: name, Dir: l.dir}
	}

	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", &NotFoundError{Name: name, Dir: l.dir}
	}
	return path, nil
}

// ReadRaw returns the bytes of the named document.
func (l *Loader) ReadRaw(name string) ([]byte, error) {
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Load extracts the full text of the named document. Pages are concatenated
// without separators, so a chunk may straddle a page boundary.
func (l *Loader) Load(ctx context.Context, name string) (string, error) {
	path, err := l.Path(name)
	if err != nil {
		return "", err
	}

	pages, err := l.extractor.ExtractPages(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, name, err)
	}

	text := strings.Join(pages, "")
	ctxzap.Debug(ctx, "document extracted",
		zap.String("document", name),
		zap.Int("pages", len(pages)),
		zap.Int("chars", len([]rune(text))),
	)

	return text, nil
}
