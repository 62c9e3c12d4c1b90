package document

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// MaxPages bounds the page count accepted from a document's page tree.
const MaxPages = 100_000

var ErrMalformedPDF = errors.New("malformed PDF")

// PDFExtractor reads page text with github.com/ledongthuc/pdf.
type PDFExtractor struct{}

// ExtractPages returns the plain text of each page. Pages without content
// or whose text cannot be decoded contribute an empty string. A page count
// that cannot be right for the file, or a page tree the reader cannot walk,
// is reported as ErrMalformedPDF.
func (PDFExtractor) ExtractPages(ctx context.Context, path string) (pages []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	// the reader panics on objects it cannot resolve
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	// every page needs at least one byte of the file
	pageCount := reader.NumPage()
	if pageCount < 0 || pageCount > MaxPages || int64(pageCount) > info.Size() {
		return nil, fmt.Errorf("%w: page count %d", ErrMalformedPDF, pageCount)
	}

	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			ctxzap.Warn(ctx, "failed to extract text from page",
				zap.String("path", path),
				zap.Int("page", i),
				zap.Error(err),
			)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}
