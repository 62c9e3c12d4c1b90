package document

import (
	"iter"
	"unicode/utf8"
)

// DefaultChunkSize is the chunk length in code points.
const DefaultChunkSize = 2000

// Chunks yields consecutive, non-overlapping substrings of text holding at
// most size code points each. The last chunk may be shorter; empty text
// yields nothing. Each range over the sequence starts again from the
// beginning. A non-positive size means DefaultChunkSize.
func Chunks(text string, size int) iter.Seq[string] {
	if size <= 0 {
		size = DefaultChunkSize
	}

	return func(yield func(string) bool) {
		start, n := 0, 0
		for i := range text {
			if n == size {
				if !yield(text[start:i]) {
					return
				}
				start, n = i, 0
			}
			n++
		}
		if start < len(text) {
			yield(text[start:])
		}
	}
}

// Split collects Chunks into a slice.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	for c := range Chunks(text, size) {
		chunks = append(chunks, c)
	}
	return chunks
}
