package services

import (
	"regexp"
	"strings"
)

// Chunk is a contiguous window of a document's extracted text. StartOffset
// and SequenceIndex survive to the search index so answers can be cited
// back to their position in the source document.
type Chunk struct {
	Text          string
	StartOffset   int
	SequenceIndex int
}

// Chunker splits text into overlapping fixed-size windows for embedding.
// Size and overlap are validated once at configuration load; the chunker
// assumes 0 <= overlap < size and does not re-check per call.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		size:    size,
		overlap: overlap,
	}
}

// Split partitions text into chunks. Chunk i starts at offset i*(size-overlap)
// and spans min(size, remaining) characters, so consecutive chunks share
// `overlap` characters and concatenating the chunks with overlaps removed
// reconstructs the input exactly. Offsets count runes, not bytes.
func (c *Chunker) Split(text string) []Chunk {
	if len(text) == 0 {
		return nil
	}

	runes := []rune(text)
	stride := c.size - c.overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			Text:          string(runes[start:end]),
			StartOffset:   start,
			SequenceIndex: len(chunks),
		})

		if end == len(runes) {
			break
		}
	}

	return chunks
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeText collapses whitespace runs to single spaces and trims the
// ends, matching what the extraction stage feeds to the chunker.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
