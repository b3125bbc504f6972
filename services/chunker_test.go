package services

import (
	"strings"
	"testing"
)

func TestSplitEmptyText(t *testing.T) {
	chunker := NewChunker(400, 100)
	if chunks := chunker.Split(""); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplitShortText(t *testing.T) {
	chunker := NewChunker(400, 100)
	text := "a short document"

	chunks := chunker.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Fatalf("chunk should contain the whole input, got %q", chunks[0].Text)
	}
	if chunks[0].StartOffset != 0 || chunks[0].SequenceIndex != 0 {
		t.Fatalf("unexpected offsets: start=%d seq=%d", chunks[0].StartOffset, chunks[0].SequenceIndex)
	}
}

func TestSplitExactChunkSize(t *testing.T) {
	chunker := NewChunker(400, 100)
	text := strings.Repeat("x", 400)

	chunks := chunker.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("text of exactly chunk size should yield one chunk, got %d", len(chunks))
	}
}

func TestSplitOffsetsAndCount(t *testing.T) {
	// 1000 chars with size=400 overlap=100 must produce 3 chunks at
	// offsets 0, 300, 600.
	chunker := NewChunker(400, 100)
	text := strings.Repeat("a", 1000)

	chunks := chunker.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.SequenceIndex != i {
			t.Errorf("chunk %d: sequence index %d", i, chunk.SequenceIndex)
		}
		if want := i * 300; chunk.StartOffset != want {
			t.Errorf("chunk %d: start offset %d, want %d", i, chunk.StartOffset, want)
		}
	}

	if len(chunks[0].Text) != 400 || len(chunks[1].Text) != 400 || len(chunks[2].Text) != 400 {
		t.Errorf("chunk lengths: %d %d %d", len(chunks[0].Text), len(chunks[1].Text), len(chunks[2].Text))
	}
}

func TestSplitTrailingRemainder(t *testing.T) {
	chunker := NewChunker(400, 100)
	text := strings.Repeat("b", 750)

	chunks := chunker.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	// Last chunk carries whatever remains past offset 600.
	if len(chunks[2].Text) != 150 {
		t.Fatalf("last chunk length %d, want 150", len(chunks[2].Text))
	}
}

// reassemble drops each chunk's leading overlap and concatenates the rest.
func reassemble(chunks []Chunk, overlap int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		text := []rune(chunk.Text)
		if i > 0 {
			if len(text) <= overlap {
				continue
			}
			text = text[overlap:]
		}
		b.WriteString(string(text))
	}
	return b.String()
}

func TestSplitReconstruction(t *testing.T) {
	inputs := []string{
		"",
		"tiny",
		strings.Repeat("the quick brown fox jumps over the lazy dog ", 40),
		strings.Repeat("列車は定刻通りに到着した。", 100), // multi-byte runes
		strings.Repeat("z", 399),
		strings.Repeat("z", 401),
	}
	params := []struct{ size, overlap int }{
		{400, 100},
		{400, 0},
		{50, 49},
		{7, 3},
	}

	for _, p := range params {
		chunker := NewChunker(p.size, p.overlap)
		for _, text := range inputs {
			chunks := chunker.Split(text)

			if got := reassemble(chunks, p.overlap); got != text {
				t.Errorf("size=%d overlap=%d: reconstruction mismatch (len %d vs %d)",
					p.size, p.overlap, len(got), len(text))
			}

			for i, chunk := range chunks {
				if chunk.SequenceIndex != i {
					t.Errorf("size=%d overlap=%d: chunk %d has sequence index %d",
						p.size, p.overlap, i, chunk.SequenceIndex)
				}
				if want := i * (p.size - p.overlap); chunk.StartOffset != want {
					t.Errorf("size=%d overlap=%d: chunk %d starts at %d, want %d",
						p.size, p.overlap, i, chunk.StartOffset, want)
				}
			}
		}
	}
}

func TestSplitIsPure(t *testing.T) {
	chunker := NewChunker(10, 2)
	text := strings.Repeat("c", 35)

	first := chunker.Split(text)
	second := chunker.Split(text)

	if len(first) != len(second) {
		t.Fatalf("repeated calls disagree: %d vs %d chunks", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between calls", i)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello \n\n world \t ", "hello world"},
		{"no change", "no change"},
		{"", ""},
		{"\n\t\r ", ""},
		{"a\nb\nc", "a b c"},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
