package utils

import (
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	text := strings.Repeat("Azure AI Search stores one vector per chunk. ", 50)

	compressed, algorithm, err := CompressText(text)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if algorithm != CompressionBrotli {
		t.Fatalf("expected brotli for large text, got %s", algorithm)
	}
	if len(compressed) >= len(text) {
		t.Fatalf("compression did not shrink repetitive text: %d >= %d", len(compressed), len(text))
	}

	got, err := DecompressText(compressed, algorithm)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if got != text {
		t.Fatal("round trip mismatch")
	}
}

func TestSmallChunksSkipCompression(t *testing.T) {
	text := "short chunk"

	compressed, algorithm, err := CompressText(text)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if algorithm != CompressionNone {
		t.Fatalf("expected none for small text, got %s", algorithm)
	}
	if string(compressed) != text {
		t.Fatal("small text should pass through unchanged")
	}
}

func TestGzipRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("gzip path still supported for old records ", 30))

	compressed, err := CompressData(data, CompressionGzip)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	got, err := DecompressData(compressed, CompressionGzip)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(got) != string(data) {
		t.Fatal("round trip mismatch")
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := CompressData([]byte("x"), CompressionAlgorithm("zstd")); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}
