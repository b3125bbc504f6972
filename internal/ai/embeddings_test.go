package ai

import (
	"context"
	"os"
	"testing"

	"bakasura-ingest/internal/config"
)

func TestEmbedBatchLive(t *testing.T) {
	if os.Getenv("AZURE_OPENAI_API_KEY") == "" && os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("no embeddings credentials set")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("config load failed: %v", err)
	}

	svc, err := NewEmbeddingService(cfg, nil)
	if err != nil {
		t.Fatalf("service init failed: %v", err)
	}

	vectors, err := svc.EmbedBatch(context.Background(), []string{"hello world", "second input"})
	if err != nil {
		t.Fatalf("embedding error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			t.Fatalf("vector %d is empty", i)
		}
	}
}

func TestNewEmbeddingServiceRejectsUnknownProvider(t *testing.T) {
	cfg := &config.Config{EmbeddingsProvider: "local"}
	if _, err := NewEmbeddingService(cfg, nil); err == nil {
		t.Fatal("unknown provider should be rejected")
	}
}
