package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"bakasura-ingest/internal/config"
	"bakasura-ingest/models"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, filePath string) (*ExtractionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ExtractionResult{
		Text:           f.text,
		Pages:          1,
		Method:         "native",
		CharacterCount: len(f.text),
	}, nil
}

type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.batches = append(f.batches, texts)
	f.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1.0}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Provider() string { return "fake" }

type fakeVectorStore struct {
	mu   sync.Mutex
	docs []models.SearchDocument
	err  error
}

func (f *fakeVectorStore) UploadDocuments(ctx context.Context, docs []models.SearchDocument, batchSize int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	f.docs = append(f.docs, docs...)
	f.mu.Unlock()
	return len(docs), nil
}

type fakeDocumentStore struct {
	mu         sync.Mutex
	statuses   []string
	chunks     []models.StoredChunk
	finalized  bool
	chunkCount int
}

func (f *fakeDocumentStore) UpdateStatus(ctx context.Context, id, status string, progress int, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeDocumentStore) ReplaceChunks(ctx context.Context, id string, chunks []models.StoredChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = chunks
	return nil
}

func (f *fakeDocumentStore) Finalize(ctx context.Context, id string, chunkCount int, meta models.DocumentMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = true
	f.chunkCount = chunkCount
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		ChunkSize:    400,
		ChunkOverlap: 100,
		MaxFiles:     2,
		EmbedBatch:   32,
		UploadBatch:  100,
	}
}

func TestIngestDocumentPipeline(t *testing.T) {
	text := strings.Repeat("a", 1000)
	extractor := &fakeExtractor{text: text}
	embedder := &fakeEmbedder{}
	vectors := &fakeVectorStore{}
	store := &fakeDocumentStore{}

	svc := NewIngestionService(testConfig(), extractor, embedder, vectors, store, nil)
	doc := &models.Document{ID: "doc-1", Filename: "report.pdf", FilePath: "/tmp/doc-1.pdf"}

	if err := svc.IngestDocument(context.Background(), doc); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	// 1000 chars at size=400 overlap=100 is 3 chunks.
	if len(vectors.docs) != 3 {
		t.Fatalf("expected 3 search documents, got %d", len(vectors.docs))
	}
	for i, sd := range vectors.docs {
		if sd.ChunkID != i {
			t.Errorf("search doc %d has chunk id %d", i, sd.ChunkID)
		}
		if sd.Filename != "report.pdf" {
			t.Errorf("search doc %d has filename %q", i, sd.Filename)
		}
		if len(sd.ContentVector) == 0 {
			t.Errorf("search doc %d has no vector", i)
		}
		if strings.ContainsAny(sd.ID, " ().") {
			t.Errorf("search doc %d has unsanitized key %q", i, sd.ID)
		}
	}

	if len(store.chunks) != 3 {
		t.Fatalf("expected 3 stored chunks, got %d", len(store.chunks))
	}
	for i, chunk := range store.chunks {
		if chunk.SequenceIndex != i {
			t.Errorf("stored chunk %d has sequence index %d", i, chunk.SequenceIndex)
		}
		if chunk.StartOffset != i*300 {
			t.Errorf("stored chunk %d starts at %d", i, chunk.StartOffset)
		}
	}

	if !store.finalized {
		t.Fatal("document was not finalized")
	}
	if store.chunkCount != 3 {
		t.Fatalf("finalized with chunk count %d", store.chunkCount)
	}
	if store.statuses[0] != models.StatusProcessing {
		t.Fatalf("first status transition was %q", store.statuses[0])
	}
}

func TestIngestDocumentEmptyText(t *testing.T) {
	extractor := &fakeExtractor{text: "   \n\t  "}
	embedder := &fakeEmbedder{}
	vectors := &fakeVectorStore{}
	store := &fakeDocumentStore{}

	svc := NewIngestionService(testConfig(), extractor, embedder, vectors, store, nil)
	doc := &models.Document{ID: "doc-2", Filename: "blank.pdf"}

	if err := svc.IngestDocument(context.Background(), doc); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if len(embedder.batches) != 0 {
		t.Fatalf("blank document should not reach the embedder, got %d batches", len(embedder.batches))
	}
	if len(vectors.docs) != 0 {
		t.Fatalf("blank document should not reach the index, got %d docs", len(vectors.docs))
	}
	if !store.finalized || store.chunkCount != 0 {
		t.Fatalf("blank document should finalize with zero chunks, got finalized=%v count=%d", store.finalized, store.chunkCount)
	}
}

func TestIngestDocumentEmbeddingBatches(t *testing.T) {
	// 100 chunks of 10 chars each with no overlap; embed batch of 32
	// should produce 4 embedding calls.
	cfg := testConfig()
	cfg.ChunkSize = 10
	cfg.ChunkOverlap = 0
	cfg.EmbedBatch = 32
	cfg.UploadBatch = 40

	extractor := &fakeExtractor{text: strings.Repeat("b", 1000)}
	embedder := &fakeEmbedder{}
	vectors := &fakeVectorStore{}
	store := &fakeDocumentStore{}

	svc := NewIngestionService(cfg, extractor, embedder, vectors, store, nil)
	doc := &models.Document{ID: "doc-3", Filename: "large.pdf"}

	if err := svc.IngestDocument(context.Background(), doc); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if len(embedder.batches) != 4 {
		t.Fatalf("expected 4 embedding batches, got %d", len(embedder.batches))
	}
	if len(embedder.batches[0]) != 32 || len(embedder.batches[3]) != 4 {
		t.Fatalf("unexpected batch sizes: first=%d last=%d", len(embedder.batches[0]), len(embedder.batches[3]))
	}
	if len(vectors.docs) != 100 {
		t.Fatalf("expected 100 uploaded documents, got %d", len(vectors.docs))
	}
	for i, sd := range vectors.docs {
		if sd.ChunkID != i {
			t.Fatalf("upload order broken at %d (chunk id %d)", i, sd.ChunkID)
		}
	}
}

func TestIngestDocumentEmbeddingFailure(t *testing.T) {
	extractor := &fakeExtractor{text: strings.Repeat("c", 500)}
	embedder := &fakeEmbedder{err: errors.New("quota exhausted")}
	vectors := &fakeVectorStore{}
	store := &fakeDocumentStore{}

	svc := NewIngestionService(testConfig(), extractor, embedder, vectors, store, nil)
	doc := &models.Document{ID: "doc-4", Filename: "fail.pdf"}

	err := svc.IngestDocument(context.Background(), doc)
	if err == nil {
		t.Fatal("expected error from embedding failure")
	}
	if !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("error should wrap the provider failure: %v", err)
	}

	last := store.statuses[len(store.statuses)-1]
	if last != models.StatusFailed {
		t.Fatalf("document should be marked failed, last status %q", last)
	}
	if store.finalized {
		t.Fatal("failed document must not be finalized")
	}
}

func TestIngestDocumentExtractionFailure(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("corrupt xref table")}
	store := &fakeDocumentStore{}

	svc := NewIngestionService(testConfig(), extractor, &fakeEmbedder{}, &fakeVectorStore{}, store, nil)
	doc := &models.Document{ID: "doc-5", Filename: "corrupt.pdf"}

	if err := svc.IngestDocument(context.Background(), doc); err == nil {
		t.Fatal("expected error from extraction failure")
	}
	last := store.statuses[len(store.statuses)-1]
	if last != models.StatusFailed {
		t.Fatalf("document should be marked failed, last status %q", last)
	}
}
