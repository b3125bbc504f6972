package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bakasura-ingest/internal/config"
	"bakasura-ingest/internal/telemetry"
	"bakasura-ingest/models"
	"bakasura-ingest/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

// Embedder produces vectors for chunk texts
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Provider() string
}

// VectorStore receives chunk documents with their vectors
type VectorStore interface {
	UploadDocuments(ctx context.Context, docs []models.SearchDocument, batchSize int) (int, error)
}

// TextExtractor turns a stored PDF file into text
type TextExtractor interface {
	Extract(ctx context.Context, filePath string) (*ExtractionResult, error)
}

// IngestionService runs the per-document pipeline: extract, chunk, embed
// in batches, upload vectors in bulks. A semaphore bounds how many
// documents are in flight at once regardless of caller concurrency, so
// the external services see at most MaxFiles parallel pipelines.
type IngestionService struct {
	cfg       *config.Config
	chunker   *Chunker
	extractor TextExtractor
	embedder  Embedder
	vectors   VectorStore
	store     DocumentStore
	metrics   *telemetry.Metrics

	sem *semaphore.Weighted
}

func NewIngestionService(
	cfg *config.Config,
	extractor TextExtractor,
	embedder Embedder,
	vectors VectorStore,
	store DocumentStore,
	metrics *telemetry.Metrics,
) *IngestionService {
	return &IngestionService{
		cfg:       cfg,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		extractor: extractor,
		embedder:  embedder,
		vectors:   vectors,
		store:     store,
		metrics:   metrics,
		sem:       semaphore.NewWeighted(int64(cfg.MaxFiles)),
	}
}

// IngestDocument processes one uploaded document end to end. Chunk order
// is preserved throughout; sequence indexes in the search index match the
// chunker's output exactly.
func (s *IngestionService) IngestDocument(ctx context.Context, doc *models.Document) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	tracer := otel.Tracer("ingestion-service")
	ctx, span := tracer.Start(ctx, "ingest.document")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.String("document.filename", doc.Filename),
	)

	if err := s.store.UpdateStatus(ctx, doc.ID, models.StatusProcessing, 0, ""); err != nil {
		return err
	}

	err := s.runPipeline(ctx, doc)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordDocument(models.StatusFailed, 0)
		}
		// Best effort; the task error is what matters for retry.
		_ = s.store.UpdateStatus(ctx, doc.ID, models.StatusFailed, 0, err.Error())
		return err
	}

	return nil
}

func (s *IngestionService) runPipeline(ctx context.Context, doc *models.Document) error {
	extractStart := time.Now()
	extraction, err := s.extractor.Extract(ctx, doc.FilePath)
	if err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordExtraction(time.Since(extractStart).Seconds(), extraction.Method)
	}

	chunks := s.chunker.Split(NormalizeText(extraction.Text))

	stored := make([]models.StoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		stored = append(stored, models.StoredChunk{
			DocumentID:    doc.ID,
			SequenceIndex: chunk.SequenceIndex,
			StartOffset:   chunk.StartOffset,
			Text:          chunk.Text,
			TextHash:      utils.HashText(chunk.Text),
			CharCount:     len([]rune(chunk.Text)),
		})
	}
	if err := s.store.ReplaceChunks(ctx, doc.ID, stored); err != nil {
		return fmt.Errorf("chunk storage: %w", err)
	}

	uploaded, err := s.embedAndUpload(ctx, doc, chunks)
	if err != nil {
		return err
	}

	meta := models.DocumentMetadata{
		Pages:            extraction.Pages,
		ProcessingTime:   extraction.ProcessingTime,
		ExtractionMethod: extraction.Method,
		OCRPages:         extraction.OCRPages,
		HasTables:        extraction.HasTables,
		WordCount:        extraction.WordCount,
		CharacterCount:   extraction.CharacterCount,
	}
	if err := s.store.Finalize(ctx, doc.ID, uploaded, meta); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordDocument(models.StatusCompleted, int64(uploaded))
	}
	return nil
}

// embedAndUpload walks the chunks in EmbedBatch batches and flushes search
// documents once UploadBatch of them are pending. Blank chunks are skipped
// before embedding. Returns the number of chunks accepted by the index.
func (s *IngestionService) embedAndUpload(ctx context.Context, doc *models.Document, chunks []Chunk) (int, error) {
	var pending []models.SearchDocument
	uploaded := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		accepted, err := s.vectors.UploadDocuments(ctx, pending, s.cfg.UploadBatch)
		if s.metrics != nil {
			s.metrics.RecordSearchUpload(int64(accepted), err == nil)
		}
		if err != nil {
			return fmt.Errorf("search upload: %w", err)
		}
		uploaded += accepted
		pending = pending[:0]
		return nil
	}

	for i := 0; i < len(chunks); i += s.cfg.EmbedBatch {
		end := i + s.cfg.EmbedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		// Skip blank chunks, keeping the original sequence mapping.
		var texts []string
		var kept []Chunk
		for _, chunk := range batch {
			if NormalizeText(chunk.Text) == "" {
				continue
			}
			texts = append(texts, chunk.Text)
			kept = append(kept, chunk)
		}
		if len(texts) == 0 {
			continue
		}

		embedStart := time.Now()
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return uploaded, fmt.Errorf("embedding batch at chunk %d: %w", i, err)
		}
		if s.metrics != nil {
			s.metrics.RecordEmbeddingBatch(time.Since(embedStart).Seconds(), s.embedder.Provider(), len(texts))
		}

		for j, chunk := range kept {
			pending = append(pending, s.searchDocument(doc, chunk, vectors[j]))
			if len(pending) >= s.cfg.UploadBatch {
				if err := flush(); err != nil {
					return uploaded, err
				}
			}
		}

		progress := (end * 100) / len(chunks)
		if progress < 100 {
			_ = s.store.UpdateStatus(ctx, doc.ID, models.StatusProcessing, progress, "")
		}
	}

	if err := flush(); err != nil {
		return uploaded, err
	}
	return uploaded, nil
}

func (s *IngestionService) searchDocument(doc *models.Document, chunk Chunk, vector []float32) models.SearchDocument {
	now := time.Now().UTC()

	metadata, _ := json.Marshal(map[string]interface{}{
		"filename":     doc.Filename,
		"document_id":  doc.ID,
		"chunk_id":     chunk.SequenceIndex,
		"start_offset": chunk.StartOffset,
		"timestamp":    now.Unix(),
	})

	return models.SearchDocument{
		ID:            utils.SanitizeSearchKey(fmt.Sprintf("%s_%d", doc.ID, chunk.SequenceIndex)),
		Content:       chunk.Text,
		ContentVector: vector,
		Filename:      doc.Filename,
		ChunkID:       chunk.SequenceIndex,
		TextHash:      utils.HashText(chunk.Text),
		Timestamp:     now.Format(time.RFC3339),
		FileType:      "pdf",
		PageNumber:    chunk.SequenceIndex + 1,
		Metadata:      string(metadata),
	}
}
