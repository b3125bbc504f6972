package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"bakasura-ingest/internal/logger"
	"bakasura-ingest/models"
	"bakasura-ingest/services"
)

const (
	TaskIngestDocument = "document:ingest"
)

type IngestPayload struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	FilePath   string `json:"file_path"`
}

// NewIngestTask enqueues one uploaded file for the full pipeline. Retries
// are safe: chunk keys are deterministic and search uploads use
// mergeOrUpload, so a rerun converges on the same index state.
func NewIngestTask(documentID, filename, filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		DocumentID: documentID,
		Filename:   filename,
		FilePath:   filePath,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// Task handlers
type TaskProcessor struct {
	ingestion *services.IngestionService
}

func NewTaskProcessor(ingestion *services.IngestionService) *TaskProcessor {
	return &TaskProcessor{ingestion: ingestion}
}

func (p *TaskProcessor) HandleIngestDocument(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing document", "document_id", payload.DocumentID, "filename", payload.Filename)

	doc := &models.Document{
		ID:       payload.DocumentID,
		Filename: payload.Filename,
		FilePath: payload.FilePath,
	}

	if err := p.ingestion.IngestDocument(ctx, doc); err != nil {
		logger.Error("Document ingestion failed",
			"document_id", payload.DocumentID,
			"error", err)
		return err
	}

	logger.Info("Document ingestion completed", "document_id", payload.DocumentID)
	return nil
}
