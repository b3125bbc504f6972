package models

import (
	"time"
)

// Document represents one uploaded PDF tracked through the ingestion pipeline
type Document struct {
	ID           string           `bson:"_id" json:"id"`
	Filename     string           `bson:"filename" json:"filename"`
	FilePath     string           `bson:"file_path" json:"-"`
	FileHash     string           `bson:"file_hash" json:"file_hash"`
	Size         int64            `bson:"size" json:"size"`
	Status       string           `bson:"status" json:"status"` // pending, processing, completed, failed
	Progress     int              `bson:"progress" json:"progress"`
	ChunkCount   int              `bson:"chunk_count" json:"chunk_count"`
	ErrorMessage string           `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt    time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time       `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	Metadata     DocumentMetadata `bson:"metadata" json:"metadata"`
}

// DocumentMetadata contains extraction metadata
type DocumentMetadata struct {
	Pages            int           `bson:"pages" json:"pages"`
	ProcessingTime   time.Duration `bson:"processing_time" json:"processing_time"`
	ExtractionMethod string        `bson:"extraction_method" json:"extraction_method"`
	OCRPages         int           `bson:"ocr_pages" json:"ocr_pages"`
	HasTables        bool          `bson:"has_tables" json:"has_tables"`
	WordCount        int           `bson:"word_count" json:"word_count"`
	CharacterCount   int           `bson:"character_count" json:"character_count"`
}

// StoredChunk is a chunk persisted alongside its document for citation and
// reprocessing. The text is compressed before storage; only the embedding
// derived from it lives in the search index.
type StoredChunk struct {
	DocumentID    string `bson:"document_id" json:"document_id"`
	SequenceIndex int    `bson:"sequence_index" json:"sequence_index"`
	StartOffset   int    `bson:"start_offset" json:"start_offset"`
	Text          string `bson:"text" json:"text"`
	Compressed    bool   `bson:"compressed,omitempty" json:"-"`
	Compression   string `bson:"compression,omitempty" json:"-"`
	TextHash      string `bson:"text_hash" json:"text_hash"`
	CharCount     int    `bson:"char_count" json:"char_count"`
}

// SearchDocument is the Azure AI Search payload for one chunk.
// Field names match the index schema.
type SearchDocument struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	ContentVector []float32 `json:"content_vector"`
	Filename      string    `json:"filename"`
	ChunkID       int       `json:"chunk_id"`
	TextHash      string    `json:"text_hash"`
	Timestamp     string    `json:"timestamp"`
	FileType      string    `json:"file_type"`
	PageNumber    int       `json:"page_number"`
	Metadata      string    `json:"metadata"`
}

// UploadResponse represents the response after an accepted upload
type UploadResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Status    string    `json:"status"`
	TaskID    string    `json:"task_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Document processing status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
