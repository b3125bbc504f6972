package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"bakasura-ingest/models"
	"bakasura-ingest/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DocumentStore persists document records and their chunks
type DocumentStore interface {
	UpdateStatus(ctx context.Context, id, status string, progress int, errMsg string) error
	ReplaceChunks(ctx context.Context, id string, chunks []models.StoredChunk) error
	Finalize(ctx context.Context, id string, chunkCount int, meta models.DocumentMetadata) error
}

// MongoDocumentStore backs DocumentStore with the documents and
// document_chunks collections.
type MongoDocumentStore struct {
	documents *mongo.Collection
	chunks    *mongo.Collection
}

func NewMongoDocumentStore(db *mongo.Database) *MongoDocumentStore {
	return &MongoDocumentStore{
		documents: db.Collection("documents"),
		chunks:    db.Collection("document_chunks"),
	}
}

func (s *MongoDocumentStore) UpdateStatus(ctx context.Context, id, status string, progress int, errMsg string) error {
	update := bson.M{
		"status":     status,
		"progress":   progress,
		"updated_at": time.Now(),
	}
	if errMsg != "" {
		update["error_message"] = errMsg
	}

	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// ReplaceChunks swaps the stored chunk set for a document. Chunk text is
// compressed before insert; re-ingestion after an asynq retry starts clean.
func (s *MongoDocumentStore) ReplaceChunks(ctx context.Context, id string, chunks []models.StoredChunk) error {
	if _, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": id}); err != nil {
		return fmt.Errorf("failed to clear existing chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]interface{}, len(chunks))
	for i, chunk := range chunks {
		compressed, algorithm, err := utils.CompressText(chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to compress chunk %d: %w", chunk.SequenceIndex, err)
		}
		if algorithm != utils.CompressionNone {
			chunk.Text = base64.StdEncoding.EncodeToString(compressed)
			chunk.Compressed = true
			chunk.Compression = string(algorithm)
		}
		docs[i] = chunk
	}

	_, err := s.chunks.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

func (s *MongoDocumentStore) Finalize(ctx context.Context, id string, chunkCount int, meta models.DocumentMetadata) error {
	now := time.Now()
	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":       models.StatusCompleted,
			"progress":     100,
			"chunk_count":  chunkCount,
			"metadata":     meta,
			"processed_at": now,
			"updated_at":   now,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to finalize document: %w", err)
	}
	return nil
}

// ChunkText returns a stored chunk's text, decoding and decompressing
// when needed.
func ChunkText(chunk models.StoredChunk) (string, error) {
	if !chunk.Compressed {
		return chunk.Text, nil
	}
	compressed, err := base64.StdEncoding.DecodeString(chunk.Text)
	if err != nil {
		return "", fmt.Errorf("failed to decode chunk: %w", err)
	}
	return utils.DecompressText(compressed, utils.CompressionAlgorithm(chunk.Compression))
}
