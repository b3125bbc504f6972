package routes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bakasura-ingest/internal/config"
	"bakasura-ingest/internal/logger"
	"bakasura-ingest/internal/queue"
	"bakasura-ingest/models"
	"bakasura-ingest/services"
	"bakasura-ingest/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HandleDocumentUpload accepts up to MaxFiles PDFs in one multipart request,
// persists each to disk, records a pending document, and enqueues one
// ingestion task per file. The response is 202 with per-file results;
// individual file failures do not fail the batch.
func HandleDocumentUpload(cfg *config.Config, documents *mongo.Collection, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithBadRequest(c, "Request body exceeds maximum size", nil)
			return
		}

		form := c.Request.MultipartForm
		if form == nil || len(form.File["files"]) == 0 {
			utils.RespondWithBadRequest(c, "No files provided; use the 'files' form field", nil)
			return
		}

		files := form.File["files"]
		if len(files) > cfg.MaxFiles {
			utils.RespondWithBadRequest(c,
				fmt.Sprintf("Too many files: maximum %d per request", cfg.MaxFiles),
				gin.H{"max_files": cfg.MaxFiles, "received": len(files)})
			return
		}

		accepted := make([]models.UploadResponse, 0, len(files))
		rejected := make([]gin.H, 0)

		for _, header := range files {
			resp, err := acceptFile(c.Request.Context(), cfg, documents, queueClient, header)
			if err != nil {
				rejected = append(rejected, gin.H{
					"filename": header.Filename,
					"error":    err.Error(),
				})
				continue
			}
			accepted = append(accepted, *resp)
		}

		status := http.StatusAccepted
		if len(accepted) == 0 {
			status = http.StatusBadRequest
		}

		c.JSON(status, gin.H{
			"message":  fmt.Sprintf("%d of %d files accepted for processing", len(accepted), len(files)),
			"accepted": accepted,
			"rejected": rejected,
		})
	}
}

func acceptFile(ctx context.Context, cfg *config.Config, documents *mongo.Collection, queueClient *asynq.Client, header *multipart.FileHeader) (*models.UploadResponse, error) {
	if header.Size > cfg.MaxFileSize {
		return nil, fmt.Errorf("file exceeds maximum size of %d bytes", cfg.MaxFileSize)
	}

	ct := header.Header.Get("Content-Type")
	if !strings.Contains(ct, "pdf") && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		return nil, fmt.Errorf("only PDF files are allowed")
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot open uploaded file")
	}
	defer file.Close()

	// Basic PDF header validation without loading the whole file
	magic := make([]byte, 5)
	if _, err := io.ReadFull(file, magic); err != nil {
		return nil, fmt.Errorf("cannot read file header")
	}
	if string(magic[:4]) != "%PDF" {
		return nil, fmt.Errorf("file does not appear to be a valid PDF")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file for saving")
	}

	docID := uuid.NewString()

	uploadDir := filepath.Join(cfg.FileStorageDir, "pdfs")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory")
	}

	filePath := filepath.Join(uploadDir, fmt.Sprintf("%s.pdf", docID))
	dst, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination")
	}
	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(dst, hasher), io.LimitReader(file, cfg.MaxFileSize)); err != nil {
		dst.Close()
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file")
	}
	dst.Close()

	now := time.Now()
	doc := models.Document{
		ID:        docID,
		Filename:  header.Filename,
		FilePath:  filePath,
		FileHash:  hex.EncodeToString(hasher.Sum(nil)),
		Size:      header.Size,
		Status:    models.StatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := documents.InsertOne(ctx, doc); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to create database record")
	}

	task, err := queue.NewIngestTask(docID, header.Filename, filePath)
	if err != nil {
		os.Remove(filePath)
		documents.DeleteOne(ctx, bson.M{"_id": docID})
		return nil, fmt.Errorf("failed to create processing task")
	}

	info, err := queueClient.Enqueue(task)
	if err != nil {
		os.Remove(filePath)
		documents.DeleteOne(ctx, bson.M{"_id": docID})
		return nil, fmt.Errorf("failed to enqueue processing task")
	}

	logger.Info("Document accepted",
		"document_id", docID,
		"filename", header.Filename,
		"size", header.Size,
		"task_id", info.ID)

	return &models.UploadResponse{
		ID:        docID,
		Filename:  header.Filename,
		Size:      header.Size,
		Status:    models.StatusPending,
		TaskID:    info.ID,
		CreatedAt: now,
	}, nil
}

// GetDocumentStatus returns the processing state of one document
func GetDocumentStatus(documents *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID := c.Param("id")

		var doc models.Document
		err := documents.FindOne(c.Request.Context(), bson.M{"_id": docID}).Decode(&doc)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to retrieve document", nil)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

// GetDocumentChunks returns a document's stored chunks in sequence order,
// with compressed text decoded back to plain text.
func GetDocumentChunks(documents, chunks *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID := c.Param("id")
		ctx := c.Request.Context()

		var doc models.Document
		if err := documents.FindOne(ctx, bson.M{"_id": docID}).Decode(&doc); err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to retrieve document", nil)
			return
		}

		cursor, err := chunks.Find(
			ctx,
			bson.M{"document_id": docID},
			options.Find().SetSort(bson.M{"sequence_index": 1}),
		)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve chunks", nil)
			return
		}
		defer cursor.Close(ctx)

		var stored []models.StoredChunk
		if err := cursor.All(ctx, &stored); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode chunks", nil)
			return
		}

		out := make([]models.StoredChunk, 0, len(stored))
		for _, chunk := range stored {
			text, err := services.ChunkText(chunk)
			if err != nil {
				logger.Error("Failed to decode stored chunk",
					"document_id", docID,
					"sequence_index", chunk.SequenceIndex,
					"error", err)
				utils.RespondWithInternalError(c, "Failed to decode chunk text", nil)
				return
			}
			chunk.Text = text
			chunk.Compressed = false
			chunk.Compression = ""
			out = append(out, chunk)
		}

		c.JSON(http.StatusOK, gin.H{
			"document_id": docID,
			"status":      doc.Status,
			"chunk_count": len(out),
			"chunks":      out,
		})
	}
}

// ListDocuments lists documents with their status, newest first
func ListDocuments(documents *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		pageInt := 1
		limitInt := 10
		if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
			pageInt = p
		}
		if l, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && l > 0 && l <= 100 {
			limitInt = l
		}

		filter := bson.M{}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}

		ctx := c.Request.Context()
		skip := (pageInt - 1) * limitInt

		cursor, err := documents.Find(
			ctx,
			filter,
			options.Find().
				SetSort(bson.M{"created_at": -1}).
				SetSkip(int64(skip)).
				SetLimit(int64(limitInt)),
		)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve documents", nil)
			return
		}
		defer cursor.Close(ctx)

		docs := make([]models.Document, 0, limitInt)
		if err := cursor.All(ctx, &docs); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode documents", nil)
			return
		}

		total, err := documents.CountDocuments(ctx, filter)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to count documents", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"documents": docs,
			"pagination": gin.H{
				"page":        pageInt,
				"limit":       limitInt,
				"total":       total,
				"total_pages": (total + int64(limitInt) - 1) / int64(limitInt),
			},
		})
	}
}
