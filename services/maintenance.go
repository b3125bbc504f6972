package services

import (
	"context"
	"os"
	"time"

	"bakasura-ingest/internal/config"
	"bakasura-ingest/internal/logger"
	"bakasura-ingest/models"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MaintenanceService runs periodic housekeeping: deleting on-disk files
// for documents past their retention window, and failing documents that
// have been stuck in processing longer than the configured timeout
// (worker crash, lost task).
type MaintenanceService struct {
	cfg       *config.Config
	documents *mongo.Collection
	scheduler *gocron.Scheduler
}

func NewMaintenanceService(cfg *config.Config, db *mongo.Database) *MaintenanceService {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &MaintenanceService{
		cfg:       cfg,
		documents: db.Collection("documents"),
		scheduler: s,
	}
}

// Start registers the jobs and runs the scheduler in the background
func (m *MaintenanceService) Start() error {
	if _, err := m.scheduler.Every(1).Hour().Tag("file-retention").Do(m.sweepRetainedFiles); err != nil {
		return err
	}
	if _, err := m.scheduler.Every(5).Minutes().Tag("stuck-documents").Do(m.failStuckDocuments); err != nil {
		return err
	}

	m.scheduler.StartAsync()
	logger.Info("Maintenance scheduler started",
		"retention_hours", m.cfg.FileRetentionHours,
		"processing_timeout_mins", m.cfg.ProcessingTimeoutMins)
	return nil
}

func (m *MaintenanceService) Stop() {
	m.scheduler.Stop()
}

// sweepRetainedFiles removes source PDFs for documents that reached a
// terminal state before the retention cutoff. The document record and its
// chunks stay; only the original file goes.
func (m *MaintenanceService) sweepRetainedFiles() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(m.cfg.FileRetentionHours) * time.Hour)

	cursor, err := m.documents.Find(ctx, bson.M{
		"status":     bson.M{"$in": []string{models.StatusCompleted, models.StatusFailed}},
		"updated_at": bson.M{"$lt": cutoff},
		"file_path":  bson.M{"$ne": ""},
	})
	if err != nil {
		logger.Error("Retention sweep query failed", "error", err)
		return
	}
	defer cursor.Close(ctx)

	removed := 0
	for cursor.Next(ctx) {
		var doc models.Document
		if err := cursor.Decode(&doc); err != nil {
			continue
		}

		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove retained file", "document_id", doc.ID, "path", doc.FilePath, "error", err)
			continue
		}

		_, err := m.documents.UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$set": bson.M{"file_path": "", "updated_at": time.Now()}})
		if err != nil {
			logger.Warn("Failed to clear file path", "document_id", doc.ID, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("Retention sweep completed", "files_removed", removed)
	}
}

// failStuckDocuments marks documents as failed when they have been in
// processing longer than the timeout allows.
func (m *MaintenanceService) failStuckDocuments() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(m.cfg.ProcessingTimeoutMins) * time.Minute)

	result, err := m.documents.UpdateMany(ctx,
		bson.M{
			"status":     models.StatusProcessing,
			"updated_at": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{
			"status":        models.StatusFailed,
			"error_message": "processing timed out",
			"updated_at":    time.Now(),
		}})
	if err != nil {
		logger.Error("Stuck document sweep failed", "error", err)
		return
	}

	if result.ModifiedCount > 0 {
		logger.Warn("Marked stuck documents as failed", "count", result.ModifiedCount)
	}
}
