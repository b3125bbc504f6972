package main

import (
	"context"
	"log"
	"time"

	"bakasura-ingest/internal/ai"
	"bakasura-ingest/internal/azure"
	"bakasura-ingest/internal/config"
	"bakasura-ingest/internal/logger"
	"bakasura-ingest/internal/queue"
	"bakasura-ingest/internal/telemetry"
	"bakasura-ingest/services"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("bakasura-ingest-worker")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	embedder, err := ai.NewEmbeddingService(cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize embeddings client:", err)
	}

	searchClient := azure.NewSearchClient(cfg)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := searchClient.EnsureIndex(ctx); err != nil {
			log.Fatal("Failed to ensure search index:", err)
		}
		cancel()
	}

	visionClient := azure.NewVisionClient(cfg)
	extractor := services.NewPDFExtractor(visionClient)
	store := services.NewMongoDocumentStore(db)

	ingestion := services.NewIngestionService(cfg, extractor, embedder, searchClient, store, metrics)

	maintenance := services.NewMaintenanceService(cfg, db)
	if err := maintenance.Start(); err != nil {
		log.Fatal("Failed to start maintenance scheduler:", err)
	}
	defer maintenance.Stop()

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// The ingestion semaphore is the real bound; extra workers just
			// let queued tasks wait inside the process instead of in Redis.
			Concurrency: cfg.MaxFiles * 2,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(ingestion)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.HandleIngestDocument)

	logger.Info("Starting worker",
		"concurrency", cfg.MaxFiles*2,
		"queues", "critical(6), default(3), low(1)")

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
