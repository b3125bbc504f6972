package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bakasura-ingest/internal/ai"
	"bakasura-ingest/internal/azure"
	"bakasura-ingest/internal/config"
	"bakasura-ingest/internal/logger"
	"bakasura-ingest/internal/telemetry"
	"bakasura-ingest/middleware"
	"bakasura-ingest/routes"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("bakasura-ingest-api")
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

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

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

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	documents := db.Collection("documents")
	authMiddleware := middleware.NewAuthMiddleware(cfg)

	api := router.Group("/api")
	api.POST("/login", routes.HandleLogin(cfg))

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	protected.POST("/documents", routes.HandleDocumentUpload(cfg, documents, queueClient))
	protected.GET("/documents", routes.ListDocuments(documents))
	protected.GET("/documents/:id", routes.GetDocumentStatus(documents))
	protected.GET("/documents/:id/chunks", routes.GetDocumentChunks(documents, db.Collection("document_chunks")))
	protected.GET("/diagnostics/embeddings", routes.CheckEmbeddings(embedder))
	protected.GET("/diagnostics/search", routes.CheckSearch(searchClient))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
