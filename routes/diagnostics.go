package routes

import (
	"net/http"
	"time"

	"bakasura-ingest/internal/ai"
	"bakasura-ingest/internal/azure"
	"bakasura-ingest/utils"

	"github.com/gin-gonic/gin"
)

// CheckEmbeddings runs one test embedding against the configured provider
func CheckEmbeddings(embedder *ai.EmbeddingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		detail, err := embedder.TestConnection(c.Request.Context())
		if err != nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable,
				"embeddings_unavailable",
				"Embeddings provider is unreachable",
				gin.H{"provider": embedder.Provider(), "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"provider":   embedder.Provider(),
			"detail":     detail,
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}

// CheckSearch verifies the search index exists and is reachable
func CheckSearch(search *azure.SearchClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if err := search.Probe(c.Request.Context()); err != nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable,
				"search_unavailable",
				"Search index is unreachable",
				gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}
