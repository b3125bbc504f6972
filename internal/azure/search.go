package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bakasura-ingest/internal/config"
	"bakasura-ingest/models"
)

// SearchClient talks to the Azure AI Search REST API: index lifecycle and
// bulk document uploads. Vectors live here; document records live in Mongo.
type SearchClient struct {
	endpoint   string
	key        string
	indexName  string
	dimensions int
	httpClient *http.Client

	maxRetries int
	backoff    time.Duration
}

const searchAPIVersion = "2023-11-01"

func NewSearchClient(cfg *config.Config) *SearchClient {
	return &SearchClient{
		endpoint:   strings.TrimSuffix(cfg.SearchEndpoint, "/"),
		key:        cfg.SearchKey,
		indexName:  cfg.SearchIndexName,
		dimensions: cfg.VectorDimensions,
		httpClient: &http.Client{
			Timeout: time.Minute,
		},
		maxRetries: 3,
		backoff:    1500 * time.Millisecond,
	}
}

// EnsureIndex creates or updates the vector index. Safe to call on every
// startup; the schema is treated as idempotent desired state.
func (c *SearchClient) EnsureIndex(ctx context.Context) error {
	index := c.indexDefinition()

	body, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index definition: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s?api-version=%s&allowIndexDowntime=false", c.endpoint, c.indexName, searchAPIVersion)
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create index request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("index update request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("index update failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// UploadDocuments uploads chunk documents in batches with bounded
// retry/backoff, using mergeOrUpload so re-ingestion of the same document
// is idempotent. Returns the number of documents the service accepted.
func (c *SearchClient) UploadDocuments(ctx context.Context, docs []models.SearchDocument, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	total := 0
	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}

		accepted, err := c.uploadBatch(ctx, docs[i:end])
		if err != nil {
			return total, fmt.Errorf("batch starting at %d: %w", i, err)
		}
		total += accepted
	}

	return total, nil
}

type indexAction struct {
	SearchAction string `json:"@search.action"`
	models.SearchDocument
}

type indexBatchResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		StatusCode   int    `json:"statusCode"`
	} `json:"value"`
}

func (c *SearchClient) uploadBatch(ctx context.Context, docs []models.SearchDocument) (int, error) {
	actions := make([]indexAction, len(docs))
	for i, doc := range docs {
		actions[i] = indexAction{SearchAction: "mergeOrUpload", SearchDocument: doc}
	}

	body, err := json.Marshal(map[string]interface{}{"value": actions})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal index batch: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", c.endpoint, c.indexName, searchAPIVersion)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("failed to create upload request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// 207 means per-document results; inspect each.
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(respBody))
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return 0, lastErr
			}
			continue
		}

		var batchResp indexBatchResponse
		err = json.NewDecoder(resp.Body).Decode(&batchResp)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to decode upload response: %w", err)
			continue
		}

		accepted := 0
		for _, result := range batchResp.Value {
			if result.Status {
				accepted++
			}
		}
		return accepted, nil
	}

	return 0, fmt.Errorf("bulk upload failed after %d retries: %w", c.maxRetries, lastErr)
}

// Probe checks connectivity and index existence via the statistics endpoint.
func (c *SearchClient) Probe(ctx context.Context) error {
	url := fmt.Sprintf("%s/indexes/%s/stats?api-version=%s", c.endpoint, c.indexName, searchAPIVersion)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create stats request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stats request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stats request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *SearchClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.key)
}

func (c *SearchClient) indexDefinition() map[string]interface{} {
	fields := []map[string]interface{}{
		{"name": "id", "type": "Edm.String", "key": true, "filterable": true},
		{"name": "content", "type": "Edm.String", "searchable": true},
		{
			"name":                "content_vector",
			"type":                "Collection(Edm.Single)",
			"searchable":          true,
			"dimensions":          c.dimensions,
			"vectorSearchProfile": "chunk-vector-profile",
		},
		{"name": "filename", "type": "Edm.String", "filterable": true, "facetable": true},
		{"name": "chunk_id", "type": "Edm.Int32", "filterable": true},
		{"name": "text_hash", "type": "Edm.String", "filterable": true},
		{"name": "timestamp", "type": "Edm.DateTimeOffset", "filterable": true, "sortable": true},
		{"name": "file_type", "type": "Edm.String", "filterable": true, "facetable": true},
		{"name": "page_number", "type": "Edm.Int32", "filterable": true},
		{"name": "metadata", "type": "Edm.String", "searchable": true},
	}

	return map[string]interface{}{
		"name":   c.indexName,
		"fields": fields,
		"vectorSearch": map[string]interface{}{
			"algorithms": []map[string]interface{}{
				{
					"name": "chunk-hnsw",
					"kind": "hnsw",
					"hnswParameters": map[string]interface{}{
						"m":              8,
						"efConstruction": 200,
						"efSearch":       100,
						"metric":         "cosine",
					},
				},
			},
			"profiles": []map[string]interface{}{
				{"name": "chunk-vector-profile", "algorithm": "chunk-hnsw"},
			},
		},
		"semantic": map[string]interface{}{
			"configurations": []map[string]interface{}{
				{
					"name": "chunk-semantic",
					"prioritizedFields": map[string]interface{}{
						"prioritizedContentFields": []map[string]interface{}{
							{"fieldName": "content"},
						},
					},
				},
			},
		},
	}
}
