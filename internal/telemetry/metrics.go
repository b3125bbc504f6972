package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	DocumentsIngested   metric.Int64Counter
	ChunksProduced      metric.Int64Counter
	ExtractionDuration  metric.Float64Histogram
	EmbeddingDuration   metric.Float64Histogram
	SearchUploads       metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("bakasura-ingest")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentsIngested, err := meter.Int64Counter(
		"ingest.documents.total",
		metric.WithDescription("Documents processed by the ingestion pipeline"),
	)
	if err != nil {
		return nil, err
	}

	chunksProduced, err := meter.Int64Counter(
		"ingest.chunks.total",
		metric.WithDescription("Chunks produced by the chunker"),
	)
	if err != nil {
		return nil, err
	}

	extractionDuration, err := meter.Float64Histogram(
		"ingest.extraction.duration",
		metric.WithDescription("PDF extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embeddingDuration, err := meter.Float64Histogram(
		"ingest.embedding.duration",
		metric.WithDescription("Embedding batch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchUploads, err := meter.Int64Counter(
		"ingest.search_uploads.total",
		metric.WithDescription("Documents uploaded to the search index"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		DocumentsIngested:   documentsIngested,
		ChunksProduced:      chunksProduced,
		ExtractionDuration:  extractionDuration,
		EmbeddingDuration:   embeddingDuration,
		SearchUploads:       searchUploads,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordDocument records the outcome of one document ingestion
func (m *Metrics) RecordDocument(status string, chunks int64) {
	attrs := []attribute.KeyValue{
		attribute.String("ingest.status", status),
	}

	m.DocumentsIngested.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	if chunks > 0 {
		m.ChunksProduced.Add(context.Background(), chunks, metric.WithAttributes(attrs...))
	}
}

// RecordExtraction records PDF extraction metrics
func (m *Metrics) RecordExtraction(duration float64, method string) {
	attrs := []attribute.KeyValue{
		attribute.String("extraction.method", method),
	}

	m.ExtractionDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordEmbeddingBatch records embedding call metrics
func (m *Metrics) RecordEmbeddingBatch(duration float64, provider string, size int) {
	attrs := []attribute.KeyValue{
		attribute.String("embeddings.provider", provider),
		attribute.Int("embeddings.batch_size", size),
	}

	m.EmbeddingDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordSearchUpload records vector index upload metrics
func (m *Metrics) RecordSearchUpload(count int64, success bool) {
	attrs := []attribute.KeyValue{
		attribute.Bool("upload.success", success),
	}

	m.SearchUploads.Add(context.Background(), count, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
