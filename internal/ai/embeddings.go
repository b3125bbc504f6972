package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"bakasura-ingest/internal/config"
	"bakasura-ingest/internal/telemetry"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// EmbeddingService generates vectors for text chunks. Default provider is
// Azure OpenAI through a deployment name; Google Generative AI
// (text-embedding-004) is the alternative. All calls go through a circuit
// breaker and a rate limiter so a degraded provider fails fast instead of
// stalling the whole worker.
type EmbeddingService struct {
	provider string

	openaiClient *openai.Client
	deployment   string

	geminiKey   string
	googleModel string

	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

func NewEmbeddingService(cfg *config.Config, metrics *telemetry.Metrics) (*EmbeddingService, error) {
	s := &EmbeddingService{
		provider:    cfg.EmbeddingsProvider,
		deployment:  cfg.AzureEmbeddingDeployment,
		geminiKey:   cfg.GeminiAPIKey,
		googleModel: cfg.GoogleEmbeddingsModel,
		metrics:     metrics,
	}

	switch cfg.EmbeddingsProvider {
	case "azure":
		clientCfg := openai.DefaultAzureConfig(cfg.AzureOpenAIKey, cfg.AzureOpenAIEndpoint)
		clientCfg.APIVersion = cfg.AzureOpenAIAPIVersion
		deployment := cfg.AzureEmbeddingDeployment
		clientCfg.AzureModelMapperFunc = func(model string) string {
			return deployment
		}
		s.openaiClient = openai.NewClientWithConfig(clientCfg)
	case "google":
		// Client is created per call, matching the short-lived genai
		// connection pattern.
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EmbeddingsAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
			if s.metrics != nil {
				s.metrics.RecordCircuitBreakerState(name, to.String())
			}
		},
	})

	// Conservative default suited to Azure OpenAI embedding quotas.
	s.limiter = rate.NewLimiter(rate.Limit(5), 10)

	return s, nil
}

// Provider returns the configured provider name
func (s *EmbeddingService) Provider() string {
	return s.provider
}

// EmbedBatch returns one vector per input text, in input order.
// Embedding failures are returned to the caller; no zero-vector
// placeholders are substituted.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("embedding-service")
	ctx, span := tracer.Start(ctx, "embeddings.batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("embeddings.provider", s.provider),
		attribute.Int("embeddings.batch_size", len(texts)),
	)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		switch s.provider {
		case "azure":
			return s.embedAzure(ctx, texts)
		case "google":
			return s.embedGoogle(ctx, texts)
		default:
			return nil, fmt.Errorf("unknown embeddings provider: %s", s.provider)
		}
	})
	if err != nil {
		return nil, err
	}

	vectors := result.([][]float32)
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

// Embed returns the vector for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// TestConnection requests one embedding to verify credentials and
// deployment, mirroring the diagnostics panel.
func (s *EmbeddingService) TestConnection(ctx context.Context) (string, error) {
	vec, err := s.Embed(ctx, "hello")
	if err != nil {
		return "", err
	}
	if len(vec) == 0 {
		return "", fmt.Errorf("provider returned an empty embedding")
	}

	switch s.provider {
	case "azure":
		return fmt.Sprintf("connected using deployment %q (%d dimensions)", s.deployment, len(vec)), nil
	default:
		return fmt.Sprintf("connected using model %q (%d dimensions)", s.googleModel, len(vec)), nil
	}
}

func (s *EmbeddingService) embedAzure(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.openaiClient.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(s.deployment),
	})
	if err != nil {
		return nil, fmt.Errorf("azure openai embeddings failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Responses are not guaranteed to arrive in input order.
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func (s *EmbeddingService) embedGoogle(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.geminiKey))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.EmbeddingModel(s.googleModel)
	batch := model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("google embeddings failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
