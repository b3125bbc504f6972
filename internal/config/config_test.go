package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		ChunkSize:                400,
		ChunkOverlap:             100,
		MaxFiles:                 10,
		EmbedBatch:               32,
		UploadBatch:              100,
		VectorDimensions:         1536,
		JWTSecret:                "secret",
		EmbeddingsProvider:       "azure",
		AzureOpenAIEndpoint:      "https://example.openai.azure.com",
		AzureOpenAIKey:           "key",
		AzureEmbeddingDeployment: "text-embedding-3-small",
		SearchEndpoint:           "https://example.search.windows.net",
		SearchKey:                "key",
	}
}

func TestValidateChunkingPolicy(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "overlap equal to size",
			mutate:  func(c *Config) { c.ChunkSize = 400; c.ChunkOverlap = 400 },
			wantErr: "CHUNK_OVERLAP",
		},
		{
			name:    "overlap greater than size",
			mutate:  func(c *Config) { c.ChunkSize = 100; c.ChunkOverlap = 150 },
			wantErr: "CHUNK_OVERLAP",
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = 0; c.ChunkOverlap = 0 },
			wantErr: "CHUNK_SIZE",
		},
		{
			name:    "negative chunk size",
			mutate:  func(c *Config) { c.ChunkSize = -5; c.ChunkOverlap = 0 },
			wantErr: "CHUNK_SIZE",
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.ChunkOverlap = -1 },
			wantErr: "CHUNK_OVERLAP",
		},
		{
			name:    "zero max files",
			mutate:  func(c *Config) { c.MaxFiles = 0 },
			wantErr: "MAX_FILES",
		},
		{
			name:    "zero embed batch",
			mutate:  func(c *Config) { c.EmbedBatch = 0 },
			wantErr: "EMBED_BATCH",
		},
		{
			name:   "zero overlap is allowed",
			mutate: func(c *Config) { c.ChunkOverlap = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateProviderCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.EmbeddingsProvider = "google"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for google provider without GEMINI_API_KEY")
	}
	cfg.GeminiAPIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg = validConfig()
	cfg.EmbeddingsProvider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}

	cfg = validConfig()
	cfg.AzureEmbeddingDeployment = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding deployment")
	}

	cfg = validConfig()
	cfg.SearchKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing search credentials")
	}
}
