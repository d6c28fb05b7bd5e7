package llm

import (
	"context"
	"testing"
	"time"
)

func TestCachedProviderPassthroughWithoutRedis(t *testing.T) {
	// Redis 不可用时直接透传底层 provider
	cached := NewCachedEmbeddingProvider(&mockProvider{name: "base"}, nil, nil)

	embedding, err := cached.EmbedSingle(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedSingle failed: %v", err)
	}
	if len(embedding) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(embedding))
	}

	embeddings, err := cached.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embeddings) != 2 {
		t.Errorf("expected 2 embeddings, got %d", len(embeddings))
	}
}

func TestCachedProviderDisabledPassthrough(t *testing.T) {
	cfg := &EmbeddingCacheConfig{Enabled: false, TTL: time.Hour, KeyPrefix: "emb:"}
	cached := NewCachedEmbeddingProvider(&mockProvider{name: "base"}, nil, cfg)

	embedding, err := cached.EmbedSingle(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedSingle failed: %v", err)
	}
	if embedding == nil {
		t.Error("expected non-nil embedding")
	}
}

func TestCachedProviderName(t *testing.T) {
	cached := NewCachedEmbeddingProvider(&mockProvider{name: "base"}, nil, nil)
	if cached.Name() != "base-cached" {
		t.Errorf("expected name 'base-cached', got '%s'", cached.Name())
	}
}

func TestCachedProviderDefaultConfig(t *testing.T) {
	cached := NewCachedEmbeddingProvider(&mockProvider{name: "base"}, nil, nil)
	if cached.config.KeyPrefix != "emb:" {
		t.Errorf("expected key prefix 'emb:', got '%s'", cached.config.KeyPrefix)
	}
	if cached.config.TTL != 24*time.Hour {
		t.Errorf("expected 24h TTL, got %v", cached.config.TTL)
	}
}

func TestGenerateCacheKey(t *testing.T) {
	cached := NewCachedEmbeddingProvider(&mockProvider{name: "base"}, nil, nil)

	k1 := cached.generateCacheKey("same text")
	k2 := cached.generateCacheKey("same text")
	if k1 != k2 {
		t.Error("expected identical keys for identical text")
	}

	k3 := cached.generateCacheKey("other text")
	if k1 == k3 {
		t.Error("expected different keys for different text")
	}

	if len(k1) != len("emb:")+64 {
		t.Errorf("unexpected key length %d", len(k1))
	}
}
