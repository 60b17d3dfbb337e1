package embedder_test

import (
	"context"
	"errors"
	"testing"

	"bookforge/internal/config"
	"bookforge/internal/semindex"
	"bookforge/internal/services"
	"bookforge/internal/services/embedder"
)

func TestLocalEmbedderIsDeterministic(t *testing.T) {
	local := embedder.NewLocal(64)
	ctx := context.Background()

	first, err := local.Embed(ctx, "the dragon circled the castle")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	second, err := local.Embed(ctx, "the dragon circled the castle")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("dimension = %d, want 64", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestLocalEmbedderReflectsLexicalOverlap(t *testing.T) {
	local := embedder.NewLocal(128)
	ctx := context.Background()

	base, _ := local.Embed(ctx, "the dragon circled the castle at dusk")
	near, _ := local.Embed(ctx, "a dragon flew around the castle")
	far, _ := local.Embed(ctx, "quarterly revenue exceeded expectations")

	if semindex.CosineSimilarity(base, near) <= semindex.CosineSimilarity(base, far) {
		t.Fatal("overlapping text should be closer than unrelated text")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	local, err := embedder.New(config.Embeddings{Provider: "local", Dimensions: 32})
	if err != nil {
		t.Fatalf("local provider failed: %v", err)
	}
	vector, err := local.Embed(context.Background(), "text")
	if err != nil || len(vector) != 32 {
		t.Fatalf("local embed: vector=%d err=%v", len(vector), err)
	}

	if _, err := embedder.New(config.Embeddings{Provider: "openai"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("openai without key: got %v", err)
	}
	if _, err := embedder.New(config.Embeddings{Provider: "something-else"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("unknown provider: got %v", err)
	}
}
