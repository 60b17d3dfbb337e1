package embedder

import (
	"context"
	"fmt"

	"bookforge/internal/config"
	"bookforge/internal/services"
)

// Embedder turns text into a fixed-length numeric vector. Implementations
// must be deterministic for a given model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New selects the provider named in the embeddings configuration.
func New(cfg config.Embeddings) (Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAI(cfg)
	case "local", "":
		return NewLocal(cfg.Dimensions), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "embedder", "new",
			fmt.Sprintf("unknown provider %q", cfg.Provider), nil)
	}
}
