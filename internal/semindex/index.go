package semindex

import (
	"context"
	"log/slog"
	"sort"

	"bookforge/internal/services"
	"bookforge/internal/textutil"
	"bookforge/internal/versions"
)

// snippetLimit bounds the stored excerpt returned with search matches.
const snippetLimit = 200

// Embedder turns text into a fixed-length numeric vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one search result, closest first.
type Match struct {
	Key         versions.Key
	Distance    float64
	VersionType versions.Type
	Snippet     string
}

// Index computes and stores embeddings and answers similarity queries.
type Index struct {
	store    *Store
	embedder Embedder
	logger   *slog.Logger
}

func New(store *Store, embedder Embedder, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{store: store, embedder: embedder, logger: logger}
}

// IndexVersion embeds the version content and upserts its entry. Re-indexing
// the same ledger identity overwrites the previous vector.
func (ix *Index) IndexVersion(ctx context.Context, version versions.Version) error {
	vector, err := ix.embedder.Embed(ctx, version.Content)
	if err != nil {
		return services.Wrap(services.ErrCollaborator, "semindex", "index",
			"embed version "+version.Key().String(), err)
	}
	entry := Entry{
		Key:         version.Key(),
		VersionType: version.Type,
		Snippet:     textutil.Snippet(version.Content, snippetLimit),
		Vector:      vector,
	}
	if err := ix.store.Upsert(ctx, entry); err != nil {
		return services.Wrap(services.ErrTransient, "semindex", "index",
			"store vector "+version.Key().String(), err)
	}
	return nil
}

// Search returns up to k indexed versions ordered by ascending cosine
// distance to the query. Ties keep insertion order. When the embedding
// backend is down the error wraps ErrIndexUnavailable so callers can tell
// "index broken" from "no matches".
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, services.Wrap(services.ErrValidation, "semindex", "search", "k must be positive", nil)
	}

	queryVector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, services.Wrap(services.ErrIndexUnavailable, "semindex", "search",
			"embedding backend unavailable", err)
	}

	entries, err := ix.store.All(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrIndexUnavailable, "semindex", "search",
			"load index entries", err)
	}

	matches := make([]Match, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		matches = append(matches, Match{
			Key:         entry.Key,
			Distance:    cosineDistance(queryVector, entry.Vector),
			VersionType: entry.VersionType,
			Snippet:     entry.Snippet,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count reports the number of indexed entries, for status reporting.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	return ix.store.Count(ctx)
}
