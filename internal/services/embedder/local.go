package embedder

import (
	"context"
	"hash/fnv"

	"bookforge/internal/textutil"
)

const defaultLocalDimensions = 256

// Local is a deterministic bag-of-tokens embedder: each token hashes to a
// bucket and the vector counts bucket hits. It carries no semantics beyond
// lexical overlap, but it is stable, offline, and fast, which keeps the
// index and scorer usable without an API key.
type Local struct {
	dimensions int
}

func NewLocal(dimensions int) *Local {
	if dimensions <= 0 {
		dimensions = defaultLocalDimensions
	}
	return &Local{dimensions: dimensions}
}

func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, l.dimensions)
	for _, token := range textutil.Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vector[h.Sum32()%uint32(l.dimensions)]++
	}
	return vector, nil
}
