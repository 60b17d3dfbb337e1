// Package embedder provides the text-to-vector capability used by the
// semantic index and the quality scorer. Two providers are supported: the
// OpenAI embeddings API and a deterministic local hash embedder for offline
// operation.
package embedder
