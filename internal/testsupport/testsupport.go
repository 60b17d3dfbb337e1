// Package testsupport provides shared fixtures for package tests: temp-dir
// configurations, opened stores, and stub collaborators.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"bookforge/internal/config"
	"bookforge/internal/semindex"
	"bookforge/internal/services/embedder"
	"bookforge/internal/services/scrape"
	"bookforge/internal/versions"
)

// NewConfig returns a configuration rooted in a per-test temp directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	root := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Embeddings.Provider = "local"
	cfg.Embeddings.Dimensions = 64
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a version ledger in the test's temp directory.
func MustOpenStore(t *testing.T, cfg *config.Config) *versions.Store {
	t.Helper()
	store, err := versions.Open(cfg)
	if err != nil {
		t.Fatalf("open version store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustOpenIndex opens a semantic index backed by the local hash embedder.
func MustOpenIndex(t *testing.T, cfg *config.Config) *semindex.Index {
	t.Helper()
	store, err := semindex.Open(cfg)
	if err != nil {
		t.Fatalf("open index store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return semindex.New(store, embedder.NewLocal(cfg.Embeddings.Dimensions), nil)
}

// StubAcquirer returns a canned fetch result or error.
type StubAcquirer struct {
	Result scrape.Result
	Err    error
	Calls  int
}

func (s *StubAcquirer) Fetch(_ context.Context, _ string) (scrape.Result, error) {
	s.Calls++
	if s.Err != nil {
		return scrape.Result{}, s.Err
	}
	return s.Result, nil
}

// StubGenerator returns canned rewrite and review text.
type StubGenerator struct {
	RewriteText string
	ReviewText  string
	RewriteErr  error
	ReviewErr   error
}

func (s *StubGenerator) Rewrite(_ context.Context, _ string) (string, error) {
	if s.RewriteErr != nil {
		return "", s.RewriteErr
	}
	return s.RewriteText, nil
}

func (s *StubGenerator) Review(_ context.Context, _, _ string) (string, error) {
	if s.ReviewErr != nil {
		return "", s.ReviewErr
	}
	return s.ReviewText, nil
}
