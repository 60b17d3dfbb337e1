// Package textutil provides the small text helpers shared across Bookforge:
// tokenization for the local embedder, slug generation for chapter ids,
// leading-word extraction for archival summaries, and snippet truncation for
// search results and API payloads.
package textutil
