// Package pipeline composes the version store, workflow guard, semantic
// index, and quality scorer into the operations the transport layer exposes.
// Collaborator calls (scraping, generation) happen before the authorized
// append; the guard/store boundary is the synchronization point.
package pipeline
