// Package workflow derives the editorial stage of a chapter from its stored
// version history and authorizes which version types may be appended next.
// The stage is never persisted; it is recomputed from the ledger so there is
// a single source of truth.
package workflow
