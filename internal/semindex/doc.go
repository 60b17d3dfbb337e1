// Package semindex maintains embedding vectors for stored chapter versions
// and answers nearest-neighbor queries over them. Vectors live in a parallel
// SQLite database keyed by the same (chapter_id, sequence) identity as the
// version ledger. Indexing is asynchronous: a background worker consumes
// committed appends, so searches see new versions eventually, never
// immediately.
package semindex
