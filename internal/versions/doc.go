// Package versions persists the append-only chapter version ledger in SQLite
// and is the single source of truth for chapter history.
//
// Every pipeline stage that produces text appends a Version; nothing ever
// updates or deletes one. Sequence numbers are assigned by the store inside
// the insert statement, so they are gapless and ascending per chapter even
// under concurrent writers. Committed appends are announced to subscribed
// observers (the semantic index worker); observer failures never affect the
// already-committed row.
//
// LockChapter provides the per-chapter critical section callers use to make
// a workflow authorization check and the subsequent append atomic. Reads
// never take that lock.
package versions
