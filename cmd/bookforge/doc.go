// Command bookforge is the CLI for the chapter pipeline: it starts chapters
// from source URLs, requests drafts, records human decisions, and queries
// the version history and semantic index.
package main
