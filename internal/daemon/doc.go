// Package daemon runs the long-lived bookforge process: it enforces
// single-instance execution with a file lock, owns the background index
// worker, and serves the HTTP API over the pipeline.
package daemon
