// Package logging constructs the slog loggers used across Bookforge.
//
// Two formats are supported: a compact console format (timestamp, level,
// component, message, key=value attrs) and standard JSON. Loggers write to
// stdout and, when a log directory is configured, to bookforge.log inside it.
// Components attach themselves with logging.WithComponent so console output
// stays scannable.
package logging
