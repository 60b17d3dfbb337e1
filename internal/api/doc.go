// Package api defines the wire payloads shared by the daemon's HTTP
// endpoints and the CLI, plus converters from the internal types.
package api
