package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input: empty content, empty chapter id.
	// Local to the call, never retried.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a query for a chapter or version that does not
	// exist. An empty chapter history is not ErrNotFound.
	ErrNotFound = errors.New("not found")
	// ErrCollaborator marks a failure from an external capability (content
	// acquirer, generator, embedder). The wrapping includes which stage
	// triggered it; retry policy belongs to the collaborator client.
	ErrCollaborator = errors.New("collaborator error")
	// ErrIndexUnavailable marks a degraded semantic index, distinguishing
	// "index broken" from "no matches".
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrConfiguration marks unusable configuration discovered at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures worth retrying, used by the index worker.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
