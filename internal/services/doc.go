// Package services defines the error taxonomy shared by the core packages
// and their collaborator clients.
//
// Errors are classified with sentinel markers so transports can map them to
// status codes and callers can branch with errors.Is without string matching.
// Wrap composes a marker with stage context; the enclosing operation and a
// short message travel with the error.
package services
