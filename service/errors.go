package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the document lifecycle. Handlers map these onto HTTP
// statuses.
var (
	// ErrNotFound means the requested document does not exist in any
	// collection the lookup covered.
	ErrNotFound = errors.New("document not found")

	// ErrTemplateNotFound means no active template exists for the kind, even
	// after walking its fallback chain.
	ErrTemplateNotFound = errors.New("no active template found")

	// ErrTemplateNotLinked means the resolved template carries no external
	// template id and cannot be submitted for signature.
	ErrTemplateNotLinked = errors.New("template is not linked to an external template")

	// ErrPDFNotReady means a signature submission was requested before the
	// document's PDF was rendered.
	ErrPDFNotReady = errors.New("document pdf has not been generated")

	// ErrAlreadySent means the document left the pending status between the
	// caller's read and its transition attempt.
	ErrAlreadySent = errors.New("document already sent for signature")

	// ErrInvalidTransition means an update tried to move a document to a
	// status its current status does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ServiceError is a non-2xx response from an external service (signature API
// or object store). It is never retried at this layer; the caller may retry
// the whole operation.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("external service returned %d: %s", e.StatusCode, e.Body)
}
