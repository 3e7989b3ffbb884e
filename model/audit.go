package model

import "time"

// AuditRecord events
const (
	EventDocumentSigned = "document_signed"
)

// AuditRecord captures a business event tied to a document, e.g. the signer
// completing a signature request.
type AuditRecord struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Event     string    `json:"event"`
	Reference string    `json:"reference"` // document id
	CreatedAt time.Time `json:"created_at"`
}
