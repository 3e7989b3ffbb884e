package model

import (
	"time"
)

// Kind discriminates which business-document variant a record represents.
type Kind string

const (
	KindClientAgreement     Kind = "client_agreement"
	KindFreelancerAgreement Kind = "freelancer_agreement"
	KindInvoice             Kind = "invoice"
)

// Kinds returns every document kind in a stable order. The webhook lookup
// fans out across collections in this order.
func Kinds() []Kind {
	return []Kind{KindClientAgreement, KindFreelancerAgreement, KindInvoice}
}

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool {
	switch k {
	case KindClientAgreement, KindFreelancerAgreement, KindInvoice:
		return true
	}
	return false
}

// Document status constants
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusSigned  = "signed"
	StatusExpired = "expired"
)

// statusTransitions lists the allowed next statuses for each status.
// signed and expired are terminal.
var statusTransitions = map[string][]string{
	StatusPending: {StatusSent},
	StatusSent:    {StatusSigned, StatusExpired},
}

// CanTransition reports whether a document may move from one status to
// another. Same-status writes are not transitions and are handled by the
// store as no-ops.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no further transitions.
func IsTerminal(status string) bool {
	return status == StatusSigned || status == StatusExpired
}

// Document represents a business document of any kind. Kind-specific
// attributes live in the Fields bag; invoice money columns are typed because
// their totals are recomputed server-side.
type Document struct {
	ID           string            `json:"id"`
	Kind         Kind              `json:"kind"`
	Status       string            `json:"status"` // pending, sent, signed, expired
	SignerEmail  string            `json:"signer_email"`
	SignerName   string            `json:"signer_name"`
	PDFURL       string            `json:"pdf_url,omitempty"`
	PDFObject    string            `json:"pdf_object,omitempty"` // object store key behind pdf_url
	SignedPDFURL string            `json:"signed_pdf_url,omitempty"`
	EnvelopeID   string            `json:"envelope_id,omitempty"`
	SignedAt     *time.Time        `json:"signed_at,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`

	// Invoice-only columns
	Items     []InvoiceItem `json:"items,omitempty"`
	Subtotal  float64       `json:"subtotal,omitempty"`
	TaxRate   float64       `json:"tax_rate,omitempty"`
	TaxAmount float64       `json:"tax_amount,omitempty"`
	Total     float64       `json:"total,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Field returns a kind-specific attribute, or "" when absent.
func (d *Document) Field(name string) string {
	if d.Fields == nil {
		return ""
	}
	return d.Fields[name]
}
