package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hirestack/docflow/model"
	"github.com/hirestack/docflow/service"
)

// ObjectSigner mints short-lived download URLs for stored objects.
type ObjectSigner interface {
	PresignedURL(ctx context.Context, objectName string) (string, error)
}

type DocumentHandler struct {
	store       *service.DocumentStore
	pdfService  *service.PDFService
	submissions *service.SubmissionService
	reconciler  *service.Reconciler
	objects     ObjectSigner
	audit       *service.AuditStore
}

func NewDocumentHandler(pdfSvc *service.PDFService, submissions *service.SubmissionService, reconciler *service.Reconciler, objects ObjectSigner) *DocumentHandler {
	return &DocumentHandler{
		store:       service.GetDocumentStore(),
		pdfService:  pdfSvc,
		submissions: submissions,
		reconciler:  reconciler,
		objects:     objects,
		audit:       service.GetAuditStore(),
	}
}

type CreateDocumentRequest struct {
	Kind        string            `json:"kind" binding:"required"`
	SignerEmail string            `json:"signer_email" binding:"required,email"`
	SignerName  string            `json:"signer_name" binding:"required"`
	Fields      map[string]string `json:"fields"`
	TaxRate     float64           `json:"tax_rate"`
	Items       []CreateItem      `json:"items"`
}

type CreateItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// Create inserts a new document in pending status. Invoices get
// server-computed totals; item amounts from the request are never trusted.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	kind := model.Kind(req.Kind)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown document kind"})
		return
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		Kind:        kind,
		Status:      model.StatusPending,
		SignerEmail: req.SignerEmail,
		SignerName:  req.SignerName,
		Fields:      req.Fields,
		TaxRate:     req.TaxRate,
		CreatedAt:   time.Now(),
	}

	if kind == model.KindInvoice {
		items := make([]model.InvoiceItem, len(req.Items))
		for i, item := range req.Items {
			items[i] = model.InvoiceItem{
				Description: item.Description,
				Quantity:    item.Quantity,
				Rate:        item.Rate,
			}
		}
		created, err := h.store.CreateInvoice(doc, items)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
			return
		}
		c.JSON(http.StatusCreated, created)
		return
	}

	h.store.Save(doc)
	c.JSON(http.StatusCreated, doc)
}

// List returns all documents across kinds, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	docs := h.store.List()

	result := make([]gin.H, len(docs))
	for i, doc := range docs {
		result[i] = gin.H{
			"id":           doc.ID,
			"kind":         doc.Kind,
			"status":       doc.Status,
			"signer_email": doc.SignerEmail,
			"pdf_url":      doc.PDFURL,
			"envelope_id":  doc.EnvelopeID,
			"created_at":   doc.CreatedAt.Format(time.RFC3339),
			"updated_at":   doc.UpdatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Get returns a single document
func (h *DocumentHandler) Get(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	doc, err := h.store.Get(kind, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// GeneratePDF renders the document to PDF and stores it
func (h *DocumentHandler) GeneratePDF(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	pdfURL, err := h.pdfService.Generate(c.Request.Context(), kind, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pdf_url": pdfURL})
}

// Download returns a short-lived presigned URL for the rendered PDF. The
// stored pdf_url is only reachable when the bucket policy is public; the
// presigned link works either way.
func (h *DocumentHandler) Download(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	doc, err := h.store.Get(kind, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if doc.PDFObject == "" {
		h.writeError(c, service.ErrPDFNotReady)
		return
	}

	url, err := h.objects.PresignedURL(c.Request.Context(), doc.PDFObject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate download URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"download_url":   url,
		"signed_pdf_url": doc.SignedPDFURL,
	})
}

type SendRequest struct {
	SignerEmail string `json:"signer_email"`
	SignerName  string `json:"signer_name"`
}

// Send submits the document for signature and returns the signing URL
func (h *DocumentHandler) Send(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	var req SendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	result, err := h.submissions.SendForSignature(c.Request.Context(), kind, id, req.SignerEmail, req.SignerName)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Keep the stored status fresh even if webhook delivery never arrives.
	// The watch outlives the request and stops at a terminal status.
	go h.reconciler.Watch(context.WithoutCancel(c.Request.Context()), kind, id)

	c.JSON(http.StatusOK, result)
}

// SignatureStatus refreshes the document's status from the external service
// and returns the current state.
func (h *DocumentHandler) SignatureStatus(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	doc, err := h.reconciler.Reconcile(c.Request.Context(), kind, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             doc.ID,
		"kind":           doc.Kind,
		"status":         doc.Status,
		"envelope_id":    doc.EnvelopeID,
		"signed_pdf_url": doc.SignedPDFURL,
	})
}

// Audit returns the audit records referencing the document
func (h *DocumentHandler) Audit(c *gin.Context) {
	kind, id, ok := h.kindAndID(c)
	if !ok {
		return
	}

	if _, err := h.store.Get(kind, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	records := h.audit.ByReference(id)
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *DocumentHandler) kindAndID(c *gin.Context) (model.Kind, string, bool) {
	kind := model.Kind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown document kind"})
		return "", "", false
	}
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document id required"})
		return "", "", false
	}
	return kind, id, true
}

// writeError maps service errors onto HTTP statuses.
func (h *DocumentHandler) writeError(c *gin.Context, err error) {
	var svcErr *service.ServiceError

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	case errors.Is(err, service.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No active template for this document kind"})
	case errors.Is(err, service.ErrTemplateNotLinked):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Template is not linked to the signature service"})
	case errors.Is(err, service.ErrPDFNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "Generate the document PDF before sending for signature"})
	case errors.Is(err, service.ErrAlreadySent):
		c.JSON(http.StatusConflict, gin.H{"error": "Document was already sent for signature"})
	case errors.As(err, &svcErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Signature service error: " + svcErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
