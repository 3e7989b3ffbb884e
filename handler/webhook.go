package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirestack/docflow/config"
	"github.com/hirestack/docflow/model"
	"github.com/hirestack/docflow/pkg/logger"
	"github.com/hirestack/docflow/service"
)

type WebhookHandler struct {
	config   *config.DocusealConfig
	docuseal *service.DocusealService
	store    *service.DocumentStore
	audit    *service.AuditStore
}

func NewWebhookHandler(cfg *config.DocusealConfig, docusealSvc *service.DocusealService) *WebhookHandler {
	return &WebhookHandler{
		config:   cfg,
		docuseal: docusealSvc,
		store:    service.GetDocumentStore(),
		audit:    service.GetAuditStore(),
	}
}

type webhookEnvelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

type submissionEventData struct {
	ID          string                       `json:"id"`
	Status      string                       `json:"status"`
	CompletedAt *time.Time                   `json:"completed_at"`
	Submitters  []service.Submitter          `json:"submitters"`
	Documents   []service.SubmissionDocument `json:"documents"`
}

// HandleWebhook receives push notifications from the signature service. The
// body is read raw before parsing because the signature is computed over the
// exact bytes.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if h.config.WebhookSecret != "" {
		signature := c.GetHeader(h.config.SignatureHeader)
		if !h.docuseal.VerifyWebhookSignature(rawBody, signature) {
			logger.Warn(c.Request.Context(), "webhook signature verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
			return
		}
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	switch envelope.EventType {
	case "submission.completed":
		h.handleCompleted(c, envelope.Data)
	case "submission.expired":
		h.handleExpired(c, envelope.Data)
	default:
		// Unknown events are acknowledged so new event types never break
		// delivery.
		logger.Debug(c.Request.Context(), "ignoring webhook event", "event_type", envelope.EventType)
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
	}
}

func (h *WebhookHandler) handleCompleted(c *gin.Context, data json.RawMessage) {
	var event submissionEventData
	if err := json.Unmarshal(data, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event data"})
		return
	}

	kind, doc, err := h.store.FindByEnvelopeID(event.ID)
	if err != nil {
		// Delivery retry is the sender's responsibility; report and move on.
		logger.Warn(c.Request.Context(), "webhook for unknown submission", "submission_id", event.ID)
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	// Redeliveries of an already-applied completion are acknowledged without
	// touching the document or appending a second audit record.
	if doc.Status == model.StatusSigned {
		logger.Debug(c.Request.Context(), "duplicate completion delivery",
			"kind", kind,
			"document_id", doc.ID,
			"submission_id", event.ID,
		)
		c.JSON(http.StatusOK, gin.H{"message": "Webhook processed"})
		return
	}

	status := model.StatusSigned
	fields := service.UpdateFields{
		Status:   &status,
		SignedAt: event.CompletedAt,
	}
	if len(event.Documents) > 0 {
		fields.SignedPDFURL = &event.Documents[0].URL
	}

	if _, err := h.store.Update(kind, doc.ID, fields); err != nil {
		logger.Error(c.Request.Context(), "failed to apply signed transition",
			"kind", kind,
			"document_id", doc.ID,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update document"})
		return
	}

	recipient := doc.SignerEmail
	if len(event.Submitters) > 0 {
		recipient = event.Submitters[0].Email
	}
	h.audit.Append(recipient, model.EventDocumentSigned, doc.ID)

	logger.Info(c.Request.Context(), "document signed",
		"kind", kind,
		"document_id", doc.ID,
		"submission_id", event.ID,
	)
	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed"})
}

func (h *WebhookHandler) handleExpired(c *gin.Context, data json.RawMessage) {
	var event submissionEventData
	if err := json.Unmarshal(data, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event data"})
		return
	}

	// Broadcast across every kind collection; at most one row matches and
	// the rest are no-ops.
	updated := h.store.MarkExpiredByEnvelopeID(event.ID)

	logger.Info(c.Request.Context(), "submission expired",
		"submission_id", event.ID,
		"documents_updated", updated,
	)
	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed"})
}
