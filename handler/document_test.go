package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hirestack/docflow/config"
	"github.com/hirestack/docflow/model"
	"github.com/hirestack/docflow/service"
)

// stubSigner mints predictable presigned URLs without an object store.
type stubSigner struct {
	err error
}

func (s *stubSigner) PresignedURL(ctx context.Context, objectName string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "http://minio.local/presigned/" + objectName, nil
}

// newDocumentRouter wires a handler against the global stores and a stub
// signature service.
func newDocumentRouter(t *testing.T, docusealHandler http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(docusealHandler)
	t.Cleanup(server.Close)

	cfg := &config.DocusealConfig{
		APIURL:          server.URL,
		APIKey:          "test-key",
		SignatureHeader: "X-Signature",
	}
	docuseal := service.NewDocusealService(cfg)
	store := service.GetDocumentStore()
	templates := service.GetTemplateStore()

	h := NewDocumentHandler(
		service.NewPDFService(nil, store, templates, &config.PDFConfig{TimeoutSeconds: 5}),
		service.NewSubmissionService(store, templates, docuseal),
		service.NewReconciler(store, docuseal, 0),
		&stubSigner{},
	)

	router := gin.New()
	router.POST("/api/documents", h.Create)
	router.GET("/api/documents", h.List)
	router.GET("/api/documents/:kind/:id", h.Get)
	router.GET("/api/documents/:kind/:id/download", h.Download)
	router.POST("/api/documents/:kind/:id/send", h.Send)
	router.GET("/api/documents/:kind/:id/signature", h.SignatureStatus)
	router.GET("/api/documents/:kind/:id/audit", h.Audit)
	return router
}

func doJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateDocument(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	w := doJSON(router, "POST", "/api/documents", map[string]any{
		"kind":         "client_agreement",
		"signer_email": "client@example.com",
		"signer_name":  "Client",
		"fields":       map[string]string{"company_name": "Acme"},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var doc model.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if doc.ID == "" || doc.Status != model.StatusPending {
		t.Errorf("Unexpected document: %+v", doc)
	}

	// The document is retrievable under its kind
	if w := doJSON(router, "GET", "/api/documents/client_agreement/"+doc.ID, nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 on get, got %d", w.Code)
	}
}

func TestCreateDocumentValidation(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"unknown kind", map[string]any{"kind": "purchase_order", "signer_email": "a@b.com", "signer_name": "A"}},
		{"missing email", map[string]any{"kind": "invoice", "signer_name": "A"}},
		{"bad email", map[string]any{"kind": "invoice", "signer_email": "not-an-email", "signer_name": "A"}},
		{"missing name", map[string]any{"kind": "invoice", "signer_email": "a@b.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doJSON(router, "POST", "/api/documents", tt.payload); w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
		})
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	w := doJSON(router, "POST", "/api/documents", map[string]any{
		"kind":         "invoice",
		"signer_email": "billing@example.com",
		"signer_name":  "Billing",
		"tax_rate":     10,
		"items": []map[string]any{
			{"description": "Design work", "quantity": 2, "rate": 50},
			{"description": "Consulting", "quantity": 1, "rate": 100},
		},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var doc model.Document
	json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Subtotal != 200 || doc.TaxAmount != 20 || doc.Total != 220 {
		t.Errorf("Expected 200/20/220, got %.2f/%.2f/%.2f", doc.Subtotal, doc.TaxAmount, doc.Total)
	}
	if len(doc.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(doc.Items))
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	if w := doJSON(router, "GET", "/api/documents/invoice/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	if w := doJSON(router, "GET", "/api/documents/bad_kind/nope", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad kind, got %d", w.Code)
	}
}

func TestDownloadDocument(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {})
	store := service.GetDocumentStore()

	store.Save(&model.Document{
		ID:        "dl-1",
		Kind:      model.KindInvoice,
		Status:    model.StatusPending,
		PDFURL:    "http://minio.local/documents/invoice/dl-1/100.pdf",
		PDFObject: "invoice/dl-1/100.pdf",
	})

	w := doJSON(router, "GET", "/api/documents/invoice/dl-1/download", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		DownloadURL string `json:"download_url"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.DownloadURL != "http://minio.local/presigned/invoice/dl-1/100.pdf" {
		t.Errorf("Unexpected download url: %s", resp.DownloadURL)
	}
}

func TestDownloadDocumentWithoutPDF(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	service.GetDocumentStore().Save(&model.Document{
		ID:     "dl-2",
		Kind:   model.KindClientAgreement,
		Status: model.StatusPending,
	})

	if w := doJSON(router, "GET", "/api/documents/client_agreement/dl-2/download", nil); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 before pdf generation, got %d", w.Code)
	}

	if w := doJSON(router, "GET", "/api/documents/client_agreement/missing/download", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown document, got %d", w.Code)
	}
}

func TestSendDocument(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "sub-h1",
			"status": "pending",
			"submitters": []map[string]string{
				{"email": "client@example.com", "signing_url": "http://sign.local/sub-h1"},
			},
		})
	})

	service.GetTemplateStore().Save(&model.Template{
		Kind:               model.KindClientAgreement,
		Name:               "Client Agreement",
		ExternalTemplateID: "ext-client",
		IsActive:           true,
	})
	service.GetDocumentStore().Save(&model.Document{
		ID:          "send-h1",
		Kind:        model.KindClientAgreement,
		Status:      model.StatusPending,
		SignerEmail: "client@example.com",
		PDFURL:      "http://minio.local/send-h1.pdf",
	})

	w := doJSON(router, "POST", "/api/documents/client_agreement/send-h1/send", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result service.SendResult
	json.Unmarshal(w.Body.Bytes(), &result)
	if result.SubmissionID != "sub-h1" || result.SigningURL != "http://sign.local/sub-h1" {
		t.Errorf("Unexpected result: %+v", result)
	}

	// Second send reports the conflict
	if w := doJSON(router, "POST", "/api/documents/client_agreement/send-h1/send", nil); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on repeat send, got %d", w.Code)
	}
}

func TestSendDocumentErrorMapping(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	store := service.GetDocumentStore()
	service.GetTemplateStore().Save(&model.Template{
		Kind:               model.KindClientAgreement,
		Name:               "Client Agreement",
		ExternalTemplateID: "ext-client",
		IsActive:           true,
	})

	// PDF missing -> 409
	store.Save(&model.Document{ID: "send-nopdf", Kind: model.KindClientAgreement, Status: model.StatusPending})
	if w := doJSON(router, "POST", "/api/documents/client_agreement/send-nopdf/send", nil); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 without pdf, got %d", w.Code)
	}

	// Unknown document -> 404
	if w := doJSON(router, "POST", "/api/documents/client_agreement/missing/send", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	// External failure -> 502
	store.Save(&model.Document{
		ID:     "send-err",
		Kind:   model.KindClientAgreement,
		Status: model.StatusPending,
		PDFURL: "http://minio.local/send-err.pdf",
	})
	if w := doJSON(router, "POST", "/api/documents/client_agreement/send-err/send", nil); w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 on external failure, got %d", w.Code)
	}
}

func TestSignatureStatus(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "env-h2",
			"status": "completed",
			"documents": []map[string]string{
				{"name": "signed.pdf", "url": "http://files.local/h2-signed.pdf"},
			},
		})
	})

	service.GetDocumentStore().Save(&model.Document{
		ID:         "status-h2",
		Kind:       model.KindInvoice,
		Status:     model.StatusSent,
		EnvelopeID: "env-h2",
		PDFURL:     "http://minio.local/h2.pdf",
	})

	w := doJSON(router, "GET", "/api/documents/invoice/status-h2/signature", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status       string `json:"status"`
		EnvelopeID   string `json:"envelope_id"`
		SignedPDFURL string `json:"signed_pdf_url"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != model.StatusSigned {
		t.Errorf("Expected signed, got %s", resp.Status)
	}
	if resp.SignedPDFURL != "http://files.local/h2-signed.pdf" {
		t.Errorf("Expected signed pdf url, got %s", resp.SignedPDFURL)
	}
}

func TestAuditEndpoint(t *testing.T) {
	router := newDocumentRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	service.GetDocumentStore().Save(&model.Document{
		ID:     "audit-h3",
		Kind:   model.KindClientAgreement,
		Status: model.StatusPending,
	})
	service.GetAuditStore().Append("client@example.com", model.EventDocumentSigned, "audit-h3")

	w := doJSON(router, "GET", "/api/documents/client_agreement/audit-h3/audit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Records []model.AuditRecord `json:"records"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Records) != 1 || resp.Records[0].Recipient != "client@example.com" {
		t.Errorf("Unexpected records: %+v", resp.Records)
	}

	if w := doJSON(router, "GET", "/api/documents/client_agreement/missing/audit", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown document, got %d", w.Code)
	}
}
