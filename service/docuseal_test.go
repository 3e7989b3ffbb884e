package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hirestack/docflow/config"
	"github.com/hirestack/docflow/model"
)

// signBody computes the sha256=<hex> signature a webhook sender would attach.
func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func testDocusealConfig() *config.DocusealConfig {
	return &config.DocusealConfig{
		APIURL:          "http://localhost:9999",
		APIKey:          "test-key",
		WebhookSecret:   "webhook-secret",
		SignatureHeader: "X-Signature",
		TemplateIDs: map[string]string{
			"client_agreement": "ext-client",
			"invoice":          "ext-invoice",
		},
	}
}

func TestCreateSubmission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/submissions" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Auth-Token") != "test-key" {
			t.Errorf("Expected auth token header, got %q", r.Header.Get("X-Auth-Token"))
		}

		var req struct {
			TemplateID string   `json:"template_id"`
			SendEmail  bool     `json:"send_email"`
			Submitters []Signer `json:"submitters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.TemplateID != "ext-client" || !req.SendEmail {
			t.Errorf("Unexpected request body: %+v", req)
		}
		if len(req.Submitters) != 1 || req.Submitters[0].Email != "signer@example.com" {
			t.Errorf("Unexpected submitters: %+v", req.Submitters)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":     "sub-1",
			"status": "pending",
			"submitters": []map[string]string{
				{"email": "signer@example.com", "signing_url": "http://sign.local/sub-1"},
			},
		})
	}))
	defer server.Close()

	cfg := testDocusealConfig()
	cfg.APIURL = server.URL
	svc := NewDocusealService(cfg)

	sub, err := svc.CreateSubmission(context.Background(), "ext-client", []Signer{
		{Email: "signer@example.com", Name: "Signer", Role: "signer"},
	})
	if err != nil {
		t.Fatalf("CreateSubmission failed: %v", err)
	}
	if sub.ID != "sub-1" {
		t.Errorf("Expected submission id sub-1, got %s", sub.ID)
	}
	if sub.Submitters[0].SigningURL != "http://sign.local/sub-1" {
		t.Errorf("Unexpected signing url: %s", sub.Submitters[0].SigningURL)
	}
}

func TestCreateSubmissionServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"template not found"}`))
	}))
	defer server.Close()

	cfg := testDocusealConfig()
	cfg.APIURL = server.URL
	svc := NewDocusealService(cfg)

	_, err := svc.CreateSubmission(context.Background(), "bad", nil)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("Expected *ServiceError, got %v", err)
	}
	if svcErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", svcErr.StatusCode)
	}
}

func TestGetSubmission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions/sub-2" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "sub-2",
			"status": "completed",
			"documents": []map[string]string{
				{"name": "agreement.pdf", "url": "http://files.local/signed.pdf"},
			},
		})
	}))
	defer server.Close()

	cfg := testDocusealConfig()
	cfg.APIURL = server.URL
	svc := NewDocusealService(cfg)

	sub, err := svc.GetSubmission(context.Background(), "sub-2")
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if sub.Status != "completed" {
		t.Errorf("Expected completed, got %s", sub.Status)
	}
	if len(sub.Documents) != 1 || sub.Documents[0].URL != "http://files.local/signed.pdf" {
		t.Errorf("Unexpected documents: %+v", sub.Documents)
	}
}

func TestGetSubmissionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testDocusealConfig()
	cfg.APIURL = server.URL
	svc := NewDocusealService(cfg)

	_, err := svc.GetSubmission(context.Background(), "missing")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 ServiceError, got %v", err)
	}
}

func TestVerifyHMACSignature(t *testing.T) {
	secret := "top-secret"
	body := []byte(`{"event_type":"submission.completed"}`)
	valid := signBody(secret, body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		expected  bool
	}{
		{"valid signature", secret, body, valid, true},
		{"valid without prefix case", secret, body, "SHA256=" + valid[len("sha256="):], true},
		{"wrong secret", "other", body, valid, false},
		{"tampered body", secret, []byte(`{"event_type":"submission.expired"}`), valid, false},
		{"empty signature", secret, body, "", false},
		{"empty secret", "", body, valid, false},
		{"not hex", secret, body, "sha256=zzzz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyHMACSignature(tt.secret, tt.body, tt.signature); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMapSubmissionStatus(t *testing.T) {
	tests := []struct {
		external string
		expected string
	}{
		{"completed", model.StatusSigned},
		{"Completed", model.StatusSigned},
		{"expired", model.StatusExpired},
		{"pending", model.StatusSent},
		{"sent", model.StatusSent},
		{"awaiting", model.StatusSent},
		{"opened", model.StatusSent},
		{"declined", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MapSubmissionStatus(tt.external); got != tt.expected {
			t.Errorf("MapSubmissionStatus(%q) = %q, expected %q", tt.external, got, tt.expected)
		}
	}
}
