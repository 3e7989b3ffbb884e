package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hirestack/docflow/config"
	"github.com/hirestack/docflow/model"
)

// DocusealService wraps the external e-signature API: submission creation,
// status fetch and webhook signature verification. Non-2xx responses surface
// as *ServiceError; this layer never retries.
type DocusealService struct {
	config     *config.DocusealConfig
	httpClient *http.Client
}

// Signer identifies one party on a signature request.
type Signer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Submitter is one party's state on an external submission.
type Submitter struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Status     string `json:"status,omitempty"`
	SigningURL string `json:"signing_url,omitempty"`
}

// SubmissionDocument is a finished document attached to a submission.
type SubmissionDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Submission is the external service's view of one signature request.
type Submission struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"` // pending, completed, expired
	Submitters    []Submitter          `json:"submitters"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	AuditTrailURL string               `json:"audit_log_url,omitempty"`
	Documents     []SubmissionDocument `json:"documents"`
}

type createSubmissionRequest struct {
	TemplateID string   `json:"template_id"`
	SendEmail  bool     `json:"send_email"`
	Submitters []Signer `json:"submitters"`
}

func NewDocusealService(cfg *config.DocusealConfig) *DocusealService {
	return &DocusealService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateSubmission creates a signature request from an external template.
func (s *DocusealService) CreateSubmission(ctx context.Context, externalTemplateID string, signers []Signer) (*Submission, error) {
	reqBody := createSubmissionRequest{
		TemplateID: externalTemplateID,
		SendEmail:  true,
		Submitters: signers,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/submissions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Auth-Token", s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result Submission
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	return &result, nil
}

// GetSubmission queries the current state of a submission.
func (s *DocusealService) GetSubmission(ctx context.Context, submissionID string) (*Submission, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/submissions/%s", s.config.APIURL, submissionID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Auth-Token", s.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result Submission
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature of a webhook over
// the raw body bytes. The header value carries a sha256=<hex> prefix; the
// comparison is constant-time.
func (s *DocusealService) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	return VerifyHMACSignature(s.config.WebhookSecret, rawBody, signatureHeader)
}

// VerifyHMACSignature verifies a sha256=<hex> signature header against the
// HMAC-SHA256 of body under secret.
func VerifyHMACSignature(secret string, body []byte, signatureHeader string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || secret == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(sig), "sha256=") {
		sig = sig[len("sha256="):]
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// MapSubmissionStatus maps an external submission status onto the internal
// document status enum. Unknown statuses map to "" and leave the stored
// status untouched.
func MapSubmissionStatus(external string) string {
	switch strings.ToLower(external) {
	case "completed":
		return model.StatusSigned
	case "expired":
		return model.StatusExpired
	case "pending", "sent", "awaiting", "opened":
		return model.StatusSent
	default:
		return ""
	}
}
