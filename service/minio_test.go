package service

import (
	"context"
	"strings"
	"testing"

	"github.com/hirestack/docflow/config"
)

func TestMinioPublicURL(t *testing.T) {
	tests := []struct {
		name     string
		useSSL   bool
		expected string
	}{
		{"http", false, "http://localhost:9000/documents/invoice/inv-1/100.pdf"},
		{"https", true, "https://localhost:9000/documents/invoice/inv-1/100.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewMinioService(&config.MinioConfig{
				Endpoint:  "localhost:9000",
				AccessKey: "minioadmin",
				SecretKey: "minioadmin",
				Bucket:    "documents",
				UseSSL:    tt.useSSL,
			})
			if err != nil {
				t.Fatalf("NewMinioService failed: %v", err)
			}
			if got := svc.PublicURL("invoice/inv-1/100.pdf"); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMinioPresignedURL(t *testing.T) {
	svc, err := NewMinioService(&config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "minioadmin",
		SecretKey:  "minioadmin",
		Bucket:     "documents",
		ExpireDays: 7,
	})
	if err != nil {
		t.Fatalf("NewMinioService failed: %v", err)
	}

	// Presigning is local signing, no server round trip
	url, err := svc.PresignedURL(context.Background(), "invoice/inv-1/100.pdf")
	if err != nil {
		t.Fatalf("PresignedURL failed: %v", err)
	}
	if !strings.Contains(url, "invoice/inv-1/100.pdf") {
		t.Errorf("Expected object path in url, got %q", url)
	}
	if !strings.Contains(url, "X-Amz-Signature") {
		t.Errorf("Expected a signed query string, got %q", url)
	}
}
