package service

import (
	"context"

	"github.com/hirestack/docflow/model"
	"github.com/hirestack/docflow/pkg/logger"
)

// SubmissionService drives the "send for signature" transition: template
// resolution with fallback, external submission creation, state update.
type SubmissionService struct {
	store     *DocumentStore
	templates *TemplateStore
	docuseal  *DocusealService
}

func NewSubmissionService(store *DocumentStore, templates *TemplateStore, docuseal *DocusealService) *SubmissionService {
	return &SubmissionService{
		store:     store,
		templates: templates,
		docuseal:  docuseal,
	}
}

// SendResult is what the caller needs to hand the signer their link.
type SendResult struct {
	SubmissionID string `json:"submission_id"`
	SigningURL   string `json:"signing_url"`
}

// SendForSignature submits a document to the external signature service and
// moves it from pending to sent. The document must already have a rendered
// PDF; that is checked before any external call is made.
func (s *SubmissionService) SendForSignature(ctx context.Context, kind model.Kind, id, signerEmail, signerName string) (*SendResult, error) {
	doc, err := s.store.Get(kind, id)
	if err != nil {
		return nil, err
	}

	if doc.PDFURL == "" {
		return nil, ErrPDFNotReady
	}

	tpl, err := s.templates.ResolveActive(kind)
	if err != nil {
		return nil, err
	}
	if tpl.ExternalTemplateID == "" {
		return nil, ErrTemplateNotLinked
	}

	if signerEmail == "" {
		signerEmail = doc.SignerEmail
	}
	if signerName == "" {
		signerName = doc.SignerName
	}

	submission, err := s.docuseal.CreateSubmission(ctx, tpl.ExternalTemplateID, []Signer{
		{Email: signerEmail, Name: signerName, Role: "signer"},
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.TransitionToSent(kind, id, submission.ID); err != nil {
		// The external submission already exists at this point. Log its id
		// so an operator can void the orphan.
		logger.Warn(ctx, "submission created but state transition failed",
			"kind", kind,
			"document_id", id,
			"submission_id", submission.ID,
			"error", err,
		)
		return nil, err
	}

	result := &SendResult{SubmissionID: submission.ID}
	if len(submission.Submitters) > 0 {
		result.SigningURL = submission.Submitters[0].SigningURL
	}

	logger.Info(ctx, "document sent for signature",
		"kind", kind,
		"document_id", id,
		"submission_id", submission.ID,
	)
	return result, nil
}
