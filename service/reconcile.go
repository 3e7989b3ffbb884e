package service

import (
	"context"
	"errors"
	"time"

	"github.com/hirestack/docflow/model"
	"github.com/hirestack/docflow/pkg/logger"
)

// DefaultPollInterval is how often a watched document is refreshed from the
// external service when no interval is configured.
const DefaultPollInterval = 30 * time.Second

// Reconciler refreshes a document's status from the external signature
// service. This path is advisory freshness; the webhook is the primary
// driver of terminal transitions, and both converge to the same value since
// they read the same authority.
type Reconciler struct {
	store    *DocumentStore
	docuseal *DocusealService
	interval time.Duration
}

func NewReconciler(store *DocumentStore, docuseal *DocusealService, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Reconciler{
		store:    store,
		docuseal: docuseal,
		interval: interval,
	}
}

// Reconcile fetches the submission once and persists the mapped status if it
// differs from the stored one. Documents without an envelope id, or already
// terminal, are returned untouched.
func (r *Reconciler) Reconcile(ctx context.Context, kind model.Kind, id string) (*model.Document, error) {
	doc, err := r.store.Get(kind, id)
	if err != nil {
		return nil, err
	}

	if doc.EnvelopeID == "" || model.IsTerminal(doc.Status) {
		return doc, nil
	}

	submission, err := r.docuseal.GetSubmission(ctx, doc.EnvelopeID)
	if err != nil {
		return nil, err
	}

	mapped := MapSubmissionStatus(submission.Status)
	if mapped == "" || mapped == doc.Status {
		return doc, nil
	}

	fields := UpdateFields{Status: &mapped}
	if mapped == model.StatusSigned {
		fields.SignedAt = submission.CompletedAt
		if len(submission.Documents) > 0 {
			fields.SignedPDFURL = &submission.Documents[0].URL
		}
	}

	updated, err := r.store.Update(kind, id, fields)
	if err != nil {
		// A concurrent webhook or poll may have landed the same terminal
		// state first; re-read rather than fail.
		if current, getErr := r.store.Get(kind, id); getErr == nil && current.Status == mapped {
			return current, nil
		}
		return nil, err
	}

	logger.Info(ctx, "status reconciled",
		"kind", kind,
		"document_id", id,
		"envelope_id", doc.EnvelopeID,
		"status", mapped,
	)
	return updated, nil
}

// Watch polls the submission at the reconciler's interval until the document
// reaches a terminal status or the context is cancelled. The first poll runs
// immediately rather than one interval in.
func (r *Reconciler) Watch(ctx context.Context, kind model.Kind, id string) {
	if r.poll(ctx, kind, id) {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.poll(ctx, kind, id) {
				return
			}
		}
	}
}

// poll runs one reconcile pass and reports whether the watch is finished.
func (r *Reconciler) poll(ctx context.Context, kind model.Kind, id string) bool {
	doc, err := r.Reconcile(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Document was cleaned up out from under the watch.
			return true
		}
		logger.Warn(ctx, "reconcile poll failed",
			"kind", kind,
			"document_id", id,
			"error", err,
		)
		return false
	}
	return model.IsTerminal(doc.Status)
}
