package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirestack/docflow/config"
	"github.com/hirestack/docflow/model"
)

// TemplateStore holds document templates. One template per kind is active at
// a time.
type TemplateStore struct {
	templates map[string]*model.Template
	mu        sync.RWMutex
}

var (
	globalTemplates *TemplateStore
	templatesOnce   sync.Once
)

// GetTemplateStore returns the global template store
func GetTemplateStore() *TemplateStore {
	templatesOnce.Do(func() {
		globalTemplates = &TemplateStore{
			templates: make(map[string]*model.Template),
		}
	})
	return globalTemplates
}

// NewTemplateStore creates an empty template store (used by tests).
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{templates: make(map[string]*model.Template)}
}

// Save inserts or replaces a template. Activating a template deactivates any
// other active template of the same kind.
func (s *TemplateStore) Save(tpl *model.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	tpl.UpdatedAt = time.Now()

	if tpl.IsActive {
		for _, existing := range s.templates {
			if existing.Kind == tpl.Kind && existing.ID != tpl.ID {
				existing.IsActive = false
			}
		}
	}
	s.templates[tpl.ID] = tpl
}

// Get returns a template by id, or nil.
func (s *TemplateStore) Get(id string) *model.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates[id]
}

// ActiveForKind returns the kind's own active template, without fallback.
func (s *TemplateStore) ActiveForKind(kind model.Kind) *model.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tpl := range s.templates {
		if tpl.Kind == kind && tpl.IsActive {
			return tpl
		}
	}
	return nil
}

// ResolveActive returns the active template for a kind, walking the kind's
// declared fallback chain when it has none of its own. Returns
// ErrTemplateNotFound when the chain is exhausted.
func (s *TemplateStore) ResolveActive(kind model.Kind) (*model.Template, error) {
	if tpl := s.ActiveForKind(kind); tpl != nil {
		return tpl, nil
	}
	for _, fallback := range model.FallbackChains[kind] {
		if tpl := s.ActiveForKind(fallback); tpl != nil {
			slog.Debug("template resolved via fallback",
				"kind", kind,
				"fallback_kind", fallback,
			)
			return tpl, nil
		}
	}
	return nil, ErrTemplateNotFound
}

// SeedDefaults installs the built-in templates for each kind and links them
// to the configured external template ids. The freelancer agreement ships
// without its own template unless one is configured, and resolves through its
// fallback chain to the client agreement.
func (s *TemplateStore) SeedDefaults(cfg *config.DocusealConfig, logoURL string) {
	s.Save(&model.Template{
		Kind:               model.KindClientAgreement,
		Name:               "Client Agreement",
		Content:            defaultClientAgreementTemplate(logoURL),
		ExternalTemplateID: cfg.TemplateIDs[string(model.KindClientAgreement)],
		IsActive:           true,
		CreatedAt:          time.Now(),
	})
	s.Save(&model.Template{
		Kind:               model.KindInvoice,
		Name:               "Invoice",
		Content:            defaultInvoiceTemplate(logoURL),
		ExternalTemplateID: cfg.TemplateIDs[string(model.KindInvoice)],
		IsActive:           true,
		CreatedAt:          time.Now(),
	})
	if externalID, ok := cfg.TemplateIDs[string(model.KindFreelancerAgreement)]; ok {
		s.Save(&model.Template{
			Kind:               model.KindFreelancerAgreement,
			Name:               "Freelancer Agreement",
			Content:            defaultFreelancerAgreementTemplate(logoURL),
			ExternalTemplateID: externalID,
			IsActive:           true,
			CreatedAt:          time.Now(),
		})
	}
}
