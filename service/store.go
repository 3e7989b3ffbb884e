package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirestack/docflow/config"
	"github.com/hirestack/docflow/model"
)

// DocumentStore is an in-memory store holding one collection per document
// kind. In production, this should be replaced with a database.
type DocumentStore struct {
	collections  map[model.Kind]map[string]*model.Document
	items        map[string][]model.InvoiceItem // invoice id -> line items
	mu           sync.RWMutex
	maxDocuments int // Maximum documents to keep across kinds, 0 = unlimited
}

var (
	globalStore *DocumentStore
	storeOnce   sync.Once
)

func newCollections() map[model.Kind]map[string]*model.Document {
	collections := make(map[model.Kind]map[string]*model.Document, len(model.Kinds()))
	for _, kind := range model.Kinds() {
		collections[kind] = make(map[string]*model.Document)
	}
	return collections
}

// InitDocumentStore initializes the global document store with configuration
func InitDocumentStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		maxDocuments := cfg.MaxDocuments
		if maxDocuments < 0 {
			maxDocuments = 0
		}
		globalStore = &DocumentStore{
			collections:  newCollections(),
			items:        make(map[string][]model.InvoiceItem),
			maxDocuments: maxDocuments,
		}
		slog.Info("document store initialized", "max_documents", maxDocuments)
	})
}

// GetDocumentStore returns the global document store
func GetDocumentStore() *DocumentStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = &DocumentStore{
			collections:  newCollections(),
			items:        make(map[string][]model.InvoiceItem),
			maxDocuments: 1000,
		}
	}
	return globalStore
}

// UpdateFields is a partial update applied to a document. Nil fields are left
// untouched.
type UpdateFields struct {
	Status       *string
	PDFURL       *string
	PDFObject    *string
	SignedPDFURL *string
	EnvelopeID   *string
	SignedAt     *time.Time
}

// Save inserts or replaces a document in its kind's collection.
func (s *DocumentStore) Save(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UpdatedAt = time.Now()
	s.collections[doc.Kind][doc.ID] = doc

	s.cleanupIfNeeded()
}

// Get returns the document with the given kind and id, or ErrNotFound. The
// returned document is a copy; mutations go through Update.
func (s *DocumentStore) Get(kind model.Kind, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.copyDocument(doc), nil
}

// Update applies a partial update to a document and refreshes updated_at.
// Status changes are validated against the transition table; setting the
// current status again is a no-op write. A transition to sent requires
// pdf_url, and any status past pending requires an envelope id.
func (s *DocumentStore) Update(kind model.Kind, id string, fields UpdateFields) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[kind][id]
	if !ok {
		return nil, ErrNotFound
	}

	if fields.Status != nil && *fields.Status != doc.Status {
		if !model.CanTransition(doc.Status, *fields.Status) {
			return nil, ErrInvalidTransition
		}
		envelopeID := doc.EnvelopeID
		if fields.EnvelopeID != nil {
			envelopeID = *fields.EnvelopeID
		}
		if *fields.Status != model.StatusPending && envelopeID == "" {
			return nil, ErrInvalidTransition
		}
		if *fields.Status == model.StatusSent && doc.PDFURL == "" && fields.PDFURL == nil {
			return nil, ErrPDFNotReady
		}
		doc.Status = *fields.Status
	}
	if fields.PDFURL != nil {
		doc.PDFURL = *fields.PDFURL
	}
	if fields.PDFObject != nil {
		doc.PDFObject = *fields.PDFObject
	}
	if fields.SignedPDFURL != nil {
		doc.SignedPDFURL = *fields.SignedPDFURL
	}
	if fields.EnvelopeID != nil {
		doc.EnvelopeID = *fields.EnvelopeID
	}
	if fields.SignedAt != nil {
		doc.SignedAt = fields.SignedAt
	}
	doc.UpdatedAt = time.Now()

	return s.copyDocument(doc), nil
}

// TransitionToSent moves a pending document to sent and records its envelope
// id in one step. The status check happens under the store lock, so two
// concurrent senders cannot both observe pending; the loser gets
// ErrAlreadySent.
func (s *DocumentStore) TransitionToSent(kind model.Kind, id, envelopeID string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	if doc.Status != model.StatusPending {
		return nil, ErrAlreadySent
	}
	if doc.PDFURL == "" {
		return nil, ErrPDFNotReady
	}

	doc.Status = model.StatusSent
	doc.EnvelopeID = envelopeID
	doc.UpdatedAt = time.Now()

	return s.copyDocument(doc), nil
}

// FindByEnvelopeID fans out across all kind collections and returns the first
// document owning the envelope id. Envelope ids are assigned by a single
// external authority and are globally unique across kinds.
func (s *DocumentStore) FindByEnvelopeID(envelopeID string) (model.Kind, *model.Document, error) {
	if envelopeID == "" {
		return "", nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, kind := range model.Kinds() {
		for _, doc := range s.collections[kind] {
			if doc.EnvelopeID == envelopeID {
				return kind, s.copyDocument(doc), nil
			}
		}
	}
	return "", nil, ErrNotFound
}

// MarkExpiredByEnvelopeID broadcasts an expired transition across all kind
// collections. At most one collection actually matches; the rest are harmless
// no-ops. Returns the number of documents updated.
func (s *DocumentStore) MarkExpiredByEnvelopeID(envelopeID string) int {
	if envelopeID == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, kind := range model.Kinds() {
		for _, doc := range s.collections[kind] {
			if doc.EnvelopeID != envelopeID {
				continue
			}
			if doc.Status == model.StatusExpired {
				continue
			}
			if !model.CanTransition(doc.Status, model.StatusExpired) {
				slog.Warn("skipping expired transition",
					"document_id", doc.ID,
					"kind", kind,
					"status", doc.Status,
				)
				continue
			}
			doc.Status = model.StatusExpired
			doc.UpdatedAt = time.Now()
			updated++
		}
	}
	return updated
}

// CreateInvoice inserts the invoice row with server-computed totals, then
// inserts the item rows. The two writes are not atomic: an item row that
// fails validation is logged and skipped without rolling back the invoice.
func (s *DocumentStore) CreateInvoice(doc *model.Document, items []model.InvoiceItem) (*model.Document, error) {
	doc.Kind = model.KindInvoice
	if doc.Status == "" {
		doc.Status = model.StatusPending
	}

	valid := make([]model.InvoiceItem, 0, len(items))
	for _, item := range items {
		if item.Description == "" || item.Quantity <= 0 || item.Rate < 0 {
			continue
		}
		item.ComputeAmount()
		valid = append(valid, item)
	}

	doc.Subtotal, doc.TaxAmount, doc.Total = model.ComputeInvoiceTotals(valid, doc.TaxRate)

	s.mu.Lock()
	doc.UpdatedAt = time.Now()
	s.collections[model.KindInvoice][doc.ID] = doc
	s.mu.Unlock()

	// Second write: item rows. Failures here do not undo the invoice row.
	inserted := 0
	for i := range valid {
		item := valid[i]
		item.ID = uuid.New().String()
		item.InvoiceID = doc.ID
		s.mu.Lock()
		s.items[doc.ID] = append(s.items[doc.ID], item)
		s.mu.Unlock()
		inserted++
	}
	if skipped := len(items) - inserted; skipped > 0 {
		slog.Warn("invoice item rows skipped",
			"invoice_id", doc.ID,
			"skipped", skipped,
		)
	}

	return s.Get(model.KindInvoice, doc.ID)
}

// ItemsFor returns the line items of an invoice.
func (s *DocumentStore) ItemsFor(invoiceID string) []model.InvoiceItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.InvoiceItem(nil), s.items[invoiceID]...)
}

// InvoicesWithoutItems returns invoices whose item rows never landed, for
// reconciliation of the non-atomic two-step create.
func (s *DocumentStore) InvoicesWithoutItems() []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Document
	for _, doc := range s.collections[model.KindInvoice] {
		if len(s.items[doc.ID]) == 0 {
			result = append(result, s.copyDocument(doc))
		}
	}
	return result
}

// List returns all documents across kinds, newest first.
func (s *DocumentStore) List() []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Document
	for _, kind := range model.Kinds() {
		for _, doc := range s.collections[kind] {
			result = append(result, s.copyDocument(doc))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Count returns the number of documents across all collections.
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, collection := range s.collections {
		total += len(collection)
	}
	return total
}

// copyDocument returns a detached copy. Must be called with the lock held.
func (s *DocumentStore) copyDocument(doc *model.Document) *model.Document {
	copied := *doc
	if doc.Fields != nil {
		copied.Fields = make(map[string]string, len(doc.Fields))
		for k, v := range doc.Fields {
			copied.Fields[k] = v
		}
	}
	copied.Items = append([]model.InvoiceItem(nil), s.items[doc.ID]...)
	return &copied
}

// cleanupIfNeeded removes oldest documents if the store exceeds maxDocuments
// Must be called with lock held.
func (s *DocumentStore) cleanupIfNeeded() {
	if s.maxDocuments <= 0 {
		return // Unlimited
	}

	total := 0
	for _, collection := range s.collections {
		total += len(collection)
	}
	if total <= s.maxDocuments {
		return
	}

	// Sort documents by creation time across kinds
	docs := make([]*model.Document, 0, total)
	for _, collection := range s.collections {
		for _, doc := range collection {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	removeCount := total - s.maxDocuments
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old document",
			"document_id", docs[i].ID,
			"kind", docs[i].Kind,
			"created_at", docs[i].CreatedAt,
		)
		delete(s.collections[docs[i].Kind], docs[i].ID)
		delete(s.items, docs[i].ID)
	}
}
