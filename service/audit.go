package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirestack/docflow/model"
)

// AuditStore keeps audit records in memory, newest last.
type AuditStore struct {
	records []model.AuditRecord
	mu      sync.RWMutex
}

var (
	globalAudit *AuditStore
	auditOnce   sync.Once
)

// GetAuditStore returns the global audit store
func GetAuditStore() *AuditStore {
	auditOnce.Do(func() {
		globalAudit = &AuditStore{}
	})
	return globalAudit
}

// Append records an audit event and returns the stored record.
func (s *AuditStore) Append(recipient, event, reference string) model.AuditRecord {
	record := model.AuditRecord{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Event:     event,
		Reference: reference,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()

	return record
}

// ByReference returns all records for a document id, in append order.
func (s *AuditStore) ByReference(reference string) []model.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.AuditRecord
	for _, record := range s.records {
		if record.Reference == reference {
			result = append(result, record)
		}
	}
	return result
}

// Count returns the number of records in the store
func (s *AuditStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
