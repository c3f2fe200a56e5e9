package audit

import (
	"context"
	"sync"

	"github.com/GoPolymarket/panelgate/internal/model"
)

// MemorySink keeps the most recent records in a fixed-size ring.
type MemorySink struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditRecord
	nextIndex int
}

func NewMemorySink(maxSize int) *MemorySink {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemorySink{
		maxSize: maxSize,
		records: make([]*model.AuditRecord, 0, maxSize),
	}
}

func (m *MemorySink) Append(_ context.Context, rec *model.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) < m.maxSize {
		m.records = append(m.records, rec)
		return nil
	}
	m.records[m.nextIndex] = rec
	m.nextIndex = (m.nextIndex + 1) % m.maxSize
	return nil
}

func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// List walks the ring newest first.
func (m *MemorySink) List(_ context.Context, filter model.AuditFilter) ([]*model.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit := filter.Limit
	if limit <= 0 || limit > m.maxSize {
		limit = m.maxSize
	}
	results := make([]*model.AuditRecord, 0, min(limit, len(m.records)))
	total := len(m.records)
	for i := 0; i < total; i++ {
		rec := m.records[(m.nextIndex+total-1-i)%total]
		if !filter.Match(rec) {
			continue
		}
		results = append(results, rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
