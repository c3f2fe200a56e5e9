package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoPolymarket/panelgate/internal/model"
)

// MemoryStore keeps records per table. Callers always receive copies.
type MemoryStore struct {
	mu     sync.RWMutex
	owners map[string]string
	tables map[string]map[string]map[string]any
}

func NewMemoryStore(owners map[string]string) *MemoryStore {
	tables := make(map[string]map[string]map[string]any, len(owners))
	for t := range owners {
		tables[t] = make(map[string]map[string]any)
	}
	return &MemoryStore{owners: owners, tables: tables}
}

// Seed inserts or replaces a record. The id field is forced to id.
func (s *MemoryStore) Seed(table, id string, record map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	rec := clone(record)
	rec["id"] = id
	rows[id] = rec
	return nil
}

func (s *MemoryStore) FetchOwnership(_ context.Context, table, id string) (model.Ownership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.lookup(table, id)
	if err != nil {
		return model.Ownership{}, err
	}
	owner, _ := rec[s.owners[table]].(string)
	return model.Ownership{ID: id, OwnerID: owner}, nil
}

func (s *MemoryStore) Get(_ context.Context, table, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.lookup(table, id)
	if err != nil {
		return nil, err
	}
	return clone(rec), nil
}

func (s *MemoryStore) Update(_ context.Context, table, id string, fields map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookup(table, id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	return clone(rec), nil
}

func (s *MemoryStore) Delete(_ context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(table, id); err != nil {
		return err
	}
	delete(s.tables[table], id)
	return nil
}

func (s *MemoryStore) lookup(table, id string) (map[string]any, error) {
	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	rec, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func clone(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
