package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/papyrus-app/papyrus/internal/document"
)

// Memory is an in-memory Storage used for unit tests and local development.
// Documents are deep-copied on the way in and out so callers can never
// mutate stored state through a returned handle.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]document.Document // collection -> id -> doc
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]document.Document)}
}

func (m *Memory) GetByID(ctx context.Context, collection, id string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *Memory) GetBatch(ctx context.Context, collection string, ids []string) (map[string]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]document.Document, len(ids))
	for _, id := range ids {
		if doc, ok := m.data[collection][id]; ok {
			out[id] = doc.Clone()
		}
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, collection string, doc document.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := doc.Clone()
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
		stored[document.FieldID] = id
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]document.Document)
	}
	m.data[collection][id] = stored
	return id, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, set document.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range set.Clone() {
		if k == document.FieldID {
			continue
		}
		doc[k] = v
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.data[collection], id)
	return nil
}
