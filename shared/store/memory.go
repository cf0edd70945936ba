package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Each call is individually atomic, like
// a single round trip to a remote store, and nothing more.
type MemoryStore struct {
	mu          sync.Mutex
	now         func() time.Time
	collections map[string]map[string]*Document
	order       map[string][]string
}

// NewMemoryStore creates an empty store. A nil clock defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:         now,
		collections: make(map[string]map[string]*Document),
		order:       make(map[string][]string),
	}
}

func copyFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func copyDocument(d *Document) Document {
	c := *d
	c.Fields = copyFields(d.Fields)
	return c
}

// Create stores a new document and returns its id.
func (m *MemoryStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := normalize(fields)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	id := uuid.New().String()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]*Document)
	}
	m.collections[collection][id] = &Document{
		ID:         id,
		Collection: collection,
		Fields:     body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.order[collection] = append(m.order[collection], id)
	return id, nil
}

// Get returns a copy of a document or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	c := copyDocument(doc)
	return &c, nil
}

// List returns copies of the matching documents.
func (m *MemoryStore) List(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	docs := make([]Document, 0, len(m.order[collection]))
	for _, id := range m.order[collection] {
		if doc, ok := m.collections[collection][id]; ok {
			docs = append(docs, copyDocument(doc))
		}
	}
	m.mu.Unlock()

	return applyQuery(docs, filters, order), nil
}

// Update merges fields into an existing document.
func (m *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := normalize(fields)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range body {
		doc.Fields[k] = v
	}
	doc.UpdatedAt = m.now().UTC()
	return nil
}

// Delete removes a document.
func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.collections[collection], id)
	ids := m.order[collection]
	for i, existing := range ids {
		if existing == id {
			m.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
