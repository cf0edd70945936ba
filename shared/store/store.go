// Package store is the document store adapter: a uniform create/get/list/
// update/delete interface over named collections of JSON documents.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get, Update and Delete for a missing document.
var ErrNotFound = errors.New("document not found")

// Fields is the top-level field map of a document.
type Fields map[string]interface{}

// Document is a stored document with its server-assigned metadata.
type Document struct {
	ID         string
	Collection string
	Fields     Fields
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Filter is an equality or range predicate on a top-level field.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Where builds a Filter.
func Where(field string, op Op, value interface{}) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// OrderBy sorts a listing on a single field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Asc orders by field ascending.
func Asc(field string) *OrderBy { return &OrderBy{Field: field} }

// Desc orders by field descending.
func Desc(field string) *OrderBy { return &OrderBy{Field: field, Desc: true} }

// Store is implemented by every backing store. Each call is a separate round
// trip; no atomicity is provided across calls.
type Store interface {
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	List(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error)
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
}

// Metadata keys that are owned by the store and never persisted in a body.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Encode converts a model into document fields, dropping store-owned keys.
func Encode(v interface{}) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	delete(fields, FieldID)
	delete(fields, FieldCreatedAt)
	delete(fields, FieldUpdatedAt)
	return fields, nil
}

// Decode fills a model from a document, including id and timestamps.
func Decode(doc *Document, v interface{}) error {
	merged := make(Fields, len(doc.Fields)+3)
	for k, val := range doc.Fields {
		merged[k] = val
	}
	merged[FieldID] = doc.ID
	merged[FieldCreatedAt] = doc.CreatedAt
	merged[FieldUpdatedAt] = doc.UpdatedAt

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

// normalize round-trips fields through JSON so every backend compares the
// same representation (numbers as float64, times as RFC 3339 strings).
func normalize(fields Fields) (Fields, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	delete(out, FieldID)
	delete(out, FieldCreatedAt)
	delete(out, FieldUpdatedAt)
	return out, nil
}
