package hostel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// storeError classifies an adapter error for the entity it concerns.
func storeError(op, entity, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(op, entity, id)
	}
	return apperr.Transient(op, err)
}

func load[T any](ctx context.Context, d *deps, op, collection, entity, id string) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation(op, "%s id is required", entity)
	}
	doc, err := d.store.Get(ctx, collection, id)
	if err != nil {
		return nil, storeError(op, entity, id, err)
	}
	var v T
	if err := store.Decode(doc, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}

func list[T any](ctx context.Context, d *deps, op, collection string, filters []store.Filter, order *store.OrderBy) ([]T, error) {
	docs, err := d.store.List(ctx, collection, filters, order)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	out := make([]T, 0, len(docs))
	for i := range docs {
		var v T
		if err := store.Decode(&docs[i], &v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func insert(ctx context.Context, d *deps, op, collection string, v interface{}) (string, error) {
	fields, err := store.Encode(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	id, err := d.store.Create(ctx, collection, fields)
	if err != nil {
		return "", apperr.Transient(op, err)
	}
	return id, nil
}

// save writes every field of v over the stored document.
func save(ctx context.Context, d *deps, op, collection, entity, id string, v interface{}) error {
	fields, err := store.Encode(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return patch(ctx, d, op, collection, entity, id, fields)
}

func patch(ctx context.Context, d *deps, op, collection, entity, id string, fields store.Fields) error {
	if err := d.store.Update(ctx, collection, id, fields); err != nil {
		return storeError(op, entity, id, err)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
