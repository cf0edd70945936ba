package store

import (
	"context"
	"errors"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

// BreakerStore routes every call through a circuit breaker. A rejected call
// surfaces as a transient error so callers know a retry is safe.
type BreakerStore struct {
	next    Store
	breaker *utils.CircuitBreaker
}

// NewBreakerStore wraps next. Missing documents never trip the breaker.
func NewBreakerStore(next Store, breaker *utils.CircuitBreaker) *BreakerStore {
	breaker.IgnoreErrors(func(err error) bool {
		return errors.Is(err, ErrNotFound)
	})
	return &BreakerStore{next: next, breaker: breaker}
}

func (s *BreakerStore) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := s.breaker.Execute(ctx, fn)
	if errors.Is(err, utils.ErrCircuitOpen) || errors.Is(err, utils.ErrTooManyRequests) {
		return apperr.Transient(op, err)
	}
	return err
}

func (s *BreakerStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	var id string
	err := s.run(ctx, "create "+collection, func(ctx context.Context) error {
		var err error
		id, err = s.next.Create(ctx, collection, fields)
		return err
	})
	return id, err
}

func (s *BreakerStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var doc *Document
	err := s.run(ctx, "get "+collection, func(ctx context.Context) error {
		var err error
		doc, err = s.next.Get(ctx, collection, id)
		return err
	})
	return doc, err
}

func (s *BreakerStore) List(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error) {
	var docs []Document
	err := s.run(ctx, "list "+collection, func(ctx context.Context) error {
		var err error
		docs, err = s.next.List(ctx, collection, filters, order)
		return err
	})
	return docs, err
}

func (s *BreakerStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	return s.run(ctx, "update "+collection, func(ctx context.Context) error {
		return s.next.Update(ctx, collection, id, fields)
	})
}

func (s *BreakerStore) Delete(ctx context.Context, collection, id string) error {
	return s.run(ctx, "delete "+collection, func(ctx context.Context) error {
		return s.next.Delete(ctx, collection, id)
	})
}
