package store

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// fieldValue resolves a field on a document, including store-owned metadata.
func fieldValue(doc *Document, field string) (interface{}, bool) {
	switch field {
	case FieldID:
		return doc.ID, true
	case FieldCreatedAt:
		return doc.CreatedAt.UTC().Format(time.RFC3339Nano), true
	case FieldUpdatedAt:
		return doc.UpdatedAt.UTC().Format(time.RFC3339Nano), true
	}
	v, ok := doc.Fields[field]
	return v, ok
}

// normalizeValue maps a Go value onto its JSON representation.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// compareValues orders two normalized values. ok is false when the values
// are of incomparable types.
func compareValues(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, true
		case a == nil:
			return -1, true
		default:
			return 1, true
		}
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		at, aerr := time.Parse(time.RFC3339Nano, av)
		bt, berr := time.Parse(time.RFC3339Nano, bv)
		if aerr == nil && berr == nil {
			return at.Compare(bt), true
		}
		return strings.Compare(av, bv), true
	}
	return 0, false
}

// matches reports whether a document satisfies every filter. A range filter
// never matches a missing or null field.
func matches(doc *Document, filters []Filter) bool {
	for _, f := range filters {
		v, present := fieldValue(doc, f.Field)
		want := normalizeValue(f.Value)
		if !present {
			v = nil
		}
		if f.Op != OpEq && f.Op != OpNe && (v == nil || want == nil) {
			return false
		}
		cmp, ok := compareValues(v, want)
		if !ok {
			if f.Op == OpNe {
				continue
			}
			return false
		}
		var pass bool
		switch f.Op {
		case OpEq:
			pass = cmp == 0
		case OpNe:
			pass = cmp != 0
		case OpLt:
			pass = cmp < 0
		case OpLte:
			pass = cmp <= 0
		case OpGt:
			pass = cmp > 0
		case OpGte:
			pass = cmp >= 0
		}
		if !pass {
			return false
		}
	}
	return true
}

// applyQuery filters and orders docs in place and returns the result.
// Missing fields sort before present ones; ties keep creation order.
func applyQuery(docs []Document, filters []Filter, order *OrderBy) []Document {
	out := docs[:0]
	for i := range docs {
		if matches(&docs[i], filters) {
			out = append(out, docs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if order == nil || order.Field == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := fieldValue(&out[i], order.Field)
		b, _ := fieldValue(&out[j], order.Field)
		cmp, ok := compareValues(a, b)
		if !ok {
			return false
		}
		if order.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}
