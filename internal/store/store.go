// Package store is the document store adapter: documents keyed by id, grouped
// into slash-separated collection paths, with point reads, equality queries,
// live subscriptions, field-level updates and atomic transactions.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("transaction conflict")
)

// maxTxAttempts bounds the retry-on-conflict loop of RunTransaction.
const maxTxAttempts = 5

type serverTimestamp struct{}

// ServerTimestamp is replaced by the write time when stored.
var ServerTimestamp = serverTimestamp{}

type Document struct {
	ID   string
	Data map[string]interface{}
}

// Filter is an equality ("==") or membership ("in") condition on a top-level field.
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

func Eq(field string, v interface{}) Filter { return Filter{Field: field, Op: "==", Value: v} }
func In(field string, vs interface{}) Filter { return Filter{Field: field, Op: "in", Value: vs} }

// Subscription is a running live query; Stop ends it.
type Subscription interface {
	Stop()
}

type Store interface {
	NewID(collection string) string
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	Create(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Subscribe calls fn with the full matching snapshot now and after every change.
	Subscribe(ctx context.Context, collection string, fn func([]Document), filters ...Filter) (Subscription, error)
	// SubscribeDoc calls fn with the document (nil Data when missing) now and after every change.
	SubscribeDoc(ctx context.Context, collection, id string, fn func(Document)) (Subscription, error)
	// RunTransaction runs fn and commits its writes atomically; fn may be
	// called more than once when a concurrent write invalidates its reads.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Tx stages writes until commit. All reads must happen before the first write.
type Tx interface {
	Get(collection, id string) (Document, error)
	Query(collection string, filters ...Filter) ([]Document, error)
	Set(collection, id string, data map[string]interface{}) error
	Update(collection, id string, fields map[string]interface{}) error
}

// Encode converts a model into a document payload through its json tags.
func Encode(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	out, err := unmarshalValue(b)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	m, ok := out.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("encode: %T is not an object", v)
	}
	return m, nil
}

// Decode fills v from a document payload.
func Decode(data map[string]interface{}, v interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// unmarshalValue decodes JSON keeping whole numbers as int64, the shape the
// hosted store returns for integer fields.
func unmarshalValue(b []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return convertNumbers(out), nil
}

func convertNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]interface{}:
		for k, e := range t {
			t[k] = convertNumbers(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = convertNumbers(e)
		}
		return t
	default:
		return v
	}
}
