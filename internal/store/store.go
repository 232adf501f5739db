// Package store provides typed persistence for wizard state over pluggable key-value backends.
//
// A Store[T] holds exactly one record. Absent records and records that fail
// to decode both load as "not found", so a corrupted entry can never wedge a
// visitor's flow.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Store persists a single record of type T
type Store[T any] interface {
	// Load returns the record and true, or the zero value and false if nothing usable is stored
	Load(ctx context.Context) (T, bool, error)
	// Save replaces the stored record
	Save(ctx context.Context, value T) error
	// Clear removes the stored record
	Clear(ctx context.Context) error
}

// Backend is a raw byte key-value store
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key builds the backend key for one visitor's record
func Key(record, visitorID string) string {
	return "launchworthy:" + record + ":" + visitorID
}

// JSON is a Store that encodes T as JSON under a fixed key
type JSON[T any] struct {
	backend Backend
	key     string
}

// NewJSON creates a JSON store for key on backend
func NewJSON[T any](backend Backend, key string) *JSON[T] {
	return &JSON[T]{backend: backend, key: key}
}

// Load implements Store
func (s *JSON[T]) Load(ctx context.Context) (T, bool, error) {
	var zero T

	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return zero, false, &Error{Key: s.key, Op: "load", Cause: err}
	}
	if !ok || len(data) == 0 {
		return zero, false, nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		log.Printf("[store] discarding malformed record %s: %v", s.key, err)
		return zero, false, nil
	}
	return value, true, nil
}

// Save implements Store
func (s *JSON[T]) Save(ctx context.Context, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &Error{Key: s.key, Op: "encode", Cause: err}
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		return &Error{Key: s.key, Op: "save", Cause: err}
	}
	return nil
}

// Clear implements Store
func (s *JSON[T]) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return &Error{Key: s.key, Op: "clear", Cause: err}
	}
	return nil
}

// Rehydrating wraps a Store and only returns loaded records the predicate accepts
type Rehydrating[T any] struct {
	Store[T]
	accept func(T) bool
}

// WithRehydration wraps s so that Load ignores records for which accept returns false
func WithRehydration[T any](s Store[T], accept func(T) bool) *Rehydrating[T] {
	return &Rehydrating[T]{Store: s, accept: accept}
}

// Load implements Store
func (r *Rehydrating[T]) Load(ctx context.Context) (T, bool, error) {
	value, ok, err := r.Store.Load(ctx)
	if err != nil || !ok {
		return value, ok, err
	}
	if r.accept != nil && !r.accept(value) {
		var zero T
		return zero, false, nil
	}
	return value, true, nil
}

// Error reports a backend failure for one key
type Error struct {
	Key   string
	Op    string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
