// Package memblob provides an in-memory blob.Store. Suitable for dev/testing.
package memblob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// Store holds blobs in memory.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Put stores the full contents of r under key.
func (s *Store) Put(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return nil
}

// Get returns a reader over the blob stored under key.
func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blob %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the blob stored under key. Deleting a missing key is a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

// Len reports how many blobs are stored. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
