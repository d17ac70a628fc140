package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store backed by maps. Safe for concurrent
// use. Documents are kept as serialized JSON so callers never share
// structure with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	refs  map[string]int
	docs  map[string]map[string][]byte // kind -> id -> JSON
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		refs:  make(map[string]int),
		docs:  make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) PutBlob(_ context.Context, data []byte) (string, error) {
	id := BlobID(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		stored := make([]byte, len(data))
		copy(stored, data)
		s.blobs[id] = stored
	}
	s.refs[id]++
	return id, nil
}

func (s *MemoryStore) GetBlob(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", id, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) DeleteBlob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return fmt.Errorf("blob %s: %w", id, ErrNotFound)
	}
	s.refs[id]--
	if s.refs[id] <= 0 {
		delete(s.blobs, id)
		delete(s.refs, id)
	}
	return nil
}

func (s *MemoryStore) PutDocument(_ context.Context, kind string, fields map[string]any) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[kind] == nil {
		s.docs[kind] = make(map[string][]byte)
	}
	s.docs[kind][id] = raw
	return id, nil
}

func (s *MemoryStore) GetDocument(_ context.Context, kind, id string) (map[string]any, error) {
	s.mu.RLock()
	raw, ok := s.docs[kind][id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("document %s/%s: %w", kind, id, ErrNotFound)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding document %s/%s: %w", kind, id, err)
	}
	return fields, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, kind, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[kind][id]; !ok {
		return fmt.Errorf("document %s/%s: %w", kind, id, ErrNotFound)
	}
	s.docs[kind][id] = raw
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[kind][id]; !ok {
		return fmt.Errorf("document %s/%s: %w", kind, id, ErrNotFound)
	}
	delete(s.docs[kind], id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
