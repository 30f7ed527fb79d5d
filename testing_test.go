package mediadb

import (
	"context"
	"errors"
	"sync"
)

type episode struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Duration *float64 `json:"duration,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func (episode) TypeName() string { return "episode" }

func (e episode) Validate() error {
	if e.URL == "" {
		return errors.New("url is required")
	}
	return nil
}

type plainValue struct {
	N int `json:"n"`
}

type memStore struct {
	mu   sync.Mutex
	docs map[string]UntypedRecord
	puts int
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]UntypedRecord{}}
}

func (m *memStore) GetDoc(_ context.Context, id string) (UntypedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return UntypedRecord{}, NotFoundError{ID: id}
	}
	return doc, nil
}

func (m *memStore) PutDoc(_ context.Context, rec UntypedRecord) (PutResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	rec.Revision = "rev"
	m.docs[rec.ID] = rec
	return PutResponse{ID: rec.ID, Revision: rec.Revision}, nil
}
