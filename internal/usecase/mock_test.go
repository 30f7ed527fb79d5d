package usecase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/totegamma/mediadb"
	"github.com/totegamma/mediadb/internal/domain"
)

type mockStore struct {
	mu     sync.Mutex
	docs   map[string]mediadb.UntypedRecord
	seq    int
	puts   int
	getErr error
	putErr error
	// beforePut runs inside PutDoc before the revision check.
	beforePut func()
}

func newMockStore() *mockStore {
	return &mockStore{docs: map[string]mediadb.UntypedRecord{}}
}

func (m *mockStore) GetDoc(ctx context.Context, id string) (mediadb.UntypedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return mediadb.UntypedRecord{}, m.getErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return mediadb.UntypedRecord{}, mediadb.NotFoundError{ID: id}
	}
	return doc, nil
}

func (m *mockStore) PutDoc(ctx context.Context, rec mediadb.UntypedRecord) (mediadb.PutResponse, error) {
	if m.beforePut != nil {
		m.beforePut()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return mediadb.PutResponse{}, m.putErr
	}
	current, exists := m.docs[rec.ID]
	if rec.Revision != "" && (!exists || current.Revision != rec.Revision) {
		return mediadb.PutResponse{}, mediadb.ConflictError{ID: rec.ID, Expected: rec.Revision, Current: current.Revision}
	}
	m.seq++
	m.puts++
	rec.Revision = fmt.Sprintf("%d-mock", m.seq)
	m.docs[rec.ID] = rec
	return mediadb.PutResponse{ID: rec.ID, Revision: rec.Revision}, nil
}

func (m *mockStore) put(rec mediadb.UntypedRecord) string {
	res, err := m.PutDoc(context.Background(), rec)
	if err != nil {
		panic(err)
	}
	return res.Revision
}

type mockPublisher struct {
	events  []domain.RecordEvent
	ctxErrs []error
	err     error
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.RecordEvent) error {
	m.events = append(m.events, event)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.err
}

type mockFetcher struct {
	url    string
	header http.Header
	err    error
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	m.url = rawURL
	m.header = header
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"audio/mpeg"}},
		Body:       io.NopCloser(strings.NewReader("audio")),
	}, nil
}
