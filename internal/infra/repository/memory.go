package repository

import (
	"context"
	"sync"

	"github.com/totegamma/mediadb"
)

// MemoryRecordRepository keeps records in process memory.
type MemoryRecordRepository struct {
	mu   sync.RWMutex
	docs map[string]storedDocument
}

func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{docs: map[string]storedDocument{}}
}

func (r *MemoryRecordRepository) GetDoc(ctx context.Context, id string) (mediadb.UntypedRecord, error) {
	if err := ctx.Err(); err != nil {
		return mediadb.UntypedRecord{}, unavailable(err, "load document")
	}

	r.mu.RLock()
	doc, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return mediadb.UntypedRecord{}, mediadb.NotFoundError{ID: id}
	}
	return doc.record()
}

func (r *MemoryRecordRepository) PutDoc(ctx context.Context, rec mediadb.UntypedRecord) (mediadb.PutResponse, error) {
	if err := ctx.Err(); err != nil {
		return mediadb.PutResponse{}, unavailable(err, "put document")
	}
	if _, _, err := mediadb.SplitGUID(rec.ID); err != nil {
		return mediadb.PutResponse{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var current *storedDocument
	if doc, ok := r.docs[rec.ID]; ok {
		current = &doc
	}
	next, err := nextStored(rec, current)
	if err != nil {
		return mediadb.PutResponse{}, err
	}
	r.docs[rec.ID] = next

	return mediadb.PutResponse{ID: next.ID, Revision: next.Revision}, nil
}

// Len returns the number of stored records.
func (r *MemoryRecordRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
