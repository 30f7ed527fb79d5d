package repository

import (
	"context"
	"encoding/json"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/mediadb"
)

const memcachedKeyPrefix = "mediadb:"

// MemcachedRecordRepository stores records in memcached.
// Creates use add and updates use compare-and-swap, so racing writers see a conflict.
type MemcachedRecordRepository struct {
	mc *memcache.Client
}

func NewMemcachedRecordRepository(mc *memcache.Client) *MemcachedRecordRepository {
	return &MemcachedRecordRepository{mc: mc}
}

func (r *MemcachedRecordRepository) GetDoc(ctx context.Context, id string) (mediadb.UntypedRecord, error) {
	_, span := tracer.Start(ctx, "Record.MemcachedRepository.GetDoc")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	item, err := r.mc.Get(memcachedKeyPrefix + id)
	if err != nil {
		return mediadb.UntypedRecord{}, r.mapError(id, err, "load document")
	}

	var doc storedDocument
	if err := json.Unmarshal(item.Value, &doc); err != nil {
		return mediadb.UntypedRecord{}, unavailable(err, "decode document")
	}
	return doc.record()
}

func (r *MemcachedRecordRepository) PutDoc(ctx context.Context, rec mediadb.UntypedRecord) (mediadb.PutResponse, error) {
	_, span := tracer.Start(ctx, "Record.MemcachedRepository.PutDoc")
	defer span.End()
	span.SetAttributes(attribute.String("id", rec.ID))

	if err := ctx.Err(); err != nil {
		return mediadb.PutResponse{}, unavailable(err, "put document")
	}
	if _, _, err := mediadb.SplitGUID(rec.ID); err != nil {
		return mediadb.PutResponse{}, err
	}

	key := memcachedKeyPrefix + rec.ID

	item, err := r.mc.Get(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return mediadb.PutResponse{}, r.mapError(rec.ID, err, "load document")
	}

	var current *storedDocument
	if item != nil {
		var doc storedDocument
		if err := json.Unmarshal(item.Value, &doc); err != nil {
			return mediadb.PutResponse{}, unavailable(err, "decode document")
		}
		current = &doc
	}

	next, err := nextStored(rec, current)
	if err != nil {
		return mediadb.PutResponse{}, err
	}
	encoded, err := json.Marshal(next)
	if err != nil {
		return mediadb.PutResponse{}, unavailable(err, "encode document")
	}

	if item == nil {
		err = r.mc.Add(&memcache.Item{Key: key, Value: encoded})
	} else {
		item.Value = encoded
		err = r.mc.CompareAndSwap(item)
	}
	if err != nil {
		if errors.Is(err, memcache.ErrNotStored) || errors.Is(err, memcache.ErrCASConflict) {
			return mediadb.PutResponse{}, mediadb.ConflictError{ID: rec.ID, Expected: rec.Revision}
		}
		span.RecordError(err)
		return mediadb.PutResponse{}, r.mapError(rec.ID, err, "put document")
	}

	return mediadb.PutResponse{ID: next.ID, Revision: next.Revision}, nil
}

func (r *MemcachedRecordRepository) mapError(id string, err error, msg string) error {
	switch {
	case errors.Is(err, memcache.ErrCacheMiss):
		return mediadb.NotFoundError{ID: id}
	case errors.Is(err, memcache.ErrMalformedKey):
		return mediadb.InvalidIdentifierError{Raw: id, Reason: "not usable as a memcached key"}
	}
	return unavailable(err, msg)
}
