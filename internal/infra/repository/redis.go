package repository

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/mediadb"
)

const redisKeyPrefix = "mediadb:doc:"

// RedisRecordRepository stores each record as a JSON blob under its own key.
// Writes are guarded with WATCH so a concurrent change aborts the transaction.
type RedisRecordRepository struct {
	rdb *redis.Client
}

func NewRedisRecordRepository(rdb *redis.Client) *RedisRecordRepository {
	return &RedisRecordRepository{rdb: rdb}
}

func (r *RedisRecordRepository) GetDoc(ctx context.Context, id string) (mediadb.UntypedRecord, error) {
	ctx, span := tracer.Start(ctx, "Record.RedisRepository.GetDoc")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	data, err := r.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return mediadb.UntypedRecord{}, mediadb.NotFoundError{ID: id}
		}
		span.RecordError(err)
		return mediadb.UntypedRecord{}, unavailable(err, "load document")
	}

	var doc storedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return mediadb.UntypedRecord{}, unavailable(err, "decode document")
	}
	return doc.record()
}

func (r *RedisRecordRepository) PutDoc(ctx context.Context, rec mediadb.UntypedRecord) (mediadb.PutResponse, error) {
	ctx, span := tracer.Start(ctx, "Record.RedisRepository.PutDoc")
	defer span.End()
	span.SetAttributes(attribute.String("id", rec.ID))

	if _, _, err := mediadb.SplitGUID(rec.ID); err != nil {
		return mediadb.PutResponse{}, err
	}

	key := redisKeyPrefix + rec.ID
	var next storedDocument

	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		var current *storedDocument

		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var doc storedDocument
			if err := json.Unmarshal(data, &doc); err != nil {
				return errors.Wrap(err, "decode document")
			}
			current = &doc
		}

		next, err = nextStored(rec, current)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		switch {
		case errors.Is(err, mediadb.ErrConflict), errors.Is(err, mediadb.ErrSchemaMismatch):
			return mediadb.PutResponse{}, err
		case errors.Is(err, redis.TxFailedErr):
			return mediadb.PutResponse{}, mediadb.ConflictError{ID: rec.ID, Expected: rec.Revision}
		}
		span.RecordError(err)
		return mediadb.PutResponse{}, unavailable(err, "put document")
	}

	return mediadb.PutResponse{ID: next.ID, Revision: next.Revision}, nil
}
