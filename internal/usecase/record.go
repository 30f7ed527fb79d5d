package usecase

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/mediadb"
	"github.com/totegamma/mediadb/internal/domain"
)

var tracer = otel.Tracer("usecase")

type RecordOptions struct {
	// OverwriteOnPatch writes patched records without checking the revision they were read at.
	OverwriteOnPatch bool
	Publishers       []EventPublisher
	Logger           hclog.Logger
}

// RecordUsecase implements reads and writes of records holding T.
type RecordUsecase[T any] struct {
	store            mediadb.Store
	typeTag          string
	overwriteOnPatch bool
	publishers       []EventPublisher
	logger           hclog.Logger
}

func NewRecordUsecase[T any](store mediadb.Store, opts RecordOptions) *RecordUsecase[T] {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	typeTag := mediadb.TypeTag[T]()
	return &RecordUsecase[T]{
		store:            store,
		typeTag:          typeTag,
		overwriteOnPatch: opts.OverwriteOnPatch,
		publishers:       opts.Publishers,
		logger:           logger.Named("usecase").With("type", typeTag),
	}
}

// TypeTag is the namespace of the records handled by u.
func (u *RecordUsecase[T]) TypeTag() string {
	return u.typeTag
}

func (u *RecordUsecase[T]) Get(ctx context.Context, id string) (mediadb.Record[T], error) {
	ctx, span := tracer.Start(ctx, "Record.Usecase.Get")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	rec, err := mediadb.GetRecord[T](ctx, u.store, id)
	if err != nil {
		span.RecordError(err)
		return mediadb.Record[T]{}, err
	}
	return rec, nil
}

// Create writes value under localID with the given job requests.
// Writing an existing id replaces it.
func (u *RecordUsecase[T]) Create(ctx context.Context, localID string, value T, jobs mediadb.JobSettings) (mediadb.PutResponse, error) {
	ctx, span := tracer.Start(ctx, "Record.Usecase.Create")
	defer span.End()

	if err := mediadb.ValidateValue(value); err != nil {
		return mediadb.PutResponse{}, err
	}

	rec := mediadb.NewRecord(localID, value)
	for jobType, settings := range jobs {
		rec.Meta.SetJob(jobType, settings)
	}
	span.SetAttributes(attribute.String("id", rec.ID))

	res, err := mediadb.PutRecord(ctx, u.store, rec)
	if err != nil {
		span.RecordError(err)
		return mediadb.PutResponse{}, err
	}

	u.publish(ctx, domain.RecordEventCreated, res, rec.Meta)
	return res, nil
}

// Put replaces the record at id with value and empty metadata.
// A non-empty revision must match the stored one.
func (u *RecordUsecase[T]) Put(ctx context.Context, id string, value T, revision string) (mediadb.PutResponse, error) {
	ctx, span := tracer.Start(ctx, "Record.Usecase.Put")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	localID, err := mediadb.SplitAndCheckGUID(u.typeTag, id)
	if err != nil {
		return mediadb.PutResponse{}, err
	}
	if err := mediadb.ValidateValue(value); err != nil {
		return mediadb.PutResponse{}, err
	}

	rec := mediadb.NewRecord(localID, value)
	rec.Revision = revision

	res, err := mediadb.PutRecord(ctx, u.store, rec)
	if err != nil {
		span.RecordError(err)
		return mediadb.PutResponse{}, err
	}

	u.publish(ctx, domain.RecordEventUpdated, res, rec.Meta)
	return res, nil
}

// Patch applies patch to the stored value of id and writes the result back.
// Nothing is written if any operation fails or the result no longer fits T.
func (u *RecordUsecase[T]) Patch(ctx context.Context, id string, patch mediadb.Patch) (mediadb.PutResponse, error) {
	ctx, span := tracer.Start(ctx, "Record.Usecase.Patch")
	defer span.End()
	span.SetAttributes(attribute.String("id", id), attribute.Int("ops", patch.Len()))

	if _, err := mediadb.SplitAndCheckGUID(u.typeTag, id); err != nil {
		return mediadb.PutResponse{}, err
	}

	doc, err := u.store.GetDoc(ctx, id)
	if err != nil {
		span.RecordError(err)
		return mediadb.PutResponse{}, err
	}

	if err := mediadb.ApplyPatch(&doc, patch); err != nil {
		span.RecordError(err)
		return mediadb.PutResponse{}, err
	}

	rec, err := mediadb.IntoTypedRecord[T](doc)
	if err != nil {
		span.RecordError(err)
		return mediadb.PutResponse{}, err
	}
	if u.overwriteOnPatch {
		rec.Revision = ""
	}

	res, err := mediadb.PutRecord(ctx, u.store, rec)
	if err != nil {
		span.RecordError(err)
		return mediadb.PutResponse{}, err
	}

	u.publish(ctx, domain.RecordEventPatched, res, rec.Meta)
	return res, nil
}

func (u *RecordUsecase[T]) publish(ctx context.Context, typ domain.RecordEventType, res mediadb.PutResponse, meta mediadb.Meta) {
	if len(u.publishers) == 0 {
		return
	}
	// the write is committed, so a caller going away must not cancel the event
	ctx = context.WithoutCancel(ctx)

	event := domain.RecordEvent{
		Type:     typ,
		ID:       res.ID,
		Revision: res.Revision,
		Jobs:     meta.JobTypes(),
		Time:     time.Now(),
	}
	for _, p := range u.publishers {
		if err := p.Publish(ctx, event); err != nil {
			u.logger.Warn("failed to publish record event", "id", res.ID, "revision", res.Revision, "error", err)
		}
	}
}
