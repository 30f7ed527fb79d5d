package usecase

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/mediadb"
	"github.com/totegamma/mediadb/schemas"
)

type MediaUsecase struct {
	records *RecordUsecase[schemas.Media]
	fetcher ContentFetcher
}

func NewMediaUsecase(store mediadb.Store, fetcher ContentFetcher, opts RecordOptions) *MediaUsecase {
	return &MediaUsecase{
		records: NewRecordUsecase[schemas.Media](store, opts),
		fetcher: fetcher,
	}
}

func (u *MediaUsecase) Get(ctx context.Context, id string) (mediadb.Record[schemas.Media], error) {
	return u.records.Get(ctx, id)
}

// Create stores media under an id derived from its content URL, so submitting the
// same URL twice addresses the same record. transcribe requests speech recognition.
func (u *MediaUsecase) Create(ctx context.Context, media schemas.Media, transcribe bool) (mediadb.PutResponse, error) {
	var jobs mediadb.JobSettings
	if transcribe {
		jobs = mediadb.JobSettings{schemas.JobASR: true}
	}
	return u.records.Create(ctx, mediadb.IDFromHashedString(media.ContentURL), media, jobs)
}

func (u *MediaUsecase) Put(ctx context.Context, id string, media schemas.Media, revision string) (mediadb.PutResponse, error) {
	return u.records.Put(ctx, id, media, revision)
}

func (u *MediaUsecase) Patch(ctx context.Context, id string, patch mediadb.Patch) (mediadb.PutResponse, error) {
	return u.records.Patch(ctx, id, patch)
}

// FetchContent opens the content of media id upstream. The caller closes the body.
func (u *MediaUsecase) FetchContent(ctx context.Context, id string, header http.Header) (*http.Response, error) {
	ctx, span := tracer.Start(ctx, "Media.Usecase.FetchContent")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	rec, err := u.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resp, err := u.fetcher.Fetch(ctx, rec.Value.ContentURL, header)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return resp, nil
}
