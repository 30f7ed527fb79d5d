package usecase

import (
	"context"
	"net/http"

	"github.com/totegamma/mediadb/internal/domain"
)

// EventPublisher announces committed writes.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.RecordEvent) error
}

// ContentFetcher reads the external content a record points at.
type ContentFetcher interface {
	Fetch(ctx context.Context, rawURL string, header http.Header) (*http.Response, error)
}
