package repository

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/mediadb"
	"github.com/totegamma/mediadb/internal/infra/database/models"
)

// RecordRepository stores records in a SQL database through gorm.
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) GetDoc(ctx context.Context, id string) (mediadb.UntypedRecord, error) {
	ctx, span := tracer.Start(ctx, "Record.Repository.GetDoc")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	var doc models.Document
	err := r.db.WithContext(ctx).Take(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mediadb.UntypedRecord{}, mediadb.NotFoundError{ID: id}
		}
		span.RecordError(err)
		return mediadb.UntypedRecord{}, unavailable(err, "load document")
	}

	return decodeDocument(doc.ID, doc.Revision, []byte(doc.Value), []byte(doc.Meta))
}

func (r *RecordRepository) PutDoc(ctx context.Context, rec mediadb.UntypedRecord) (mediadb.PutResponse, error) {
	ctx, span := tracer.Start(ctx, "Record.Repository.PutDoc")
	defer span.End()
	span.SetAttributes(attribute.String("id", rec.ID))

	typ, _, err := mediadb.SplitGUID(rec.ID)
	if err != nil {
		return mediadb.PutResponse{}, err
	}

	var next storedDocument
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		var current models.Document
		err := tx.Take(&current, "id = ?", rec.ID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			next, err = nextStored(rec, nil)
			if err != nil {
				return err
			}

			created := tx.Clauses(clause.OnConflict{
				DoNothing: true,
			}).Create(&models.Document{
				ID:         next.ID,
				Type:       typ,
				Revision:   next.Revision,
				Generation: next.Generation,
				Value:      string(next.Value),
				Meta:       string(next.Meta),
			})
			if created.Error != nil {
				return created.Error
			}
			if created.RowsAffected == 0 {
				// created concurrently by another writer
				return mediadb.ConflictError{ID: rec.ID, Expected: rec.Revision}
			}
			return nil
		}

		next, err = nextStored(rec, &storedDocument{
			ID:         current.ID,
			Revision:   current.Revision,
			Generation: current.Generation,
		})
		if err != nil {
			return err
		}

		updated := tx.Model(&models.Document{}).
			Where("id = ? AND revision = ?", rec.ID, current.Revision).
			Updates(map[string]any{
				"revision":   next.Revision,
				"generation": next.Generation,
				"value":      string(next.Value),
				"meta":       string(next.Meta),
				"updated_at": next.UpdatedAt,
			})
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return mediadb.ConflictError{ID: rec.ID, Expected: current.Revision}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, mediadb.ErrConflict) || errors.Is(err, mediadb.ErrSchemaMismatch) {
			return mediadb.PutResponse{}, err
		}
		span.RecordError(err)
		return mediadb.PutResponse{}, unavailable(err, "put document")
	}

	return mediadb.PutResponse{ID: next.ID, Revision: next.Revision}, nil
}
