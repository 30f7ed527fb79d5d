package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/mediadb"
)

var tracer = otel.Tracer("repository")

// storedDocument is the serialized form used by the key-value backends.
type storedDocument struct {
	ID         string          `json:"id"`
	Revision   string          `json:"revision"`
	Generation int64           `json:"generation"`
	Value      json.RawMessage `json:"value"`
	Meta       json.RawMessage `json:"meta"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// newRevision derives the revision token for generation gen of a document body.
func newRevision(gen int64, value, meta []byte) string {
	h := xxh3.New()
	h.Write(value)
	h.Write([]byte{0})
	h.Write(meta)
	return fmt.Sprintf("%d-%016x", gen, h.Sum64())
}

func encodeDocument(rec mediadb.UntypedRecord) (value, meta []byte, err error) {
	value, err = json.Marshal(rec.Value)
	if err != nil {
		return nil, nil, mediadb.SchemaMismatchError{Type: "value", Err: err}
	}
	meta, err = json.Marshal(rec.Meta)
	if err != nil {
		return nil, nil, mediadb.SchemaMismatchError{Type: "meta", Err: err}
	}
	return value, meta, nil
}

func decodeDocument(id, revision string, value, meta []byte) (mediadb.UntypedRecord, error) {
	tree, err := mediadb.DecodeValue(value)
	if err != nil {
		return mediadb.UntypedRecord{}, mediadb.StoreUnavailableError{Err: errors.Wrapf(err, "corrupt value of %s", id)}
	}

	var m mediadb.Meta
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &m); err != nil {
			return mediadb.UntypedRecord{}, mediadb.StoreUnavailableError{Err: errors.Wrapf(err, "corrupt meta of %s", id)}
		}
	}

	return mediadb.UntypedRecord{
		ID:       id,
		Revision: revision,
		Meta:     m,
		Value:    tree,
	}, nil
}

// nextStored checks rec against the current stored document (nil if absent) and
// builds the document that replaces it.
func nextStored(rec mediadb.UntypedRecord, current *storedDocument) (storedDocument, error) {
	var gen int64
	if current == nil {
		if rec.Revision != "" {
			return storedDocument{}, mediadb.ConflictError{ID: rec.ID, Expected: rec.Revision}
		}
	} else {
		if rec.Revision != "" && rec.Revision != current.Revision {
			return storedDocument{}, mediadb.ConflictError{ID: rec.ID, Expected: rec.Revision, Current: current.Revision}
		}
		gen = current.Generation
	}

	value, meta, err := encodeDocument(rec)
	if err != nil {
		return storedDocument{}, err
	}

	return storedDocument{
		ID:         rec.ID,
		Revision:   newRevision(gen+1, value, meta),
		Generation: gen + 1,
		Value:      value,
		Meta:       meta,
		UpdatedAt:  time.Now(),
	}, nil
}

func (d storedDocument) record() (mediadb.UntypedRecord, error) {
	return decodeDocument(d.ID, d.Revision, d.Value, d.Meta)
}

func unavailable(err error, msg string) error {
	return mediadb.StoreUnavailableError{Err: errors.Wrap(err, msg)}
}
