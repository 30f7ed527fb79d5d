package mediadb

import "context"

// Store persists untyped records.
//
// PutDoc upserts rec. When rec.Revision is set it must match the stored revision,
// otherwise a ConflictError is returned and nothing is written.
type Store interface {
	GetDoc(ctx context.Context, id string) (UntypedRecord, error)
	PutDoc(ctx context.Context, rec UntypedRecord) (PutResponse, error)
}

// GetRecord reads id from store and decodes it as a Record[T].
func GetRecord[T any](ctx context.Context, store Store, id string) (Record[T], error) {
	if _, err := SplitAndCheckGUID(TypeTag[T](), id); err != nil {
		return Record[T]{}, err
	}
	doc, err := store.GetDoc(ctx, id)
	if err != nil {
		return Record[T]{}, err
	}
	return IntoTypedRecord[T](doc)
}

// PutRecord writes rec to store.
func PutRecord[T any](ctx context.Context, store Store, rec Record[T]) (PutResponse, error) {
	if _, err := SplitAndCheckGUID(TypeTag[T](), rec.ID); err != nil {
		return PutResponse{}, err
	}
	doc, err := IntoUntypedRecord(rec)
	if err != nil {
		return PutResponse{}, err
	}
	return store.PutDoc(ctx, doc)
}
