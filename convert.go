package mediadb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Validatable values are checked after decoding into their typed form.
type Validatable interface {
	Validate() error
}

// IntoUntypedRecord re-expresses r with its value as a JSON tree.
func IntoUntypedRecord[T any](r Record[T]) (UntypedRecord, error) {
	data, err := json.Marshal(r.Value)
	if err != nil {
		return UntypedRecord{}, SchemaMismatchError{Type: TypeTag[T](), Err: err}
	}
	value, err := DecodeValue(data)
	if err != nil {
		return UntypedRecord{}, SchemaMismatchError{Type: TypeTag[T](), Err: err}
	}
	return UntypedRecord{
		ID:       r.ID,
		Revision: r.Revision,
		Meta:     r.Meta,
		Value:    value,
	}, nil
}

// IntoTypedRecord decodes the value of u into T.
// Mistyped fields or a failed Validate yield a SchemaMismatchError.
func IntoTypedRecord[T any](u UntypedRecord) (Record[T], error) {
	data, err := json.Marshal(u.Value)
	if err != nil {
		return Record[T]{}, SchemaMismatchError{Type: TypeTag[T](), Err: err}
	}

	// untyped fields of T keep numbers as json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value T
	if err := dec.Decode(&value); err != nil {
		return Record[T]{}, SchemaMismatchError{Type: TypeTag[T](), Err: err}
	}
	if err := validate(&value); err != nil {
		return Record[T]{}, SchemaMismatchError{Type: TypeTag[T](), Err: err}
	}

	return Record[T]{
		ID:       u.ID,
		Revision: u.Revision,
		Meta:     u.Meta,
		Value:    value,
	}, nil
}

// ValidateValue runs the schema checks of value, if it has any.
func ValidateValue[T any](value T) error {
	if err := validate(&value); err != nil {
		return SchemaMismatchError{Type: TypeTag[T](), Err: err}
	}
	return nil
}

func validate[T any](value *T) error {
	if v, ok := any(*value).(Validatable); ok {
		return v.Validate()
	}
	if v, ok := any(value).(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeValue parses a JSON document into a value tree.
// Numbers are kept as json.Number so they survive re-encoding unchanged.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value at offset %d", dec.InputOffset())
	}
	return value, nil
}
