package mediadb

import (
	"maps"
	"reflect"
	"slices"

	"github.com/iancoleman/strcase"
)

// Typed is implemented by record values that carry their own type tag.
type Typed interface {
	TypeName() string
}

// TypeTag returns the namespace used in identifiers for records holding T.
func TypeTag[T any]() string {
	var zero T
	if typed, ok := any(zero).(Typed); ok {
		return typed.TypeName()
	}
	if typed, ok := any(&zero).(Typed); ok {
		return typed.TypeName()
	}
	return strcase.ToSnake(reflect.TypeFor[T]().Name())
}

// Record is a stored document viewed through the value type T.
type Record[T any] struct {
	ID       string `json:"id"`
	Revision string `json:"revision,omitempty"`
	Meta     Meta   `json:"meta"`
	Value    T      `json:"value"`
}

// UntypedRecord holds its value as a schema-free JSON tree.
type UntypedRecord = Record[any]

// NewRecord builds a fresh record for value under the namespace of T.
func NewRecord[T any](localID string, value T) Record[T] {
	return Record[T]{
		ID:    GUIDFor[T](localID),
		Value: value,
	}
}

// Meta is the structured metadata stored alongside every record.
type Meta struct {
	Jobs JobSettings `json:"jobs,omitempty"`
}

// JobSettings maps a job type tag to its requested settings.
// A settings value of true asks for the job with default settings.
type JobSettings map[string]any

// SetJob requests jobType with settings. Existing requests for other job types are kept.
func (m *Meta) SetJob(jobType string, settings any) {
	if m.Jobs == nil {
		m.Jobs = JobSettings{}
	}
	m.Jobs[jobType] = settings
}

// Job returns the settings recorded for jobType.
func (m Meta) Job(jobType string) (any, bool) {
	settings, ok := m.Jobs[jobType]
	return settings, ok
}

// JobTypes lists the requested job type tags.
func (m Meta) JobTypes() []string {
	return slices.Sorted(maps.Keys(m.Jobs))
}

// PutResponse is returned by every successful write.
type PutResponse struct {
	ID       string `json:"id"`
	Revision string `json:"revision"`
}
