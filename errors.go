package mediadb

import "fmt"

// NotFoundError reports a record id that has no stored document.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "record not found"
	}
	return fmt.Sprintf("record %s not found", e.ID)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	switch target.(type) {
	case NotFoundError, *NotFoundError:
		return true
	}
	return false
}

// InvalidIdentifierError reports an id that is malformed or belongs to another namespace.
type InvalidIdentifierError struct {
	Raw    string
	Reason string
}

func (e InvalidIdentifierError) Error() string {
	if e.Raw == "" && e.Reason == "" {
		return "invalid identifier"
	}
	return fmt.Sprintf("invalid identifier %q: %s", e.Raw, e.Reason)
}

func (e InvalidIdentifierError) Is(target error) bool {
	switch target.(type) {
	case InvalidIdentifierError, *InvalidIdentifierError:
		return true
	}
	return false
}

// SchemaMismatchError reports a value that does not conform to its typed schema.
type SchemaMismatchError struct {
	Type string
	Err  error
}

func (e SchemaMismatchError) Error() string {
	if e.Err == nil {
		return "schema mismatch"
	}
	return fmt.Sprintf("schema mismatch for %s: %v", e.Type, e.Err)
}

func (e SchemaMismatchError) Unwrap() error {
	return e.Err
}

func (e SchemaMismatchError) Is(target error) bool {
	switch target.(type) {
	case SchemaMismatchError, *SchemaMismatchError:
		return true
	}
	return false
}

// PatchErrorKind classifies patch failures.
type PatchErrorKind int

const (
	PatchInvalid PatchErrorKind = iota
	PatchPathNotFound
	PatchTestFailed
)

// PatchError reports a patch document that could not be decoded or applied.
type PatchError struct {
	Kind PatchErrorKind
	Op   string
	Path string
	Err  error
}

func (e PatchError) Error() string {
	var what string
	switch e.Kind {
	case PatchPathNotFound:
		what = "patch path not found"
	case PatchTestFailed:
		what = "patch test failed"
	default:
		what = "invalid patch"
	}
	if e.Op != "" {
		what = fmt.Sprintf("%s (%s %s)", what, e.Op, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", what, e.Err)
	}
	return what
}

func (e PatchError) Unwrap() error {
	return e.Err
}

// Is matches another PatchError of the same kind.
func (e PatchError) Is(target error) bool {
	switch t := target.(type) {
	case PatchError:
		return t.Kind == e.Kind
	case *PatchError:
		return t != nil && t.Kind == e.Kind
	}
	return false
}

// ConflictError reports a write whose expected revision no longer matches the stored one.
type ConflictError struct {
	ID       string
	Expected string
	Current  string
}

func (e ConflictError) Error() string {
	if e.ID == "" {
		return "revision conflict"
	}
	if e.Current == "" {
		return fmt.Sprintf("revision conflict on %s: expected %s but record does not exist", e.ID, e.Expected)
	}
	return fmt.Sprintf("revision conflict on %s: expected %s, current %s", e.ID, e.Expected, e.Current)
}

func (e ConflictError) Is(target error) bool {
	switch target.(type) {
	case ConflictError, *ConflictError:
		return true
	}
	return false
}

// StoreUnavailableError reports a backing store that could not serve the request.
type StoreUnavailableError struct {
	Err error
}

func (e StoreUnavailableError) Error() string {
	if e.Err == nil {
		return "store unavailable"
	}
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e StoreUnavailableError) Unwrap() error {
	return e.Err
}

func (e StoreUnavailableError) Is(target error) bool {
	switch target.(type) {
	case StoreUnavailableError, *StoreUnavailableError:
		return true
	}
	return false
}

// UpstreamFetchError reports a failed read of a record's external content.
type UpstreamFetchError struct {
	URL string
	Err error
}

func (e UpstreamFetchError) Error() string {
	if e.Err == nil {
		return "upstream fetch failed"
	}
	return fmt.Sprintf("upstream fetch of %s failed: %v", e.URL, e.Err)
}

func (e UpstreamFetchError) Unwrap() error {
	return e.Err
}

func (e UpstreamFetchError) Is(target error) bool {
	switch target.(type) {
	case UpstreamFetchError, *UpstreamFetchError:
		return true
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrNotFound            = NotFoundError{}
	ErrInvalidIdentifier   = InvalidIdentifierError{}
	ErrSchemaMismatch      = SchemaMismatchError{}
	ErrInvalidPatch        = PatchError{Kind: PatchInvalid}
	ErrPatchPathNotFound   = PatchError{Kind: PatchPathNotFound}
	ErrPatchTestFailed     = PatchError{Kind: PatchTestFailed}
	ErrConflict            = ConflictError{}
	ErrStoreUnavailable    = StoreUnavailableError{}
	ErrUpstreamFetchFailed = UpstreamFetchError{}
)
