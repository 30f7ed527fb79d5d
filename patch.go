package mediadb

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pkg/errors"
)

var patchOps = map[string]struct {
	value bool
	from  bool
}{
	"add":     {value: true},
	"remove":  {},
	"replace": {value: true},
	"move":    {from: true},
	"copy":    {from: true},
	"test":    {value: true},
}

// Patch is a decoded JSON Patch document.
type Patch struct {
	ops jsonpatch.Patch
	raw json.RawMessage
}

// DecodePatch parses a JSON Patch document and checks every operation is well formed.
func DecodePatch(data []byte) (Patch, error) {
	ops, err := jsonpatch.DecodePatch(data)
	if err != nil {
		return Patch{}, PatchError{Kind: PatchInvalid, Err: err}
	}

	for _, op := range ops {
		kind := op.Kind()
		rule, ok := patchOps[kind]
		if !ok {
			return Patch{}, PatchError{Kind: PatchInvalid, Op: kind, Err: errors.New("unknown operation")}
		}
		path, err := op.Path()
		if err != nil {
			return Patch{}, PatchError{Kind: PatchInvalid, Op: kind, Err: err}
		}
		if rule.from {
			if _, err := op.From(); err != nil {
				return Patch{}, PatchError{Kind: PatchInvalid, Op: kind, Path: path, Err: err}
			}
		}
		if rule.value {
			if _, ok := op["value"]; !ok {
				return Patch{}, PatchError{Kind: PatchInvalid, Op: kind, Path: path, Err: errors.New("missing value")}
			}
		}
	}

	return Patch{ops: ops, raw: append(json.RawMessage(nil), data...)}, nil
}

// Len returns the number of operations in p.
func (p Patch) Len() int {
	return len(p.ops)
}

// MarshalJSON encodes p back into its wire form.
func (p Patch) MarshalJSON() ([]byte, error) {
	if p.raw == nil {
		return []byte("[]"), nil
	}
	return p.raw, nil
}

// UnmarshalJSON decodes p with the same checks as DecodePatch.
func (p *Patch) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePatch(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// ApplyPatch applies patch to the value of rec.
// Operations run in order against a working copy; rec is only updated when every
// operation succeeds.
func ApplyPatch(rec *UntypedRecord, patch Patch) error {
	doc, err := json.Marshal(rec.Value)
	if err != nil {
		return PatchError{Kind: PatchInvalid, Err: errors.Wrap(err, "encode record value")}
	}

	options := jsonpatch.NewApplyOptions()
	options.SupportNegativeIndices = false

	for _, op := range patch.ops {
		doc, err = jsonpatch.Patch{op}.ApplyWithOptions(doc, options)
		if err != nil {
			path, _ := op.Path()
			return PatchError{Kind: classifyPatchError(err), Op: op.Kind(), Path: path, Err: err}
		}
	}

	value, err := DecodeValue(doc)
	if err != nil {
		return PatchError{Kind: PatchInvalid, Err: errors.Wrap(err, "decode patched value")}
	}
	rec.Value = value
	return nil
}

func classifyPatchError(err error) PatchErrorKind {
	switch {
	case errors.Is(err, jsonpatch.ErrTestFailed):
		return PatchTestFailed
	case errors.Is(err, jsonpatch.ErrMissing), errors.Is(err, jsonpatch.ErrInvalidIndex):
		return PatchPathNotFound
	default:
		return PatchInvalid
	}
}
