package mediadb

import (
	"encoding/base32"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// GUIDSeparator separates the type namespace from the local id.
const GUIDSeparator = "/"

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GUID composes the full identifier of localID within typeTag.
func GUID(typeTag, localID string) string {
	return typeTag + GUIDSeparator + localID
}

// GUIDFor composes the full identifier of localID for records holding T.
func GUIDFor[T any](localID string) string {
	return GUID(TypeTag[T](), localID)
}

// IDFromHashedString derives a local id from content.
// Equal inputs always produce equal ids.
func IDFromHashedString(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return strings.ToLower(idEncoding.EncodeToString(sum[:]))
}

// SplitGUID splits raw into its namespace and local id.
func SplitGUID(raw string) (typeTag, localID string, err error) {
	typeTag, localID, ok := strings.Cut(raw, GUIDSeparator)
	if !ok {
		return "", "", InvalidIdentifierError{Raw: raw, Reason: "missing type namespace"}
	}
	if typeTag == "" {
		return "", "", InvalidIdentifierError{Raw: raw, Reason: "empty type namespace"}
	}
	if localID == "" {
		return "", "", InvalidIdentifierError{Raw: raw, Reason: "empty local id"}
	}
	return typeTag, localID, nil
}

// SplitAndCheckGUID returns the local id of raw after checking it belongs to typeTag.
func SplitAndCheckGUID(typeTag, raw string) (string, error) {
	namespace, localID, err := SplitGUID(raw)
	if err != nil {
		return "", err
	}
	if namespace != typeTag {
		return "", InvalidIdentifierError{Raw: raw, Reason: "expected namespace " + typeTag + ", got " + namespace}
	}
	return localID, nil
}
