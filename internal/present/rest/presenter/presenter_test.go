package presenter

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/totegamma/mediadb"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{mediadb.NotFoundError{ID: "media/a"}, http.StatusNotFound, "not_found"},
		{mediadb.InvalidIdentifierError{Raw: "x"}, http.StatusBadRequest, "invalid_identifier"},
		{mediadb.SchemaMismatchError{Type: "media", Err: errors.New("x")}, http.StatusUnprocessableEntity, "schema_mismatch"},
		{mediadb.PatchError{Kind: mediadb.PatchInvalid}, http.StatusBadRequest, "invalid_patch"},
		{mediadb.PatchError{Kind: mediadb.PatchPathNotFound}, http.StatusUnprocessableEntity, "patch_path_not_found"},
		{mediadb.PatchError{Kind: mediadb.PatchTestFailed}, http.StatusPreconditionFailed, "patch_test_failed"},
		{mediadb.ConflictError{ID: "media/a"}, http.StatusConflict, "conflict"},
		{mediadb.StoreUnavailableError{Err: errors.New("down")}, http.StatusServiceUnavailable, "store_unavailable"},
		{mediadb.UpstreamFetchError{URL: "http://x"}, http.StatusBadGateway, "upstream_fetch_failed"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			status, code := Status(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}
