package presenter

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/mediadb"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "bad_request"})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg, Code: "unauthorized"})
}

func ServiceUnavailable(c echo.Context, msg string) error {
	return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: msg, Code: "unavailable"})
}

// Error writes err with the status its kind maps to.
func Error(c echo.Context, err error) error {
	status, code := Status(err)
	return c.JSON(status, errorResponse{Error: err.Error(), Code: code})
}

// Status maps an error to its HTTP status and machine readable code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, mediadb.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, mediadb.ErrInvalidIdentifier):
		return http.StatusBadRequest, "invalid_identifier"
	case errors.Is(err, mediadb.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity, "schema_mismatch"
	case errors.Is(err, mediadb.ErrInvalidPatch):
		return http.StatusBadRequest, "invalid_patch"
	case errors.Is(err, mediadb.ErrPatchPathNotFound):
		return http.StatusUnprocessableEntity, "patch_path_not_found"
	case errors.Is(err, mediadb.ErrPatchTestFailed):
		return http.StatusPreconditionFailed, "patch_test_failed"
	case errors.Is(err, mediadb.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, mediadb.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, mediadb.ErrUpstreamFetchFailed):
		return http.StatusBadGateway, "upstream_fetch_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
