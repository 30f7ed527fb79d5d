package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/mediadb"
	"github.com/totegamma/mediadb/client"
	"github.com/totegamma/mediadb/internal/domain"
	"github.com/totegamma/mediadb/internal/infra/repository"
	"github.com/totegamma/mediadb/internal/present/rest/middleware"
	"github.com/totegamma/mediadb/internal/service"
	"github.com/totegamma/mediadb/internal/usecase"
	"github.com/totegamma/mediadb/schemas"
)

const testToken = "secret"

type testServer struct {
	e     *echo.Echo
	store *repository.MemoryRecordRepository
}

func newTestServer(t *testing.T, adminToken string, opts usecase.RecordOptions) *testServer {
	t.Helper()
	store := repository.NewMemoryRecordRepository()
	fetcher := client.New(client.Options{MaxFailCount: 100})
	media := usecase.NewMediaUsecase(store, fetcher, opts)

	logger := hclog.NewNullLogger()
	handler := NewHandler(media, nil, "memory", logger)
	auth := middleware.NewAuthMiddleware(service.NewAuthService(adminToken))

	return &testServer{e: NewEcho(handler, auth, logger, false), store: store}
}

func (s *testServer) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["code"]
}

func mediaPath(id string) string {
	return "/media/" + url.PathEscape(id)
}

func TestWellKnown(t *testing.T) {
	s := newTestServer(t, "", usecase.RecordOptions{})

	rec := s.do(http.MethodGet, "/.well-known/mediadb", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	wk := decode[WellKnown](t, rec)
	assert.Equal(t, Version, wk.Version)
	assert.Equal(t, "memory", wk.Store)
	assert.Equal(t, "/media/{id}", wk.Endpoints["media.get"].Template)
}

func TestCreateAndGet(t *testing.T) {
	s := newTestServer(t, "", usecase.RecordOptions{})

	rec := s.do(http.MethodPost, "/media?transcribe", `{"content_url":"http://x/a.mp3"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[mediadb.PutResponse](t, rec)
	assert.Equal(t, "media/"+mediadb.IDFromHashedString("http://x/a.mp3"), res.ID)
	assert.NotEmpty(t, res.Revision)

	// full id, escaped
	rec = s.do(http.MethodGet, mediaPath(res.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, res.Revision, rec.Header().Get(domain.RevisionHeader))

	got := decode[mediadb.Record[schemas.Media]](t, rec)
	assert.Equal(t, "http://x/a.mp3", got.Value.ContentURL)
	settings, ok := got.Meta.Job(schemas.JobASR)
	assert.True(t, ok)
	assert.Equal(t, true, settings)

	// bare local id
	_, local, err := mediadb.SplitGUID(res.ID)
	require.NoError(t, err)
	rec = s.do(http.MethodGet, "/media/"+local, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTranscribeFlag(t *testing.T) {
	cases := map[string]bool{
		"/media":                   false,
		"/media?transcribe":        true,
		"/media?transcribe=true":   true,
		"/media?transcribe=1":      true,
		"/media?transcribe=false":  false,
		"/media?transcribe=0":      false,
		"/media?transcribe=please": true,
	}
	for target, want := range cases {
		t.Run(target, func(t *testing.T) {
			s := newTestServer(t, "", usecase.RecordOptions{})
			rec := s.do(http.MethodPost, target, `{"content_url":"http://x/a.mp3"}`, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			res := decode[mediadb.PutResponse](t, rec)

			doc, err := s.store.GetDoc(t.Context(), res.ID)
			require.NoError(t, err)
			_, ok := doc.Meta.Job(schemas.JobASR)
			assert.Equal(t, want, ok)
		})
	}
}

func TestCreateInvalid(t *testing.T) {
	s := newTestServer(t, "", usecase.RecordOptions{})

	rec := s.do(http.MethodPost, "/media", `{"content_url":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/media", `{"content_url":42}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "schema_mismatch", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/media", `{}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Zero(t, s.store.Len())
}

func TestGetErrors(t *testing.T) {
	s := newTestServer(t, "", usecase.RecordOptions{})

	rec := s.do(http.MethodGet, "/media/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))

	rec = s.do(http.MethodGet, mediaPath("episode/abc"), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_identifier", errorCode(t, rec))
}

func TestPut(t *testing.T) {
	s := newTestServer(t, "", usecase.RecordOptions{})

	rec := s.do(http.MethodPut, "/media/ep1", `{"content_url":"http://x/a.mp3"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[mediadb.PutResponse](t, rec)
	assert.Equal(t, "media/ep1", first.ID)

	rec = s.do(http.MethodPut, "/media/ep1", `{"content_url":"http://x/b.mp3"}`, map[string]string{
		domain.IfMatchHeader: `"` + first.Revision + `"`,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[mediadb.PutResponse](t, rec)
	assert.NotEqual(t, first.Revision, second.Revision)

	rec = s.do(http.MethodPut, "/media/ep1", `{"content_url":"http://x/c.mp3"}`, map[string]string{
		domain.IfMatchHeader: first.Revision,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorCode(t, rec))

	got := decode[mediadb.Record[schemas.Media]](t, s.do(http.MethodGet, "/media/ep1", "", nil))
	assert.Equal(t, "http://x/b.mp3", got.Value.ContentURL)
}

func TestPatch(t *testing.T) {
	s := newTestServer(t, "", usecase.RecordOptions{})

	rec := s.do(http.MethodPut, "/media/ep1", `{"content_url":"http://x/a.mp3"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPatch, "/media/ep1", `[{"op":"add","path":"/encoding_format","value":"audio/mpeg"}]`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[mediadb.Record[schemas.Media]](t, s.do(http.MethodGet, "/media/ep1", "", nil))
	assert.Equal(t, "audio/mpeg", got.Value.EncodingFormat)

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{"op":"add"}`, http.StatusBadRequest, "invalid_patch"},
		{"unknown op", `[{"op":"merge","path":"/a"}]`, http.StatusBadRequest, "invalid_patch"},
		{"missing path", `[{"op":"remove","path":"/duration"}]`, http.StatusUnprocessableEntity, "patch_path_not_found"},
		{"test failed", `[{"op":"test","path":"/encoding_format","value":"audio/ogg"}]`, http.StatusPreconditionFailed, "patch_test_failed"},
		{"schema", `[{"op":"replace","path":"/content_url","value":42}]`, http.StatusUnprocessableEntity, "schema_mismatch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPatch, "/media/ep1", tc.body, nil)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}

	after := decode[mediadb.Record[schemas.Media]](t, s.do(http.MethodGet, "/media/ep1", "", nil))
	assert.Equal(t, got, after)

	rec = s.do(http.MethodPatch, "/media/missing", `[]`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminToken(t *testing.T) {
	s := newTestServer(t, testToken, usecase.RecordOptions{})
	body := `{"content_url":"http://x/a.mp3"}`

	rec := s.do(http.MethodPost, "/media", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/media", body, map[string]string{echo.HeaderAuthorization: "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPut, "/media/ep1", body, map[string]string{echo.HeaderAuthorization: "Basic " + testToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, s.store.Len())

	rec = s.do(http.MethodPost, "/media", body, map[string]string{echo.HeaderAuthorization: "Bearer " + testToken})
	require.Equal(t, http.StatusOK, rec.Code)

	// reads stay open
	res := decode[mediadb.PutResponse](t, rec)
	rec = s.do(http.MethodGet, mediaPath(res.ID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMediaData(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("X-Internal", "1")
		if r.Header.Get("Range") != "" {
			w.Header().Set("Content-Range", "bytes 0-3/10")
			w.WriteHeader(http.StatusPartialContent)
		}
		_, _ = io.WriteString(w, "data")
	}))
	defer upstream.Close()

	s := newTestServer(t, "", usecase.RecordOptions{})
	rec := s.do(http.MethodPut, "/media/ep1", `{"content_url":"`+upstream.URL+`/a.mp3"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/media/ep1/data", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data", rec.Body.String())
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Internal"))

	rec = s.do(http.MethodGet, "/media/ep1/data", "", map[string]string{"Range": "bytes=0-3"})
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 0-3/10", rec.Header().Get("Content-Range"))

	rec = s.do(http.MethodPut, "/media/gone", `{"content_url":"`+upstream.URL+`/gone.mp3"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/media/gone/data", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/media/missing/data", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/media/ep2", `{"content_url":"http://127.0.0.1:1/a.mp3"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/media/ep2/data", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_fetch_failed", errorCode(t, rec))
}

func TestRealtimeDisabled(t *testing.T) {
	s := newTestServer(t, "", usecase.RecordOptions{})
	rec := s.do(http.MethodGet, "/realtime", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
