package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/mediadb"
	"github.com/totegamma/mediadb/client"
	"github.com/totegamma/mediadb/internal/domain"
	"github.com/totegamma/mediadb/internal/present/rest/presenter"
	"github.com/totegamma/mediadb/internal/service"
	"github.com/totegamma/mediadb/internal/usecase"
	"github.com/totegamma/mediadb/schemas"
)

const Version = "1.0"

type Endpoint struct {
	Template string    `json:"template"`
	Method   string    `json:"method"`
	Query    *[]string `json:"query,omitempty"`
}

type WellKnown struct {
	Version   string              `json:"version"`
	Store     string              `json:"store"`
	Endpoints map[string]Endpoint `json:"endpoints"`
}

type Handler struct {
	media  *usecase.MediaUsecase
	signal *service.SignalService
	store  string
	logger hclog.Logger
}

// NewHandler builds the media API. signal may be nil, in which case /realtime is unavailable.
func NewHandler(
	media *usecase.MediaUsecase,
	signal *service.SignalService,
	store string,
	logger hclog.Logger,
) *Handler {
	return &Handler{
		media:  media,
		signal: signal,
		store:  store,
		logger: logger.Named("rest"),
	}
}

// RegisterRoutes mounts the API on e. Writes go through admin.
func (h *Handler) RegisterRoutes(e *echo.Echo, admin echo.MiddlewareFunc) {
	e.GET("/.well-known/mediadb", h.handleWellKnown)
	e.GET("/media/:id", h.handleGetMedia)
	e.GET("/media/:id/data", h.handleMediaData)
	e.POST("/media", h.handlePostMedia, admin)
	e.PUT("/media/:id", h.handlePutMedia, admin)
	e.PATCH("/media/:id", h.handlePatchMedia, admin)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	return presenter.OK(c, WellKnown{
		Version: Version,
		Store:   h.store,
		Endpoints: map[string]Endpoint{
			"media.get": {
				Template: "/media/{id}",
				Method:   "GET",
			},
			"media.data": {
				Template: "/media/{id}/data",
				Method:   "GET",
			},
			"media.create": {
				Template: "/media",
				Method:   "POST",
				Query:    &[]string{"transcribe"},
			},
			"media.put": {
				Template: "/media/{id}",
				Method:   "PUT",
			},
			"media.patch": {
				Template: "/media/{id}",
				Method:   "PATCH",
			},
			"realtime": {
				Template: "/realtime",
				Method:   "GET",
			},
		},
	})
}

// mediaID accepts either a bare local id or a full "media/<local>" id.
func mediaID(c echo.Context) (string, error) {
	raw, err := url.PathUnescape(c.Param("id"))
	if err != nil {
		return "", mediadb.InvalidIdentifierError{Raw: c.Param("id"), Reason: "bad escape"}
	}
	if strings.Contains(raw, mediadb.GUIDSeparator) {
		return raw, nil
	}
	return mediadb.GUID(schemas.MediaType, raw), nil
}

// bindMedia decodes a media body. Well formed JSON of the wrong shape is a schema mismatch.
func bindMedia(c echo.Context) (schemas.Media, error) {
	var media schemas.Media

	err := json.NewDecoder(c.Request().Body).Decode(&media)
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return media, mediadb.SchemaMismatchError{Type: schemas.MediaType, Err: err}
		}
		return media, err
	}
	return media, nil
}

func (h *Handler) handleGetMedia(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := mediaID(c)
	if err != nil {
		return presenter.Error(c, err)
	}

	rec, err := h.media.Get(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}

	c.Response().Header().Set(domain.RevisionHeader, rec.Revision)
	return presenter.OK(c, rec)
}

func (h *Handler) handlePostMedia(c echo.Context) error {
	ctx := c.Request().Context()

	media, err := bindMedia(c)
	if err != nil {
		if errors.Is(err, mediadb.ErrSchemaMismatch) {
			return presenter.Error(c, err)
		}
		return presenter.BadRequest(c, err)
	}

	res, err := h.media.Create(ctx, media, transcribeRequested(c))
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, res)
}

// transcribeRequested treats a bare ?transcribe as true.
func transcribeRequested(c echo.Context) bool {
	params := c.QueryParams()
	if !params.Has("transcribe") {
		return false
	}
	value := params.Get("transcribe")
	if value == "" {
		return true
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}
	return enabled
}

func (h *Handler) handlePutMedia(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := mediaID(c)
	if err != nil {
		return presenter.Error(c, err)
	}

	media, err := bindMedia(c)
	if err != nil {
		if errors.Is(err, mediadb.ErrSchemaMismatch) {
			return presenter.Error(c, err)
		}
		return presenter.BadRequest(c, err)
	}

	revision := strings.Trim(c.Request().Header.Get(domain.IfMatchHeader), `"`)

	res, err := h.media.Put(ctx, id, media, revision)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, res)
}

func (h *Handler) handlePatchMedia(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := mediaID(c)
	if err != nil {
		return presenter.Error(c, err)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	patch, err := mediadb.DecodePatch(body)
	if err != nil {
		return presenter.Error(c, err)
	}

	res, err := h.media.Patch(ctx, id, patch)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, res)
}

func (h *Handler) handleMediaData(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := mediaID(c)
	if err != nil {
		return presenter.Error(c, err)
	}

	resp, err := h.media.FetchContent(ctx, id, c.Request().Header)
	if err != nil {
		return presenter.Error(c, err)
	}
	defer resp.Body.Close()

	client.CopyHeaders(c.Response().Header(), resp.Header, client.ResponseHeaders)
	c.Response().WriteHeader(resp.StatusCode)

	_, err = io.Copy(c.Response(), resp.Body)
	if err != nil {
		h.logger.Debug("content stream interrupted", "id", id, "error", err)
	}
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type     string   `json:"type"`
	Prefixes []string `json:"prefixes"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.signal == nil {
		return presenter.ServiceUnavailable(c, "realtime events are disabled")
	}

	log := h.logger.Named("socket")

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error("failed to upgrade websocket", "error", err)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan domain.RecordEvent)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					if closeErr.Code != websocket.CloseNormalClosure && closeErr.Code != websocket.CloseGoingAway {
						log.Debug("websocket closed", "error", closeErr)
					}
				} else {
					log.Error("error reading message", "error", err)
				}
				return
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Prefixes:
				case <-ctx.Done():
					return
				}
				log.Debug("socket subscribe", "prefixes", req.Prefixes)
			case "h": // heartbeat
			default:
				log.Info("unknown request type", "type", req.Type)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				log.Error("error writing message", "error", err)
				return nil
			}
		}
	}
}
