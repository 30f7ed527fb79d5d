package rest

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/mediadb/internal/domain"
	"github.com/totegamma/mediadb/internal/present/rest/middleware"
)

// NewEcho assembles the server with the standard middleware chain.
func NewEcho(h *Handler, auth *middleware.AuthMiddleware, logger hclog.Logger, enableTrace bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if enableTrace {
		e.Use(otelecho.Middleware("mediadb"))
	}
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(domain.RequestIDCtxKey, id)
		},
	}))
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	h.RegisterRoutes(e, auth.RequireAdmin)
	return e
}
