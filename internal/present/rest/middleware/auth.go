package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/mediadb/internal/domain"
	"github.com/totegamma/mediadb/internal/present/rest/presenter"
	"github.com/totegamma/mediadb/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// RequireAdmin rejects requests without the configured admin bearer token.
func (s *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.RequireAdmin")
		defer span.End()

		if !s.auth.Enabled() {
			c.Set(domain.IsAdminCtxKey, true)
			return next(c)
		}

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		authType, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(authType, "Bearer") {
			span.RecordError(fmt.Errorf("missing bearer token"))
			return presenter.Unauthorized(c, "admin token required")
		}

		err := s.auth.AuthAdmin(ctx, token)
		if err != nil {
			span.RecordError(errors.Wrap(err, "AuthMiddleware.RequireAdmin: s.auth.AuthAdmin failed"))
			return presenter.Unauthorized(c, "invalid admin token")
		}

		c.Set(domain.IsAdminCtxKey, true)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
