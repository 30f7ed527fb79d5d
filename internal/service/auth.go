package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("auth")

// AuthService checks the static admin token that guards write endpoints.
type AuthService struct {
	adminToken string
}

func NewAuthService(adminToken string) *AuthService {
	return &AuthService{
		adminToken: adminToken,
	}
}

// Enabled reports whether an admin token is configured.
func (s *AuthService) Enabled() bool {
	return s.adminToken != ""
}

func (s *AuthService) AuthAdmin(ctx context.Context, token string) error {
	_, span := tracer.Start(ctx, "Auth.Service.AuthAdmin")
	defer span.End()

	if !s.Enabled() {
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		err := fmt.Errorf("invalid admin token")
		span.RecordError(err)
		return err
	}

	return nil
}
