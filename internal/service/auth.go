package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/jwt"
)

var tracer = otel.Tracer("auth")

const sessionSubject = "crtv"

type AuthService struct {
	config config.Server
}

func NewAuthService(
	config config.Server,
) *AuthService {
	return &AuthService{
		config: config,
	}
}

type AuthResult struct {
	Address string
}

// AuthJwt validates a wallet session token and returns the wallet it was
// signed by.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	header, claims, err := jwt.Validate(token)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return nil, err
	}

	if s.config.FQDN != "" && claims.Audience != s.config.FQDN {
		err := fmt.Errorf("jwt audience mismatch: expected %s, got %s", s.config.FQDN, claims.Audience)
		span.RecordError(err)
		return nil, err
	}

	if claims.Subject != sessionSubject {
		err := fmt.Errorf("invalid subject")
		span.RecordError(err)
		return nil, err
	}

	keyID := header.KeyID
	if keyID == "" {
		keyID = claims.Issuer
	}

	if !crtv.IsAddress(keyID) {
		span.RecordError(fmt.Errorf("invalid issuer"))
		return nil, fmt.Errorf("invalid issuer")
	}

	return &AuthResult{Address: crtv.NormalizeAddress(keyID)}, nil
}
