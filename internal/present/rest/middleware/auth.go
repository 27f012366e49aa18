package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/crtv-studio/internal/domain"
	"github.com/totegamma/crtv-studio/internal/present/rest/presenter"
	"github.com/totegamma/crtv-studio/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(
	auth *service.AuthService,
) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Service.IdentifyIdentity")
		defer span.End()

		// # authtoken
		// 実体はウォレットで署名したjwtトークン
		// requesterが本人であることを証明するのに使う。
		authHeader := c.Request().Header.Get("authorization")

		if authHeader != "" || websocket.IsWebSocketUpgrade(c.Request()) {
			var token string
			if authHeader != "" {
				split := strings.Split(authHeader, " ")
				if len(split) != 2 {
					span.RecordError(fmt.Errorf("invalid authentication header"))
					goto skipCheckAuthorization
				}

				var authType string
				authType, token = split[0], split[1]
				if authType != "Bearer" {
					span.RecordError(fmt.Errorf("only Bearer is acceptable"))
					goto skipCheckAuthorization
				}
			} else {
				token = WebSocketToken(c.Request())
				if token == "" {
					goto skipCheckAuthorization
				}
			}

			result, err := s.auth.AuthJwt(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.AuthJwt failed"))
				goto skipCheckAuthorization
			}

			ctx = context.WithValue(ctx, domain.RequesterAddressCtxKey, result.Address)
			span.SetAttributes(attribute.String("RequesterAddress", result.Address))
			c.Response().Header().Set(domain.RequesterAddressHeader, result.Address)
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// WebSocketToken reads the session token of a websocket handshake, either
// from the subprotocol after domain.WebSocketTokenProtocol or from the token
// query parameter.
func WebSocketToken(r *http.Request) string {
	protocols := websocket.Subprotocols(r)
	for i, protocol := range protocols {
		if protocol == domain.WebSocketTokenProtocol && i+1 < len(protocols) {
			return protocols[i+1]
		}
	}
	return r.URL.Query().Get(domain.WebSocketTokenQuery)
}

// Requester returns the wallet identified for the current request, if any.
func Requester(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(domain.RequesterAddressCtxKey).(string)
	return address, ok && address != ""
}

// RequireWallet rejects requests without a wallet session.
func RequireWallet(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := Requester(c.Request().Context()); !ok {
			return presenter.Unauthorized(c)
		}
		return next(c)
	}
}
