package middleware

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/domain"
	"github.com/totegamma/crtv-studio/internal/service"
	"github.com/totegamma/crtv-studio/jwt"
)

func newTestServer(t *testing.T) (*echo.Echo, string, string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	priv := hex.EncodeToString(crypto.FromECDSA(key))
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	token, err := jwt.Create(jwt.Claims{Subject: "crtv"}, priv)
	if err != nil {
		t.Fatal(err)
	}

	mw := NewAuthMiddleware(service.NewAuthService(config.Server{}))

	e := echo.New()
	e.Use(mw.IdentifyIdentity)
	e.GET("/realtime", func(c echo.Context) error {
		address, _ := Requester(c.Request().Context())
		return c.String(http.StatusOK, address)
	}, RequireWallet)

	return e, token, addr
}

func websocketRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	return req
}

func TestIdentifyIdentityWebSocket(t *testing.T) {
	e, token, addr := newTestServer(t)

	t.Run("subprotocol", func(t *testing.T) {
		req := websocketRequest("/realtime")
		req.Header.Set("Sec-WebSocket-Protocol", domain.WebSocketTokenProtocol+", "+token)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != addr {
			t.Fatalf("expected %s got %d %s", addr, rec.Code, rec.Body.String())
		}
	})

	t.Run("query", func(t *testing.T) {
		req := websocketRequest("/realtime?token=" + token)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != addr {
			t.Fatalf("expected %s got %d %s", addr, rec.Code, rec.Body.String())
		}
	})

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/realtime", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != addr {
			t.Fatalf("expected %s got %d %s", addr, rec.Code, rec.Body.String())
		}
	})

	t.Run("query ignored outside handshakes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/realtime?token="+token, nil)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := websocketRequest("/realtime?token=garbage")

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})
}
