package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
)

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, crtv.Response{Success: true, Data: payload})
}

// Body answers in the {success, body} shape used by the token metadata routes.
func Body(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, crtv.Response{Success: true, Body: payload})
}

// Raw answers in the {success, response} shape used by the translation route.
func Raw(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, crtv.Response{Success: true, Response: payload})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, crtv.Response{Success: false, Message: msg})
}

func BadRequest(c echo.Context, err error) error {
	slog.Info("bad request", slog.String("error", err.Error()), slog.String("module", "presenter"))
	return fail(c, http.StatusBadRequest, err.Error())
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.Info("bad request", slog.String("error", msg), slog.String("module", "presenter"))
	return fail(c, http.StatusBadRequest, msg)
}

func Unauthorized(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "wallet session required")
}

func Forbidden(c echo.Context, msg string) error {
	return fail(c, http.StatusForbidden, msg)
}

func NotFound(c echo.Context, msg string) error {
	return fail(c, http.StatusNotFound, msg)
}

func MethodNotAllowed(c echo.Context) error {
	return fail(c, http.StatusMethodNotAllowed, "Method not allowed")
}

func InternalError(c echo.Context, err error) error {
	slog.Error("internal error", slog.String("error", err.Error()), slog.String("module", "presenter"))
	return fail(c, http.StatusInternalServerError, err.Error())
}

// Error maps a domain error onto its status code. Upstream failures only
// expose their generic message.
func Error(c echo.Context, err error) error {
	var validation domain.ValidationError
	var denied domain.AccessDeniedError
	var notFound domain.NotFoundError
	var upstream domain.UpstreamError

	switch {
	case errors.As(err, &validation):
		return fail(c, http.StatusBadRequest, validation.Reason)
	case errors.As(err, &denied):
		return Forbidden(c, denied.Error())
	case errors.As(err, &notFound):
		return NotFound(c, notFound.Error())
	case errors.As(err, &upstream):
		attrs := []any{slog.String("backend", upstream.Backend), slog.String("module", "presenter")}
		if upstream.Cause != nil {
			attrs = append(attrs, slog.String("error", upstream.Cause.Error()))
		}
		slog.Error(upstream.Message, attrs...)
		return fail(c, http.StatusInternalServerError, upstream.Message)
	default:
		return InternalError(c, err)
	}
}
