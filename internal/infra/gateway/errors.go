package gateway

import (
	"errors"
	"net/http"

	"github.com/totegamma/crtv-studio/client"
	"github.com/totegamma/crtv-studio/internal/domain"
)

func notFoundOr(err error, resource string) error {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return domain.NotFoundError{Resource: resource}
	}
	return err
}
