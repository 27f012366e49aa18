package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError is returned before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

func Invalid(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}

// UpstreamError wraps a failure of an external collaborator behind a
// generic message. Cause is kept for logs only.
type UpstreamError struct {
	Backend string
	Message string
	Cause   error
}

func (e UpstreamError) Error() string {
	return e.Message
}

func (e UpstreamError) Unwrap() error {
	return e.Cause
}

func (e UpstreamError) Is(target error) bool {
	_, ok := target.(UpstreamError)
	if ok {
		return true
	}
	_, ok = target.(*UpstreamError)
	return ok
}

var ErrUpstream = UpstreamError{}

func Upstream(backend, message string, cause error) error {
	return UpstreamError{Backend: backend, Message: message, Cause: cause}
}

// AccessDeniedError covers missing wallet sessions and failed ownership checks.
type AccessDeniedError struct {
	Reason string
}

func (e AccessDeniedError) Error() string {
	if e.Reason == "" {
		return "access denied"
	}
	return "access denied: " + e.Reason
}

func (e AccessDeniedError) Is(target error) bool {
	_, ok := target.(AccessDeniedError)
	if ok {
		return true
	}
	_, ok = target.(*AccessDeniedError)
	return ok
}

var ErrAccessDenied = AccessDeniedError{}

var ErrStoreNotConfigured = errors.New("document store model or context is not configured")
