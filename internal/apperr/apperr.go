// Package apperr defines the error type every handler and service returns to the HTTP layer.
// Each error carries a mandatory status code and a message that is safe to show to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "validation"
	KindAuthentication     Kind = "authentication"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAuthorization      Kind = "authorization"
	KindNotFound           Kind = "not_found"
	KindStorage            Kind = "storage"
	KindUpstream           Kind = "upstream"
	KindRateLimited        Kind = "rate_limited"
	KindUnsupportedMedia   Kind = "unsupported_media_type"
	KindInternal           Kind = "internal"
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of e carrying client-visible details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}

func Validation(message string) *Error {
	return New(KindValidation, http.StatusUnprocessableEntity, message, nil)
}

// Authentication is returned by the auth gate. Clients expect 403 here, not 401.
func Authentication(message string, cause error) *Error {
	return New(KindAuthentication, http.StatusForbidden, message, cause)
}

// UnknownAccount is the login failure for an email nobody registered with.
func UnknownAccount(message string) *Error {
	return New(KindNotFound, http.StatusForbidden, message, nil)
}

func InvalidCredentials(message string) *Error {
	return New(KindInvalidCredentials, http.StatusUnauthorized, message, nil)
}

func Authorization(message string) *Error {
	return New(KindAuthorization, http.StatusUnauthorized, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message, nil)
}

func Storage(message string, cause error) *Error {
	return New(KindStorage, http.StatusInternalServerError, message, cause)
}

// Upstream wraps a failure of an external provider. A non-positive status falls back to 500.
func Upstream(status int, message string, cause error) *Error {
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	return New(KindUpstream, status, message, cause)
}

// From converts any error into an *Error. Errors that are not already tagged become a 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Status <= 0 {
			cp := *appErr
			cp.Status = http.StatusInternalServerError
			return &cp
		}
		return appErr
	}

	return New(KindInternal, http.StatusInternalServerError, "An unknown error occurred!", err)
}

// StatusOf reports the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	if e := From(err); e != nil {
		return e.Status
	}
	return http.StatusInternalServerError
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
