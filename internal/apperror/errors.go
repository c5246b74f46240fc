// Package apperror defines the closed set of domain error kinds and their
// HTTP mapping. Every handler branch either returns a success payload or one
// of these; nothing is silently swallowed.
package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
)

type Kind string

const (
	InvalidCredentials   Kind = "INVALID_CREDENTIALS"
	EmailNotVerified     Kind = "EMAIL_NOT_VERIFIED"
	DuplicateKey         Kind = "DUPLICATE_KEY"
	NotFound             Kind = "NOT_FOUND"
	InvalidOtp           Kind = "INVALID_OTP"
	OtpExpired           Kind = "OTP_EXPIRED"
	UseLocalCredentials  Kind = "USE_LOCAL_CREDENTIALS"
	AlreadySignedUp      Kind = "ALREADY_SIGNED_UP"
	NoAccountFound       Kind = "NO_ACCOUNT_FOUND"
	AuthenticationFailed Kind = "AUTHENTICATION_FAILED"
	Unauthenticated      Kind = "UNAUTHENTICATED"
	Forbidden            Kind = "FORBIDDEN"
	ValidationError      Kind = "VALIDATION_ERROR"
	EmailDispatchFailure Kind = "EMAIL_DISPATCH_FAILURE"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is matches two apperror values by kind, so tests can use
// errors.Is(err, apperror.New(apperror.InvalidOtp, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind carried by err, or "" for non-domain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error kind to its response status. Credential and token
// failures are 401, role failures 403, missing records 404, malformed or
// conflicting input 400, and infrastructure failures 500.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidCredentials, EmailNotVerified, Unauthenticated, AuthenticationFailed:
		return fiber.StatusUnauthorized
	case Forbidden:
		return fiber.StatusForbidden
	case NotFound, NoAccountFound:
		return fiber.StatusNotFound
	case DuplicateKey, InvalidOtp, OtpExpired, ValidationError, UseLocalCredentials, AlreadySignedUp:
		return fiber.StatusBadRequest
	case EmailDispatchFailure:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}
