package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping and retry policy.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindValidation
	KindUnauthorized
	KindNotFound
	KindScoringUnavailable
	KindStorage
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindScoringUnavailable:
		return "scoring_unavailable"
	case KindStorage:
		return "storage"
	case KindTooLarge:
		return "too_large"
	default:
		return "internal"
	}
}

// Error is the application error returned by services and stores.
// Detail is shown to end users verbatim; Err is kept for server-side logs only.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Detail + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidInput(detail string) *Error {
	return &Error{Kind: KindInvalidInput, Detail: detail}
}

func Validation(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

func Unauthorized(detail string) *Error {
	return &Error{Kind: KindUnauthorized, Detail: detail}
}

func NotFound(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func TooLarge(detail string) *Error {
	return &Error{Kind: KindTooLarge, Detail: detail}
}

func ScoringUnavailable(cause error) *Error {
	return &Error{
		Kind:   KindScoringUnavailable,
		Detail: "Scoring service is temporarily unavailable. Please try again later.",
		Err:    cause,
	}
}

func Storage(cause error) *Error {
	return &Error{
		Kind:   KindStorage,
		Detail: "Storage is temporarily unavailable.",
		Err:    cause,
	}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code returned to clients.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindScoringUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicDetail returns a message that is safe to show to end users.
func PublicDetail(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Detail != "" {
		return appErr.Detail
	}
	return "Internal server error."
}
