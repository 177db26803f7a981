// Package apperr defines the domain error kinds returned by services and
// their translation to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateError reports an attempt to create a record whose unique key is
// already on file.
type DuplicateError struct {
	Resource string
	Key      string
	Value    string
	Message  string
}

func (e *DuplicateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s with %s %s already exists", e.Resource, e.Key, e.Value)
}

// NotFoundError reports a missing record, or one that does not belong to the
// referenced owner.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s no encontrado", e.Resource)
}

// ForbiddenError reports an operation on a record the caller does not own.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// UnauthorizedError reports failed authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func Forbidden(format string, args ...interface{}) error {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) error {
	return &UnauthorizedError{Message: msg}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsDuplicate(err error) bool {
	var e *DuplicateError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsForbidden(err error) bool {
	var e *ForbiddenError
	return errors.As(err, &e)
}

// HTTPError maps a domain error to an echo.HTTPError. Unknown errors become
// a generic 500 with the cause kept as the internal error for logging.
func HTTPError(err error) *echo.HTTPError {
	var (
		httpErr      *echo.HTTPError
		validation   *ValidationError
		duplicate    *DuplicateError
		notFound     *NotFoundError
		forbidden    *ForbiddenError
		unauthorized *UnauthorizedError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.As(err, &notFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound.Error())
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, validation.Error())
	case errors.As(err, &duplicate):
		return echo.NewHTTPError(http.StatusBadRequest, duplicate.Error())
	case errors.As(err, &forbidden):
		return echo.NewHTTPError(http.StatusForbidden, forbidden.Error())
	case errors.As(err, &unauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, unauthorized.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
