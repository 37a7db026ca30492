package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error is a failure that is safe to show to the caller as-is.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return New(fiber.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(fiber.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(fiber.StatusForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(fiber.StatusNotFound, format, args...)
}

func TooManyRequests(format string, args ...any) *Error {
	return New(fiber.StatusTooManyRequests, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(fiber.StatusInternalServerError, format, args...)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
