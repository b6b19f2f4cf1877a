// Package errors provides error handling for the flashrbf service boundary.
package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/copyleftdev/flashrbf/internal/interpolation"
)

var (
	// ErrModelNotFound is returned when a model id is not registered.
	ErrModelNotFound = errors.New("model not found")
	// ErrBadRequest is returned for malformed request bodies or parameters.
	ErrBadRequest = errors.New("bad request")
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
	CodeNotFound       = -32004
)

// Wrap wraps err with a message and a stack trace.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// BadRequestf marks a formatted message as a bad request.
func BadRequestf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrBadRequest)
}

// NotFound marks a model id as missing.
func NotFound(id string) error {
	return errors.Wrapf(ErrModelNotFound, "model %q", id)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPStatus maps an error to the HTTP status code reported to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, interpolation.ErrSizeMismatch),
		errors.Is(err, interpolation.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, interpolation.ErrInvalidModel):
		return http.StatusConflict
	case errors.Is(err, interpolation.ErrSingularMatrix),
		errors.Is(err, interpolation.ErrNumericInstability):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RPCCode maps an error to a JSON-RPC 2.0 error code.
func RPCCode(err error) int {
	switch HTTPStatus(err) {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest:
		return CodeInvalidParams
	default:
		return CodeServerError
	}
}
