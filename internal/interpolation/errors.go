package interpolation

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrSizeMismatch reports inconsistent lengths or dimensions.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrSingularMatrix reports a zero pivot during LU factorization.
	ErrSingularMatrix = errors.New("singular matrix")
	// ErrNumericInstability reports a NaN produced by a prediction.
	ErrNumericInstability = errors.New("numeric instability")
	// ErrInvalidArgument reports an unknown kernel or a non-positive bandwidth.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidModel reports a model whose last refit failed.
	ErrInvalidModel = errors.New("invalid model")
)

// Error represents an interpolation error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	// a wrapped error of the same kind already names it
	msg := e.Message
	if e.Kind != nil && (e.Err == nil || !errors.Is(e.Err, e.Kind)) {
		if msg == "" {
			msg = e.Kind.Error()
		} else {
			msg = fmt.Sprintf("%s: %s", e.Kind, msg)
		}
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, msg} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	if e == nil || e.Kind == nil {
		return false
	}
	return e.Kind == target
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// NewErrorf creates a new error of the given kind with a formatted message.
func NewErrorf(kind error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// The kind of err, if it has one, is kept. If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    KindOf(err),
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    KindOf(err),
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf returns the sentinel kind carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrSizeMismatch,
		ErrSingularMatrix,
		ErrNumericInstability,
		ErrInvalidArgument,
		ErrInvalidModel,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsInterpolationError checks if an error is of type Error.
// If the error is an interpolation error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsInterpolationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
