package api

import (
	"errors"
	"fmt"
)

// Error carries error kind and a user-facing message.
type Error struct {
	// Kind is one of ErrNetwork, ErrAuth, ErrNotFound, ErrValidation.
	Kind error
	// Message is shown to the user as is. Empty means a generic message of the kind.
	Message string
	Err     error
}

// NewError ...
func NewError(kind error, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithMessage replaces user-facing message of err keeping its kind. Unknown errors become ErrNetwork.
func WithMessage(err error, message string) *Error {
	return NewError(KindOf(err), message, err)
}

// KindOf returns kind of err, ErrNetwork when err has no known kind.
func KindOf(err error) error {
	for _, kind := range []error{ErrAuth, ErrNotFound, ErrValidation, ErrNetwork} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return ErrNetwork
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}

	return msg
}

// Is makes errors.Is(err, ErrAuth) work.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns short user-facing text for the error.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}

	switch {
	case errors.Is(err, ErrAuth):
		return "Login failed"
	case errors.Is(err, ErrNotFound):
		return "Post not found"
	case errors.Is(err, ErrValidation):
		return "Invalid input"
	case errors.Is(err, ErrNetwork):
		return "Failed to load"
	default:
		return "An error occurred"
	}
}
