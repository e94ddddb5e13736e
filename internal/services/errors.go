package services

import "errors"

// ErrorKind classifies a service failure for the transport layer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthenticated
	KindInvalid
	KindUnavailable
)

// Error carries a user-facing message and the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a service Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Kind == kind
}

func unauthenticated(message string) error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func invalid(err error) error {
	return &Error{Kind: KindInvalid, Message: "Invalid request", Err: err}
}

func internal(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}
