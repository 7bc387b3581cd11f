package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a gateway failure.
type Kind int

const (
	// KindStorage is any failure raised by the database while executing or
	// committing. It is also the classification of unrecognised errors.
	KindStorage Kind = iota
	// KindNotFound means the requested table is not in the catalog.
	KindNotFound
	// KindInvalidInput covers missing, malformed or unknown-column payloads.
	KindInvalidInput
	// KindConnection means the database could not be opened.
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConnection:
		return "connection"
	default:
		return "storage"
	}
}

// Error is returned by every Gateway operation. Message is safe to show to
// API clients; Err keeps the underlying cause for logs and errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or KindStorage when err is not a
// gateway error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindStorage
}

func errTableNotFound(table string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Table '%s' not found", table)}
}

func errInvalidInput(msg string, cause error) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, Err: cause}
}

func errInvalidColumns(cols []string) *Error {
	return &Error{Kind: KindInvalidInput, Message: "Invalid columns: " + strings.Join(cols, ", ")}
}

func errStorage(msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: cause}
}

func errConnection(msg string, cause error) *Error {
	return &Error{Kind: KindConnection, Message: msg, Err: cause}
}
