package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	Authentication
	Authorization
	Validation
	RateLimited
	Persistence
)

func (k Kind) String() string {
	switch k {
	case Authentication:
		return "authentication"
	case Authorization:
		return "authorization"
	case Validation:
		return "validation"
	case RateLimited:
		return "rate_limited"
	case Persistence:
		return "persistence"
	default:
		return "internal"
	}
}

// GenericMessage is what clients see for failures they cannot act on.
const GenericMessage = "Something went wrong, please try again"

// Error is a failure that is reported back to the acting connection.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Storage wraps a durable-store failure. The client only ever sees GenericMessage.
func Storage(err error) *Error {
	return &Error{Kind: Persistence, Message: GenericMessage, Err: err}
}

// KindOf returns the kind of err, or Internal if it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ClientMessage is the text a client should be shown for err.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal && e.Kind != Persistence {
		return e.Message
	}
	return GenericMessage
}
