package service

import "errors"

// Kind classifies a service failure. The HTTP layer maps kinds to status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindServiceUnavailable
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "internal"
	}
}

// Caller-facing messages.
const (
	MsgModelNotLoaded = "Model not loaded"
	MsgNoTexts        = "No texts provided"
)

// Error is a classified failure with a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func unavailable(err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: MsgModelNotLoaded, Err: err}
}

func invalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}
