package chatengine

import "errors"

// Kind classifies an engine failure. Kinds are stable; the HTTP surface maps
// them to status codes.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindForbidden     Kind = "forbidden"
	KindValidation    Kind = "validation"
	KindAlreadyExists Kind = "already_exists"
	KindAlreadyAdmin  Kind = "already_admin"
	KindNotAMember    Kind = "not_a_member"
	KindStorage       Kind = "storage"
)

// Error is the engine's failure value: a stable kind plus a human-readable
// message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the kind from an error, or KindStorage for anything the
// engine did not produce itself.
func KindOf(err error) Kind {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	return KindStorage
}

func errNotFound(msg string) error      { return &Error{Kind: KindNotFound, Message: msg} }
func errForbidden(msg string) error     { return &Error{Kind: KindForbidden, Message: msg} }
func errValidation(msg string) error    { return &Error{Kind: KindValidation, Message: msg} }
func errAlreadyExists(msg string) error { return &Error{Kind: KindAlreadyExists, Message: msg} }
func errAlreadyAdmin(msg string) error  { return &Error{Kind: KindAlreadyAdmin, Message: msg} }
func errNotAMember(msg string) error    { return &Error{Kind: KindNotAMember, Message: msg} }

func errStorage(msg string, cause error) error {
	return &Error{Kind: KindStorage, Message: msg, cause: cause}
}
