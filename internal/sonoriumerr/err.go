// Package sonoriumerr carries a coarse error classification alongside the
// usual wrapped error chain, so callers at the HTTP/control boundary can map
// failures to a response without string-matching messages.
package sonoriumerr

import "fmt"

type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindInvalid     Kind = "invalid"
	KindConflict    Kind = "conflict"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func NotFound(op string, err error) *Error    { return New(op, KindNotFound, err) }
func Invalid(op string, err error) *Error     { return New(op, KindInvalid, err) }
func Conflict(op string, err error) *Error    { return New(op, KindConflict, err) }
func Unavailable(op string, err error) *Error { return New(op, KindUnavailable, err) }
