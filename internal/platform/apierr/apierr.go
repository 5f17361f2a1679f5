// Package apierr carries the HTTP rendering of a failure alongside its cause.
package apierr

import "net/http"

// Error is a failure with the status, machine-readable code and client-facing
// message it is rendered with. Field names the offending input, if any.
type Error struct {
	Status  int
	Code    string
	Message string
	Field   string
	Err     error
}

// Error prefers the client-facing message over the cause.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}

// Wrap attaches a rendering to cause.
func Wrap(cause error, status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: cause}
}

// OnField returns a copy of e naming field as the bad input.
func (e *Error) OnField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}
