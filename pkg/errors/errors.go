// Package errors carries request-scoped failures that map onto a wire error
// reply to the client.
package errors

import "fmt"

// Error pairs an HTTP status with the short and long message the error
// responder writes.
type Error struct {
	Code  int
	Short string
	Long  string
	cause error
}

func New(code int, short, long string) *Error {
	return &Error{
		Code:  code,
		Short: short,
		Long:  long,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("error: code = %d short = %q cause = %v", e.Code, e.Short, e.cause)
}

// WithCause returns a copy of e carrying err as its cause.
func (e *Error) WithCause(err error) *Error {
	ne := *e
	ne.cause = err
	return &ne
}

func (e *Error) Unwrap() error {
	return e.cause
}

// The two error replies the proxy defines.
var (
	ErrBadRequest     = New(400, "Bad Request", "Proxy received a malformed request")
	ErrNotImplemented = New(501, "Not Implemented", "Proxy does not implement this method")
)
