package transport

import "context"

// Server is a transport server managed by the application lifecycle.
type Server interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// Kind marks what a server speaks.
type Kind string

const (
	KindTCP  Kind = "tcp"
	KindHTTP Kind = "http"
)

func (k Kind) String() string {
	return string(k)
}
