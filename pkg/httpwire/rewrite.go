package httpwire

import (
	"errors"
	"fmt"
	"net/textproto"
)

// UserAgent is the fixed User-Agent sent on every outbound request.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:3.10.0) Gecko/20230411 Firefox/63.0.1"

// ErrRequestTooLarge reports a rewritten request that would not fit in
// MaxLine.
var ErrRequestTooLarge = errors.New("httpwire: rewritten request exceeds MaxLine")

// skipHeaders are the client headers the proxy replaces with its own.
var skipHeaders = map[string]struct{}{
	"Host":             {},
	"Connection":       {},
	"Proxy-Connection": {},
	"User-Agent":       {},
}

// RequestBuilder assembles the outbound HTTP/1.0 request text inside a
// MaxLine-bounded buffer. Begin once, Append each preserved client header,
// Finish to terminate the header block.
type RequestBuilder struct {
	buf []byte
}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{buf: make([]byte, 0, MaxLine)}
}

// Begin writes the request line and the mandatory proxy headers.
func (b *RequestBuilder) Begin(host, path, port string) error {
	return b.appendf("GET %s HTTP/1.0\r\n"+
		"Host: %s:%s\r\n"+
		"User-Agent: %s\r\n"+
		"Connection: close\r\n"+
		"Proxy-Connection: close\r\n",
		path, host, port, UserAgent)
}

// Append preserves one client header unless it is one the proxy rewrites.
func (b *RequestBuilder) Append(h Header) error {
	if _, skip := skipHeaders[textproto.CanonicalMIMEHeaderKey(h.Name)]; skip {
		return nil
	}
	return b.appendf("%s: %s\r\n", h.Name, h.Value)
}

// Finish terminates the header block and returns the full request text.
func (b *RequestBuilder) Finish() ([]byte, error) {
	if err := b.appendf("\r\n"); err != nil {
		return nil, err
	}
	return b.buf, nil
}

// Empty reports whether Begin has written anything yet. An empty builder at
// end of request means no request-line was ever seen.
func (b *RequestBuilder) Empty() bool {
	return len(b.buf) == 0
}

func (b *RequestBuilder) appendf(format string, args ...any) error {
	s := fmt.Sprintf(format, args...)
	if len(b.buf)+len(s) > MaxLine {
		return ErrRequestTooLarge
	}
	b.buf = append(b.buf, s...)
	return nil
}
