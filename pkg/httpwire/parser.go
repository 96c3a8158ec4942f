// Package httpwire implements the line-level HTTP/1.0 wire handling the
// proxy performs: an incremental request parser and the outbound request
// builder.
package httpwire

import (
	"errors"
	"net"
	"strings"
)

// MaxLine bounds a single line of request text and the entire rewritten
// outbound request.
const MaxLine = 1024

// State is what the parser reports after consuming one line.
type State int

const (
	// StateOther marks a benign line: the blank terminator, a
	// continuation, or anything after the header block ended.
	StateOther State = iota
	// StateRequest means the request-line was just parsed.
	StateRequest
	// StateHeader means one or more header lines were consumed since the
	// last retrieval.
	StateHeader
	// StateError means the line was malformed for the current state. The
	// parse is unrecoverable for this request.
	StateError
)

// Field names a retrievable request-line derived value.
type Field int

const (
	FieldMethod Field = iota
	FieldURI
	FieldPath
	FieldHost
	FieldPort
)

// ErrFieldNotFound reports retrieval of a field the parser never observed.
var ErrFieldNotFound = errors.New("httpwire: field not observed")

// Header is one client header as sent, order preserved.
type Header struct {
	Name  string
	Value string
}

// Parser is a line-fed request parser. Feed it one line at a time with
// ParseLine; retrieve fields once StateRequest has been reported. A Parser
// handles exactly one request and is not reused.
type Parser struct {
	requestSeen bool
	terminated  bool

	method string
	uri    string
	path   string
	host   string
	port   string

	headers []Header
	cursor  int
}

func NewParser() *Parser {
	return &Parser{}
}

// ParseLine consumes one line including its trailing CRLF.
func (p *Parser) ParseLine(line string) State {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	if !p.requestSeen {
		return p.parseRequestLine(line)
	}

	if line == "" {
		p.terminated = true
		return StateOther
	}
	if p.terminated {
		return StateOther
	}

	// obs-fold continuation folds into the previous header value
	if line[0] == ' ' || line[0] == '\t' {
		if len(p.headers) == 0 {
			return StateError
		}
		p.headers[len(p.headers)-1].Value += " " + strings.TrimSpace(line)
		return StateOther
	}

	name, value, ok := strings.Cut(line, ":")
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return StateError
	}
	h := Header{Name: name, Value: strings.TrimSpace(value)}
	if p.host == "" && strings.EqualFold(h.Name, "Host") {
		p.setAuthority(h.Value)
	}
	p.headers = append(p.headers, h)
	return StateHeader
}

func (p *Parser) parseRequestLine(line string) State {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return StateError
	}
	method, target, version := parts[0], parts[1], parts[2]
	if !strings.HasPrefix(version, "HTTP/") {
		return StateError
	}

	switch {
	case strings.HasPrefix(target, "http://"):
		rest := target[len("http://"):]
		authority, path := rest, "/"
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			authority, path = rest[:i], rest[i:]
		}
		if authority == "" {
			return StateError
		}
		p.setAuthority(authority)
		p.path = path
	case strings.HasPrefix(target, "/"):
		// origin-form; the authority arrives in a Host header
		p.path = target
	default:
		return StateError
	}

	p.method = method
	p.uri = target
	p.requestSeen = true
	return StateRequest
}

func (p *Parser) setAuthority(authority string) {
	if host, port, err := net.SplitHostPort(authority); err == nil {
		p.host, p.port = host, port
		return
	}
	p.host = authority
}

// Retrieve returns the named field. Every retrieval is total: a field the
// parser never observed yields ErrFieldNotFound.
func (p *Parser) Retrieve(f Field) (string, error) {
	switch f {
	case FieldMethod:
		if p.requestSeen {
			return p.method, nil
		}
	case FieldURI:
		if p.requestSeen {
			return p.uri, nil
		}
	case FieldPath:
		if p.path != "" {
			return p.path, nil
		}
	case FieldHost:
		if p.host != "" {
			return p.host, nil
		}
	case FieldPort:
		if p.host != "" {
			if p.port == "" {
				return "80", nil
			}
			return p.port, nil
		}
	}
	return "", ErrFieldNotFound
}

// NextHeader yields each header not yet retrieved, in arrival order.
func (p *Parser) NextHeader() (Header, bool) {
	if p.cursor >= len(p.headers) {
		return Header{}, false
	}
	h := p.headers[p.cursor]
	p.cursor++
	return h, true
}
