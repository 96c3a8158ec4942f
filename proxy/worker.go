package proxy

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/omalloc/relay/contrib/log"
	"github.com/omalloc/relay/internal/constants"
	"github.com/omalloc/relay/metrics"
	xerrors "github.com/omalloc/relay/pkg/errors"
	"github.com/omalloc/relay/pkg/httpwire"
	"github.com/omalloc/relay/pkg/iobuf"
)

// worker drives one client connection through parse, cache lookup, origin
// relay and cache insert. It owns both sockets and the parser; everything
// is released on every exit path.
type worker struct {
	p     *Proxy
	conn  net.Conn
	log   *log.Helper
	id    string
	start time.Time

	peer   string
	method string
	uri    string
}

func (w *worker) run() {
	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	w.peer = "-"
	if addr := w.conn.RemoteAddr(); addr != nil {
		w.peer = addr.String()
	}
	w.log.Infof("accepted connection from %s", w.peer)

	if w.p.idleTimeout > 0 {
		_ = w.conn.SetDeadline(time.Now().Add(w.p.idleTimeout))
	}

	rd := iobuf.NewReader(w.conn)
	parser := httpwire.NewParser()
	builder := httpwire.NewRequestBuilder()

	var origin net.Conn
	defer func() {
		if origin != nil {
			_ = origin.Close()
		}
	}()

	var key string
	line := make([]byte, httpwire.MaxLine)

	for {
		n, err := rd.ReadLine(line)
		if n <= 0 {
			if err != nil && !errors.Is(err, io.EOF) {
				w.log.Warnf("read from client: %v", err)
			}
			break
		}
		text := string(line[:n])
		if text == "\r\n" {
			break
		}

		switch parser.ParseLine(text) {
		case httpwire.StateError:
			w.reject(xerrors.ErrBadRequest, metrics.OutcomeBadRequest)
			return

		case httpwire.StateRequest:
			method, _ := parser.Retrieve(httpwire.FieldMethod)
			w.method = method
			if method != "GET" {
				w.reject(xerrors.ErrNotImplemented, metrics.OutcomeNotImplemented)
				return
			}

			uri, _ := parser.Retrieve(httpwire.FieldURI)
			w.uri = uri
			key = uri

			// hit: the cached bytes are copied out under the guard,
			// the client write happens outside it
			if value, ok := w.p.cache.Lookup(key); ok {
				if err := iobuf.WriteAll(w.conn, value); err != nil {
					w.log.Warnf("write cached reply: %v", err)
					w.finish(0, constants.CacheHit, 0, metrics.OutcomeClientError)
					return
				}
				w.finish(0, constants.CacheHit, len(value), metrics.OutcomeHit)
				return
			}

			path, err := parser.Retrieve(httpwire.FieldPath)
			if err != nil {
				w.reject(xerrors.ErrBadRequest.WithCause(err), metrics.OutcomeBadRequest)
				return
			}
			host, err := parser.Retrieve(httpwire.FieldHost)
			if err != nil {
				w.reject(xerrors.ErrBadRequest.WithCause(err), metrics.OutcomeBadRequest)
				return
			}
			port, err := parser.Retrieve(httpwire.FieldPort)
			if err != nil {
				w.reject(xerrors.ErrBadRequest.WithCause(err), metrics.OutcomeBadRequest)
				return
			}

			origin, err = w.p.dial(host, port)
			if err != nil {
				// no meaningful reply to the client at this point
				w.log.Errorf("connect %s: %v", net.JoinHostPort(host, port), err)
				w.finish(0, "-", 0, metrics.OutcomeUpstreamError)
				return
			}

			if err := builder.Begin(host, path, port); err != nil {
				w.reject(xerrors.ErrBadRequest.WithCause(err), metrics.OutcomeBadRequest)
				return
			}

		case httpwire.StateHeader:
			for {
				h, ok := parser.NextHeader()
				if !ok {
					break
				}
				if err := builder.Append(h); err != nil {
					w.reject(xerrors.ErrBadRequest.WithCause(err), metrics.OutcomeBadRequest)
					return
				}
			}
		}
	}

	// no request-line ever arrived
	if builder.Empty() {
		w.reject(xerrors.ErrBadRequest, metrics.OutcomeBadRequest)
		return
	}

	out, err := builder.Finish()
	if err != nil {
		w.reject(xerrors.ErrBadRequest.WithCause(err), metrics.OutcomeBadRequest)
		return
	}

	if err := iobuf.WriteAll(origin, out); err != nil {
		w.log.Errorf("send rewritten request: %v", err)
		w.finish(0, "-", 0, metrics.OutcomeUpstreamError)
		return
	}

	total, err := w.relay(origin, key)
	if err != nil {
		w.finish(0, constants.CacheMiss, total, metrics.OutcomeClientError)
		return
	}

	w.finish(0, constants.CacheMiss, total, metrics.OutcomeMiss)
}

// relay streams the origin reply to the client in MaxLine-sized chunks,
// forwarding the exact count each read returned, and stages bytes for the
// cache until another chunk would push past the per-object bound. Past that
// point the byte counter still advances but copying stops.
func (w *worker) relay(origin net.Conn, key string) (int, error) {
	rd := iobuf.NewReader(origin)
	maxObject := w.p.cache.MaxObjectSize()

	chunk := make([]byte, httpwire.MaxLine)
	var staging []byte
	total := 0

	for {
		n, rerr := rd.ReadN(chunk)
		if n > 0 {
			if err := iobuf.WriteAll(w.conn, chunk[:n]); err != nil {
				w.log.Warnf("write to client: %v", err)
				return total, err
			}
			if total+n <= maxObject {
				staging = append(staging, chunk[:n]...)
			}
			total += n
			metrics.RelayedBytes.Add(float64(n))
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) {
				w.log.Warnf("read from origin: %v", rerr)
			}
			break
		}
	}

	if total <= maxObject {
		if err := w.p.cache.Insert(key, staging); err != nil {
			// does not fit the cache's byte budget; dropped silently
			w.log.Debugf("cache insert %s: %v", key, err)
		}
	}

	return total, nil
}

// reject writes the error reply for e and records the outcome.
func (w *worker) reject(e *xerrors.Error, outcome string) {
	clientError(w.conn, e.Code, e.Short, e.Long)
	w.finish(e.Code, "-", 0, outcome)
}

// finish records metrics and the access-log line for this request.
func (w *worker) finish(status int, cacheStatus string, bytes int, outcome string) {
	metrics.MarkRequest(outcome)

	if w.p.access == nil {
		return
	}
	w.p.access(Record{
		RequestID:   w.id,
		Peer:        w.peer,
		Method:      w.method,
		URI:         w.uri,
		Status:      status,
		CacheStatus: cacheStatus,
		Bytes:       bytes,
		Duration:    time.Since(w.start),
	})
}
