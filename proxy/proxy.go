// Package proxy contains the per-connection worker: parse the client's
// request, answer from the cache or relay it to the origin, and stage small
// replies for insertion.
package proxy

import (
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/omalloc/relay/cache"
	"github.com/omalloc/relay/contrib/log"
)

// Record is one finished request as reported to the access log.
type Record struct {
	RequestID   string
	Peer        string
	Method      string
	URI         string
	Status      int
	CacheStatus string
	Bytes       int
	Duration    time.Duration
}

// Proxy owns the shared cache and turns accepted client connections into
// relayed origin exchanges. Workers share nothing but the cache.
type Proxy struct {
	cache       *cache.Cache
	dialer      *net.Dialer
	idleTimeout time.Duration
	access      func(Record)
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithCache shares an existing cache with the proxy.
func WithCache(c *cache.Cache) Option {
	return func(p *Proxy) { p.cache = c }
}

// WithDialTimeout bounds the origin connect.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Proxy) {
		if d > 0 {
			p.dialer.Timeout = d
		}
	}
}

// WithIdleTimeout arms a whole-exchange deadline on the client connection.
// Zero leaves connections unbounded.
func WithIdleTimeout(d time.Duration) Option {
	return func(p *Proxy) { p.idleTimeout = d }
}

// WithAccessLog registers fn to receive one Record per handled request.
func WithAccessLog(fn func(Record)) Option {
	return func(p *Proxy) { p.access = fn }
}

// New builds a Proxy. Without options it runs on a private cache with
// default bounds.
func New(opts ...Option) *Proxy {
	p := &Proxy{
		cache: cache.New(),
		dialer: &net.Dialer{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cache returns the shared content cache.
func (p *Proxy) Cache() *cache.Cache {
	return p.cache
}

func (p *Proxy) dial(host, port string) (net.Conn, error) {
	return p.dialer.Dial("tcp", net.JoinHostPort(host, port))
}

// ServeConn handles one client connection to completion and closes it. It
// is the goroutine body the acceptor spawns per connection; a failure here
// ends this worker only.
func (p *Proxy) ServeConn(conn net.Conn) {
	defer conn.Close()

	id := uuid.NewString()[:8]
	w := &worker{
		p:     p,
		conn:  conn,
		id:    id,
		start: time.Now(),
		log:   log.NewHelper(log.GetLogger(), "request_id", id),
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Errorf("worker panic: %v\n%s", r, debug.Stack())
		}
	}()

	w.run()
}
