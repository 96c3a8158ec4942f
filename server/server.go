package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/cloudflare/tableflip"

	"github.com/omalloc/relay/conf"
	"github.com/omalloc/relay/contrib/log"
	"github.com/omalloc/relay/contrib/transport"
)

// ConnHandler handles one accepted connection and closes it when done.
type ConnHandler interface {
	ServeConn(net.Conn)
}

var _ transport.Server = (*TCPServer)(nil)

// TCPServer accepts client connections and hands each one to a detached
// worker goroutine. Worker lifetimes are not tracked; a worker failure
// never stops the accept loop.
type TCPServer struct {
	conf    *conf.Server
	flip    *tableflip.Upgrader
	handler ConnHandler

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

// NewServer builds the data-plane acceptor. flip may be nil; the listener
// then comes from net.Listen directly.
func NewServer(flip *tableflip.Upgrader, c *conf.Server, handler ConnHandler) *TCPServer {
	return &TCPServer{
		conf:    c,
		flip:    flip,
		handler: handler,
	}
}

func (s *TCPServer) listen() (net.Listener, error) {
	if s.flip != nil {
		return s.flip.Listen("tcp", s.conf.Addr)
	}
	return net.Listen("tcp", s.conf.Addr)
}

// Addr returns the bound address, or nil before Start.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the listener and runs the accept loop until Stop closes it.
// Accept failures are logged and survived with a capped backoff.
func (s *TCPServer) Start(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ln.Close()
	}
	s.ln = ln
	s.mu.Unlock()

	log.Infof("proxy listening on %s", ln.Addr())

	if s.flip != nil {
		if err := s.flip.Ready(); err != nil {
			return err
		}
	}

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			log.Errorf("accept: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		go s.handler.ServeConn(conn)
	}
}

// Stop closes the listener; in-flight workers finish on their own.
func (s *TCPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	ln := s.ln
	s.mu.Unlock()

	if ln != nil {
		return ln.Close()
	}
	return nil
}

func (s *TCPServer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
