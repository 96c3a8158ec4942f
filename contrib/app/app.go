// Package app runs a set of transport servers as one application: start them
// together, stop them together on the first failure or termination signal.
package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omalloc/relay/contrib/log"
	"github.com/omalloc/relay/contrib/transport"
)

type options struct {
	id          string
	name        string
	version     string
	stopTimeout time.Duration
	servers     []transport.Server
}

// Option configures an App.
type Option func(*options)

// ID sets the instance id (usually the hostname).
func ID(id string) Option { return func(o *options) { o.id = id } }

// Name sets the application name.
func Name(name string) Option { return func(o *options) { o.name = name } }

// Version sets the application version.
func Version(v string) Option { return func(o *options) { o.version = v } }

// StopTimeout bounds how long Stop may take per server.
func StopTimeout(d time.Duration) Option { return func(o *options) { o.stopTimeout = d } }

// Server registers transport servers to run.
func Server(srv ...transport.Server) Option {
	return func(o *options) { o.servers = append(o.servers, srv...) }
}

// App ties servers to the process lifetime.
type App struct {
	opts options
}

// New builds an App from options.
func New(opts ...Option) *App {
	o := options{
		stopTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &App{opts: o}
}

// Run starts every server and blocks until a server fails or the process
// receives SIGINT/SIGTERM. All servers are stopped before returning.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("starting %s id=%s version=%s", a.opts.name, a.opts.id, a.opts.version)

	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range a.opts.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), a.opts.stopTimeout)
			defer cancel()
			return srv.Stop(stopCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Infof("%s stopped", a.opts.name)
	return nil
}
