package config

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"dario.cat/mergo"

	"github.com/omalloc/relay/contrib/log"
	"github.com/omalloc/relay/pkg/mapstruct"
)

// Observer is notified after a config reload.
type Observer[T any] func(string, *T)

// Config scans sources into a bootstrap struct and re-scans on SIGHUP or
// when a watched source changes.
type Config[T any] interface {
	Scan(v *T) error
	Watch(key string, o Observer[T]) error
	Close() error
}

type config[T any] struct {
	opts   *options
	stop   chan struct{}
	signal chan os.Signal

	mu        sync.Mutex
	observers map[string][]Observer[T]
	bc        *T
}

func New[T any](opts ...Option) Config[T] {
	o := &options{}

	for _, opt := range opts {
		opt(o)
	}

	c := &config[T]{
		opts:      o,
		stop:      make(chan struct{}),
		signal:    make(chan os.Signal, 1),
		observers: make(map[string][]Observer[T]),
	}

	go c.tick()
	c.watchSources()

	return c
}

func (c *config[T]) Scan(v *T) error {
	c.mu.Lock()
	c.bc = v
	c.mu.Unlock()

	merged := make(map[string]any)
	for _, source := range c.opts.sources {
		files, err := source.Load()
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.Value == nil {
				continue
			}
			unmarshal := toUnmarshal(file.Format)
			log.Debugf("[config] load %s format=%s", file.Key, file.Format)

			raw := make(map[string]any)
			if err := unmarshal(file.Value, &raw); err != nil {
				log.Errorf("[config] unmarshal %s: %s", file.Key, err)
				continue
			}
			if err := mergo.Map(&merged, raw, mergo.WithOverride); err != nil {
				return err
			}
		}
	}
	return mapstruct.Decode(merged, v)
}

func (c *config[T]) Watch(key string, o Observer[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers[key] = append(c.observers[key], o)
	return nil
}

func (c *config[T]) Close() error {
	close(c.stop)
	return nil
}

// tick re-scans on SIGHUP, the traditional reload signal.
func (c *config[T]) tick() {
	signal.Notify(c.signal, syscall.SIGHUP)
	defer signal.Stop(c.signal)

	for {
		select {
		case <-c.stop:
			return
		case <-c.signal:
			log.Debug("[config] received SIGHUP")
			c.reload()
		}
	}
}

// watchSources subscribes to every source that supports change notification.
func (c *config[T]) watchSources() {
	for _, source := range c.opts.sources {
		w, err := source.Watch()
		if err != nil || w == nil {
			continue
		}
		go func(w Watcher) {
			go func() {
				<-c.stop
				_ = w.Stop()
			}()
			for {
				if _, err := w.Next(); err != nil {
					return
				}
				c.reload()
			}
		}(w)
	}
}

func (c *config[T]) reload() {
	c.mu.Lock()
	bc := c.bc
	c.mu.Unlock()
	if bc == nil {
		return
	}
	if err := c.Scan(bc); err != nil {
		log.Warnf("[config] reload failed: %v", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, observers := range c.observers {
		log.Debugf("[config] notify key: %s", k)
		for _, observer := range observers {
			observer(k, bc)
		}
	}
}
