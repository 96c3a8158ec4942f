// Package file loads config from a local file and watches it with fsnotify.
package file

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/omalloc/relay/contrib/config"
)

var _ config.Source = (*file)(nil)

type file struct {
	path string
}

// NewSource new a file source.
func NewSource(path string) config.Source {
	return &file{path: path}
}

// Load implements config.Source.
func (f *file) Load() ([]*config.KeyValue, error) {
	buf, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	return []*config.KeyValue{
		{
			Key:    f.path,
			Value:  buf,
			Format: format(f.path),
		},
	}, nil
}

// Watch implements config.Source.
func (f *file) Watch() (config.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory so editor rename-and-replace still notifies
	if err := fw.Add(filepath.Dir(f.path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &watcher{f: f, fw: fw}, nil
}

func format(path string) string {
	if ext := filepath.Ext(path); len(ext) > 1 {
		return strings.TrimPrefix(ext, ".")
	}
	return ""
}

type watcher struct {
	f  *file
	fw *fsnotify.Watcher
}

// Next blocks until the watched file changed, then returns its new content.
func (w *watcher) Next() ([]*config.KeyValue, error) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil, fsnotify.ErrClosed
			}
			if event.Name != w.f.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			return w.f.Load()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil, fsnotify.ErrClosed
			}
			return nil, err
		}
	}
}

func (w *watcher) Stop() error {
	return w.fw.Close()
}
