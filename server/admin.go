package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omalloc/relay/cache"
	"github.com/omalloc/relay/conf"
	"github.com/omalloc/relay/contrib/log"
	"github.com/omalloc/relay/contrib/transport"
	"github.com/omalloc/relay/pkg/x/runtime"
)

var _ transport.Server = (*AdminServer)(nil)

// AdminServer is the operational plane: prometheus metrics, probes and
// build info. It stays off unless an address is configured.
type AdminServer struct {
	*http.Server
}

// NewAdminServer builds the admin listener for c.Addr.
func NewAdminServer(c *conf.Admin, store *cache.Cache) *AdminServer {
	return &AdminServer{
		Server: &http.Server{
			Addr:    c.Addr,
			Handler: NewAdminMux(store),
		},
	}
}

// NewAdminMux lays out the admin routes.
func NewAdminMux(store *cache.Cache) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/favicon.ico", http.NotFoundHandler())

	// version info
	mux.Handle("/version", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal(runtime.BuildInfo)
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}))

	// metrics
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	mux.Handle("/healthz/startup-probe", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := []byte("ok")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}))
	mux.Handle("/healthz/liveness-probe", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.Handle("/healthz/readiness-probe", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if store != nil {
		// cache introspection and purge
		mux.Handle("/cache/stats", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"entries": store.Len(),
				"bytes":   store.Bytes(),
			})
		}))
		mux.Handle("/cache/purge", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uri := r.URL.Query().Get("uri")
			if uri == "" {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing uri parameter"})
				return
			}
			if !store.Remove(uri) {
				writeJSON(w, http.StatusNotFound, map[string]any{"purged": false, "uri": uri})
				return
			}
			log.Infof("purged %s", uri)
			writeJSON(w, http.StatusOK, map[string]any{"purged": true, "uri": uri})
		}))
	}

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, _ := json.Marshal(v)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// Start serves the admin plane until Stop shuts it down.
func (s *AdminServer) Start(ctx context.Context) error {
	s.BaseContext = func(ln net.Listener) context.Context {
		return ctx
	}

	log.Infof("admin listening on %s", s.Addr)

	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains and shuts the admin plane down.
func (s *AdminServer) Stop(ctx context.Context) error {
	return s.Shutdown(ctx)
}
