// Command mockserver is a throwaway origin for exercising the proxy by
// hand: every path returns a deterministic body of the requested size.
//
//	go run ./tests/mockserver -addr :9000 -size 1024 -delay 100ms
//	curl -x 127.0.0.1:8080 http://127.0.0.1:9000/whatever
package main

import (
	"bytes"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/omalloc/relay/contrib/log"
)

var (
	flagAddr  string
	flagSize  int
	flagDelay time.Duration
)

func init() {
	flag.StringVar(&flagAddr, "addr", ":9000", "listen address")
	flag.IntVar(&flagSize, "size", 64, "response body size in bytes")
	flag.DurationVar(&flagDelay, "delay", 0, "artificial response delay")
}

func main() {
	flag.Parse()

	body := bytes.Repeat([]byte("x"), flagSize)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if flagDelay > 0 {
			time.Sleep(flagDelay)
		}

		// per-path size override: /bytes/<n>
		payload := body
		var n int
		if _, err := fmt.Sscanf(r.URL.Path, "/bytes/%d", &n); err == nil && n >= 0 {
			payload = bytes.Repeat([]byte("x"), n)
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)

		log.Infof("%s %s %s -> %d bytes", r.RemoteAddr, r.Method, r.URL.Path, len(payload))
	})

	log.Infof("mock origin listening on %s", flagAddr)
	if err := http.ListenAndServe(flagAddr, nil); err != nil {
		log.Errorf("listen: %v", err)
		os.Exit(1)
	}
}
