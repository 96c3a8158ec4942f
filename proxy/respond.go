package proxy

import (
	"fmt"
	"io"

	"github.com/omalloc/relay/contrib/log"
	"github.com/omalloc/relay/pkg/httpwire"
	"github.com/omalloc/relay/pkg/iobuf"
)

// maxBuf bounds the error reply body.
const maxBuf = 8 * 1024

// clientError writes a complete minimal HTTP/1.0 error reply. Content that
// would overflow its buffer aborts silently; the worker closes the
// connection either way.
func clientError(w io.Writer, code int, short, long string) {
	body := fmt.Sprintf("<!DOCTYPE html>\r\n"+
		"<html>\r\n"+
		"<head><title>Proxy Error</title></head>\r\n"+
		"<body bgcolor=\"ffffff\">\r\n"+
		"<h1>%d: %s</h1>\r\n"+
		"<p>%s</p>\r\n"+
		"<hr /><em>The Proxy Web server</em>\r\n"+
		"</body></html>\r\n",
		code, short, long)
	if len(body) >= maxBuf {
		return
	}

	header := fmt.Sprintf("HTTP/1.0 %d %s\r\n"+
		"Content-Type: text/html\r\n"+
		"Content-Length: %d\r\n\r\n",
		code, short, len(body))
	if len(header) >= httpwire.MaxLine {
		return
	}

	if err := iobuf.WriteAll(w, []byte(header)); err != nil {
		log.Warnf("write error response headers: %v", err)
		return
	}
	if err := iobuf.WriteAll(w, []byte(body)); err != nil {
		log.Warnf("write error response body: %v", err)
	}
}
