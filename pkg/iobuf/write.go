package iobuf

import "io"

// WriteAll writes every byte of p to w, resuming after short writes. A peer
// that has gone away surfaces as the write error (EPIPE, closed connection);
// the caller decides whether that ends its worker, never the process.
func WriteAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
