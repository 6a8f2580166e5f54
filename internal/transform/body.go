package transform

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// BufferBody reads the request body once into an owned buffer and installs
// a fresh reader over that same buffer, so the request can still be
// forwarded with its original bytes. Calling it again returns the same
// bytes and leaves the body ready for exactly one more read.
func BufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		restoreBody(r, nil)
		return nil, nil
	}

	buf, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	restoreBody(r, buf)
	return buf, nil
}

func restoreBody(r *http.Request, buf []byte) {
	r.ContentLength = int64(len(buf))
	if len(buf) == 0 {
		r.Body = http.NoBody
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(buf))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
}
