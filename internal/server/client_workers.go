//go:build js && wasm

package server

import (
	stdlog "log"
	"net/http"

	"github.com/rs/zerolog"
)

// NewBackendTransport returns the default transport, which the js/wasm
// runtime implements on top of the Workers fetch API.
func NewBackendTransport() http.RoundTripper {
	return http.DefaultTransport
}

func newStdLogger(logger zerolog.Logger) *stdlog.Logger {
	return stdlog.New(logger, "", 0)
}
