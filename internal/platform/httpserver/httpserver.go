package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts sized for short JSON requests. The
// write timeout leaves room for a slow upstream call plus the response.
func New(addr string, handler http.Handler, upstreamTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2*upstreamTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
