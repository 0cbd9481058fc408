// Package httpserver builds the process-wide API server.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server for the issuance and verification API. The
// write timeout sits above the router's 30 second per-request timeout so
// large artifact responses are bounded by the handler deadline.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
