package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

type HTTPServer struct {
	srv *http.Server
}

func NewHTTPServer(host string, port int, handler http.Handler) *HTTPServer {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	return &HTTPServer{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func (s *HTTPServer) Addr() string { return s.srv.Addr }

// Start blocks until the listener fails or Shutdown is called.
func (s *HTTPServer) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
