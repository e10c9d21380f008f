package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"jiradataset/pkg/logger"
)

// Server exposes /metrics for the duration of a run
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   logger.Logger
}

// NewServer binds addr and prepares the metrics endpoint
func NewServer(addr string, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		listener: ln,
		logger:   log,
	}, nil
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background until Shutdown
func (s *Server) Start() {
	s.logger.InfoWithFields("Metrics endpoint listening", map[string]interface{}{
		"addr": s.Addr(),
	})
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Metrics server stopped")
		}
	}()
}

// Shutdown stops the server, waiting up to the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
