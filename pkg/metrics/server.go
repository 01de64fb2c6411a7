package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HTTPTimeout bounds reads, writes and shutdown of the metrics endpoint.
const HTTPTimeout = 10 * time.Second

// Server exposes a registry on /metrics in the Prometheus text format.
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// NewServer creates a metrics server for gatherer on addr. Nothing listens
// until Activate.
func NewServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: HTTPTimeout,
			ReadTimeout:       HTTPTimeout,
			WriteTimeout:      HTTPTimeout,
		},
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// Activate binds the listen address and serves in the background. Bind
// errors are returned; serve errors after that are logged.
func (s *Server) Activate() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("activating metrics endpoint", zap.String("address", ln.Addr().String()))

	go func() {
		err := s.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.Info("metrics endpoint closed")
		} else if err != nil {
			s.logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Activate.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Deactivate shuts the server down.
func (s *Server) Deactivate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HTTPTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
