package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"mdm/internal/auth"
	"mdm/internal/ingest"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Minute
	writeTimeout      = 10 * time.Minute
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 15 * time.Second

	defaultMaxBodyBytes   = 256 << 20 // 256 MiB
	defaultIngestLimit    = 16
	ingestMultipartMemory = 8 << 20 // 8 MiB
)

// Ingester runs one ingestion.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Result, error)
}

// Options configures a Server.
type Options struct {
	Verifier      *auth.KeyVerifier
	Metrics       http.Handler
	MaxBodyBytes  int64
	MaxConcurrent int
	Logger        *slog.Logger
}

// Server wraps HTTP handlers for the ingest API.
type Server struct {
	addr          string
	ingester      Ingester
	verifier      *auth.KeyVerifier
	metrics       http.Handler
	maxBodyBytes  int64
	logger        *slog.Logger
	ingestLimiter chan struct{}
}

// New creates a new server instance.
func New(addr string, ingester Ingester, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = defaultIngestLimit
	}

	return &Server{
		addr:          addr,
		ingester:      ingester,
		verifier:      opts.Verifier,
		metrics:       opts.Metrics,
		maxBodyBytes:  maxBody,
		logger:        logger,
		ingestLimiter: make(chan struct{}, limit),
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.routes())
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if !s.verifier.Enabled() {
		s.log().Warn("api key not configured; ingest authorization is disabled")
	}
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr joins a host and port into a listen address.
func ListenAddr(host string, port int) (string, error) {
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid port %d", port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
