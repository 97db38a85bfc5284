package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/raniellyferreira/memkv/protocol"
	"github.com/raniellyferreira/memkv/storage"
)

var (
	// ErrServerClosed is returned by Start and Serve after Shutdown
	ErrServerClosed = errors.New("server closed")

	// ErrServerRunning is returned when the server is already serving
	ErrServerRunning = errors.New("server already running")
)

// Config holds the connection supervisor settings
type Config struct {
	// Addr is the TCP address to listen on
	Addr string

	// ReadTimeout bounds how long a connection may stay silent. Zero means
	// no deadline.
	ReadTimeout time.Duration

	// WriteTimeout bounds each reply flush. Zero means no deadline.
	WriteTimeout time.Duration

	// MaxDepth bounds array nesting in requests
	MaxDepth int

	// RateLimit is the number of commands per second allowed on one
	// connection. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the limiter bucket size; defaults to RateLimit rounded up
	RateBurst int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		ReadTimeout:  0,
		WriteTimeout: 30 * time.Second,
		MaxDepth:     protocol.DefaultMaxDepth,
	}
}

// Server accepts TCP connections and runs one Dispatcher per connection
// against a shared store.
type Server struct {
	cfg     Config
	store   storage.Storage
	logger  *slog.Logger
	metrics *counters
	parser  protocol.Parser

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	closed   bool

	sessions sync.Map // session id -> *Session
	wg       sync.WaitGroup
}

// New creates a server. A nil logger uses slog.Default and nil metrics
// records nothing beyond Stats.
func New(cfg Config, store storage.Storage, logger *slog.Logger, metrics Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}

	parser := protocol.DefaultParser
	if cfg.MaxDepth > 0 {
		parser.MaxDepth = cfg.MaxDepth
	}

	return &Server{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		metrics: newCounters(metrics),
		parser:  parser,
	}
}

// Start listens on the configured address and serves in the background
// until ctx is cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	connCtx, err := s.register(ctx, ln)
	if err != nil {
		_ = ln.Close()
		return err
	}

	go func() {
		if err := s.acceptLoop(connCtx, ln); err != nil {
			s.logger.Error("accept loop stopped", "error", err)
		}
	}()
	return nil
}

// Serve accepts connections on ln and blocks until ctx is cancelled,
// Shutdown is called or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	connCtx, err := s.register(ctx, ln)
	if err != nil {
		return err
	}
	return s.acceptLoop(connCtx, ln)
}

func (s *Server) register(ctx context.Context, ln net.Listener) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrServerClosed
	}
	if s.listener != nil {
		return nil, ErrServerRunning
	}

	connCtx, cancel := context.WithCancel(ctx)
	s.listener = ln
	s.cancel = cancel
	s.wg.Add(1)

	s.logger.Info("server listening", "addr", ln.Addr().String())
	return connCtx, nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	defer s.wg.Done()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0

		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	opts := []DispatcherOption{
		WithLogger(s.logger),
		WithMetrics(s.metrics),
		WithParser(s.parser),
		WithTimeouts(s.cfg.ReadTimeout, s.cfg.WriteTimeout),
	}
	if limiter := s.newLimiter(); limiter != nil {
		opts = append(opts, WithRateLimiter(limiter))
	}

	d := NewDispatcher(conn, s.store, opts...)
	session := d.Session()
	s.sessions.Store(session.ID, session)
	defer s.sessions.Delete(session.ID)

	err := d.Run(ctx)
	var terr *TransportError
	if errors.As(err, &terr) {
		var ne net.Error
		if errors.As(terr, &ne) && ne.Timeout() {
			s.logger.Debug("connection timed out", "session", session.ID, "remote", session.RemoteAddr)
		}
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.RateLimit <= 0 {
		return nil
	}
	burst := s.cfg.RateBurst
	if burst <= 0 {
		burst = int(s.cfg.RateLimit)
		if float64(burst) < s.cfg.RateLimit {
			burst++
		}
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
}

// Shutdown stops accepting connections, closes every open connection and
// waits for their goroutines to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln, cancel := s.listener, s.cancel
	s.mu.Unlock()

	var firstErr error
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("server stopped")
	return firstErr
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Addr returns the listening address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Stats returns server statistics
func (s *Server) Stats() Stats {
	return s.metrics.snapshot()
}

// Sessions returns the sessions of currently open connections
func (s *Server) Sessions() []*Session {
	var out []*Session
	s.sessions.Range(func(_, value any) bool {
		out = append(out, value.(*Session))
		return true
	})
	return out
}
