package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/sensorbridge/internal/audit"
	"github.com/nerrad567/sensorbridge/internal/forwarder"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/logging"
	"github.com/nerrad567/sensorbridge/internal/metrics"
	"github.com/nerrad567/sensorbridge/internal/reading"
)

// Accept retry backoff bounds for temporary errors.
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Forwarder sends one encoded point upstream.
type Forwarder interface {
	Forward(ctx context.Context, point string) forwarder.Outcome
}

// Config holds listener settings.
type Config struct {
	// Address is host:port to bind.
	Address string

	// MaxLineBytes is the longest accepted line, excluding the terminator.
	MaxLineBytes int

	// AckWriteTimeout bounds each echo write; zero disables the deadline.
	AckWriteTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPublishers adds live-feed publishers.
func WithPublishers(p ...Publisher) Option {
	return func(s *Server) { s.publishers = append(s.publishers, p...) }
}

// WithClock overrides the clock used for timestamp fallback.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.resolver.Now = now }
}

// Server accepts sensor connections and dispatches their lines.
type Server struct {
	cfg        Config
	fwd        Forwarder
	recorder   audit.Recorder
	publishers []Publisher
	metrics    *metrics.Metrics
	logger     *logging.Logger
	resolver   reading.Resolver

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	serving  bool
	closed   bool
	wg       sync.WaitGroup
}

// New creates a server. fwd and recorder are shared by every connection
// and must be safe for concurrent use.
func New(cfg Config, fwd Forwarder, recorder audit.Recorder, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		fwd:      fwd,
		recorder: recorder,
		conns:    make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	if s.recorder == nil {
		s.recorder = audit.Nop{}
	}
	s.logger = s.logger.Component("ingest")
	return s
}

// Listen binds the configured address. Serve calls it when needed; call it
// directly to learn the bound address before serving.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.cfg.Address, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or accepting fails
// permanently. On cancellation it closes every open connection, waits for
// their handlers and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.serving {
		s.mu.Unlock()
		return ErrAlreadyServing
	}
	s.serving = true
	ln := s.listener
	s.mu.Unlock()

	s.logger.Info("listening", "address", ln.Addr().String())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case <-stop:
		}
	}()

	err := s.acceptLoop(ctx, ln)

	s.shutdown()
	s.wg.Wait()

	if ctx.Err() != nil {
		s.logger.Info("listener stopped")
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() { //nolint:staticcheck // same retry rule as net/http
				backoff = nextBackoff(backoff)
				s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return nil
				}
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		backoff = 0

		if !s.track(conn) {
			conn.Close() //nolint:errcheck // shutting down
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handle(ctx, conn)
		}()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	d *= 2
	if d > maxAcceptBackoff {
		return maxAcceptBackoff
	}
	return d
}

// track registers conn unless the server is closing.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// shutdown closes the listener and all tracked connections. Idempotent.
func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.listener != nil {
		s.listener.Close() //nolint:errcheck // unblocks Accept
	}
	for conn := range s.conns {
		conn.Close() //nolint:errcheck // unblocks the handler's read
	}
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
