// Package server answers TIME, DATE and TEMP requests over shiftsocket
// connections, one pool worker per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fxpool/shiftsocket"
	"github.com/fxpool/shiftsocket/pool"
)

const acceptRetryDelay = 5 * time.Millisecond

// Config is built once at startup and never changes.
type Config struct {
	Address string
	Port    int

	// Workers is clamped by pool.ClampSize.
	Workers int

	// ReadTimeout and WriteTimeout bound each request and response.
	// Zero disables them.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Socket shiftsocket.Config
}

// ListenAddress returns Address and Port joined as host:port.
func (c Config) ListenAddress() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// Stats is a snapshot of server activity.
type Stats struct {
	Pool           pool.Stats `json:"pool"`
	ActiveSessions int64      `json:"active_sessions"`
	TotalSessions  uint64     `json:"total_sessions"`
}

// Server accepts connections and hands each one to the worker pool.
// A Server serves once: after Serve returns, its pool is shut down.
type Server struct {
	cfg    Config
	facts  FactProvider
	logger *slog.Logger
	pool   *pool.Pool

	listener *shiftsocket.Listener
	ready    atomic.Bool
	active   atomic.Int64
	total    atomic.Uint64
}

// New validates cfg and starts the worker pool. A nil facts uses
// SystemFacts; a nil logger uses slog.Default().
func New(cfg Config, facts FactProvider, logger *slog.Logger) (*Server, error) {
	if err := shiftsocket.ValidateConfig(&cfg.Socket, true); err != nil {
		return nil, fmt.Errorf("invalid socket config: %w", err)
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return nil, errors.New("timeouts must not be negative")
	}
	if facts == nil {
		facts = SystemFacts{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		facts:  facts,
		logger: logger,
		pool:   pool.New(cfg.Workers, logger.With("component", "pool")),
	}, nil
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	address := s.cfg.ListenAddress()
	listener, err := shiftsocket.Listen("tcp", address, &s.cfg.Socket)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}
	s.listener = listener
	s.logger.Info("Listening",
		"addr", listener.Addr().String(),
		"workers", s.pool.Size(),
		"framing", s.cfg.Socket.Framing.String(),
		"tls", s.cfg.Socket.TLS != nil)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Ready reports whether the server is accepting connections.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Stats returns a snapshot of the pool and session counters.
func (s *Server) Stats() Stats {
	return Stats{
		Pool:           s.pool.Stats(),
		ActiveSessions: s.active.Load(),
		TotalSessions:  s.total.Load(),
	}
}

// ListenAndServe calls Listen, then Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts connections until ctx is cancelled, then closes the
// listening socket and waits for every session to finish.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer stop()

	s.ready.Store(true)
	var serveErr error
	for {
		conn, err := s.listener.AcceptConn()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				serveErr = err
				break
			}
			s.logger.Warn("Accept failed", "error", err)
			time.Sleep(acceptRetryDelay)
			continue
		}

		s.total.Add(1)
		sess := newSession(conn, s.logger)
		sess.logger.Info("Connection accepted")
		if err := s.pool.Submit(func() { s.handle(ctx, sess) }); err != nil {
			sess.logger.Error("Failed to schedule connection", "error", err)
			sess.Close()
		}
	}
	s.ready.Store(false)

	s.listener.Close()
	s.logger.Info("Shutting down, waiting for sessions", "active", s.active.Load())
	s.pool.Shutdown()
	s.logger.Info("Server stopped")
	return serveErr
}
