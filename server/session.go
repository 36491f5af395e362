package server

import (
	"log/slog"
	"net"
	"sync"

	"github.com/fxpool/shiftsocket"
)

// State is a session's position in its lifecycle.
type State int

const (
	StateHandshaking State = iota
	StateServing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateServing:
		return "serving"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Session is the state of one accepted connection from handshake to close.
// It is owned by the worker serving it.
type Session struct {
	conn   *shiftsocket.Conn
	peer   net.Addr
	logger *slog.Logger

	mu    sync.Mutex
	state State

	closeOnce sync.Once
	closeErr  error
}

func newSession(conn *shiftsocket.Conn, logger *slog.Logger) *Session {
	return &Session{
		conn:   conn,
		peer:   conn.RemoteAddr(),
		logger: logger.With("remote_addr", conn.RemoteAddr().String()),
		state:  StateHandshaking,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Peer returns the remote address.
func (s *Session) Peer() net.Addr {
	return s.peer
}

// SharedKey returns the agreed key. Zero before the handshake completes.
func (s *Session) SharedKey() int {
	return s.conn.SharedKey()
}

// serving moves a handshaken session to StateServing and tags its logger
// with the session id.
func (s *Session) serving() {
	s.mu.Lock()
	s.state = StateServing
	s.mu.Unlock()
	s.logger = s.logger.With("session", s.conn.SessionID())
}

// Close releases the connection. Only the first call closes it.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
