package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/fxpool/shiftsocket"
)

var errShutdown = errors.New("server shutting down")

// handle is the pool task for one connection. It owns the session until the
// peer leaves, an I/O error occurs, or shutdown interrupts an idle read.
func (s *Server) handle(ctx context.Context, sess *Session) {
	s.active.Add(1)
	defer s.active.Add(-1)
	defer sess.Close()

	if ctx.Err() != nil {
		sess.logger.Info("Dropping queued connection during shutdown")
		return
	}

	if err := sess.conn.Handshake(); err != nil {
		sess.logger.Warn("Handshake failed", "error", err)
		return
	}
	sess.serving()
	sess.logger.Info("Session established")

	// A session waiting for its next request is woken by shutdown; one that
	// is mid-response finishes it first.
	stop := context.AfterFunc(ctx, func() {
		sess.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		err := s.serveOne(ctx, sess)
		if err == nil {
			continue
		}
		var netErr net.Error
		switch {
		case errors.Is(err, io.EOF):
			sess.logger.Info("Connection closed by peer")
		case errors.Is(err, errShutdown):
			sess.logger.Info("Connection closed for shutdown")
		case errors.As(err, &netErr) && netErr.Timeout():
			sess.logger.Info("Connection timed out", "error", err)
		default:
			sess.logger.Warn("Connection error", "error", err)
		}
		return
	}
}

// serveOne runs one receive, dispatch, respond cycle.
func (s *Server) serveOne(ctx context.Context, sess *Session) error {
	conn := sess.conn

	var readDeadline time.Time
	if s.cfg.ReadTimeout > 0 {
		readDeadline = time.Now().Add(s.cfg.ReadTimeout)
	}
	conn.SetReadDeadline(readDeadline)
	if ctx.Err() != nil {
		return errShutdown
	}

	request, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, io.EOF) {
			return errShutdown
		}
		return err
	}

	cmd, answer, err := Respond(s.facts, request)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		sess.logger.Debug("Unknown command", "request", string(request))
	case err != nil:
		sess.logger.Error("Fact provider failed", "command", cmd, "error", err)
		answer = shiftsocket.UnknownCommandReply
	default:
		sess.logger.Debug("Answered command", "command", cmd)
	}

	var writeDeadline time.Time
	if s.cfg.WriteTimeout > 0 {
		writeDeadline = time.Now().Add(s.cfg.WriteTimeout)
	}
	conn.SetWriteDeadline(writeDeadline)
	return conn.WriteMessage([]byte(answer))
}
