package shiftsocket

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPublic means the peer's handshake payload was not a decimal integer.
	ErrInvalidPublic = errors.New("handshake payload is not an integer")

	// ErrPublicOutOfRange means the peer's public value is outside [0, Modulus).
	ErrPublicOutOfRange = errors.New("handshake value out of range")

	// ErrMessageTooLarge is returned for frames longer than MaxMessageSize.
	ErrMessageTooLarge = errors.New("message too large")
)

// HandshakeError aborts a single session whose key agreement failed.
type HandshakeError struct {
	// Payload is the offending peer payload, if one was received.
	Payload string
	Err     error
}

func (e *HandshakeError) Error() string {
	if e.Payload == "" {
		return fmt.Sprintf("handshake failed: %v", e.Err)
	}
	return fmt.Sprintf("handshake failed on payload %q: %v", e.Payload, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// ConnectionError wraps an I/O failure on an established or handshaking
// connection: resets, broken pipes, timeouts and truncated frames.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
