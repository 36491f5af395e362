package shiftsocket

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Constants
const (
	// MaxMessageSize is the receive buffer size; one read yields at most
	// one message of this many bytes.
	MaxMessageSize = 1024

	DefaultHandshakeTimeout = 10 * time.Second

	frameHeaderSize = 2
)

// Framing selects how message boundaries are found on the byte stream.
type Framing int

const (
	// FramingRaw treats every network read as one message and writes each
	// message with a single write. It relies on messages not being split
	// or coalesced in transit.
	FramingRaw Framing = iota

	// FramingLengthPrefixed prefixes every message, handshake included,
	// with a 2-byte big-endian length.
	FramingLengthPrefixed
)

func (f Framing) String() string {
	switch f {
	case FramingRaw:
		return "raw"
	case FramingLengthPrefixed:
		return "length"
	default:
		return "Framing(" + strconv.Itoa(int(f)) + ")"
	}
}

// ParseFraming accepts the names printed by Framing.String.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw":
		return FramingRaw, nil
	case "length", "length-prefixed", "framed":
		return FramingLengthPrefixed, nil
	default:
		return 0, fmt.Errorf("unknown framing %q (want raw or length)", s)
	}
}

// Conn is a connection whose traffic is shifted by a key agreed during a
// handshake. The handshake runs on the first call to Handshake, Read,
// ReadMessage, Write or WriteMessage.
type Conn struct {
	// raw is the transport as given. conn is raw or, once the handshake
	// has wrapped it, the TLS connection over raw; it is only replaced
	// under handshakeMu.
	raw      net.Conn
	conn     net.Conn
	config   *Config
	isClient bool

	handshakeMu   sync.Mutex
	handshakeDone bool
	handshakeErr  error

	keys       KeyPair
	peerPublic int
	sharedKey  int
	sessionID  string

	// Receive buffer for raw framing
	readBuf []byte

	// Pending data buffer for partial reads
	pendingData []byte

	readMu  sync.Mutex
	writeMu sync.Mutex
}

// Client returns the initiating side of a connection over conn. The client
// sends its public value first.
func Client(conn net.Conn, config *Config) *Conn {
	return newConn(conn, config, true)
}

// Server returns the responding side of a connection over conn.
func Server(conn net.Conn, config *Config) *Conn {
	return newConn(conn, config, false)
}

func newConn(conn net.Conn, config *Config, isClient bool) *Conn {
	if config == nil {
		config = &Config{}
	}
	return &Conn{
		raw:      conn,
		conn:     conn,
		config:   config,
		isClient: isClient,
		readBuf:  make([]byte, MaxMessageSize),
	}
}

// Handshake runs the key agreement if it has not run yet. It is safe to call
// more than once; later calls return the first result.
func (c *Conn) Handshake() error {
	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()
	if c.handshakeDone {
		return c.handshakeErr
	}
	c.handshakeDone = true
	c.handshakeErr = c.handshake()
	return c.handshakeErr
}

func (c *Conn) handshake() error {
	raw := c.raw
	raw.SetDeadline(time.Now().Add(c.config.handshakeTimeout()))
	defer raw.SetDeadline(time.Time{})

	if c.config.TLS != nil {
		wrapped, err := WrapWithTLS(raw, c.config.TLS, c.isClient)
		if err != nil {
			return &HandshakeError{Err: err}
		}
		c.conn = wrapped
	}

	keys, err := GenerateKeyPair(c.config.Rand)
	if err != nil {
		return &HandshakeError{Err: err}
	}
	c.keys = keys

	if c.isClient {
		if err := c.sendPublic(); err != nil {
			return err
		}
		if err := c.receivePublic(); err != nil {
			return err
		}
	} else {
		if err := c.receivePublic(); err != nil {
			return err
		}
		if err := c.sendPublic(); err != nil {
			return err
		}
	}

	c.sharedKey = DeriveSharedKey(c.keys.Private, c.peerPublic)
	if c.isClient {
		c.sessionID = SessionID(c.sharedKey, c.keys.Public, c.peerPublic)
	} else {
		c.sessionID = SessionID(c.sharedKey, c.peerPublic, c.keys.Public)
	}
	return nil
}

// sendPublic writes the local public value as decimal ASCII, unencrypted.
func (c *Conn) sendPublic() error {
	if err := c.writeFrame([]byte(strconv.Itoa(c.keys.Public))); err != nil {
		return &ConnectionError{Op: "handshake write", Err: err}
	}
	return nil
}

// receivePublic reads and validates the peer's public value.
func (c *Conn) receivePublic() error {
	payload, err := c.readFrame()
	if err != nil {
		return &ConnectionError{Op: "handshake read", Err: err}
	}
	peer, err := ParsePublic(payload)
	if err != nil {
		return err
	}
	c.peerPublic = peer
	return nil
}

// readFrame returns the next message as it appeared on the wire.
func (c *Conn) readFrame() ([]byte, error) {
	if c.config.Framing == FramingLengthPrefixed {
		var header [frameHeaderSize]byte
		if _, err := io.ReadFull(c.conn, header[:]); err != nil {
			return nil, err
		}
		length := binary.BigEndian.Uint16(header[:])
		if length > MaxMessageSize {
			return nil, ErrMessageTooLarge
		}
		payload := make([]byte, length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		return payload, nil
	}

	for {
		n, err := c.conn.Read(c.readBuf)
		if n > 0 {
			payload := make([]byte, n)
			copy(payload, c.readBuf[:n])
			return payload, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// writeFrame writes one message. Raw framing sends payload as is.
func (c *Conn) writeFrame(payload []byte) error {
	if c.config.Framing == FramingLengthPrefixed {
		if len(payload) > MaxMessageSize {
			return ErrMessageTooLarge
		}
		msg := make([]byte, frameHeaderSize+len(payload))
		binary.BigEndian.PutUint16(msg[:frameHeaderSize], uint16(len(payload)))
		copy(msg[frameHeaderSize:], payload)
		_, err := c.conn.Write(msg)
		return err
	}
	_, err := c.conn.Write(payload)
	return err
}

// ReadMessage returns the next decrypted message. A clean close by the peer
// is reported as io.EOF; other failures are *ConnectionError.
func (c *Conn) ReadMessage() ([]byte, error) {
	if err := c.Handshake(); err != nil {
		return nil, err
	}
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.pendingData) > 0 {
		msg := c.pendingData
		c.pendingData = nil
		return msg, nil
	}
	return c.readMessageLocked()
}

func (c *Conn) readMessageLocked() ([]byte, error) {
	payload, err := c.readFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &ConnectionError{Op: "read", Err: err}
	}
	DecryptInPlace(payload, c.sharedKey)
	return payload, nil
}

// WriteMessage encrypts msg and sends it as one message. With raw framing an
// empty msg puts nothing on the wire.
func (c *Conn) WriteMessage(msg []byte) error {
	if err := c.Handshake(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.writeFrame(Encrypt(msg, c.sharedKey)); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

// Read reads decrypted data from the connection.
// Supports partial reads by buffering unread data.
func (c *Conn) Read(b []byte) (int, error) {
	if err := c.Handshake(); err != nil {
		return 0, err
	}
	c.readMu.Lock()
	defer c.readMu.Unlock()

	// If there's pending data from a previous read, return it first
	if len(c.pendingData) > 0 {
		n := copy(b, c.pendingData)
		c.pendingData = c.pendingData[n:]
		return n, nil
	}

	plaintext, err := c.readMessageLocked()
	if err != nil {
		return 0, err
	}

	n := copy(b, plaintext)
	if n < len(plaintext) {
		c.pendingData = append(c.pendingData, plaintext[n:]...)
	}
	return n, nil
}

// Write encrypts b and writes it to the connection. With length-prefixed
// framing, b is split into frames of at most MaxMessageSize bytes.
func (c *Conn) Write(b []byte) (int, error) {
	if c.config.Framing != FramingLengthPrefixed {
		if err := c.WriteMessage(b); err != nil {
			return 0, err
		}
		return len(b), nil
	}

	written := 0
	for written < len(b) {
		end := written + MaxMessageSize
		if end > len(b) {
			end = len(b)
		}
		if err := c.WriteMessage(b[written:end]); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// Close closes the underlying network connection. It may be called while a
// handshake is in progress to abort it.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.raw.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// SetDeadline sets the read and write deadlines associated with the connection.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.raw.SetDeadline(t)
}

// SetReadDeadline sets the deadline for future Read calls.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.raw.SetReadDeadline(t)
}

// SetWriteDeadline sets the deadline for future Write calls.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.raw.SetWriteDeadline(t)
}

// IsClient reports whether this side initiated the handshake.
func (c *Conn) IsClient() bool {
	return c.isClient
}

// KeyPair returns the local handshake values. Valid after Handshake.
func (c *Conn) KeyPair() KeyPair {
	return c.keys
}

// PeerPublic returns the public value received from the peer. Valid after Handshake.
func (c *Conn) PeerPublic() int {
	return c.peerPublic
}

// SharedKey returns the agreed cipher shift. Valid after Handshake.
func (c *Conn) SharedKey() int {
	return c.sharedKey
}

// SessionID returns the session fingerprint, identical on both ends.
// Valid after Handshake.
func (c *Conn) SessionID() string {
	return c.sessionID
}
