package shiftsocket

import (
	"context"
	"io"
	"net"
	"time"
)

// Listener accepts connections that speak the shift protocol.
type Listener struct {
	listener net.Listener
	config   *Config
}

// Config holds the connection parameters. Both ends must use the same
// Framing and agree on whether TLS is in use.
type Config struct {
	// HandshakeTimeout bounds the key agreement. Zero means
	// DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	Framing Framing

	// Rand is the source for private values. Nil means crypto/rand.Reader.
	Rand io.Reader

	// TLS, when set, wraps the connection in TLS before the key agreement.
	TLS *TLSConfig
}

func (c *Config) handshakeTimeout() time.Duration {
	if c.HandshakeTimeout <= 0 {
		return DefaultHandshakeTimeout
	}
	return c.HandshakeTimeout
}

// Accept waits for and returns the next connection to the listener.
// It satisfies net.Listener; the handshake is deferred as in AcceptConn.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.AcceptConn()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// AcceptConn waits for the next connection. The handshake is not run here,
// so a slow peer never stalls the accept loop; call Handshake from the
// goroutine that serves the connection.
func (l *Listener) AcceptConn() (*Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	return Server(conn, l.config), nil
}

// Close closes the listener.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Dial establishes a connection to the specified network address and runs
// the handshake.
func Dial(network, address string, config *Config) (*Conn, error) {
	return DialContext(context.Background(), network, address, config)
}

// DialTimeout establishes a connection to the specified network address with timeout.
func DialTimeout(timeout time.Duration, network, address string, config *Config) (*Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return DialContext(ctx, network, address, config)
}

// DialContext is Dial with a context governing the TCP connect.
func DialContext(ctx context.Context, network, address string, config *Config) (*Conn, error) {
	if err := ValidateConfig(config, false); err != nil {
		return nil, err
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	c := Client(conn, config)
	if err := c.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Listen creates a listener on the specified network address.
func Listen(network, address string, config *Config) (*Listener, error) {
	if err := ValidateConfig(config, true); err != nil {
		return nil, err
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}

	return &Listener{
		listener: listener,
		config:   config,
	}, nil
}
