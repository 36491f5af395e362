// Package client requests facts from a shiftsocket server.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fxpool/shiftsocket"
)

// Response is a decrypted answer and how long the round trip took.
type Response struct {
	Text string
	RTT  time.Duration
}

// Client holds one session with a server. Requests are serialized.
type Client struct {
	conn *shiftsocket.Conn
	mu   sync.Mutex
}

// Dial connects to address and completes the handshake.
func Dial(ctx context.Context, address string, config *shiftsocket.Config) (*Client, error) {
	conn, err := shiftsocket.DialContext(ctx, "tcp", address, config)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// New wraps an established connection. conn must be the client side.
func New(conn *shiftsocket.Conn) *Client {
	return &Client{conn: conn}
}

// ErrUnknownCommand is returned by Do when the server did not recognise the
// command. The Response is still filled in.
var ErrUnknownCommand = shiftsocket.ErrUnknownCommand

// ErrEmptyCommand is returned for an empty command, which raw framing
// cannot send.
var ErrEmptyCommand = errors.New("client: empty command")

// Do sends command and waits for the answer.
func (c *Client) Do(command string) (Response, error) {
	if command == "" {
		return Response{}, ErrEmptyCommand
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	if err := c.conn.WriteMessage([]byte(command)); err != nil {
		return Response{}, err
	}
	answer, err := c.conn.ReadMessage()
	if err != nil {
		return Response{}, err
	}
	resp := Response{Text: string(answer), RTT: time.Since(start)}
	if resp.Text == shiftsocket.UnknownCommandReply {
		return resp, ErrUnknownCommand
	}
	return resp, nil
}

// Time asks for the server's time of day.
func (c *Client) Time() (Response, error) { return c.Do("TIME") }

// Date asks for the server's date.
func (c *Client) Date() (Response, error) { return c.Do("DATE") }

// Temp asks for a temperature reading.
func (c *Client) Temp() (Response, error) { return c.Do("TEMP") }

// SessionID returns the session fingerprint shared with the server.
func (c *Client) SessionID() string {
	return c.conn.SessionID()
}

// SharedKey returns the agreed cipher shift.
func (c *Client) SharedKey() int {
	return c.conn.SharedKey()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
