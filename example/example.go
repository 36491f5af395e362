package example

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fxpool/shiftsocket"
	"github.com/fxpool/shiftsocket/client"
	"github.com/fxpool/shiftsocket/server"
)

// Example 1: a plain connection pair echoing one message
func ExampleWithRawFraming() error {
	fmt.Println("=== Example 1: Raw Framing ===")
	return echoOnce(nil, nil, "Hello from raw client")
}

// Example 2: length-prefixed framing survives messages split in transit
func ExampleWithLengthPrefix() error {
	fmt.Println("\n=== Example 2: Length-Prefixed Framing ===")
	config := &shiftsocket.Config{Framing: shiftsocket.FramingLengthPrefixed}
	return echoOnce(config, config, "Hello from framed client")
}

// Example 3: TLS underneath the shift cipher
func ExampleWithTLS() error {
	fmt.Println("\n=== Example 3: TLS ===")

	certPEM, keyPEM, err := shiftsocket.GenerateSelfSignedCert([]string{"127.0.0.1"})
	if err != nil {
		return err
	}
	serverConfig := &shiftsocket.Config{
		TLS: &shiftsocket.TLSConfig{CertPEM: certPEM, KeyPEM: keyPEM},
	}
	clientConfig := &shiftsocket.Config{
		TLS: &shiftsocket.TLSConfig{ServerName: "127.0.0.1", CACertPEM: certPEM},
	}
	return echoOnce(serverConfig, clientConfig, "Hello from TLS client")
}

// Example 4: the fact server and client
func ExampleFactServer() error {
	fmt.Println("\n=== Example 4: Fact Server ===")

	srv, err := server.New(server.Config{Address: "127.0.0.1", Port: 0, Workers: 4}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	c, err := client.Dial(context.Background(), srv.Addr().String(), nil)
	if err != nil {
		cancel()
		<-done
		return err
	}

	for _, command := range []string{"TIME", "DATE", "TEMP", "FOO"} {
		resp, err := c.Do(command)
		if err != nil && !errors.Is(err, client.ErrUnknownCommand) {
			c.Close()
			cancel()
			<-done
			return err
		}
		fmt.Printf("%s -> %q (rtt %s)\n", command, resp.Text, resp.RTT)
	}

	c.Close()
	cancel()
	return <-done
}

// echoOnce runs a one-shot echo server and sends msg through it.
func echoOnce(serverConfig, clientConfig *shiftsocket.Config, msg string) error {
	listener, err := shiftsocket.Listen("tcp", "127.0.0.1:0", serverConfig)
	if err != nil {
		return err
	}
	defer listener.Close()

	serverErr := make(chan error, 1)
	go func() {
		conn, err := listener.AcceptConn()
		if err != nil {
			serverErr <- err
			return
		}
		defer conn.Close()
		if err := conn.Handshake(); err != nil {
			serverErr <- err
			return
		}
		fmt.Printf("Server session %s, key %d\n", conn.SessionID(), conn.SharedKey())
		buf, err := conn.ReadMessage()
		if err != nil {
			serverErr <- err
			return
		}
		serverErr <- conn.WriteMessage(append([]byte("echo: "), buf...))
	}()

	conn, err := shiftsocket.Dial("tcp", listener.Addr().String(), clientConfig)
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Printf("Client session %s, key %d\n", conn.SessionID(), conn.SharedKey())

	if _, err := conn.Write([]byte(msg)); err != nil {
		return err
	}
	buf := make([]byte, shiftsocket.MaxMessageSize)
	n, err := conn.Read(buf)
	if err != nil {
		return err
	}
	fmt.Printf("Client received: %s\n", buf[:n])

	if err := <-serverErr; err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if want := "echo: " + msg; string(buf[:n]) != want {
		return fmt.Errorf("got %q, want %q", buf[:n], want)
	}
	return nil
}
