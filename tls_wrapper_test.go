package shiftsocket

import (
	"crypto/x509"
	"encoding/pem"
	"net"
	"testing"
	"time"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSignedCert([]string{"localhost", "127.0.0.1"})
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert() error: %v", err)
	}
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatal("certificate is not PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("ParseCertificate() error: %v", err)
	}
	if err := cert.VerifyHostname("localhost"); err != nil {
		t.Errorf("localhost not covered: %v", err)
	}
	if err := cert.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("127.0.0.1 not covered: %v", err)
	}
	if block, _ := pem.Decode([]byte(keyPEM)); block == nil || block.Type != "EC PRIVATE KEY" {
		t.Error("key is not an EC PEM block")
	}

	if _, _, err := GenerateSelfSignedCert(nil); err == nil {
		t.Error("GenerateSelfSignedCert(nil) succeeded")
	}
}

func TestTLSUnderShiftCipher(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSignedCert([]string{"localhost"})
	if err != nil {
		t.Fatal(err)
	}
	serverConfig := &Config{TLS: &TLSConfig{CertPEM: certPEM, KeyPEM: keyPEM}}
	clientConfig := &Config{TLS: &TLSConfig{ServerName: "localhost", CACertPEM: certPEM}}

	listener, err := Listen("tcp", "127.0.0.1:0", serverConfig)
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	defer listener.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := listener.AcceptConn()
		if err != nil {
			got <- err.Error()
			return
		}
		defer conn.Close()
		msg, err := conn.ReadMessage()
		if err != nil {
			got <- err.Error()
			return
		}
		got <- string(msg)
	}()

	conn, err := Dial("tcp", listener.Addr().String(), clientConfig)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteMessage([]byte("TEMP")); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	if msg := <-got; msg != "TEMP" {
		t.Errorf("server read %q, want TEMP", msg)
	}
}

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- conn
	}()
	client, err = net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	server = <-accepted
	if server == nil {
		client.Close()
		t.Fatal("accept failed")
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestTLSRejectsUntrustedServer(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSignedCert([]string{"localhost"})
	if err != nil {
		t.Fatal(err)
	}
	a, b := tcpPair(t)
	a.SetDeadline(time.Now().Add(5 * time.Second))
	b.SetDeadline(time.Now().Add(5 * time.Second))

	serverErr := make(chan error, 1)
	go func() {
		_, err := WrapWithTLS(b, &TLSConfig{CertPEM: certPEM, KeyPEM: keyPEM}, false)
		serverErr <- err
	}()

	if _, err := WrapWithTLS(a, &TLSConfig{ServerName: "localhost"}, true); err == nil {
		t.Error("client trusted a self-signed certificate without CACertPEM")
	}
	a.Close()
	if err := <-serverErr; err == nil {
		t.Error("server handshake succeeded against a client that rejected it")
	}
}

func TestCloseAbortsHandshakeAfterTLS(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSignedCert([]string{"localhost"})
	if err != nil {
		t.Fatal(err)
	}
	a, b := tcpPair(t)
	server := Server(b, &Config{TLS: &TLSConfig{CertPEM: certPEM, KeyPEM: keyPEM}})

	handshakeErr := make(chan error, 1)
	go func() { handshakeErr <- server.Handshake() }()

	// Complete TLS but never send a public value, leaving the server
	// waiting inside its handshake.
	if _, err := WrapWithTLS(a, &TLSConfig{SkipVerify: true}, true); err != nil {
		t.Fatalf("client TLS handshake error: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	select {
	case err := <-handshakeErr:
		if err == nil {
			t.Error("Handshake() succeeded after Close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not abort the handshake")
	}
}
