package shiftsocket

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

const selfSignedValidity = 365 * 24 * time.Hour

// TLSConfig holds the material for the optional TLS layer. The shift cipher
// still runs inside TLS so the wire protocol above it does not change.
type TLSConfig struct {
	// CertPEM and KeyPEM are required on the server.
	CertPEM string
	KeyPEM  string

	// ServerName is checked against the server certificate by clients.
	ServerName string

	// SkipVerify accepts any server certificate.
	SkipVerify bool

	// CACertPEM, if set, replaces the system roots for verification.
	CACertPEM string
}

func (c *TLSConfig) clientConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.SkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if c.CACertPEM != "" {
		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM([]byte(c.CACertPEM)) {
			return nil, errors.New("no certificates found in CACertPEM")
		}
		cfg.RootCAs = roots
	}
	return cfg, nil
}

func (c *TLSConfig) serverConfig() (*tls.Config, error) {
	if c.CertPEM == "" || c.KeyPEM == "" {
		return nil, errors.New("server TLS requires CertPEM and KeyPEM")
	}
	cert, err := tls.X509KeyPair([]byte(c.CertPEM), []byte(c.KeyPEM))
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// WrapWithTLS runs a TLS handshake over conn, as the client or the server,
// and returns the TLS connection.
func WrapWithTLS(conn net.Conn, config *TLSConfig, isClient bool) (net.Conn, error) {
	if config == nil {
		return nil, errors.New("TLS configuration is required")
	}

	var tlsConn *tls.Conn
	if isClient {
		cfg, err := config.clientConfig()
		if err != nil {
			return nil, err
		}
		tlsConn = tls.Client(conn, cfg)
	} else {
		cfg, err := config.serverConfig()
		if err != nil {
			return nil, err
		}
		tlsConn = tls.Server(conn, cfg)
	}

	if err := tlsConn.Handshake(); err != nil {
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	return tlsConn, nil
}

// GenerateSelfSignedCert returns a PEM certificate and EC private key for a
// self-signed P-256 certificate valid for one year. hosts may mix DNS names
// and IP addresses; the first becomes the common name.
//
// Example:
//
//	certPEM, keyPEM, err := shiftsocket.GenerateSelfSignedCert([]string{"localhost", "127.0.0.1"})
func GenerateSelfSignedCert(hosts []string) (certPEM, keyPEM string, err error) {
	if len(hosts) == 0 {
		return "", "", errors.New("at least one host is required")
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}
	template, err := certTemplate(hosts)
	if err != nil {
		return "", "", err
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return "", "", fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("marshal key: %w", err)
	}

	return encodePEM("CERTIFICATE", der), encodePEM("EC PRIVATE KEY", keyDER), nil
}

func certTemplate(hosts []string) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"shiftsocket"},
			CommonName:   hosts[0],
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}
	return template, nil
}

func encodePEM(blockType string, der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}))
}
