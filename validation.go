package shiftsocket

import (
	"errors"
	"fmt"
)

// ValidateConfig validates the configuration and returns user-friendly errors.
// Call this before creating connections to catch configuration errors early.
// A nil config is valid and means all defaults.
func ValidateConfig(config *Config, isServer bool) error {
	if config == nil {
		return nil
	}

	if config.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake timeout must not be negative, got %s", config.HandshakeTimeout)
	}

	switch config.Framing {
	case FramingRaw, FramingLengthPrefixed:
	default:
		return fmt.Errorf("unsupported framing %s", config.Framing)
	}

	if config.TLS != nil {
		if err := validateTLSConfig(config.TLS, isServer); err != nil {
			return err
		}
	}

	return nil
}

func validateTLSConfig(tls *TLSConfig, isServer bool) error {
	if isServer {
		if tls.CertPEM == "" || tls.KeyPEM == "" {
			return errors.New(`server TLS requires a certificate and key

  Generate a self-signed certificate:
    certPEM, keyPEM, err := shiftsocket.GenerateSelfSignedCert([]string{"localhost"})

    config.TLS = &shiftsocket.TLSConfig{
        CertPEM: certPEM,
        KeyPEM:  keyPEM,
    }`)
		}
		return nil
	}

	if tls.ServerName == "" && !tls.SkipVerify {
		return errors.New(`client TLS requires ServerName unless SkipVerify is set

  ServerName must match a host in the server's certificate.

  Example:
    config.TLS = &shiftsocket.TLSConfig{
        ServerName: "localhost",
    }`)
	}
	return nil
}
