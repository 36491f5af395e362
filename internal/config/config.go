// Package config loads the shiftserver configuration.
//
// Values are resolved in order, later sources winning: built-in defaults,
// an optional YAML file, SHIFTSOCKET_* environment variables, and finally
// command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fxpool/shiftsocket"
	"github.com/fxpool/shiftsocket/server"
)

// Defaults
const (
	DefaultAddress = "0.0.0.0"
	DefaultPort    = 7777
	DefaultWorkers = 32
)

// Config holds all server configuration.
type Config struct {
	// Server
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Workers int    `yaml:"workers"`

	// Timeouts. Zero disables the read and write timeouts.
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// Framing is raw or length.
	Framing string `yaml:"framing"`

	// TLS certificate and key files. Both or neither.
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`

	// HealthAddress enables the HTTP health endpoint when set.
	HealthAddress string `yaml:"health_address"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Address:          DefaultAddress,
		Port:             DefaultPort,
		Workers:          DefaultWorkers,
		HandshakeTimeout: shiftsocket.DefaultHandshakeTimeout,
		Framing:          shiftsocket.FramingRaw.String(),
		LogLevel:         "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped if
// path is empty) and then the environment. The result is not validated;
// call Validate once flags have been applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays SHIFTSOCKET_* variables.
func (c *Config) applyEnv() {
	c.Address = getEnv("SHIFTSOCKET_ADDRESS", c.Address)
	c.Port = getEnvInt("SHIFTSOCKET_PORT", c.Port)
	c.Workers = getEnvInt("SHIFTSOCKET_WORKERS", c.Workers)
	c.ReadTimeout = getEnvDuration("SHIFTSOCKET_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvDuration("SHIFTSOCKET_WRITE_TIMEOUT", c.WriteTimeout)
	c.HandshakeTimeout = getEnvDuration("SHIFTSOCKET_HANDSHAKE_TIMEOUT", c.HandshakeTimeout)
	c.Framing = getEnv("SHIFTSOCKET_FRAMING", c.Framing)
	c.TLSCertFile = getEnv("SHIFTSOCKET_TLS_CERT_FILE", c.TLSCertFile)
	c.TLSKeyFile = getEnv("SHIFTSOCKET_TLS_KEY_FILE", c.TLSKeyFile)
	c.HealthAddress = getEnv("SHIFTSOCKET_HEALTH_ADDRESS", c.HealthAddress)
	c.LogLevel = getEnv("SHIFTSOCKET_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("SHIFTSOCKET_LOG_FILE", c.LogFile)
	if getEnvBool("SHIFTSOCKET_DEBUG", false) {
		c.LogLevel = "debug"
	}
}

// Validate ensures configuration is coherent.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range [0, 65535]", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.HandshakeTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if _, err := shiftsocket.ParseFraming(c.Framing); err != nil {
		return err
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

// Server converts the configuration into the immutable server.Config,
// reading TLS material from disk.
func (c *Config) Server() (server.Config, error) {
	if err := c.Validate(); err != nil {
		return server.Config{}, err
	}
	framing, _ := shiftsocket.ParseFraming(c.Framing)

	cfg := server.Config{
		Address:      c.Address,
		Port:         c.Port,
		Workers:      c.Workers,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		Socket: shiftsocket.Config{
			HandshakeTimeout: c.HandshakeTimeout,
			Framing:          framing,
		},
	}

	if c.TLSCertFile != "" {
		certPEM, err := os.ReadFile(c.TLSCertFile)
		if err != nil {
			return server.Config{}, fmt.Errorf("reading TLS certificate: %w", err)
		}
		keyPEM, err := os.ReadFile(c.TLSKeyFile)
		if err != nil {
			return server.Config{}, fmt.Errorf("reading TLS key: %w", err)
		}
		cfg.Socket.TLS = &shiftsocket.TLSConfig{
			CertPEM: string(certPEM),
			KeyPEM:  string(keyPEM),
		}
	}
	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
