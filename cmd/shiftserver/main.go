// Command shiftserver answers TIME, DATE and TEMP requests from shiftclient.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/fxpool/shiftsocket/internal/config"
	"github.com/fxpool/shiftsocket/internal/health"
	"github.com/fxpool/shiftsocket/internal/logging"
	"github.com/fxpool/shiftsocket/server"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("shiftserver", pflag.ContinueOnError)
	var (
		configPath  string
		showVersion bool
		overrides   = config.Default()
	)
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	flags.StringVarP(&overrides.Address, "address", "a", overrides.Address, "address to listen on")
	flags.IntVarP(&overrides.Port, "port", "p", overrides.Port, "port to listen on")
	flags.IntVarP(&overrides.Workers, "workers", "t", overrides.Workers, "number of worker goroutines (clamped to [1, 64], <= 0 means 16)")
	flags.DurationVar(&overrides.ReadTimeout, "read-timeout", overrides.ReadTimeout, "close sessions idle for this long (0 disables)")
	flags.DurationVar(&overrides.WriteTimeout, "write-timeout", overrides.WriteTimeout, "abort responses that take this long to send (0 disables)")
	flags.DurationVar(&overrides.HandshakeTimeout, "handshake-timeout", overrides.HandshakeTimeout, "abort handshakes that take this long")
	flags.StringVar(&overrides.Framing, "framing", overrides.Framing, "message framing: raw or length")
	flags.StringVar(&overrides.TLSCertFile, "tls-cert", "", "PEM certificate file; enables TLS together with --tls-key")
	flags.StringVar(&overrides.TLSKeyFile, "tls-key", "", "PEM private key file")
	flags.StringVar(&overrides.HealthAddress, "health", "", "address for the HTTP health endpoint (empty disables)")
	flags.StringVar(&overrides.LogLevel, "log-level", overrides.LogLevel, "debug, info, warn or error")
	flags.StringVar(&overrides.LogFile, "log-file", "", "also write logs to this file, rotated")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if showVersion {
		fmt.Printf("shiftserver %s\n", version)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(flags, cfg, overrides)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	serverConfig, err := cfg.Server()
	if err != nil {
		return err
	}

	srv, err := server.New(serverConfig, server.SystemFacts{}, logger)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HealthAddress != "" {
		hs := health.NewServer(cfg.HealthAddress, health.SourceFuncs{
			ReadyFunc: srv.Ready,
			StatsFunc: func() any { return srv.Stats() },
		}, logger.With("component", "health"))
		if err := hs.Start(); err != nil {
			return fmt.Errorf("health server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			hs.Stop(shutdownCtx)
		}()
	}

	logger.Warn("Press Ctrl+C to stop the server")
	return srv.Serve(ctx)
}

// applyFlags copies explicitly set flags over cfg so they win over the file
// and the environment.
func applyFlags(flags *pflag.FlagSet, cfg, overrides *config.Config) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("address", func() { cfg.Address = overrides.Address })
	set("port", func() { cfg.Port = overrides.Port })
	set("workers", func() { cfg.Workers = overrides.Workers })
	set("read-timeout", func() { cfg.ReadTimeout = overrides.ReadTimeout })
	set("write-timeout", func() { cfg.WriteTimeout = overrides.WriteTimeout })
	set("handshake-timeout", func() { cfg.HandshakeTimeout = overrides.HandshakeTimeout })
	set("framing", func() { cfg.Framing = overrides.Framing })
	set("tls-cert", func() { cfg.TLSCertFile = overrides.TLSCertFile })
	set("tls-key", func() { cfg.TLSKeyFile = overrides.TLSKeyFile })
	set("health", func() { cfg.HealthAddress = overrides.HealthAddress })
	set("log-level", func() { cfg.LogLevel = overrides.LogLevel })
	set("log-file", func() { cfg.LogFile = overrides.LogFile })
}
