// Command shiftclient asks a shiftserver for the time, the date or the
// temperature and prints each answer with its round trip time.
//
// Commands given as arguments are sent in order. With no arguments and a
// terminal on stdin, shiftclient shows a menu until the user picks Exit;
// otherwise it sends time, date and temp once each.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/fxpool/shiftsocket"
	"github.com/fxpool/shiftsocket/client"
	"github.com/fxpool/shiftsocket/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("shiftclient", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: shiftclient [flags] [time|date|temp ...]\n")
		flags.PrintDefaults()
	}
	var (
		address       string
		port          int
		framingName   string
		useTLS        bool
		tlsSkipVerify bool
		serverName    string
		timeout       time.Duration
		logLevel      string
	)
	flags.StringVarP(&address, "address", "a", "127.0.0.1", "server address")
	flags.IntVarP(&port, "port", "p", 7777, "server port")
	flags.StringVar(&framingName, "framing", "raw", "message framing: raw or length")
	flags.BoolVar(&useTLS, "tls", false, "wrap the connection in TLS")
	flags.BoolVar(&tlsSkipVerify, "tls-skip-verify", false, "do not verify the server certificate")
	flags.StringVar(&serverName, "tls-server-name", "", "expected server certificate name (defaults to --address)")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "connect timeout")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{Level: logLevel})
	if err != nil {
		return err
	}
	defer closeLog()

	framing, err := shiftsocket.ParseFraming(framingName)
	if err != nil {
		return err
	}
	socketConfig := &shiftsocket.Config{Framing: framing}
	if useTLS {
		if serverName == "" {
			serverName = address
		}
		socketConfig.TLS = &shiftsocket.TLSConfig{ServerName: serverName, SkipVerify: tlsSkipVerify}
	}

	commands := flags.Args()
	interactive := len(commands) == 0 && term.IsTerminal(int(os.Stdin.Fd()))
	if len(commands) == 0 {
		commands = []string{"time", "date", "temp"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	target := net.JoinHostPort(address, strconv.Itoa(port))
	c, err := client.Dial(ctx, target, socketConfig)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", target, err)
	}
	defer func() {
		c.Close()
		logger.Warn("Connection closed")
	}()
	logger.Info("Connected", "server", target, "session", c.SessionID())

	if interactive {
		return runMenu(os.Stdin, os.Stdout, c, logger)
	}
	for _, command := range commands {
		if err := request(c, command, logger); err != nil {
			return err
		}
	}
	return nil
}

// requester is the part of *client.Client the command loops use.
type requester interface {
	Do(command string) (client.Response, error)
}

// request sends one command and logs the answer. Only connection failures
// are returned.
func request(c requester, command string, logger *slog.Logger) error {
	resp, err := c.Do(command)
	switch {
	case errors.Is(err, client.ErrUnknownCommand):
		logger.Error("Server did not recognise the command", "command", command)
	case err != nil:
		return fmt.Errorf("%s: %w", command, err)
	default:
		logger.Info("Response", "command", command, "text", resp.Text,
			slog.String("rtt", fmt.Sprintf("%.4f ms", float64(resp.RTT)/float64(time.Millisecond))))
	}
	return nil
}
