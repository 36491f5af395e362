package server

import (
	"bytes"
	"strings"

	"github.com/fxpool/shiftsocket"
)

// Command is a request recognised by the server.
type Command int

const (
	CommandUnknown Command = iota
	CommandTime
	CommandDate
	CommandTemp
)

func (c Command) String() string {
	switch c {
	case CommandTime:
		return "TIME"
	case CommandDate:
		return "DATE"
	case CommandTemp:
		return "TEMP"
	default:
		return "UNKNOWN"
	}
}

// ErrUnknownCommand is the outcome of a request that matches no command.
// The client receives shiftsocket.UnknownCommandReply.
var ErrUnknownCommand = shiftsocket.ErrUnknownCommand

// ParseCommand matches decrypted plaintext case-insensitively after trimming
// surrounding whitespace.
func ParseCommand(plaintext []byte) Command {
	switch strings.ToUpper(string(bytes.TrimSpace(plaintext))) {
	case "TIME":
		return CommandTime
	case "DATE":
		return CommandDate
	case "TEMP":
		return CommandTemp
	default:
		return CommandUnknown
	}
}

// Respond parses a request and asks facts for the answer. Unrecognised
// requests return CommandUnknown, shiftsocket.UnknownCommandReply and
// ErrUnknownCommand.
func Respond(facts FactProvider, plaintext []byte) (Command, string, error) {
	cmd := ParseCommand(plaintext)
	if cmd == CommandUnknown {
		return cmd, shiftsocket.UnknownCommandReply, ErrUnknownCommand
	}
	answer, err := facts.Fact(cmd)
	if err != nil {
		return cmd, "", err
	}
	return cmd, answer, nil
}
