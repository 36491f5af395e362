package shiftsocket

import "errors"

// UnknownCommandReply is the plaintext a server sends for a request it does
// not recognise. No fact answer starts with "ERR", so clients can tell it
// apart from a successful reply.
const UnknownCommandReply = "ERR unknown command"

// ErrUnknownCommand is the outcome of a request that matches no command.
var ErrUnknownCommand = errors.New("unknown command")
