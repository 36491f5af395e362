// doc.go
// Package shiftsocket provides TCP connections protected by a small
// modular-exponentiation key agreement and a byte-wise additive cipher.
//
// Each connection starts with a two-message handshake: the initiator sends
// its public value as decimal ASCII, the responder answers with its own, and
// both sides derive the same shared key. Every later message is shifted
// byte by byte by that key.
//
// Basic usage:
//
//	// Server side
//	listener, _ := shiftsocket.Listen("tcp", ":7777", nil)
//	conn, _ := listener.AcceptConn()
//	err := conn.Handshake() // or let the first Read run it
//
//	// Client side
//	conn, _ := shiftsocket.Dial("tcp", "localhost:7777", nil)
//
// Security considerations:
// - The modulus is 257, so there are at most 257 shared keys
// - The cipher is a Caesar shift and provides no confidentiality
// - Set Config.TLS when the traffic needs real protection
package shiftsocket
