package shiftsocket

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Key agreement parameters. They are far too small to resist anyone who
// looks at the traffic.
const (
	Modulus    = 257
	Generator  = 11
	MaxPrivate = 1000
)

const sessionIDSize = 8

// KeyPair is one side's handshake material.
type KeyPair struct {
	Private int
	Public  int
}

// GenerateKeyPair draws a private value uniformly from [0, MaxPrivate] and
// computes the matching public value. If r is nil, crypto/rand.Reader is used.
func GenerateKeyPair(r io.Reader) (KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, big.NewInt(MaxPrivate+1))
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate private value: %w", err)
	}
	private := int(n.Int64())
	return KeyPair{Private: private, Public: modExp(Generator, private, Modulus)}, nil
}

// NewKeyPair builds the key pair for a known private value.
func NewKeyPair(private int) KeyPair {
	return KeyPair{Private: private, Public: modExp(Generator, private, Modulus)}
}

// DeriveSharedKey computes peerPublic^myPrivate mod Modulus.
func DeriveSharedKey(myPrivate, peerPublic int) int {
	return modExp(peerPublic, myPrivate, Modulus)
}

// ParsePublic decodes a peer's handshake payload. Surrounding whitespace is
// ignored; anything else that is not a decimal integer in [0, Modulus) is
// rejected.
func ParsePublic(payload []byte) (int, error) {
	text := strings.TrimSpace(string(payload))
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, &HandshakeError{Payload: text, Err: ErrInvalidPublic}
	}
	if v < 0 || v >= Modulus {
		return 0, &HandshakeError{Payload: text, Err: ErrPublicOutOfRange}
	}
	return v, nil
}

// SessionID fingerprints a session so both ends can be matched in logs
// without logging the key. The public values salt the derivation because
// the shared key alone only has Modulus possible values.
func SessionID(shared, clientPublic, serverPublic int) string {
	secret := make([]byte, 8)
	binary.BigEndian.PutUint64(secret, uint64(shared))
	salt := make([]byte, 16)
	binary.BigEndian.PutUint64(salt[:8], uint64(clientPublic))
	binary.BigEndian.PutUint64(salt[8:], uint64(serverPublic))
	return hex.EncodeToString(deriveKey(secret, salt, []byte("shiftsocket session id")))
}

// deriveKey is a helper function that uses HKDF to derive sessionIDSize
// bytes from the secret using the provided salt and info parameters.
func deriveKey(secret, salt, info []byte) []byte {
	kdf := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, sessionIDSize)
	io.ReadFull(kdf, key)
	return key
}

// modExp is square-and-multiply; every operand stays below mod² so int is
// wide enough.
func modExp(base, exp, mod int) int {
	if mod == 1 {
		return 0
	}
	result := 1
	base %= mod
	if base < 0 {
		base += mod
	}
	for exp > 0 {
		if exp&1 == 1 {
			result = result * base % mod
		}
		base = base * base % mod
		exp >>= 1
	}
	return result
}
