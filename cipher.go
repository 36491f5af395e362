package shiftsocket

// normalizeShift maps any integer shift into [0,256).
func normalizeShift(shift int) byte {
	s := shift % 256
	if s < 0 {
		s += 256
	}
	return byte(s)
}

// Encrypt returns a copy of b with every byte shifted up by shift modulo 256.
func Encrypt(b []byte, shift int) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	EncryptInPlace(out, shift)
	return out
}

// Decrypt reverses Encrypt for the same shift.
func Decrypt(b []byte, shift int) []byte {
	return Encrypt(b, -shift)
}

// EncryptInPlace shifts every byte of b up by shift modulo 256.
func EncryptInPlace(b []byte, shift int) {
	s := normalizeShift(shift)
	if s == 0 {
		return
	}
	for i := range b {
		b[i] += s
	}
}

// DecryptInPlace reverses EncryptInPlace for the same shift.
func DecryptInPlace(b []byte, shift int) {
	EncryptInPlace(b, -shift)
}
