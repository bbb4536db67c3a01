package crypto

import (
	crypto_rand "crypto/rand"
	"errors"
	"fmt"
)

var ErrEmptyPadding = errors.New("unpad given empty bytes")

// PadRandomMax16 appends between 1 and 16 bytes, each holding the pad length.
func PadRandomMax16(msg []byte) ([]byte, error) {
	var r [1]byte
	if _, err := crypto_rand.Read(r[:]); err != nil {
		return nil, err
	}
	pad := r[0] & 0x0f
	if pad == 0 {
		pad = 0x0f
	}
	out := make([]byte, len(msg), len(msg)+int(pad))
	copy(out, msg)
	for i := byte(0); i < pad; i++ {
		out = append(out, pad)
	}
	return out, nil
}

// UnpadRandomMax16 strips the padding written by PadRandomMax16. The returned slice aliases b.
func UnpadRandomMax16(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrEmptyPadding
	}
	pad := int(b[len(b)-1])
	if pad > len(b) {
		return nil, fmt.Errorf("unpad given %d bytes, but pad is %d", len(b), pad)
	}
	return b[:len(b)-pad], nil
}
