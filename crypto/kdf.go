package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	messageKeySeed = []byte{0x01}
	chainKeySeed   = []byte{0x02}
)

// DeriveSecrets expands ikm into n bytes of key material with HKDF-SHA256.
func DeriveSecrets(ikm, salt []byte, info string, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte(info)), out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChainStep returns the message key for the current chain key and the chain key of the next iteration.
func ChainStep(chainKey []byte) (messageKey, next []byte) {
	m := hmac.New(sha256.New, chainKey)
	m.Write(messageKeySeed)
	messageKey = m.Sum(nil)

	m = hmac.New(sha256.New, chainKey)
	m.Write(chainKeySeed)
	next = m.Sum(nil)
	return messageKey, next
}
