package crypto

import (
	crypto_rand "crypto/rand"
	"testing"

	"github.com/kevinburke/nacl/box"
	"github.com/stretchr/testify/require"
)

func TestPadUnpad(t *testing.T) {
	require := require.New(t)

	msg := []byte("hello there")
	for i := 0; i < 50; i++ {
		padded, err := PadRandomMax16(msg)
		require.Nil(err)
		require.Greater(len(padded), len(msg))
		require.LessOrEqual(len(padded), len(msg)+16)
		out, err := UnpadRandomMax16(padded)
		require.Nil(err)
		require.Equal(msg, out)
	}
}

func TestUnpadEmpty(t *testing.T) {
	require := require.New(t)

	_, err := UnpadRandomMax16(nil)
	require.ErrorIs(err, ErrEmptyPadding)
}

func TestUnpadTooLong(t *testing.T) {
	require := require.New(t)

	_, err := UnpadRandomMax16([]byte{1, 2, 9})
	require.EqualError(err, "unpad given 3 bytes, but pad is 9")
}

func TestUnpadWholeBuffer(t *testing.T) {
	require := require.New(t)

	out, err := UnpadRandomMax16([]byte{3, 3, 3})
	require.Nil(err)
	require.Empty(out)
}

func TestDHAgreement(t *testing.T) {
	require := require.New(t)

	aPub, aPriv, err := box.GenerateKey(crypto_rand.Reader)
	require.Nil(err)
	bPub, bPriv, err := box.GenerateKey(crypto_rand.Reader)
	require.Nil(err)

	ab, err := DH(aPriv[:], bPub[:])
	require.Nil(err)
	ba, err := DH(bPriv[:], aPub[:])
	require.Nil(err)
	require.Equal(ab, ba)

	_, err = DH(aPriv[:31], bPub[:])
	require.NotNil(err)
}

func TestEncryptDecrypt(t *testing.T) {
	require := require.New(t)

	key := make([]byte, 32)
	_, err := crypto_rand.Read(key)
	require.Nil(err)

	enc, err := EncryptWithKey(key, []byte("body"), []byte("ad"))
	require.Nil(err)
	dec, err := DecryptWithKey(key, enc, []byte("ad"))
	require.Nil(err)
	require.Equal([]byte("body"), dec)

	_, err = DecryptWithKey(key, enc, []byte("other"))
	require.NotNil(err)
	_, err = EncryptWithKey(key[:16], []byte("body"), nil)
	require.NotNil(err)
}

func TestChainStep(t *testing.T) {
	require := require.New(t)

	ck := make([]byte, 32)
	mk1, next := ChainStep(ck)
	mk2, _ := ChainStep(next)
	require.Len(mk1, 32)
	require.NotEqual(mk1, mk2)
	again, _ := ChainStep(ck)
	require.Equal(mk1, again)
}

func TestDeriveSecrets(t *testing.T) {
	require := require.New(t)

	a, err := DeriveSecrets([]byte("ikm"), nil, "info", 64)
	require.Nil(err)
	b, err := DeriveSecrets([]byte("ikm"), nil, "other", 64)
	require.Nil(err)
	require.Len(a, 64)
	require.NotEqual(a, b)
}
