package signal

import (
	"context"
	"crypto/ed25519"
	crypto_rand "crypto/rand"
	"os"
	"testing"

	"github.com/kevinburke/nacl/box"
	"github.com/meow-io/go-stanza/clock"
	"github.com/meow-io/go-stanza/config"
	"github.com/meow-io/go-stanza/crypto"
	"github.com/meow-io/go-stanza/internal/test"
	"github.com/meow-io/go-stanza/waproto"
	"github.com/status-im/doubleratchet"
	"github.com/stretchr/testify/require"
)

const testAddress = "15551234567:2@s.whatsapp.net"

func TestMain(m *testing.M) {
	os.Exit(test.DBCleanup(m.Run))
}

func newTestStore(t *testing.T) *Store {
	c := config.NewConfig(config.WithMaxSkip(10))
	s, err := NewStore(c, test.NewTestDatabase(c), clock.NewSystemClock())
	require.Nil(t, err)
	return s
}

type memSessions struct {
	states map[string]*doubleratchet.State
}

func (m *memSessions) Save(id []byte, state *doubleratchet.State) error {
	m.states[string(id)] = state
	return nil
}

func (m *memSessions) Load(id []byte) (*doubleratchet.State, error) {
	return m.states[string(id)], nil
}

// initiator plays the remote side opening a session against the store's prekeys.
type initiator struct {
	session  doubleratchet.Session
	baseKey  []byte
	preKeyID uint32
}

func newInitiator(t *testing.T, s *Store, pk *PreKey) *initiator {
	require := require.New(t)

	signed, err := s.SignedPreKey()
	require.Nil(err)
	basePub, basePriv, err := box.GenerateKey(crypto_rand.Reader)
	require.Nil(err)

	ikm, err := crypto.DH(basePriv[:], signed.PublicKey)
	require.Nil(err)
	var preKeyID uint32
	if pk != nil {
		dh, err := crypto.DH(basePriv[:], pk.PublicKey)
		require.Nil(err)
		ikm = append(ikm, dh...)
		preKeyID = pk.ID
	}
	secret, err := crypto.DeriveSecrets(ikm, nil, rootKeyInfo, 32)
	require.Nil(err)

	sess, err := doubleratchet.NewWithRemoteKey([]byte("initiator"), secret, signed.PublicKey, &memSessions{states: map[string]*doubleratchet.State{}}, doubleratchet.WithCrypto(&ratchetCrypto{}))
	require.Nil(err)
	return &initiator{session: sess, baseKey: basePub[:], preKeyID: preKeyID}
}

func (i *initiator) whisper(t *testing.T, plaintext string) *waproto.WhisperMessage {
	msg, err := i.session.RatchetEncrypt([]byte(plaintext), nil)
	require.Nil(t, err)
	return &waproto.WhisperMessage{
		RatchetKey:      msg.Header.DH,
		Counter:         msg.Header.N,
		PreviousCounter: msg.Header.PN,
		Ciphertext:      msg.Ciphertext,
	}
}

func (i *initiator) preKeyMessage(t *testing.T, plaintext string) []byte {
	return waproto.MarshalPreKeyWhisper(&waproto.PreKeyWhisperMessage{
		PreKeyID: i.preKeyID,
		BaseKey:  i.baseKey,
		Message:  i.whisper(t, plaintext),
	})
}

func (i *initiator) message(t *testing.T, plaintext string) []byte {
	return waproto.MarshalWhisper(i.whisper(t, plaintext))
}

// groupSender owns a sender key and produces signed group messages with it.
type groupSender struct {
	keyID     uint32
	iteration uint32
	chainKey  []byte
	priv      ed25519.PrivateKey
	pub       ed25519.PublicKey
}

func newGroupSender(t *testing.T) *groupSender {
	pub, priv, err := ed25519.GenerateKey(crypto_rand.Reader)
	require.Nil(t, err)
	ck := make([]byte, 32)
	_, err = crypto_rand.Read(ck)
	require.Nil(t, err)
	return &groupSender{keyID: 7, chainKey: ck, priv: priv, pub: pub}
}

func (g *groupSender) distribution(groupID string) *waproto.SenderKeyDistribution {
	return &waproto.SenderKeyDistribution{
		GroupID: groupID,
		AxolotlSenderKeyDistributionMessage: waproto.MarshalSenderKeyDistributionBody(&waproto.SenderKeyDistributionBody{
			KeyID:      g.keyID,
			Iteration:  g.iteration,
			ChainKey:   g.chainKey,
			SigningKey: g.pub,
		}),
	}
}

func (g *groupSender) encrypt(t *testing.T, plaintext string) []byte {
	mk, next := crypto.ChainStep(g.chainKey)
	ct, err := crypto.EncryptWithKey(mk, []byte(plaintext), nil)
	require.Nil(t, err)
	body := waproto.MarshalSenderKeyMessage(&waproto.SenderKeyMessage{KeyID: g.keyID, Iteration: g.iteration, Ciphertext: ct})
	g.chainKey = next
	g.iteration++
	return append(body, ed25519.Sign(g.priv, body)...)
}

func TestGeneratePreKeys(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	keys, err := s.GeneratePreKeys(3)
	require.Nil(err)
	require.Len(keys, 3)
	require.Equal(uint32(1), keys[0].ID)
	require.Equal(uint32(3), keys[2].ID)

	more, err := s.GeneratePreKeys(2)
	require.Nil(err)
	require.Equal(uint32(4), more[0].ID)

	signed, err := s.SignedPreKey()
	require.Nil(err)
	require.Len(signed.PublicKey, 32)
}

func TestPreKeyMessageOpensSession(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	keys, err := s.GeneratePreKeys(1)
	require.Nil(err)
	alice := newInitiator(t, s, keys[0])

	pt, err := s.DecryptMessage(ctx, testAddress, MessageTypePreKey, alice.preKeyMessage(t, "hello"))
	require.Nil(err)
	require.Equal("hello", string(pt))

	// a second prekey message under the same base key reuses the session
	pt, err = s.DecryptMessage(ctx, testAddress, MessageTypePreKey, alice.preKeyMessage(t, "again"))
	require.Nil(err)
	require.Equal("again", string(pt))

	pt, err = s.DecryptMessage(ctx, testAddress, MessageTypeWhisper, alice.message(t, "established"))
	require.Nil(err)
	require.Equal("established", string(pt))
}

func TestPreKeyMessageWithoutOneTimeKey(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	alice := newInitiator(t, s, nil)
	pt, err := s.DecryptMessage(context.Background(), testAddress, MessageTypePreKey, alice.preKeyMessage(t, "signed only"))
	require.Nil(err)
	require.Equal("signed only", string(pt))
}

func TestPreKeyConsumed(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	keys, err := s.GeneratePreKeys(1)
	require.Nil(err)

	first := newInitiator(t, s, keys[0])
	_, err = s.DecryptMessage(ctx, testAddress, MessageTypePreKey, first.preKeyMessage(t, "one"))
	require.Nil(err)

	second := newInitiator(t, s, keys[0])
	_, err = s.DecryptMessage(ctx, "15557654321@s.whatsapp.net", MessageTypePreKey, second.preKeyMessage(t, "two"))
	require.ErrorIs(err, ErrMissingPreKey)
	require.Contains(err.Error(), "Key used already or never filled")
}

func TestWhisperSkipLimit(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	keys, err := s.GeneratePreKeys(1)
	require.Nil(err)
	alice := newInitiator(t, s, keys[0])
	_, err = s.DecryptMessage(ctx, testAddress, MessageTypePreKey, alice.preKeyMessage(t, "hello"))
	require.Nil(err)

	for i := 0; i < 5; i++ {
		alice.message(t, "lost")
	}
	pt, err := s.DecryptMessage(ctx, testAddress, MessageTypeWhisper, alice.message(t, "after 5 skipped"))
	require.Nil(err)
	require.Equal("after 5 skipped", string(pt))

	// the store allows 10 skipped keys per chain
	for i := 0; i < 50; i++ {
		alice.message(t, "lost")
	}
	_, err = s.DecryptMessage(ctx, testAddress, MessageTypeWhisper, alice.message(t, "after 50 skipped"))
	require.NotNil(err)
}

func TestWhisperWithoutSession(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	alice := newInitiator(t, s, nil)
	_, err := s.DecryptMessage(context.Background(), testAddress, MessageTypeWhisper, alice.message(t, "lost"))
	require.ErrorIs(err, ErrNoSession)
}

func TestDecryptUnknownType(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	_, err := s.DecryptMessage(context.Background(), testAddress, "frank", []byte{1})
	require.ErrorIs(err, ErrUnknownMessageType)
}

func TestDecryptGarbage(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	_, err := s.DecryptMessage(context.Background(), testAddress, MessageTypePreKey, []byte{0x33, 0x0a, 0x7f})
	require.ErrorIs(err, ErrInvalidMessage)
}

func TestDecryptCanceled(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.DecryptMessage(ctx, testAddress, MessageTypeWhisper, []byte{1})
	require.ErrorIs(err, context.Canceled)
	_, err = s.DecryptGroupMessage(ctx, "1@g.us", testAddress, []byte{1})
	require.ErrorIs(err, context.Canceled)
}

func TestGroupMessages(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()
	group := "120363@g.us"

	sender := newGroupSender(t)
	require.Nil(s.ProcessSenderKeyDistribution(ctx, testAddress, sender.distribution(group)))

	first := sender.encrypt(t, "one")
	second := sender.encrypt(t, "two")
	third := sender.encrypt(t, "three")

	pt, err := s.DecryptGroupMessage(ctx, group, testAddress, third)
	require.Nil(err)
	require.Equal("three", string(pt))

	pt, err = s.DecryptGroupMessage(ctx, group, testAddress, first)
	require.Nil(err)
	require.Equal("one", string(pt))

	pt, err = s.DecryptGroupMessage(ctx, group, testAddress, second)
	require.Nil(err)
	require.Equal("two", string(pt))

	_, err = s.DecryptGroupMessage(ctx, group, testAddress, second)
	require.ErrorIs(err, ErrOldCounter)
}

func TestGroupDistributionReplayKeepsChain(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()
	group := "120363@g.us"

	sender := newGroupSender(t)
	skdm := sender.distribution(group)
	require.Nil(s.ProcessSenderKeyDistribution(ctx, testAddress, skdm))

	msg := sender.encrypt(t, "once")
	_, err := s.DecryptGroupMessage(ctx, group, testAddress, msg)
	require.Nil(err)

	require.Nil(s.ProcessSenderKeyDistribution(ctx, testAddress, skdm))
	_, err = s.DecryptGroupMessage(ctx, group, testAddress, msg)
	require.ErrorIs(err, ErrOldCounter)
}

func TestGroupMessageFailures(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()
	group := "120363@g.us"

	sender := newGroupSender(t)
	_, err := s.DecryptGroupMessage(ctx, group, testAddress, sender.encrypt(t, "early"))
	require.ErrorIs(err, ErrNoSenderKey)

	require.Nil(s.ProcessSenderKeyDistribution(ctx, testAddress, sender.distribution(group)))

	tampered := sender.encrypt(t, "tampered")
	tampered[len(tampered)-ed25519.SignatureSize-1] ^= 0xff
	_, err = s.DecryptGroupMessage(ctx, group, testAddress, tampered)
	require.ErrorIs(err, ErrInvalidSignature)

	for i := 0; i < 20; i++ {
		sender.encrypt(t, "skipped")
	}
	_, err = s.DecryptGroupMessage(ctx, group, testAddress, sender.encrypt(t, "far"))
	require.ErrorIs(err, ErrTooFarAhead)

	_, err = s.DecryptGroupMessage(ctx, group, testAddress, []byte{1, 2, 3})
	require.ErrorIs(err, ErrInvalidMessage)
}

func TestSenderKeyDistributionInvalid(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	require.ErrorIs(s.ProcessSenderKeyDistribution(ctx, testAddress, &waproto.SenderKeyDistribution{AxolotlSenderKeyDistributionMessage: []byte{1}}), ErrInvalidMessage)
	require.ErrorIs(s.ProcessSenderKeyDistribution(ctx, testAddress, &waproto.SenderKeyDistribution{GroupID: "1@g.us", AxolotlSenderKeyDistributionMessage: []byte{0x33}}), ErrInvalidMessage)
}
