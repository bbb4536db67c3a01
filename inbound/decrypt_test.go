package inbound

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/meow-io/go-stanza/config"
	"github.com/meow-io/go-stanza/crypto"
	"github.com/meow-io/go-stanza/node"
	"github.com/meow-io/go-stanza/signal"
	"github.com/meow-io/go-stanza/waproto"
	"github.com/stretchr/testify/require"
)

type decryptCall struct {
	target  string
	author  string
	msgType string
}

// fakeStore treats ciphertext as padded plaintext unless an error is queued for the envelope type.
type fakeStore struct {
	lock     sync.Mutex
	calls    []decryptCall
	skdms    []string
	failures map[string]error
	skdmErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{failures: map[string]error{}}
}

func (s *fakeStore) DecryptMessage(_ context.Context, from, msgType string, ciphertext []byte) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls = append(s.calls, decryptCall{target: from, msgType: msgType})
	if err := s.failures[msgType]; err != nil {
		return nil, err
	}
	return ciphertext, nil
}

func (s *fakeStore) DecryptGroupMessage(_ context.Context, group, author string, ciphertext []byte) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls = append(s.calls, decryptCall{target: group, author: author, msgType: "skmsg"})
	if err := s.failures["skmsg"]; err != nil {
		return nil, err
	}
	return ciphertext, nil
}

func (s *fakeStore) ProcessSenderKeyDistribution(_ context.Context, author string, skdm *waproto.SenderKeyDistribution) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.skdms = append(s.skdms, author+"/"+skdm.GroupID)
	return s.skdmErr
}

func testConfig() *config.Config {
	return config.NewConfig(config.WithLoggingPrefix("inbound-test"), config.WithRootDir("."))
}

func padded(t *testing.T, m *waproto.Message) []byte {
	b, err := crypto.PadRandomMax16(waproto.Marshal(m))
	require.Nil(t, err)
	return b
}

func enc(typ string, content []byte) node.Node {
	n := node.Node{Tag: "enc", Attrs: node.Attrs{"v": "2"}, Content: content}
	if typ != "" {
		n.Attrs["type"] = typ
	}
	return n
}

func messageStanza(from, participant string, children ...node.Node) *node.Node {
	attrs := node.Attrs{
		"id":   uuid.NewString(),
		"from": from,
		"t":    "1700000000",
	}
	if participant != "" {
		attrs["participant"] = participant
	}
	return &node.Node{Tag: "message", Attrs: attrs, Content: children}
}

func decrypt(t *testing.T, store SessionStore, stanza *node.Node) *Record {
	d := NewDecryptor(testConfig(), store)
	rec, c, err := DecodeMessageNode(stanza, me, testLog)
	require.Nil(t, err)
	require.Nil(t, d.Decrypt(context.Background(), stanza, rec, c))
	return rec
}

func TestDecryptDirectWhisper(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	stanza := messageStanza(alice, "", enc("msg", padded(t, waproto.NewMessage(waproto.Text("hi")))))
	rec := decrypt(t, store, stanza)

	require.Equal(StubNone, rec.StubType)
	require.Nil(rec.StubParameters)
	require.Equal("hi", rec.Message.Text())
	require.Equal([]decryptCall{{target: alice, msgType: "msg"}}, store.calls)
}

func TestDecryptPreKeyTargetsAuthorForLID(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	stanza := messageStanza(aliceLID, "", enc("pkmsg", padded(t, waproto.NewMessage(waproto.Text("hello")))))
	rec := decrypt(t, store, stanza)

	require.Equal("hello", rec.Message.Text())
	require.Equal([]decryptCall{{target: aliceLID, msgType: "pkmsg"}}, store.calls)
}

func TestDecryptGroupWithDistribution(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	skdm := &waproto.SenderKeyDistribution{GroupID: group, AxolotlSenderKeyDistributionMessage: []byte{0x33, 1, 2, 3}}
	stanza := messageStanza(group, alice,
		enc("pkmsg", padded(t, waproto.NewMessage(skdm))),
		enc("skmsg", padded(t, waproto.NewMessage(waproto.Text("to the group")))),
	)
	rec := decrypt(t, store, stanza)

	require.Equal(StubNone, rec.StubType)
	require.Equal("to the group", rec.Message.Text())
	require.True(rec.Message.Has(waproto.KindSenderKeyDistribution))
	require.Equal([]string{alice + "/" + group}, store.skdms)
	require.Equal([]decryptCall{
		{target: alice, msgType: "pkmsg"},
		{target: group, author: alice, msgType: "skmsg"},
	}, store.calls)
}

func TestDecryptDistributionFailureIsNotFatal(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()
	store.skdmErr = errors.New("bad distribution")

	skdm := &waproto.SenderKeyDistribution{GroupID: group, AxolotlSenderKeyDistributionMessage: []byte{1}}
	rec := decrypt(t, store, messageStanza(group, alice,
		enc("skmsg", padded(t, waproto.NewMessage(skdm, waproto.Text("still here")))),
	))

	require.Equal(StubNone, rec.StubType)
	require.Equal("still here", rec.Message.Text())
}

func TestDecryptDeviceSentUnwrapped(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	inner := waproto.NewMessage(waproto.Text("from my phone"))
	wrapped := waproto.NewMessage(&waproto.DeviceSent{DestinationJID: alice, Message: inner})
	rec := decrypt(t, store, messageStanza("15550000001:7@s.whatsapp.net", "", enc("msg", padded(t, wrapped))))

	require.True(rec.Key.FromMe)
	require.False(rec.Message.Has(waproto.KindDeviceSent))
	require.Equal("from my phone", rec.Message.Text())
}

func TestDecryptPlaintextFragments(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	raw := waproto.Marshal(waproto.NewMessage(waproto.Text("newsletter post")))
	rec := decrypt(t, store, messageStanza(channel, "", node.Node{Tag: "plaintext", Content: raw}))
	require.Equal("newsletter post", rec.Message.Text())

	rec = decrypt(t, store, messageStanza(alice, "", enc("plaintext", raw)))
	require.Equal("newsletter post", rec.Message.Text())

	// enc without a type is passed through but still padded
	rec = decrypt(t, store, messageStanza(alice, "", enc("", padded(t, waproto.NewMessage(waproto.Text("untyped"))))))
	require.Equal("untyped", rec.Message.Text())
	require.Empty(store.calls)
}

func TestDecryptNoPayload(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	rec := decrypt(t, store, messageStanza(alice, ""))
	require.Equal(StubCiphertext, rec.StubType)
	require.Equal([]string{NoMessageFoundErrorText}, rec.StubParameters)
	require.True(rec.NoMessageFound())
	require.Nil(rec.Message)

	// fragments without byte content are not counted
	rec = decrypt(t, store, messageStanza(alice, "",
		node.Node{Tag: "enc", Attrs: node.Attrs{"type": "msg"}, Content: []node.Node{}},
		node.Node{Tag: "reporting", Content: []byte{1}},
	))
	require.True(rec.NoMessageFound())
	require.Empty(store.calls)
}

func TestDecryptFailureStub(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()
	store.failures["msg"] = signal.ErrNoSession

	rec := decrypt(t, store, messageStanza(alice, "", enc("msg", []byte{1, 2, 3})))
	require.Equal(StubCiphertext, rec.StubType)
	require.Equal([]string{signal.ErrNoSession.Error()}, rec.StubParameters)
	require.False(rec.NoMessageFound())
	require.Nil(rec.Message)
}

func TestDecryptMissingPreKeyStub(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()
	store.failures["pkmsg"] = fmt.Errorf("opening session: %w", signal.ErrMissingPreKey)

	rec := decrypt(t, store, messageStanza(alice, "", enc("pkmsg", []byte{1})))
	require.Equal(StubCiphertext, rec.StubType)
	require.Equal([]string{MissingKeysErrorText}, rec.StubParameters)
}

func TestDecryptUnknownEnvelope(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	rec := decrypt(t, store, messageStanza(alice, "", enc("frank", []byte{1})))
	require.Equal(StubCiphertext, rec.StubType)
	require.Equal([]string{"unknown e2e type: frank"}, rec.StubParameters)
	require.Empty(store.calls)
}

func TestDecryptBadPayloadStub(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	rec := decrypt(t, store, messageStanza(alice, "", node.Node{Tag: "plaintext", Content: []byte{0xff}}))
	require.Equal(StubCiphertext, rec.StubType)
	require.Len(rec.StubParameters, 1)
	require.Nil(rec.Message)
}

func TestDecryptSuccessWinsOverLaterFailure(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()
	store.failures["skmsg"] = signal.ErrNoSenderKey

	rec := decrypt(t, store, messageStanza(group, alice,
		enc("pkmsg", padded(t, waproto.NewMessage(waproto.Text("first")))),
		enc("skmsg", []byte{9, 9, 9}),
	))
	require.Equal(StubNone, rec.StubType)
	require.Nil(rec.StubParameters)
	require.Equal("first", rec.Message.Text())
}

func TestDecryptSuccessClearsEarlierFailure(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()
	store.failures["skmsg"] = signal.ErrNoSenderKey

	rec := decrypt(t, store, messageStanza(group, alice,
		enc("skmsg", []byte{9, 9, 9}),
		enc("pkmsg", padded(t, waproto.NewMessage(waproto.Text("second")))),
	))
	require.Equal(StubNone, rec.StubType)
	require.Equal("second", rec.Message.Text())
}

func TestDecryptMergesFragments(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	rec := decrypt(t, store, messageStanza(group, alice,
		enc("pkmsg", padded(t, waproto.NewMessage(waproto.Text("old"), &waproto.Reaction{Text: "👍"}))),
		enc("skmsg", padded(t, waproto.NewMessage(waproto.Text("new")))),
	))
	require.Equal("new", rec.Message.Text())
	require.True(rec.Message.Has(waproto.KindReaction))
}

func TestDecryptSideFragments(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()

	details := waproto.MarshalDetails(&waproto.VerifiedNameDetails{Serial: 7, Issuer: "smb:wa", VerifiedName: "Acme Corp"})
	cert := waproto.MarshalCertificate(&waproto.VerifiedNameCertificate{Details: details, Signature: []byte{1}})

	rec := decrypt(t, store, messageStanza(alice, "",
		node.Node{Tag: "verified_name", Attrs: node.Attrs{"serial": "7"}, Content: cert},
		node.Node{Tag: "unavailable", Attrs: node.Attrs{"type": "view_once"}},
	))
	require.Equal("Acme Corp", rec.VerifiedBizName)
	require.True(rec.Key.IsViewOnce)
	require.True(rec.NoMessageFound())

	rec = decrypt(t, store, messageStanza(alice, "",
		node.Node{Tag: "verified_name", Content: []byte{0xff}},
		enc("msg", padded(t, waproto.NewMessage(waproto.Text("ok")))),
	))
	require.Equal("", rec.VerifiedBizName)
	require.Equal("ok", rec.Message.Text())
}

func TestDecryptCanceled(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()
	d := NewDecryptor(testConfig(), store)

	stanza := messageStanza(alice, "", enc("msg", padded(t, waproto.NewMessage(waproto.Text("hi")))))
	rec, c, err := DecodeMessageNode(stanza, me, testLog)
	require.Nil(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(d.Decrypt(ctx, stanza, rec, c), context.Canceled)
	require.Empty(store.calls)
}

func TestDecryptFromMeServerAck(t *testing.T) {
	require := require.New(t)

	ownDevice := func(children ...node.Node) *node.Node {
		stanza := messageStanza("15550000001:7@s.whatsapp.net", "", children...)
		stanza.Attrs["recipient"] = alice
		return stanza
	}

	store := newFakeStore()
	store.failures["msg"] = signal.ErrNoSession
	rec := decrypt(t, store, ownDevice(enc("msg", []byte{1, 2, 3})))
	require.True(rec.Key.FromMe)
	require.Equal(alice, rec.Key.RemoteJID)
	require.Equal(StatusServerAck, rec.Status)
	require.Equal(StubCiphertext, rec.StubType)
	require.Equal([]string{signal.ErrNoSession.Error()}, rec.StubParameters)

	store = newFakeStore()
	rec = decrypt(t, store, ownDevice(enc("msg", padded(t, waproto.NewMessage(waproto.Text("sent elsewhere"))))))
	require.True(rec.Key.FromMe)
	require.Equal(StatusServerAck, rec.Status)
	require.Equal(StubNone, rec.StubType)
	require.Nil(rec.StubParameters)
	require.Equal("sent elsewhere", rec.Message.Text())
	require.Equal([]decryptCall{{target: "15550000001:7@s.whatsapp.net", msgType: "msg"}}, store.calls)
}
