// Package inbound classifies and decrypts incoming message stanzas into message records.
package inbound

import (
	"fmt"

	"github.com/meow-io/go-stanza/waproto"
)

const (
	// Stub parameter for a stanza that carried no payload fragment at all.
	NoMessageFoundErrorText = "Message absent from node"
	// Stub parameter for a session-initiation message whose one-time prekey is gone.
	MissingKeysErrorText = "Key used already or never filled"
)

type StubType int

const (
	StubNone       StubType = 0
	StubCiphertext StubType = 2
)

type Status int

const (
	StatusUnset Status = iota
	StatusError
	StatusPending
	StatusServerAck
	StatusDeliveryAck
	StatusRead
	StatusPlayed
)

// Category is the routing classification of a stanza.
type Category string

const (
	CategoryChat             Category = "chat"
	CategoryPeerBroadcast    Category = "peer_broadcast"
	CategoryOtherBroadcast   Category = "other_broadcast"
	CategoryGroup            Category = "group"
	CategoryDirectPeerStatus Category = "direct_peer_status"
	CategoryOtherStatus      Category = "other_status"
	CategoryNewsletter       Category = "newsletter"
)

// EnvelopeKind is the cryptographic wrapping of one payload fragment.
type EnvelopeKind int

const (
	EnvelopeGroup EnvelopeKind = iota + 1
	EnvelopePreKey
	EnvelopeWhisper
	EnvelopePlaintext
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeGroup:
		return "skmsg"
	case EnvelopePreKey:
		return "pkmsg"
	case EnvelopeWhisper:
		return "msg"
	case EnvelopePlaintext:
		return "plaintext"
	}
	return "unknown"
}

// MessageKey identifies a message within its chat. SenderPN/SenderLID and Participant/ParticipantLID are the
// phone-number and local-identity forms of the same sender and are kept side by side.
type MessageKey struct {
	RemoteJID      string
	FromMe         bool
	ID             string
	SenderPN       string
	SenderLID      string
	Participant    string
	ParticipantLID string
	ServerID       string
	IsViewOnce     bool
}

func (k MessageKey) String() string {
	return fmt.Sprintf("%s/%s fromMe=%t participant=%s", k.RemoteJID, k.ID, k.FromMe, k.Participant)
}

type Record struct {
	Key                MessageKey
	Timestamp          uint64
	Message            *waproto.Message
	PushName           string
	VerifiedBizName    string
	StubType           StubType
	StubParameters     []string
	Status             Status
	Broadcast          bool
	NewsletterServerID uint64
	// Category as announced by the server in the stanza's category attribute, e.g. "peer".
	Category string
}

func (r *Record) setStub(t StubType, params ...string) {
	r.StubType = t
	r.StubParameters = params
}

func (r *Record) clearStub() {
	r.StubType = StubNone
	r.StubParameters = nil
}

// NoMessageFound reports whether the stanza had nothing to decrypt, as opposed to failing to decrypt.
func (r *Record) NoMessageFound() bool {
	return r.StubType == StubCiphertext && len(r.StubParameters) == 1 && r.StubParameters[0] == NoMessageFoundErrorText
}
