package inbound

import (
	"github.com/meow-io/go-stanza/jid"
	"github.com/meow-io/go-stanza/node"
	"go.uber.org/zap"
)

// Identity is the local user under both address forms.
type Identity struct {
	PN  string
	LID string
}

func (me Identity) isMe(j string) bool {
	return jid.SameUser(j, me.PN)
}

func (me Identity) isMeLID(j string) bool {
	return jid.SameUser(j, me.LID)
}

// Addressing is the subset of stanza attributes routing depends on.
type Addressing struct {
	From           string
	Recipient      string
	Participant    string
	ParticipantLID string
	SenderPN       string
	SenderLID      string
	IsSender       bool
}

func addressingOf(stanza *node.Node) Addressing {
	return Addressing{
		From:           stanza.AttrString("from"),
		Recipient:      stanza.AttrString("recipient"),
		Participant:    stanza.AttrString("participant"),
		ParticipantLID: stanza.AttrString("participant_lid"),
		SenderPN:       stanza.AttrString("sender_pn"),
		SenderLID:      stanza.AttrString("sender_lid"),
		IsSender:       stanza.AttrBool("is_sender"),
	}
}

type Classification struct {
	Category Category
	ChatID   string
	Author   string
	// Sender is the identity sessions are looked up under: the author for direct chats, the chat otherwise.
	Sender string
	FromMe bool
}

// Classify resolves routing from address shapes. Failures are reasons for rejecting the stanza.
func Classify(a Addressing, me Identity) (*Classification, error) {
	c := &Classification{}
	switch {
	case jid.IsUser(a.From) || jid.IsLID(a.From):
		if a.Recipient != "" && !jid.IsBot(a.Recipient) {
			if !me.isMe(a.From) && !me.isMeLID(a.From) {
				return nil, ErrRecipientNotFromMe
			}
			c.ChatID = a.Recipient
		} else {
			c.ChatID = a.From
		}
		c.Category = CategoryChat
		c.Author = a.From
	case jid.IsGroup(a.From):
		if a.Participant == "" {
			return nil, ErrNoParticipant
		}
		c.Category = CategoryGroup
		c.Author = a.Participant
		c.ChatID = a.From
	case jid.IsNewsletter(a.From):
		c.Category = CategoryNewsletter
		c.Author = a.From
		c.ChatID = a.From
	case jid.IsBroadcast(a.From):
		if a.Participant == "" {
			return nil, ErrNoParticipant
		}
		self := me.isMe(a.Participant)
		switch {
		case jid.IsStatusBroadcast(a.From) && self:
			c.Category = CategoryDirectPeerStatus
		case jid.IsStatusBroadcast(a.From):
			c.Category = CategoryOtherStatus
		case self:
			c.Category = CategoryPeerBroadcast
		default:
			c.Category = CategoryOtherBroadcast
		}
		c.ChatID = a.From
		c.Author = a.Participant
	default:
		return nil, ErrUnknownSource
	}

	if c.Category == CategoryNewsletter {
		c.FromMe = a.IsSender
	} else {
		effective := a.Participant
		if effective == "" {
			effective = a.From
		}
		if jid.IsLID(a.From) {
			c.FromMe = me.isMeLID(effective)
		} else {
			c.FromMe = me.isMe(effective)
		}
	}

	if c.Category == CategoryChat {
		c.Sender = c.Author
	} else {
		c.Sender = c.ChatID
	}
	return c, nil
}

// DecodeMessageNode classifies a message stanza and seeds its record. Nothing is decrypted here. Only a
// classification failure rejects the stanza; unparsable numeric attributes read as 0.
func DecodeMessageNode(stanza *node.Node, me Identity, log *zap.SugaredLogger) (*Record, *Classification, error) {
	a := addressingOf(stanza)
	c, err := Classify(a, me)
	if err != nil {
		return nil, nil, malformed(stanza, err)
	}

	ts := uintAttr(log, stanza, "t")

	rec := &Record{
		Key: MessageKey{
			RemoteJID:      c.ChatID,
			FromMe:         c.FromMe,
			ID:             stanza.AttrString("id"),
			SenderPN:       a.SenderPN,
			SenderLID:      a.SenderLID,
			Participant:    a.Participant,
			ParticipantLID: a.ParticipantLID,
			ServerID:       stanza.AttrString("server_id"),
		},
		Timestamp: ts,
		PushName:  stanza.AttrString("notify"),
		Broadcast: jid.IsBroadcast(a.From),
		Category:  stanza.AttrString("category"),
	}
	if c.Category == CategoryNewsletter {
		rec.NewsletterServerID = uintAttr(log, stanza, "server_id")
	}
	if c.FromMe {
		rec.Status = StatusServerAck
	}
	return rec, c, nil
}

func uintAttr(log *zap.SugaredLogger, stanza *node.Node, key string) uint64 {
	if _, ok := stanza.Attr(key); !ok {
		return 0
	}
	v, err := stanza.AttrUint(key)
	if err != nil {
		log.Warnf("ignoring attribute on stanza %s from %s: %v", stanza.AttrString("id"), stanza.AttrString("from"), err)
		return 0
	}
	return v
}
