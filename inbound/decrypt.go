package inbound

import (
	"context"
	"errors"
	"fmt"

	"github.com/meow-io/go-stanza/config"
	"github.com/meow-io/go-stanza/crypto"
	"github.com/meow-io/go-stanza/jid"
	"github.com/meow-io/go-stanza/node"
	"github.com/meow-io/go-stanza/signal"
	"github.com/meow-io/go-stanza/waproto"
	"go.uber.org/zap"
)

// SessionStore decrypts envelopes against persisted session state. Implementations serialize access per session.
type SessionStore interface {
	DecryptMessage(ctx context.Context, from, msgType string, ciphertext []byte) ([]byte, error)
	DecryptGroupMessage(ctx context.Context, group, author string, ciphertext []byte) ([]byte, error)
	ProcessSenderKeyDistribution(ctx context.Context, author string, skdm *waproto.SenderKeyDistribution) error
}

var ErrUnknownEnvelope = errors.New("unknown e2e type")

type Decryptor struct {
	log   *zap.SugaredLogger
	store SessionStore
}

func NewDecryptor(c *config.Config, store SessionStore) *Decryptor {
	return &Decryptor{
		log:   c.Logger("inbound/decryptor"),
		store: store,
	}
}

// fragmentResult is the outcome of one payload fragment; exactly one of message and err is set.
type fragmentResult struct {
	message *waproto.Message
	err     error
}

// envelopeOf resolves how a payload fragment is wrapped. An enc fragment without a type is passed through
// without decryption but still carries padding.
func envelopeOf(frag *node.Node) (kind EnvelopeKind, padded bool, err error) {
	if frag.Tag == "plaintext" {
		return EnvelopePlaintext, false, nil
	}
	typ, ok := frag.Attr("type")
	if !ok {
		return EnvelopePlaintext, true, nil
	}
	switch typ {
	case "skmsg":
		return EnvelopeGroup, true, nil
	case "pkmsg":
		return EnvelopePreKey, true, nil
	case "msg":
		return EnvelopeWhisper, true, nil
	case "plaintext":
		return EnvelopePlaintext, false, nil
	}
	return 0, false, fmt.Errorf("%w: %s", ErrUnknownEnvelope, typ)
}

// Decrypt walks the stanza's fragments in order and fills rec. A failing fragment never aborts the walk: it
// leaves a ciphertext stub unless another fragment decrypted. The only error returned is ctx's.
func (d *Decryptor) Decrypt(ctx context.Context, stanza *node.Node, rec *Record, c *Classification) error {
	decryptables := 0
	succeeded := false

	for _, frag := range stanza.Children() {
		frag := frag
		if err := ctx.Err(); err != nil {
			return err
		}

		switch frag.Tag {
		case "verified_name":
			if cert, ok := frag.Bytes(); ok {
				name, err := waproto.VerifiedName(cert)
				if err != nil {
					d.log.Warnf("bad verified name certificate on %s: %v", rec.Key, err)
				} else {
					rec.VerifiedBizName = name
				}
			}
		case "unavailable":
			if frag.AttrString("type") == "view_once" {
				rec.Key.IsViewOnce = true
			}
		}

		if frag.Tag != "enc" && frag.Tag != "plaintext" {
			continue
		}
		content, ok := frag.Bytes()
		if !ok {
			continue
		}

		decryptables++
		res := d.decryptFragment(ctx, &frag, content, c)
		if res.err != nil {
			d.log.Errorf("failed to decrypt message %s: %v", rec.Key, res.err)
			if !succeeded {
				rec.setStub(StubCiphertext, stubText(res.err))
			}
			continue
		}

		succeeded = true
		rec.clearStub()
		if rec.Message == nil {
			rec.Message = res.message
		} else {
			rec.Message.Merge(res.message)
		}
	}

	if decryptables == 0 {
		rec.setStub(StubCiphertext, NoMessageFoundErrorText)
	}
	return nil
}

func stubText(err error) string {
	if errors.Is(err, signal.ErrMissingPreKey) {
		return MissingKeysErrorText
	}
	return err.Error()
}

func (d *Decryptor) decryptFragment(ctx context.Context, frag *node.Node, content []byte, c *Classification) fragmentResult {
	kind, padded, err := envelopeOf(frag)
	if err != nil {
		return fragmentResult{err: err}
	}

	var plaintext []byte
	switch kind {
	case EnvelopeGroup:
		plaintext, err = d.store.DecryptGroupMessage(ctx, c.Sender, c.Author, content)
	case EnvelopePreKey, EnvelopeWhisper:
		target := c.Author
		if jid.IsUser(c.Sender) {
			target = c.Sender
		}
		plaintext, err = d.store.DecryptMessage(ctx, target, kind.String(), content)
	case EnvelopePlaintext:
		plaintext = content
	}
	if err != nil {
		return fragmentResult{err: err}
	}

	if padded {
		if plaintext, err = crypto.UnpadRandomMax16(plaintext); err != nil {
			return fragmentResult{err: err}
		}
	}

	msg, err := waproto.Unmarshal(plaintext)
	if err != nil {
		return fragmentResult{err: err}
	}
	msg = msg.Unwrap()

	if skdm := msg.SenderKeyDistribution(); skdm != nil {
		if err := d.store.ProcessSenderKeyDistribution(ctx, c.Author, skdm); err != nil {
			d.log.Errorf("failed to process sender key distribution from %s: %v", c.Author, err)
		}
	}
	return fragmentResult{message: msg}
}
