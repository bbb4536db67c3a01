// Package signal keeps the pairwise and group session state needed to decrypt inbound envelopes.
//
// Pairwise sessions are double-ratchet sessions opened by a prekey message ("pkmsg") against the local signed
// prekey and an optional one-time prekey, then continued by plain session messages ("msg"). Group messages
// ("skmsg") are decrypted with per-author sender keys delivered through sender-key distributions. All state lives
// in the SQLCipher database and every operation runs inside one transaction under the database lock, so calls
// touching the same session never interleave.
package signal

import (
	"context"
	"crypto/ed25519"
	crypto_rand "crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/kevinburke/nacl/box"
	"github.com/meow-io/go-stanza/clock"
	"github.com/meow-io/go-stanza/config"
	"github.com/meow-io/go-stanza/crypto"
	"github.com/meow-io/go-stanza/internal/db"
	"github.com/meow-io/go-stanza/jid"
	"github.com/meow-io/go-stanza/waproto"
	"github.com/status-im/doubleratchet"
	"go.uber.org/zap"
)

const (
	MessageTypePreKey  = "pkmsg"
	MessageTypeWhisper = "msg"

	rootKeyInfo = "stanza root key"
)

var (
	ErrNoSession          = errors.New("signal: no session for address")
	ErrMissingPreKey      = errors.New("Key used already or never filled")
	ErrNoSenderKey        = errors.New("signal: no sender key")
	ErrOldCounter         = errors.New("signal: message key for iteration already used")
	ErrTooFarAhead        = errors.New("signal: iteration too far ahead of chain")
	ErrInvalidSignature   = errors.New("signal: invalid sender key signature")
	ErrInvalidMessage     = errors.New("signal: invalid message")
	ErrUnknownMessageType = errors.New("signal: unknown message type")
)

// PreKey is public key material for upload to the server.
type PreKey struct {
	ID        uint32
	PublicKey []byte
}

type Store struct {
	log    *zap.SugaredLogger
	config *config.Config
	clock  clock.Clock
	db     *database
}

// NewStore migrates the signal tables. The caller must hold the database lock or otherwise be its only user.
func NewStore(c *config.Config, d *db.Database, clk clock.Clock) (*Store, error) {
	sdb, err := newDatabase(d)
	if err != nil {
		return nil, fmt.Errorf("signal: error migrating: %w", err)
	}
	return &Store{
		log:    c.Logger("signal"),
		config: c,
		clock:  clk,
		db:     sdb,
	}, nil
}

// SignedPreKey returns the public half of the signed prekey that incoming sessions are opened against.
func (s *Store) SignedPreKey() (*PreKey, error) {
	var pk *PreKey
	if err := s.db.RunReadOnly("signed prekey", func() error {
		k, err := s.db.localKey(signedPreKeyID)
		if err != nil {
			return err
		}
		pk = &PreKey{ID: k.ID, PublicKey: k.PubKey}
		return nil
	}); err != nil {
		return nil, err
	}
	return pk, nil
}

// GeneratePreKeys creates n one-time prekeys with ids following the highest existing one.
func (s *Store) GeneratePreKeys(n int) ([]*PreKey, error) {
	keys := make([]*PreKey, 0, n)
	if err := s.db.Run("generate prekeys", func() error {
		next, err := s.db.maxPreKeyID()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			next++
			pub, priv, err := box.GenerateKey(crypto_rand.Reader)
			if err != nil {
				return err
			}
			if err := s.db.insertPreKey(&preKey{ID: next, PrivKey: priv[:], PubKey: pub[:]}); err != nil {
				return err
			}
			keys = append(keys, &PreKey{ID: next, PublicKey: pub[:]})
		}
		return nil
	}); err != nil {
		return nil, err
	}
	s.log.Debugf("generated %d prekeys", n)
	return keys, nil
}

// signalAddress keys session state by device, so every device of a contact has its own session.
func signalAddress(s string) (string, error) {
	j, err := jid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return j.SignalAddress(), nil
}

// DecryptMessage decrypts a pairwise envelope sent by the device addressed by from.
func (s *Store) DecryptMessage(ctx context.Context, from, msgType string, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	address, err := signalAddress(from)
	if err != nil {
		return nil, err
	}
	var plaintext []byte
	err = s.db.Run(fmt.Sprintf("decrypt %s from %s", msgType, address), func() error {
		var err error
		switch msgType {
		case MessageTypePreKey:
			plaintext, err = s.decryptPreKey(address, ciphertext)
		case MessageTypeWhisper:
			plaintext, err = s.decryptWhisper(address, ciphertext)
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownMessageType, msgType)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

func sessionID(address string, baseKey []byte) []byte {
	h := sha256.New()
	h.Write([]byte(address))
	h.Write([]byte{0})
	h.Write(baseKey)
	return h.Sum(nil)
}

func (s *Store) decryptPreKey(address string, ciphertext []byte) ([]byte, error) {
	pkm, err := waproto.UnmarshalPreKeyWhisper(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	id := sessionID(address, pkm.BaseKey)
	exists, err := s.db.hasDoubleratchetState(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := s.startSession(id, pkm); err != nil {
			return nil, err
		}
		s.log.Debugf("started session %x for %s", id[:8], address)
	}
	if err := s.db.upsertSession(&session{
		Address:   address,
		SessionID: id,
		BaseKey:   pkm.BaseKey,
		CtimeMs:   s.clock.CurrentTimeMs(),
	}); err != nil {
		return nil, err
	}
	return s.ratchetDecrypt(id, pkm.Message)
}

// startSession derives the shared secret from the signed prekey and the one-time prekey the sender picked, and
// consumes the one-time prekey.
func (s *Store) startSession(id []byte, pkm *waproto.PreKeyWhisperMessage) error {
	signed, err := s.db.localKey(signedPreKeyID)
	if err != nil {
		return err
	}
	ikm, err := crypto.DH(signed.PrivKey, pkm.BaseKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if pkm.PreKeyID != 0 {
		pk, ok, err := s.db.preKey(pkm.PreKeyID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMissingPreKey
		}
		dh, err := crypto.DH(pk.PrivKey, pkm.BaseKey)
		if err != nil {
			return err
		}
		ikm = append(ikm, dh...)
		if err := s.db.deletePreKey(pk.ID); err != nil {
			return err
		}
	}
	secret, err := crypto.DeriveSecrets(ikm, nil, rootKeyInfo, 32)
	if err != nil {
		return err
	}

	pair := newDHPair(signed.PrivKey, signed.PubKey)
	if _, err := doubleratchet.New(id, secret, pair, s.db.doubleratchetSessionStorage(), doubleratchet.WithCrypto(s.db.doubleratchetCrypto()), doubleratchet.WithKeysStorage(s.db.doubleratchetKeysStorage(id)), doubleratchet.WithMaxSkip(int(s.config.MaxSkip))); err != nil {
		return fmt.Errorf("signal: error initializing doubleratchet: %w", err)
	}
	return nil
}

func (s *Store) decryptWhisper(address string, ciphertext []byte) ([]byte, error) {
	sess, ok, err := s.db.session(address)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSession
	}
	wm, err := waproto.UnmarshalWhisper(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return s.ratchetDecrypt(sess.SessionID, wm)
}

func (s *Store) ratchetDecrypt(id []byte, wm *waproto.WhisperMessage) ([]byte, error) {
	message := doubleratchet.Message{
		Header: doubleratchet.MessageHeader{
			DH: wm.RatchetKey,
			N:  wm.Counter,
			PN: wm.PreviousCounter,
		},
		Ciphertext: wm.Ciphertext,
	}

	drSession, err := doubleratchet.Load(id, s.db.doubleratchetSessionStorage(), doubleratchet.WithCrypto(s.db.doubleratchetCrypto()), doubleratchet.WithKeysStorage(s.db.doubleratchetKeysStorage(id)), doubleratchet.WithMaxSkip(int(s.config.MaxSkip)))
	if err != nil {
		return nil, fmt.Errorf("signal decrypt: %w", err)
	}
	msg, err := drSession.RatchetDecrypt(message, nil)
	if err != nil {
		return nil, fmt.Errorf("signal decrypt: %w", err)
	}
	return msg, nil
}

// DecryptGroupMessage decrypts a sender-key message: an encoded SenderKeyMessage followed by the author's
// ed25519 signature over it.
func (s *Store) DecryptGroupMessage(ctx context.Context, groupID, author string, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sender, err := signalAddress(author)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) <= ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: sender key message of %d bytes", ErrInvalidMessage, len(ciphertext))
	}
	body := ciphertext[:len(ciphertext)-ed25519.SignatureSize]
	sig := ciphertext[len(ciphertext)-ed25519.SignatureSize:]
	skm, err := waproto.UnmarshalSenderKeyMessage(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	var plaintext []byte
	if err := s.db.Run(fmt.Sprintf("decrypt skmsg %s from %s", groupID, sender), func() error {
		sk, ok, err := s.db.senderKey(groupID, sender, skm.KeyID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoSenderKey
		}
		if !ed25519.Verify(sk.SigningKey, body, sig) {
			return ErrInvalidSignature
		}
		mk, err := s.senderMessageKey(sk, skm.Iteration)
		if err != nil {
			return err
		}
		plaintext, err = crypto.DecryptWithKey(mk, skm.Ciphertext, nil)
		if err != nil {
			return fmt.Errorf("signal: error decrypting sender key message: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return plaintext, nil
}

// senderMessageKey returns the message key for iteration, moving the chain forward and keeping keys for the
// iterations it passes over.
func (s *Store) senderMessageKey(sk *senderKey, iteration uint32) ([]byte, error) {
	if iteration < sk.Iteration {
		mk, ok, err := s.db.takeSkippedSenderKey(sk, iteration)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: iteration %d, chain at %d", ErrOldCounter, iteration, sk.Iteration)
		}
		return mk, nil
	}
	if uint(iteration-sk.Iteration) > s.config.MaxSkip {
		return nil, fmt.Errorf("%w: iteration %d, chain at %d", ErrTooFarAhead, iteration, sk.Iteration)
	}

	ck := sk.ChainKey
	for i := sk.Iteration; i < iteration; i++ {
		mk, next := crypto.ChainStep(ck)
		if err := s.db.insertSkippedSenderKey(sk, i, mk); err != nil {
			return nil, err
		}
		ck = next
	}
	mk, next := crypto.ChainStep(ck)
	sk.Iteration = iteration + 1
	sk.ChainKey = next
	if err := s.db.updateSenderKeyChain(sk); err != nil {
		return nil, err
	}
	return mk, nil
}

// ProcessSenderKeyDistribution stores the sender key author announced for the distribution's group.
func (s *Store) ProcessSenderKeyDistribution(ctx context.Context, author string, skdm *waproto.SenderKeyDistribution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if skdm == nil || skdm.GroupID == "" {
		return fmt.Errorf("%w: sender key distribution without group", ErrInvalidMessage)
	}
	sender, err := signalAddress(author)
	if err != nil {
		return err
	}
	body, err := waproto.UnmarshalSenderKeyDistributionBody(skdm.AxolotlSenderKeyDistributionMessage)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return s.db.Run(fmt.Sprintf("sender key %s from %s", skdm.GroupID, sender), func() error {
		inserted, err := s.db.insertSenderKey(&senderKey{
			GroupID:    skdm.GroupID,
			Author:     sender,
			KeyID:      body.KeyID,
			Iteration:  body.Iteration,
			ChainKey:   body.ChainKey,
			SigningKey: body.SigningKey,
			CtimeMs:    s.clock.CurrentTimeMs(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			s.log.Debugf("sender key %d for %s in %s already known", body.KeyID, sender, skdm.GroupID)
		}
		return nil
	})
}
