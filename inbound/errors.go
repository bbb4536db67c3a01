package inbound

import (
	"errors"
	"fmt"

	"github.com/meow-io/go-stanza/node"
)

var (
	ErrMalformedStanza = errors.New("inbound: malformed stanza")

	ErrRecipientNotFromMe = errors.New("recipient present, but msg not from me")
	ErrNoParticipant      = errors.New("no participant in group message")
	ErrUnknownSource      = errors.New("unknown message type")

	// ErrBadAttribute is for callers rejecting a stanza whose attributes fail to parse before it gets here.
	ErrBadAttribute = errors.New("invalid stanza attribute")
)

// MalformedStanzaError rejects a whole stanza. It carries the stanza for diagnostics and matches
// ErrMalformedStanza as well as its reason.
type MalformedStanzaError struct {
	Reason error
	Stanza *node.Node
}

func (e *MalformedStanzaError) Error() string {
	return fmt.Sprintf("inbound: malformed stanza %s from %s: %v", e.Stanza.AttrString("id"), e.Stanza.AttrString("from"), e.Reason)
}

func (e *MalformedStanzaError) Unwrap() error {
	return e.Reason
}

func (e *MalformedStanzaError) Is(target error) bool {
	return target == ErrMalformedStanza
}

func malformed(stanza *node.Node, reason error) error {
	return &MalformedStanzaError{Reason: reason, Stanza: stanza}
}
