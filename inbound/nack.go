package inbound

import (
	"errors"

	"github.com/meow-io/go-stanza/signal"
	"github.com/meow-io/go-stanza/waproto"
)

// NackCode is the reason sent back to the server when a stanza is rejected.
type NackCode int

const (
	NackParsingError                 NackCode = 487
	NackUnrecognizedStanza           NackCode = 488
	NackUnrecognizedStanzaClass      NackCode = 489
	NackUnrecognizedStanzaType       NackCode = 490
	NackInvalidProtobuf              NackCode = 491
	NackInvalidHostedCompanionStanza NackCode = 493
	NackMissingMessageSecret         NackCode = 495
	NackSignalErrorOldCounter        NackCode = 496
	NackMessageDeletedOnPeer         NackCode = 499
	NackUnhandledError               NackCode = 500
	NackUnsupportedAdminRevoke       NackCode = 550
	NackUnsupportedLIDGroup          NackCode = 551
	NackDBOperationFailed            NackCode = 552
)

// NackCodeFor picks the rejection reason for an error returned while processing a stanza.
func NackCodeFor(err error) NackCode {
	var decodeErr *waproto.DecodeError
	switch {
	case errors.Is(err, ErrBadAttribute):
		return NackParsingError
	case errors.Is(err, ErrUnknownSource):
		return NackUnrecognizedStanza
	case errors.Is(err, ErrNoParticipant), errors.Is(err, ErrRecipientNotFromMe):
		return NackUnrecognizedStanzaClass
	case errors.As(err, &decodeErr):
		return NackInvalidProtobuf
	case errors.Is(err, signal.ErrOldCounter):
		return NackSignalErrorOldCounter
	case errors.Is(err, signal.ErrMissingPreKey):
		return NackMissingMessageSecret
	}
	return NackUnhandledError
}
