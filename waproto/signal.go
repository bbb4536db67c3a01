package waproto

import "google.golang.org/protobuf/encoding/protowire"

// Session envelopes carry this version byte ahead of the encoded body.
const SignalVersion byte = 0x33

// WhisperMessage is a double-ratchet message inside an established session ("msg").
type WhisperMessage struct {
	RatchetKey      []byte
	Counter         uint32
	PreviousCounter uint32
	Ciphertext      []byte
}

// PreKeyWhisperMessage opens a session ("pkmsg"). PreKeyID is zero when no one-time prekey was used.
type PreKeyWhisperMessage struct {
	PreKeyID uint32
	BaseKey  []byte
	Message  *WhisperMessage
}

// SenderKeyMessage is a group message encrypted with the author's sender key ("skmsg").
type SenderKeyMessage struct {
	KeyID      uint32
	Iteration  uint32
	Ciphertext []byte
}

// SenderKeyDistributionBody is the payload of a sender-key distribution.
type SenderKeyDistributionBody struct {
	KeyID      uint32
	Iteration  uint32
	ChainKey   []byte
	SigningKey []byte
}

func stripVersion(b []byte) []byte {
	if len(b) > 0 && b[0] == SignalVersion {
		return b[1:]
	}
	return b
}

func withVersion(e encoder) []byte {
	return append([]byte{SignalVersion}, e...)
}

func (m *WhisperMessage) encode() encoder {
	var e encoder
	e.bytes(1, m.RatchetKey)
	e.uint64(2, uint64(m.Counter))
	e.uint64(3, uint64(m.PreviousCounter))
	e.bytes(4, m.Ciphertext)
	return e
}

func MarshalWhisper(m *WhisperMessage) []byte {
	return withVersion(m.encode())
}

func UnmarshalWhisper(b []byte) (*WhisperMessage, error) {
	m := &WhisperMessage{}
	err := eachField(stripVersion(b), func(f field) error {
		switch f.num {
		case 1:
			return f.bytesTo(&m.RatchetKey)
		case 2:
			return f.uint32(&m.Counter)
		case 3:
			return f.uint32(&m.PreviousCounter)
		case 4:
			return f.bytesTo(&m.Ciphertext)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func MarshalPreKeyWhisper(m *PreKeyWhisperMessage) []byte {
	var e encoder
	e.uint64(1, uint64(m.PreKeyID))
	e.bytes(2, m.BaseKey)
	if m.Message != nil {
		e.embedded(3, m.Message.encode())
	}
	return withVersion(e)
}

func UnmarshalPreKeyWhisper(b []byte) (*PreKeyWhisperMessage, error) {
	m := &PreKeyWhisperMessage{}
	err := eachField(stripVersion(b), func(f field) error {
		switch f.num {
		case 1:
			return f.uint32(&m.PreKeyID)
		case 2:
			return f.bytesTo(&m.BaseKey)
		case 3:
			if err := f.want(protowire.BytesType); err != nil {
				return err
			}
			w, err := UnmarshalWhisper(f.bytes)
			if err != nil {
				return err
			}
			m.Message = w
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m.Message == nil || len(m.BaseKey) == 0 {
		return nil, newDecodeError("prekey message missing base key or message")
	}
	return m, nil
}

func MarshalSenderKeyMessage(m *SenderKeyMessage) []byte {
	var e encoder
	e.uint64(1, uint64(m.KeyID))
	e.uint64(2, uint64(m.Iteration))
	e.bytes(3, m.Ciphertext)
	return withVersion(e)
}

func UnmarshalSenderKeyMessage(b []byte) (*SenderKeyMessage, error) {
	m := &SenderKeyMessage{}
	err := eachField(stripVersion(b), func(f field) error {
		switch f.num {
		case 1:
			return f.uint32(&m.KeyID)
		case 2:
			return f.uint32(&m.Iteration)
		case 3:
			return f.bytesTo(&m.Ciphertext)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func MarshalSenderKeyDistributionBody(m *SenderKeyDistributionBody) []byte {
	var e encoder
	e.uint64(1, uint64(m.KeyID))
	e.uint64(2, uint64(m.Iteration))
	e.bytes(3, m.ChainKey)
	e.bytes(4, m.SigningKey)
	return withVersion(e)
}

func UnmarshalSenderKeyDistributionBody(b []byte) (*SenderKeyDistributionBody, error) {
	m := &SenderKeyDistributionBody{}
	err := eachField(stripVersion(b), func(f field) error {
		switch f.num {
		case 1:
			return f.uint32(&m.KeyID)
		case 2:
			return f.uint32(&m.Iteration)
		case 3:
			return f.bytesTo(&m.ChainKey)
		case 4:
			return f.bytesTo(&m.SigningKey)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(m.ChainKey) != 32 || len(m.SigningKey) != 32 {
		return nil, newDecodeError("sender key distribution with chain key of %d bytes", len(m.ChainKey))
	}
	return m, nil
}
