// Package waproto decodes the application-level message carried inside a decrypted payload.
//
// The message is a closed union of content kinds. A decoded Message holds one Content per kind present on the
// wire; several may be present at once (a sender-key distribution next to the text it accompanies, for example).
// Encoding follows the protobuf wire format, field numbers matching the protocol's message definition.
package waproto

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"google.golang.org/protobuf/encoding/protowire"
)

// Content is one variant of the message union.
type Content interface {
	Kind() Kind
	marshal() []byte
}

type Message struct {
	parts map[Kind]Content
}

func NewMessage(parts ...Content) *Message {
	m := &Message{parts: make(map[Kind]Content, len(parts))}
	for _, p := range parts {
		m.Set(p)
	}
	return m
}

func (m *Message) Set(c Content) {
	if m.parts == nil {
		m.parts = make(map[Kind]Content)
	}
	m.parts[c.Kind()] = c
}

func (m *Message) Get(k Kind) (Content, bool) {
	if m == nil {
		return nil, false
	}
	c, ok := m.parts[k]
	return c, ok
}

func (m *Message) Has(k Kind) bool {
	_, ok := m.Get(k)
	return ok
}

func (m *Message) Delete(k Kind) {
	delete(m.parts, k)
}

func (m *Message) Len() int {
	if m == nil {
		return 0
	}
	return len(m.parts)
}

// Kinds lists the kinds present in wire order.
func (m *Message) Kinds() []Kind {
	if m == nil {
		return nil
	}
	ks := maps.Keys(m.parts)
	slices.Sort(ks)
	return ks
}

// Kind returns the primary content kind, skipping control parts. KindUnknown when there is no content.
func (m *Message) Kind() Kind {
	for _, k := range m.Kinds() {
		if !k.control() {
			return k
		}
	}
	return KindUnknown
}

// Merge copies every part of o into m, replacing parts of the same kind.
func (m *Message) Merge(o *Message) {
	if o == nil {
		return
	}
	for _, c := range o.parts {
		m.Set(c)
	}
}

// Unwrap returns the message a device-sent wrapper carries, or m itself.
func (m *Message) Unwrap() *Message {
	if c, ok := m.Get(KindDeviceSent); ok {
		if ds := c.(*DeviceSent); ds.Message != nil {
			return ds.Message
		}
	}
	return m
}

func (m *Message) SenderKeyDistribution() *SenderKeyDistribution {
	if c, ok := m.Get(KindSenderKeyDistribution); ok {
		return c.(*SenderKeyDistribution)
	}
	return nil
}

// Text returns the plain text body of a text, extended text or captioned media message.
func (m *Message) Text() string {
	for _, k := range m.Kinds() {
		switch c := m.parts[k].(type) {
		case Text:
			return string(c)
		case *ExtendedText:
			return c.Text
		case *Media:
			if c.Caption != "" {
				return c.Caption
			}
		case *FutureProof:
			if t := c.Message.Text(); t != "" {
				return t
			}
		}
	}
	return ""
}

func Unmarshal(b []byte) (*Message, error) {
	return unmarshalMessage(b, 0)
}

func unmarshalMessage(b []byte, depth int) (*Message, error) {
	if depth > maxDepth {
		return nil, newDecodeError("message nested deeper than %d", maxDepth)
	}
	m := &Message{parts: make(map[Kind]Content)}
	err := eachField(b, func(f field) error {
		k, ok := kindsByField[f.num]
		if !ok {
			return nil
		}
		if err := f.want(protowire.BytesType); err != nil {
			return err
		}
		c, err := decoder(k)(k, f.bytes, depth)
		if err != nil {
			return err
		}
		m.parts[k] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func Marshal(m *Message) []byte {
	var e encoder
	for _, k := range m.Kinds() {
		e.embedded(k.fieldNumber(), m.parts[k].marshal())
	}
	return e
}
