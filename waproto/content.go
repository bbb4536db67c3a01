package waproto

import "google.golang.org/protobuf/encoding/protowire"

type Text string

func (t Text) Kind() Kind { return KindText }

func (t Text) marshal() []byte { return []byte(t) }

func decodeText(_ Kind, b []byte, _ int) (Content, error) {
	return Text(b), nil
}

// MessageKeyRef points at another message, e.g. the target of a reaction or a revoke.
type MessageKeyRef struct {
	RemoteJID   string
	FromMe      bool
	ID          string
	Participant string
}

func (k *MessageKeyRef) marshal() []byte {
	var e encoder
	e.string(1, k.RemoteJID)
	e.bool(2, k.FromMe)
	e.string(3, k.ID)
	e.string(4, k.Participant)
	return e
}

func (k *MessageKeyRef) unmarshal(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&k.RemoteJID)
		case 2:
			return f.bool(&k.FromMe)
		case 3:
			return f.string(&k.ID)
		case 4:
			return f.string(&k.Participant)
		}
		return nil
	})
}

func decodeKeyRef(f field, dst **MessageKeyRef) error {
	if err := f.want(protowire.BytesType); err != nil {
		return err
	}
	k := &MessageKeyRef{}
	if err := k.unmarshal(f.bytes); err != nil {
		return err
	}
	*dst = k
	return nil
}

func decodeNested(f field, depth int, dst **Message) error {
	if err := f.want(protowire.BytesType); err != nil {
		return err
	}
	m, err := unmarshalMessage(f.bytes, depth+1)
	if err != nil {
		return err
	}
	*dst = m
	return nil
}

type ExtendedText struct {
	Text        string
	MatchedText string
	Description string
	Title       string
}

func (c *ExtendedText) Kind() Kind { return KindExtendedText }

func (c *ExtendedText) marshal() []byte {
	var e encoder
	e.string(1, c.Text)
	e.string(2, c.MatchedText)
	e.string(5, c.Description)
	e.string(6, c.Title)
	return e
}

func decodeExtendedText(_ Kind, b []byte, _ int) (Content, error) {
	c := &ExtendedText{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.Text)
		case 2:
			return f.string(&c.MatchedText)
		case 5:
			return f.string(&c.Description)
		case 6:
			return f.string(&c.Title)
		}
		return nil
	})
}

// mediaLayout holds the field numbers of the shared media attributes, which differ per media kind. Zero means
// the kind has no such field.
type mediaLayout struct {
	url, mimetype, caption, fileName, sha256, length, seconds, mediaKey, directPath protowire.Number
}

var mediaLayouts = map[Kind]mediaLayout{
	KindImage:    {url: 1, mimetype: 2, caption: 3, sha256: 4, length: 5, mediaKey: 8, directPath: 11},
	KindVideo:    {url: 1, mimetype: 2, sha256: 3, length: 4, seconds: 5, mediaKey: 6, caption: 7, directPath: 13},
	KindPTV:      {url: 1, mimetype: 2, sha256: 3, length: 4, seconds: 5, mediaKey: 6, caption: 7, directPath: 13},
	KindAudio:    {url: 1, mimetype: 2, sha256: 3, length: 4, seconds: 5, mediaKey: 7, directPath: 9},
	KindDocument: {url: 1, mimetype: 2, sha256: 4, length: 5, mediaKey: 7, fileName: 8, directPath: 10, caption: 20},
	KindSticker:  {url: 1, sha256: 2, mediaKey: 4, mimetype: 5, directPath: 8, length: 9},
}

// Media covers image, video, ptv, audio, document and sticker messages.
type Media struct {
	MediaKind  Kind
	URL        string
	Mimetype   string
	Caption    string
	FileName   string
	FileSHA256 []byte
	FileLength uint64
	Seconds    uint32
	MediaKey   []byte
	DirectPath string
}

func (c *Media) Kind() Kind { return c.MediaKind }

func (c *Media) marshal() []byte {
	l := mediaLayouts[c.MediaKind]
	var e encoder
	e.string(l.url, c.URL)
	e.string(l.mimetype, c.Mimetype)
	if l.caption != 0 {
		e.string(l.caption, c.Caption)
	}
	if l.fileName != 0 {
		e.string(l.fileName, c.FileName)
	}
	e.bytes(l.sha256, c.FileSHA256)
	e.uint64(l.length, c.FileLength)
	if l.seconds != 0 {
		e.uint64(l.seconds, uint64(c.Seconds))
	}
	e.bytes(l.mediaKey, c.MediaKey)
	e.string(l.directPath, c.DirectPath)
	return e
}

func decodeMedia(k Kind, b []byte, _ int) (Content, error) {
	l := mediaLayouts[k]
	c := &Media{MediaKind: k}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 0:
			return nil
		case l.url:
			return f.string(&c.URL)
		case l.mimetype:
			return f.string(&c.Mimetype)
		case l.caption:
			return f.string(&c.Caption)
		case l.fileName:
			return f.string(&c.FileName)
		case l.sha256:
			return f.bytesTo(&c.FileSHA256)
		case l.length:
			return f.uint64(&c.FileLength)
		case l.seconds:
			return f.uint32(&c.Seconds)
		case l.mediaKey:
			return f.bytesTo(&c.MediaKey)
		case l.directPath:
			return f.string(&c.DirectPath)
		}
		return nil
	})
}

type Contact struct {
	DisplayName string
	VCard       string
}

func (c *Contact) Kind() Kind { return KindContact }

func (c *Contact) marshal() []byte {
	var e encoder
	e.string(1, c.DisplayName)
	e.string(16, c.VCard)
	return e
}

func (c *Contact) unmarshal(b []byte) error {
	return eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.DisplayName)
		case 16:
			return f.string(&c.VCard)
		}
		return nil
	})
}

func decodeContact(_ Kind, b []byte, _ int) (Content, error) {
	c := &Contact{}
	return c, c.unmarshal(b)
}

type ContactsArray struct {
	DisplayName string
	Contacts    []*Contact
}

func (c *ContactsArray) Kind() Kind { return KindContactsArray }

func (c *ContactsArray) marshal() []byte {
	var e encoder
	e.string(1, c.DisplayName)
	for _, ct := range c.Contacts {
		e.embedded(2, ct.marshal())
	}
	return e
}

func decodeContactsArray(_ Kind, b []byte, _ int) (Content, error) {
	c := &ContactsArray{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.DisplayName)
		case 2:
			if err := f.want(protowire.BytesType); err != nil {
				return err
			}
			ct := &Contact{}
			if err := ct.unmarshal(f.bytes); err != nil {
				return err
			}
			c.Contacts = append(c.Contacts, ct)
		}
		return nil
	})
}

// Location is a static location, or a live one when Live is set.
type Location struct {
	Live           bool
	Latitude       float64
	Longitude      float64
	Name           string
	Address        string
	Caption        string
	SequenceNumber int64
}

func (c *Location) Kind() Kind {
	if c.Live {
		return KindLiveLocation
	}
	return KindLocation
}

func (c *Location) marshal() []byte {
	var e encoder
	e.double(1, c.Latitude)
	e.double(2, c.Longitude)
	if c.Live {
		e.string(6, c.Caption)
		e.uint64(7, uint64(c.SequenceNumber))
	} else {
		e.string(3, c.Name)
		e.string(4, c.Address)
	}
	return e
}

func decodeLocation(k Kind, b []byte, _ int) (Content, error) {
	c := &Location{Live: k == KindLiveLocation}
	return c, eachField(b, func(f field) error {
		switch {
		case f.num == 1:
			return f.double(&c.Latitude)
		case f.num == 2:
			return f.double(&c.Longitude)
		case f.num == 3 && !c.Live:
			return f.string(&c.Name)
		case f.num == 4 && !c.Live:
			return f.string(&c.Address)
		case f.num == 6 && c.Live:
			return f.string(&c.Caption)
		case f.num == 7 && c.Live:
			return f.int64(&c.SequenceNumber)
		}
		return nil
	})
}

type Reaction struct {
	Key               *MessageKeyRef
	Text              string
	GroupingKey       string
	SenderTimestampMs int64
}

func (c *Reaction) Kind() Kind { return KindReaction }

func (c *Reaction) marshal() []byte {
	var e encoder
	if c.Key != nil {
		e.embedded(1, c.Key.marshal())
	}
	e.string(2, c.Text)
	e.string(3, c.GroupingKey)
	e.uint64(4, uint64(c.SenderTimestampMs))
	return e
}

func decodeReaction(_ Kind, b []byte, _ int) (Content, error) {
	c := &Reaction{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return decodeKeyRef(f, &c.Key)
		case 2:
			return f.string(&c.Text)
		case 3:
			return f.string(&c.GroupingKey)
		case 4:
			return f.int64(&c.SenderTimestampMs)
		}
		return nil
	})
}

// Poll is a poll creation in any of its three revisions.
type Poll struct {
	PollKind               Kind
	EncKey                 []byte
	Name                   string
	Options                []string
	SelectableOptionsCount uint32
}

func (c *Poll) Kind() Kind { return c.PollKind }

func (c *Poll) marshal() []byte {
	var e encoder
	e.bytes(1, c.EncKey)
	e.string(2, c.Name)
	for _, o := range c.Options {
		var opt encoder
		opt.string(1, o)
		e.embedded(3, opt)
	}
	e.uint64(4, uint64(c.SelectableOptionsCount))
	return e
}

func decodePoll(k Kind, b []byte, _ int) (Content, error) {
	c := &Poll{PollKind: k}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.bytesTo(&c.EncKey)
		case 2:
			return f.string(&c.Name)
		case 3:
			if err := f.want(protowire.BytesType); err != nil {
				return err
			}
			var name string
			if err := eachField(f.bytes, func(o field) error {
				if o.num == 1 {
					return o.string(&name)
				}
				return nil
			}); err != nil {
				return err
			}
			c.Options = append(c.Options, name)
		case 4:
			return f.uint32(&c.SelectableOptionsCount)
		}
		return nil
	})
}

// PollUpdate carries an encrypted vote; decrypting it needs the poll's secret and is left to the caller.
type PollUpdate struct {
	PollCreationKey   *MessageKeyRef
	EncPayload        []byte
	EncIV             []byte
	SenderTimestampMs int64
}

func (c *PollUpdate) Kind() Kind { return KindPollUpdate }

func (c *PollUpdate) marshal() []byte {
	var e encoder
	if c.PollCreationKey != nil {
		e.embedded(1, c.PollCreationKey.marshal())
	}
	var vote encoder
	vote.bytes(1, c.EncPayload)
	vote.bytes(2, c.EncIV)
	e.bytes(2, vote)
	e.uint64(4, uint64(c.SenderTimestampMs))
	return e
}

func decodePollUpdate(_ Kind, b []byte, _ int) (Content, error) {
	c := &PollUpdate{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return decodeKeyRef(f, &c.PollCreationKey)
		case 2:
			if err := f.want(protowire.BytesType); err != nil {
				return err
			}
			return eachField(f.bytes, func(v field) error {
				switch v.num {
				case 1:
					return v.bytesTo(&c.EncPayload)
				case 2:
					return v.bytesTo(&c.EncIV)
				}
				return nil
			})
		case 4:
			return f.int64(&c.SenderTimestampMs)
		}
		return nil
	})
}

type GroupInvite struct {
	GroupJID         string
	InviteCode       string
	InviteExpiration int64
	GroupName        string
	Caption          string
}

func (c *GroupInvite) Kind() Kind { return KindGroupInvite }

func (c *GroupInvite) marshal() []byte {
	var e encoder
	e.string(1, c.GroupJID)
	e.string(2, c.InviteCode)
	e.uint64(3, uint64(c.InviteExpiration))
	e.string(4, c.GroupName)
	e.string(7, c.Caption)
	return e
}

func decodeGroupInvite(_ Kind, b []byte, _ int) (Content, error) {
	c := &GroupInvite{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.GroupJID)
		case 2:
			return f.string(&c.InviteCode)
		case 3:
			return f.int64(&c.InviteExpiration)
		case 4:
			return f.string(&c.GroupName)
		case 7:
			return f.string(&c.Caption)
		}
		return nil
	})
}

type ButtonsResponse struct {
	SelectedButtonID    string
	SelectedDisplayText string
}

func (c *ButtonsResponse) Kind() Kind { return KindButtonsResponse }

func (c *ButtonsResponse) marshal() []byte {
	var e encoder
	e.string(1, c.SelectedButtonID)
	e.string(2, c.SelectedDisplayText)
	return e
}

func decodeButtonsResponse(_ Kind, b []byte, _ int) (Content, error) {
	c := &ButtonsResponse{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.SelectedButtonID)
		case 2:
			return f.string(&c.SelectedDisplayText)
		}
		return nil
	})
}

type TemplateButtonReply struct {
	SelectedID          string
	SelectedDisplayText string
	SelectedIndex       uint32
}

func (c *TemplateButtonReply) Kind() Kind { return KindTemplateButtonReply }

func (c *TemplateButtonReply) marshal() []byte {
	var e encoder
	e.string(1, c.SelectedID)
	e.string(2, c.SelectedDisplayText)
	e.uint64(4, uint64(c.SelectedIndex))
	return e
}

func decodeTemplateButtonReply(_ Kind, b []byte, _ int) (Content, error) {
	c := &TemplateButtonReply{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.SelectedID)
		case 2:
			return f.string(&c.SelectedDisplayText)
		case 4:
			return f.uint32(&c.SelectedIndex)
		}
		return nil
	})
}

type ListResponse struct {
	Title         string
	SelectedRowID string
	Description   string
}

func (c *ListResponse) Kind() Kind { return KindListResponse }

func (c *ListResponse) marshal() []byte {
	var e encoder
	e.string(1, c.Title)
	e.uint64(2, 1) // SINGLE_SELECT
	var reply encoder
	reply.string(1, c.SelectedRowID)
	e.embedded(3, reply)
	e.string(5, c.Description)
	return e
}

func decodeListResponse(_ Kind, b []byte, _ int) (Content, error) {
	c := &ListResponse{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.Title)
		case 3:
			if err := f.want(protowire.BytesType); err != nil {
				return err
			}
			return eachField(f.bytes, func(r field) error {
				if r.num == 1 {
					return r.string(&c.SelectedRowID)
				}
				return nil
			})
		case 5:
			return f.string(&c.Description)
		}
		return nil
	})
}

type Order struct {
	OrderID           string
	ItemCount         uint32
	Status            uint32
	Message           string
	OrderTitle        string
	SellerJID         string
	Token             string
	TotalAmount1000   int64
	TotalCurrencyCode string
}

func (c *Order) Kind() Kind { return KindOrder }

func (c *Order) marshal() []byte {
	var e encoder
	e.string(1, c.OrderID)
	e.uint64(3, uint64(c.ItemCount))
	e.uint64(4, uint64(c.Status))
	e.string(6, c.Message)
	e.string(7, c.OrderTitle)
	e.string(8, c.SellerJID)
	e.string(9, c.Token)
	e.uint64(10, uint64(c.TotalAmount1000))
	e.string(11, c.TotalCurrencyCode)
	return e
}

func decodeOrder(_ Kind, b []byte, _ int) (Content, error) {
	c := &Order{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.OrderID)
		case 3:
			return f.uint32(&c.ItemCount)
		case 4:
			return f.uint32(&c.Status)
		case 6:
			return f.string(&c.Message)
		case 7:
			return f.string(&c.OrderTitle)
		case 8:
			return f.string(&c.SellerJID)
		case 9:
			return f.string(&c.Token)
		case 10:
			return f.int64(&c.TotalAmount1000)
		case 11:
			return f.string(&c.TotalCurrencyCode)
		}
		return nil
	})
}

// Payment is either a sent payment or a payment request, told apart by PaymentKind.
type Payment struct {
	PaymentKind       Kind
	Note              *Message
	RequestMessageKey *MessageKeyRef
	CurrencyCode      string
	Amount1000        uint64
	RequestFrom       string
}

func (c *Payment) Kind() Kind { return c.PaymentKind }

func (c *Payment) marshal() []byte {
	var e encoder
	if c.PaymentKind == KindSendPayment {
		if c.Note != nil {
			e.embedded(2, Marshal(c.Note))
		}
		if c.RequestMessageKey != nil {
			e.embedded(3, c.RequestMessageKey.marshal())
		}
		return e
	}
	e.string(1, c.CurrencyCode)
	e.uint64(2, c.Amount1000)
	e.string(3, c.RequestFrom)
	if c.Note != nil {
		e.embedded(4, Marshal(c.Note))
	}
	return e
}

func decodePayment(k Kind, b []byte, depth int) (Content, error) {
	c := &Payment{PaymentKind: k}
	send := k == KindSendPayment
	return c, eachField(b, func(f field) error {
		switch {
		case send && f.num == 2, !send && f.num == 4:
			return decodeNested(f, depth, &c.Note)
		case send && f.num == 3:
			return decodeKeyRef(f, &c.RequestMessageKey)
		case !send && f.num == 1:
			return f.string(&c.CurrencyCode)
		case !send && f.num == 2:
			return f.uint64(&c.Amount1000)
		case !send && f.num == 3:
			return f.string(&c.RequestFrom)
		}
		return nil
	})
}

type Event struct {
	IsCanceled  bool
	Name        string
	Description string
	JoinLink    string
	StartTime   int64
}

func (c *Event) Kind() Kind { return KindEvent }

func (c *Event) marshal() []byte {
	var e encoder
	e.bool(2, c.IsCanceled)
	e.string(3, c.Name)
	e.string(4, c.Description)
	e.string(6, c.JoinLink)
	e.uint64(7, uint64(c.StartTime))
	return e
}

func decodeEvent(_ Kind, b []byte, _ int) (Content, error) {
	c := &Event{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 2:
			return f.bool(&c.IsCanceled)
		case 3:
			return f.string(&c.Name)
		case 4:
			return f.string(&c.Description)
		case 6:
			return f.string(&c.JoinLink)
		case 7:
			return f.int64(&c.StartTime)
		}
		return nil
	})
}

type ProtocolType uint32

const (
	ProtocolRevoke                  ProtocolType = 0
	ProtocolEphemeralSetting        ProtocolType = 3
	ProtocolHistorySyncNotification ProtocolType = 5
	ProtocolAppStateSyncKeyShare    ProtocolType = 6
	ProtocolMessageEdit             ProtocolType = 14
)

// Protocol carries control events: deletion markers (revoke), edits, disappearing-message settings.
type Protocol struct {
	Key                 *MessageKeyRef
	Type                ProtocolType
	EphemeralExpiration uint32
	EditedMessage       *Message
}

func (c *Protocol) Kind() Kind { return KindProtocol }

func (c *Protocol) marshal() []byte {
	var e encoder
	if c.Key != nil {
		e.embedded(1, c.Key.marshal())
	}
	// REVOKE is the zero value yet must stay on the wire
	e.enum(2, uint64(c.Type))
	e.uint64(4, uint64(c.EphemeralExpiration))
	if c.EditedMessage != nil {
		e.embedded(14, Marshal(c.EditedMessage))
	}
	return e
}

func decodeProtocol(_ Kind, b []byte, depth int) (Content, error) {
	c := &Protocol{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return decodeKeyRef(f, &c.Key)
		case 2:
			var t uint32
			if err := f.uint32(&t); err != nil {
				return err
			}
			c.Type = ProtocolType(t)
		case 4:
			return f.uint32(&c.EphemeralExpiration)
		case 14:
			return decodeNested(f, depth, &c.EditedMessage)
		}
		return nil
	})
}

func (c *Protocol) IsRevoke() bool {
	return c.Type == ProtocolRevoke && c.Key != nil
}

type Call struct {
	CallKey []byte
}

func (c *Call) Kind() Kind { return KindCall }

func (c *Call) marshal() []byte {
	var e encoder
	e.bytes(1, c.CallKey)
	return e
}

func decodeCall(_ Kind, b []byte, _ int) (Content, error) {
	c := &Call{}
	return c, eachField(b, func(f field) error {
		if f.num == 1 {
			return f.bytesTo(&c.CallKey)
		}
		return nil
	})
}

type KeepInChat struct {
	Key         *MessageKeyRef
	KeepType    uint32
	TimestampMs int64
}

func (c *KeepInChat) Kind() Kind { return KindKeepInChat }

func (c *KeepInChat) marshal() []byte {
	var e encoder
	if c.Key != nil {
		e.embedded(1, c.Key.marshal())
	}
	e.uint64(2, uint64(c.KeepType))
	e.uint64(3, uint64(c.TimestampMs))
	return e
}

func decodeKeepInChat(_ Kind, b []byte, _ int) (Content, error) {
	c := &KeepInChat{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return decodeKeyRef(f, &c.Key)
		case 2:
			return f.uint32(&c.KeepType)
		case 3:
			return f.int64(&c.TimestampMs)
		}
		return nil
	})
}

type PinInChat struct {
	Key               *MessageKeyRef
	Type              uint32
	SenderTimestampMs int64
}

func (c *PinInChat) Kind() Kind { return KindPinInChat }

func (c *PinInChat) marshal() []byte {
	var e encoder
	if c.Key != nil {
		e.embedded(1, c.Key.marshal())
	}
	e.uint64(2, uint64(c.Type))
	e.uint64(3, uint64(c.SenderTimestampMs))
	return e
}

func decodePinInChat(_ Kind, b []byte, _ int) (Content, error) {
	c := &PinInChat{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return decodeKeyRef(f, &c.Key)
		case 2:
			return f.uint32(&c.Type)
		case 3:
			return f.int64(&c.SenderTimestampMs)
		}
		return nil
	})
}

// FutureProof wraps a whole message: view-once, ephemeral, edited and document-with-caption envelopes.
type FutureProof struct {
	WrapperKind Kind
	Message     *Message
}

func (c *FutureProof) Kind() Kind { return c.WrapperKind }

func (c *FutureProof) marshal() []byte {
	var e encoder
	if c.Message != nil {
		e.embedded(1, Marshal(c.Message))
	}
	return e
}

func decodeFutureProof(k Kind, b []byte, depth int) (Content, error) {
	c := &FutureProof{WrapperKind: k}
	return c, eachField(b, func(f field) error {
		if f.num == 1 {
			return decodeNested(f, depth, &c.Message)
		}
		return nil
	})
}

// DeviceSent is how a message authored on another of the local user's devices reaches this one.
type DeviceSent struct {
	DestinationJID string
	Message        *Message
	Phash          string
}

func (c *DeviceSent) Kind() Kind { return KindDeviceSent }

func (c *DeviceSent) marshal() []byte {
	var e encoder
	e.string(1, c.DestinationJID)
	if c.Message != nil {
		e.embedded(2, Marshal(c.Message))
	}
	e.string(3, c.Phash)
	return e
}

func decodeDeviceSent(_ Kind, b []byte, depth int) (Content, error) {
	c := &DeviceSent{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.DestinationJID)
		case 2:
			return decodeNested(f, depth, &c.Message)
		case 3:
			return f.string(&c.Phash)
		}
		return nil
	})
}

// SenderKeyDistribution bootstraps a group session: the opaque distribution payload is handed to the session store.
type SenderKeyDistribution struct {
	GroupID                             string
	AxolotlSenderKeyDistributionMessage []byte
}

func (c *SenderKeyDistribution) Kind() Kind { return KindSenderKeyDistribution }

func (c *SenderKeyDistribution) marshal() []byte {
	var e encoder
	e.string(1, c.GroupID)
	e.bytes(2, c.AxolotlSenderKeyDistributionMessage)
	return e
}

func decodeSenderKeyDistribution(_ Kind, b []byte, _ int) (Content, error) {
	c := &SenderKeyDistribution{}
	return c, eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.string(&c.GroupID)
		case 2:
			return f.bytesTo(&c.AxolotlSenderKeyDistributionMessage)
		}
		return nil
	})
}
