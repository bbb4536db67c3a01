package waproto

import "google.golang.org/protobuf/encoding/protowire"

// Kind tags one variant of the application message union. Kinds are declared in field number order.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindSenderKeyDistribution
	KindImage
	KindContact
	KindLocation
	KindExtendedText
	KindDocument
	KindAudio
	KindVideo
	KindCall
	KindProtocol
	KindContactsArray
	KindSendPayment
	KindLiveLocation
	KindRequestPayment
	KindSticker
	KindGroupInvite
	KindTemplateButtonReply
	KindDeviceSent
	KindViewOnce
	KindOrder
	KindListResponse
	KindEphemeral
	KindButtonsResponse
	KindReaction
	KindPollCreation
	KindPollUpdate
	KindKeepInChat
	KindDocumentWithCaption
	KindViewOnceV2
	KindEdited
	KindViewOnceV2Extension
	KindPollCreationV2
	KindPinInChat
	KindPollCreationV3
	KindPTV
	KindEvent
)

type kindInfo struct {
	name string
	num  protowire.Number
}

var kinds = map[Kind]kindInfo{
	KindText:                  {"conversation", 1},
	KindSenderKeyDistribution: {"senderKeyDistributionMessage", 2},
	KindImage:                 {"imageMessage", 3},
	KindContact:               {"contactMessage", 4},
	KindLocation:              {"locationMessage", 5},
	KindExtendedText:          {"extendedTextMessage", 6},
	KindDocument:              {"documentMessage", 7},
	KindAudio:                 {"audioMessage", 8},
	KindVideo:                 {"videoMessage", 9},
	KindCall:                  {"call", 10},
	KindProtocol:              {"protocolMessage", 12},
	KindContactsArray:         {"contactsArrayMessage", 13},
	KindSendPayment:           {"sendPaymentMessage", 16},
	KindLiveLocation:          {"liveLocationMessage", 18},
	KindRequestPayment:        {"requestPaymentMessage", 22},
	KindSticker:               {"stickerMessage", 26},
	KindGroupInvite:           {"groupInviteMessage", 28},
	KindTemplateButtonReply:   {"templateButtonReplyMessage", 29},
	KindDeviceSent:            {"deviceSentMessage", 31},
	KindViewOnce:              {"viewOnceMessage", 37},
	KindOrder:                 {"orderMessage", 38},
	KindListResponse:          {"listResponseMessage", 39},
	KindEphemeral:             {"ephemeralMessage", 40},
	KindButtonsResponse:       {"buttonsResponseMessage", 43},
	KindReaction:              {"reactionMessage", 46},
	KindPollCreation:          {"pollCreationMessage", 49},
	KindPollUpdate:            {"pollUpdateMessage", 50},
	KindKeepInChat:            {"keepInChatMessage", 51},
	KindDocumentWithCaption:   {"documentWithCaptionMessage", 53},
	KindViewOnceV2:            {"viewOnceMessageV2", 55},
	KindEdited:                {"editedMessage", 58},
	KindViewOnceV2Extension:   {"viewOnceMessageV2Extension", 59},
	KindPollCreationV2:        {"pollCreationMessageV2", 60},
	KindPinInChat:             {"pinInChatMessage", 63},
	KindPollCreationV3:        {"pollCreationMessageV3", 64},
	KindPTV:                   {"ptvMessage", 66},
	KindEvent:                 {"eventMessage", 75},
}

var kindsByField = func() map[protowire.Number]Kind {
	m := make(map[protowire.Number]Kind, len(kinds))
	for k, info := range kinds {
		m[info.num] = k
	}
	return m
}()

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "unknown"
}

func (k Kind) fieldNumber() protowire.Number {
	return kinds[k].num
}

type decodeFunc func(k Kind, b []byte, depth int) (Content, error)

func decoder(k Kind) decodeFunc {
	switch k {
	case KindText:
		return decodeText
	case KindSenderKeyDistribution:
		return decodeSenderKeyDistribution
	case KindImage, KindDocument, KindAudio, KindVideo, KindSticker, KindPTV:
		return decodeMedia
	case KindContact:
		return decodeContact
	case KindLocation, KindLiveLocation:
		return decodeLocation
	case KindExtendedText:
		return decodeExtendedText
	case KindCall:
		return decodeCall
	case KindProtocol:
		return decodeProtocol
	case KindContactsArray:
		return decodeContactsArray
	case KindSendPayment, KindRequestPayment:
		return decodePayment
	case KindGroupInvite:
		return decodeGroupInvite
	case KindTemplateButtonReply:
		return decodeTemplateButtonReply
	case KindDeviceSent:
		return decodeDeviceSent
	case KindViewOnce, KindEphemeral, KindDocumentWithCaption, KindViewOnceV2, KindEdited, KindViewOnceV2Extension:
		return decodeFutureProof
	case KindOrder:
		return decodeOrder
	case KindListResponse:
		return decodeListResponse
	case KindButtonsResponse:
		return decodeButtonsResponse
	case KindReaction:
		return decodeReaction
	case KindPollCreation, KindPollCreationV2, KindPollCreationV3:
		return decodePoll
	case KindPollUpdate:
		return decodePollUpdate
	case KindKeepInChat:
		return decodeKeepInChat
	case KindPinInChat:
		return decodePinInChat
	case KindEvent:
		return decodeEvent
	}
	return nil
}

// control kinds travel alongside content but are not content themselves.
func (k Kind) control() bool {
	return k == KindSenderKeyDistribution
}
