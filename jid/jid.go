// Package jid parses protocol addresses (JIDs) and classifies them by shape.
//
// A JID has the form [user[.agent][:device]@]server. The server names what kind of entity is addressed:
// a phone-number user, a local identity (LID), a group, a broadcast list, a newsletter or an automated assistant.
package jid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultUserServer = "s.whatsapp.net"
	LegacyUserServer  = "c.us"
	LIDServer         = "lid"
	GroupServer       = "g.us"
	BroadcastServer   = "broadcast"
	NewsletterServer  = "newsletter"
	BotServer         = "bot"

	StatusBroadcast = "status@broadcast"
)

var ErrEmpty = errors.New("jid: empty address")

type JID struct {
	User   string
	Agent  uint8
	Device uint16
	Server string
}

func Parse(s string) (JID, error) {
	if s == "" {
		return JID{}, ErrEmpty
	}
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return JID{Server: s}, nil
	}
	j := JID{Server: s[at+1:]}
	user := s[:at]
	if colon := strings.IndexByte(user, ':'); colon >= 0 {
		device, err := strconv.ParseUint(user[colon+1:], 10, 16)
		if err != nil {
			return JID{}, fmt.Errorf("jid: invalid device in %q: %w", s, err)
		}
		j.Device = uint16(device)
		user = user[:colon]
	}
	if dot := strings.IndexByte(user, '.'); dot >= 0 && j.Server != GroupServer && j.Server != BroadcastServer {
		agent, err := strconv.ParseUint(user[dot+1:], 10, 8)
		if err != nil {
			return JID{}, fmt.Errorf("jid: invalid agent in %q: %w", s, err)
		}
		j.Agent = uint8(agent)
		user = user[:dot]
	}
	j.User = user
	return j, nil
}

func (j JID) String() string {
	if j.User == "" {
		return j.Server
	}
	var b strings.Builder
	b.WriteString(j.User)
	if j.Agent != 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(int(j.Agent)))
	}
	if j.Device != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(j.Device)))
	}
	b.WriteByte('@')
	b.WriteString(j.Server)
	return b.String()
}

// ToNonAD drops agent and device, yielding the address of the account rather than one of its devices.
func (j JID) ToNonAD() JID {
	return JID{User: j.User, Server: j.Server}
}

// SignalAddress is the key under which pairwise sessions with this device are stored.
func (j JID) SignalAddress() string {
	name := j.User
	if j.Server == LIDServer {
		name += "_1"
	} else if j.Agent != 0 {
		name += "_" + strconv.Itoa(int(j.Agent))
	}
	return name + "." + strconv.Itoa(int(j.Device))
}

func (j JID) IsUser() bool {
	return j.Server == DefaultUserServer || j.Server == LegacyUserServer
}

func (j JID) IsLID() bool {
	return j.Server == LIDServer
}

func server(s string) string {
	if at := strings.LastIndexByte(s, '@'); at >= 0 {
		return s[at+1:]
	}
	return ""
}

func IsUser(s string) bool {
	srv := server(s)
	return srv == DefaultUserServer || srv == LegacyUserServer
}

func IsLID(s string) bool {
	return server(s) == LIDServer
}

func IsGroup(s string) bool {
	return server(s) == GroupServer
}

func IsBroadcast(s string) bool {
	return server(s) == BroadcastServer
}

func IsStatusBroadcast(s string) bool {
	return s == StatusBroadcast
}

func IsNewsletter(s string) bool {
	return server(s) == NewsletterServer
}

func IsBot(s string) bool {
	return server(s) == BotServer
}

// SameUser reports whether both addresses decode to the same user part, ignoring agent, device and server.
func SameUser(a, b string) bool {
	ja, err := Parse(a)
	if err != nil {
		return false
	}
	jb, err := Parse(b)
	if err != nil {
		return false
	}
	return ja.User != "" && ja.User == jb.User
}
