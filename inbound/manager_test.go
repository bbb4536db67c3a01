package inbound

import (
	"context"
	"fmt"
	"testing"

	"github.com/meow-io/go-stanza/config"
	"github.com/meow-io/go-stanza/node"
	"github.com/meow-io/go-stanza/waproto"
	"github.com/stretchr/testify/require"
)

func newTestManager(store SessionStore) *Manager {
	c := config.NewConfig(
		config.WithLoggingPrefix("inbound-test"),
		config.WithWorkerCount(3),
		config.WithQueueSize(10),
	)
	return NewManager(c, me, store)
}

func TestManagerProcess(t *testing.T) {
	require := require.New(t)
	m := newTestManager(newFakeStore())

	stanza := messageStanza(group, alice, enc("skmsg", padded(t, waproto.NewMessage(waproto.Text("sync")))))
	u, err := m.Process(context.Background(), stanza)
	require.Nil(err)
	require.Equal(CategoryGroup, u.Category)
	require.Equal(alice, u.Author)
	require.Equal(group, u.Sender)
	require.Equal("sync", u.Record.Message.Text())

	_, err = m.Process(context.Background(), messageStanza(group, ""))
	require.ErrorIs(err, ErrMalformedStanza)
}

func TestManagerNotRunning(t *testing.T) {
	require := require.New(t)
	m := newTestManager(newFakeStore())

	require.ErrorIs(m.Enqueue(messageStanza(alice, "")), ErrNotRunning)
	require.ErrorIs(m.Shutdown(), ErrNotRunning)

	require.Nil(m.Start())
	require.ErrorIs(m.Start(), ErrRunning)
	require.Nil(m.Shutdown())
	require.ErrorIs(m.Enqueue(messageStanza(alice, "")), ErrNotRunning)
}

func TestManagerWorkers(t *testing.T) {
	require := require.New(t)
	store := newFakeStore()
	m := newTestManager(store)
	require.Nil(m.Start())
	defer func() { require.Nil(m.Shutdown()) }()

	const perSender = 5
	senders := []string{alice, "15553334444@s.whatsapp.net", "15556667777@s.whatsapp.net"}
	for i := 0; i < perSender; i++ {
		for _, s := range senders {
			body := fmt.Sprintf("%s-%d", s, i)
			require.Nil(m.Enqueue(messageStanza(s, "", enc("msg", padded(t, waproto.NewMessage(waproto.Text(body)))))))
		}
	}
	require.Nil(m.Enqueue(messageStanza(group, "")))

	next := map[string]int{}
	nacks := 0
	for i := 0; i < perSender*len(senders)+1; i++ {
		switch u := (<-m.Updates()).(type) {
		case *MessageUpdate:
			require.Equal(StubNone, u.Record.StubType)
			require.Equal(fmt.Sprintf("%s-%d", u.Author, next[u.Author]), u.Record.Message.Text())
			next[u.Author]++
		case *NackUpdate:
			require.Equal(group, u.From)
			require.Equal(NackUnrecognizedStanzaClass, u.Code)
			require.ErrorIs(u.Err, ErrNoParticipant)
			nacks++
		default:
			require.Fail("unexpected update", "%T", u)
		}
	}
	require.Equal(1, nacks)
	for _, s := range senders {
		require.Equal(perSender, next[s])
	}
}

func TestManagerShardStable(t *testing.T) {
	require := require.New(t)
	m := newTestManager(newFakeStore())
	require.Nil(m.Start())
	defer func() { require.Nil(m.Shutdown()) }()

	a := &node.Node{Tag: "message", Attrs: node.Attrs{"from": alice}}
	b := &node.Node{Tag: "message", Attrs: node.Attrs{"from": alice, "id": "other"}}
	require.Equal(m.shard(a), m.shard(b))
}
