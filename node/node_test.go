package node

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttrs(t *testing.T) {
	require := require.New(t)

	n := Node{Tag: "message", Attrs: Attrs{"t": "1700000000", "is_sender": "true", "bad": "x"}}
	v, ok := n.Attr("t")
	require.True(ok)
	require.Equal("1700000000", v)
	require.Equal("", n.AttrString("missing"))

	u, err := n.AttrUint("t")
	require.Nil(err)
	require.Equal(uint64(1700000000), u)
	_, err = n.AttrUint("bad")
	require.NotNil(err)
	_, err = n.AttrUint("missing")
	require.NotNil(err)

	require.True(n.AttrBool("is_sender"))
	require.False(n.AttrBool("missing"))
}

func TestNilAttrs(t *testing.T) {
	require := require.New(t)

	n := Node{Tag: "enc"}
	_, ok := n.Attr("type")
	require.False(ok)
}

func TestContent(t *testing.T) {
	require := require.New(t)

	n := Node{Tag: "message", Content: []Node{
		{Tag: "enc", Attrs: Attrs{"type": "msg"}, Content: []byte{1, 2, 3}},
		{Tag: "unavailable"},
	}}
	require.Len(n.Children(), 2)
	enc, ok := n.Child("enc")
	require.True(ok)
	b, ok := enc.Bytes()
	require.True(ok)
	require.Equal([]byte{1, 2, 3}, b)
	_, ok = n.Child("plaintext")
	require.False(ok)
	_, ok = n.Bytes()
	require.False(ok)

	require.Contains(n.String(), "<!-- 3 bytes -->")
}
