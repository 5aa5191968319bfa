package chat

import (
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConns(t *testing.T) (*Connection, *Connection) {
	t.Helper()
	a, b := net.Pipe()
	ca, cb := NewConnection(a), NewConnection(b)
	t.Cleanup(func() {
		_ = ca.Close()
		_ = cb.Close()
	})
	return ca, cb
}

// rawPeer returns a Connection reading from a pipe whose other end the
// test writes raw bytes into.
func rawPeer(t *testing.T, data string) *Connection {
	t.Helper()
	a, b := net.Pipe()
	go func() {
		_, _ = io.WriteString(a, data)
		_ = a.Close()
	}()
	c := NewConnection(b)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConnection_RoundTrip(t *testing.T) {
	tests := []Message{
		NewMessage(TagSendAll, "hello"),
		NewMessage(TagQuit, ""),
		NewMessage(TagDelivery, "general:alice:a:b:c"),
		NewMessage(TagJoin, strings.Repeat("r", MaxLen-len("join:\n"))),
	}
	for _, want := range tests {
		sender, receiver := pipeConns(t)

		errCh := make(chan error, 1)
		go func() { errCh <- sender.Send(want) }()

		got, err := receiver.Receive()
		require.NoError(t, err)
		require.NoError(t, <-errCh)
		assert.Equal(t, want, got)
		assert.Equal(t, Success, receiver.LastResult())
		assert.Equal(t, Success, sender.LastResult())
	}
}

func TestConnection_SendRejectsOversizedMessage(t *testing.T) {
	sender, _ := pipeConns(t)

	err := sender.Send(NewMessage(TagSendAll, strings.Repeat("x", MaxLen)))
	require.ErrorIs(t, err, ErrInvalidMsg)
	assert.Equal(t, InvalidMsg, sender.LastResult())
	assert.True(t, sender.IsOpen())
}

func TestConnection_SendOnClosed(t *testing.T) {
	sender, _ := pipeConns(t)
	require.NoError(t, sender.Close())
	require.NoError(t, sender.Close())
	assert.False(t, sender.IsOpen())

	err := sender.Send(NewMessage(TagOK, "x"))
	require.ErrorIs(t, err, ErrEOFOrError)
	assert.Equal(t, EOFOrError, sender.LastResult())
}

func TestConnection_ReceiveInvalidLinesKeepStreamUsable(t *testing.T) {
	c := rawPeer(t, "\n"+
		"nocolon\n"+
		strings.Repeat("a", MaxLen+40)+"\n"+
		"ok:still here\r\n")

	for i := 0; i < 3; i++ {
		_, err := c.Receive()
		require.ErrorIs(t, err, ErrInvalidMsg, "line %d", i)
		assert.Equal(t, InvalidMsg, c.LastResult())
	}

	msg, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, NewMessage(TagOK, "still here"), msg)

	_, err = c.Receive()
	require.ErrorIs(t, err, ErrEOFOrError)
	assert.Equal(t, EOFOrError, c.LastResult())
}

func TestConnection_ReceiveSplitsOnFirstColon(t *testing.T) {
	c := rawPeer(t, "sendall:a:b::c\n")

	msg, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, TagSendAll, msg.Tag)
	assert.Equal(t, "a:b::c", msg.Data)
}

func TestConnection_ReceiveAcceptsUnterminatedFinalLine(t *testing.T) {
	c := rawPeer(t, "quit:")

	msg, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, NewMessage(TagQuit, ""), msg)
}

func TestConnection_ReceiveAfterPeerClose(t *testing.T) {
	a, b := pipeConns(t)
	require.NoError(t, a.Close())

	_, err := b.Receive()
	require.ErrorIs(t, err, ErrEOFOrError)
	assert.Equal(t, EOFOrError, b.LastResult())
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("alice"))
	assert.True(t, ValidName("Room42"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("bad name"))
	assert.False(t, ValidName("a:b"))
	assert.False(t, ValidName("café"))
}

func TestParseDelivery(t *testing.T) {
	room, sender, text, ok := ParseDelivery(DeliveryPayload("general", "bob", "hi: there"))
	require.True(t, ok)
	assert.Equal(t, "general", room)
	assert.Equal(t, "bob", sender)
	assert.Equal(t, "hi: there", text)

	_, _, _, ok = ParseDelivery("general:bob")
	assert.False(t, ok)
}
