// Package client implements the sender and receiver sides of the chat
// protocol on top of a chat.Connection.
package client

import (
	"fmt"

	"github.com/andy6609/room-chat-server/internal/chat"
)

// ServerError is an "err" reply from the server.
type ServerError struct {
	Text string
}

func (e *ServerError) Error() string { return e.Text }

// exchange sends msg and waits for the server's reply, which must be ok.
func exchange(conn *chat.Connection, msg chat.Message) error {
	if err := conn.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Tag, err)
	}
	reply, err := conn.Receive()
	if err != nil {
		return fmt.Errorf("%s response: %w", msg.Tag, err)
	}
	switch reply.Tag {
	case chat.TagOK:
		return nil
	case chat.TagErr:
		return &ServerError{Text: reply.Data}
	}
	return fmt.Errorf("unexpected response to %s: %q", msg.Tag, reply.Tag)
}
