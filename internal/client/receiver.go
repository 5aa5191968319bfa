package client

import (
	"errors"
	"fmt"
	"io"

	"github.com/andy6609/room-chat-server/internal/chat"
)

// RunReceiver logs in as username, joins room and prints each delivery as
// "<sender>: <text>" to out until the server closes the connection.
func RunReceiver(conn *chat.Connection, username, room string, out, errOut io.Writer) error {
	if err := exchange(conn, chat.NewMessage(chat.TagReceiverLogin, username)); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := exchange(conn, chat.NewMessage(chat.TagJoin, room)); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	for {
		msg, err := conn.Receive()
		if err != nil {
			if errors.Is(err, chat.ErrInvalidMsg) {
				continue
			}
			return nil
		}

		switch msg.Tag {
		case chat.TagDelivery:
			_, sender, text, ok := chat.ParseDelivery(msg.Data)
			if !ok {
				continue
			}
			fmt.Fprintf(out, "%s: %s\n", sender, text)
		case chat.TagErr:
			fmt.Fprintln(errOut, msg.Data)
		}
	}
}
