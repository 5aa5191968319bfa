package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andy6609/room-chat-server/internal/chat"
)

// ParseCommand turns one line of user input into a protocol message.
// ok is false for blank lines; a non-nil error is a local usage problem.
func ParseCommand(line string) (msg chat.Message, ok bool, err error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return chat.Message{}, false, nil
	case line == "/quit":
		return chat.NewMessage(chat.TagQuit, ""), true, nil
	case line == "/leave":
		return chat.NewMessage(chat.TagLeave, ""), true, nil
	case line == "/join" || strings.HasPrefix(line, "/join "):
		room := strings.TrimSpace(strings.TrimPrefix(line, "/join"))
		if room == "" {
			return chat.Message{}, false, errors.New("room name cannot be empty")
		}
		return chat.NewMessage(chat.TagJoin, room), true, nil
	}
	return chat.NewMessage(chat.TagSendAll, line), true, nil
}

// RunSender logs in as username and relays commands read from in until
// end of input or /quit. Server error replies are printed to errOut and do
// not stop the session.
func RunSender(conn *chat.Connection, username string, in io.Reader, errOut io.Writer) error {
	if err := exchange(conn, chat.NewMessage(chat.TagSenderLogin, username)); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		msg, ok, err := ParseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			continue
		}
		if !ok {
			continue
		}
		quit := msg.Tag == chat.TagQuit

		err = exchange(conn, msg)
		var serr *ServerError
		switch {
		case err == nil:
		case errors.As(err, &serr):
			fmt.Fprintln(errOut, serr.Text)
		case errors.Is(err, chat.ErrInvalidMsg):
			fmt.Fprintf(errOut, "Error: %v\n", err)
			continue
		case quit && errors.Is(err, chat.ErrEOFOrError):
			// The server may hang up before the goodbye arrives.
			return nil
		default:
			return err
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}
