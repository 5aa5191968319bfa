package chat

import "strings"

// MaxLen is the longest encoded message, trailing newline included.
const MaxLen = 255

// Wire tags.
const (
	TagSenderLogin   = "slogin"
	TagReceiverLogin = "rlogin"
	TagJoin          = "join"
	TagLeave         = "leave"
	TagSendAll       = "sendall"
	TagQuit          = "quit"
	TagOK            = "ok"
	TagErr           = "err"
	TagDelivery      = "delivery"
)

// Message is one protocol line: tag and payload.
type Message struct {
	Tag  string
	Data string
}

func NewMessage(tag, data string) Message {
	return Message{Tag: tag, Data: data}
}

// Encode returns the wire form, newline included.
func (m Message) Encode() string {
	return m.Tag + ":" + m.Data + "\n"
}

// DeliveryPayload builds the "<room>:<sender>:<text>" body of a delivery.
func DeliveryPayload(room, sender, text string) string {
	return room + ":" + sender + ":" + text
}

// ParseDelivery splits a delivery payload on its first two colons only.
func ParseDelivery(payload string) (room, sender, text string, ok bool) {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// ValidName reports whether s is a usable user or room name: non-empty,
// ASCII letters and digits only.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Result classifies the outcome of the last Connection operation.
type Result int32

const (
	Success Result = iota
	InvalidMsg
	EOFOrError
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case InvalidMsg:
		return "invalid_msg"
	case EOFOrError:
		return "eof_or_error"
	}
	return "unknown"
}

var (
	ErrInvalidMsg   = errorString("invalid message")
	ErrEOFOrError   = errorString("connection closed or failed")
	ErrServerClosed = errorString("server closed")
)

type errorString string

func (e errorString) Error() string { return string(e) }
