package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// session drives one client connection from login to termination.
type session struct {
	id     string
	srv    *Server
	conn   *Connection
	logger *slog.Logger
}

func newSession(srv *Server, conn *Connection) *session {
	id := uuid.NewString()
	return &session{
		id:     id,
		srv:    srv,
		conn:   conn,
		logger: srv.logger.With("session", id, "remote", conn.RemoteAddr()),
	}
}

func (s *session) run(ctx context.Context) {
	defer func() {
		_ = s.conn.Close()
		s.logger.Info("session ended")
	}()

	login, err := s.conn.Receive()
	if err != nil {
		if errors.Is(err, ErrInvalidMsg) {
			s.replyErr("Invalid message format")
		}
		return
	}
	countMessage(login.Tag)

	if login.Tag != TagSenderLogin && login.Tag != TagReceiverLogin {
		s.replyErr("Invalid login tag")
		return
	}
	if !ValidName(login.Data) {
		s.replyErr("Invalid username")
		return
	}

	switch login.Tag {
	case TagReceiverLogin:
		s.logger = s.logger.With("role", "receiver", "user", login.Data)
		SessionsTotal.WithLabelValues("receiver").Inc()
		s.runReceiver(ctx, NewUser(login.Data))
	case TagSenderLogin:
		s.logger = s.logger.With("role", "sender", "user", login.Data)
		SessionsTotal.WithLabelValues("sender").Inc()
		s.runSender(login.Data)
	}
}

func (s *session) reply(tag, text string) error {
	if err := s.conn.Send(NewMessage(tag, text)); err != nil {
		s.logger.Debug("reply failed", "tag", tag, "error", err)
		return err
	}
	return nil
}

func (s *session) replyOK(text string) error  { return s.reply(TagOK, text) }
func (s *session) replyErr(text string) error { return s.reply(TagErr, text) }

// runReceiver joins the requested room and forwards mailbox deliveries
// until the peer goes away or the server shuts down.
func (s *session) runReceiver(ctx context.Context, user *User) {
	defer func() {
		if dropped := user.Release(); dropped > 0 {
			DroppedDeliveriesTotal.Add(float64(dropped))
			s.logger.Info("discarded undelivered messages", "count", dropped)
		}
	}()

	if s.replyOK("Logged in as receiver") != nil {
		return
	}

	join, err := s.conn.Receive()
	if err != nil {
		if errors.Is(err, ErrInvalidMsg) {
			s.replyErr("Invalid message format")
		}
		return
	}
	countMessage(join.Tag)
	if join.Tag != TagJoin {
		s.replyErr("Expected join message")
		return
	}
	if !ValidName(join.Data) {
		s.replyErr("Invalid room name")
		return
	}

	room := s.srv.FindOrCreateRoom(join.Data)
	room.AddMember(user)
	defer room.RemoveMember(user)
	s.logger.Info("receiver joined", "room", room.Name())

	if s.replyOK("Joined room") != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var watch sync.WaitGroup
	watch.Add(1)
	go func() {
		defer watch.Done()
		s.watchPeer(cancel)
	}()
	defer func() {
		_ = s.conn.Close()
		watch.Wait()
	}()

	mailbox := user.Mailbox()
	for {
		msg, ok := mailbox.Dequeue(ctx, s.srv.cfg.MailboxWait)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if err := s.conn.Send(msg); err != nil {
			if errors.Is(err, ErrInvalidMsg) {
				s.logger.Warn("skipped undeliverable message", "error", err)
				continue
			}
			s.logger.Info("delivery failed", "error", err)
			return
		}
		DeliveriesTotal.Inc()
	}
}

// watchPeer reads from a receiver, which has nothing more to say after
// joining, so that a closed socket or a quit ends the delivery loop without
// waiting for the next failed write.
func (s *session) watchPeer(cancel context.CancelFunc) {
	defer cancel()
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			// LastResult is shared with the delivery loop's writes here.
			if errors.Is(err, ErrInvalidMsg) {
				continue
			}
			return
		}
		if msg.Tag == TagQuit {
			_ = s.replyOK("Goodbye")
			return
		}
	}
}

// runSender processes commands until quit or a transport failure. Protocol
// errors are answered and the loop carries on.
func (s *session) runSender(name string) {
	if s.replyOK("Logged in as sender") != nil {
		return
	}

	var current *Room
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			if s.conn.LastResult() == InvalidMsg {
				if s.replyErr("Invalid message format") != nil {
					return
				}
				continue
			}
			return
		}

		start := time.Now()
		label := countMessage(msg.Tag)
		reply, quit := s.handleCommand(name, msg, &current)
		CommandDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

		if err := s.conn.Send(reply); err != nil || quit {
			return
		}
	}
}

func (s *session) handleCommand(name string, msg Message, current **Room) (reply Message, quit bool) {
	switch msg.Tag {
	case "":
		return NewMessage(TagErr, "Invalid message format"), false

	case TagSendAll:
		if *current == nil {
			return NewMessage(TagErr, "Not in a room"), false
		}
		if !fitsDelivery((*current).Name(), name, msg.Data) {
			return NewMessage(TagErr, "Message too long"), false
		}
		n := (*current).Broadcast(name, msg.Data)
		s.logger.Debug("broadcast", "room", (*current).Name(), "recipients", n)
		return NewMessage(TagOK, "Message sent"), false

	case TagJoin:
		if !ValidName(msg.Data) {
			return NewMessage(TagErr, "Invalid room name"), false
		}
		*current = s.srv.FindOrCreateRoom(msg.Data)
		s.logger.Info("sender joined", "room", msg.Data)
		return NewMessage(TagOK, "Joined room"), false

	case TagLeave:
		if *current == nil {
			return NewMessage(TagErr, "Not in a room"), false
		}
		s.logger.Info("sender left", "room", (*current).Name())
		*current = nil
		return NewMessage(TagOK, "Left room"), false

	case TagQuit:
		return NewMessage(TagOK, "Goodbye"), true
	}
	return NewMessage(TagErr, "Unknown command"), false
}

// fitsDelivery reports whether the delivery built from text still fits on
// one line once the room and sender are prepended.
func fitsDelivery(room, sender, text string) bool {
	return len(NewMessage(TagDelivery, DeliveryPayload(room, sender, text)).Encode()) <= MaxLen
}

// countMessage records a received message and returns its metric label.
// Unknown tags share one label to keep cardinality bounded.
func countMessage(tag string) string {
	switch tag {
	case TagSenderLogin, TagReceiverLogin, TagJoin, TagLeave, TagSendAll, TagQuit:
	default:
		tag = "unknown"
	}
	MessagesTotal.WithLabelValues(tag).Inc()
	return tag
}
