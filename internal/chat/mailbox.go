package chat

import (
	"context"
	"sync"
	"time"
)

// DefaultMailboxWait bounds a single Dequeue so the consumer can re-check
// for shutdown between messages.
const DefaultMailboxWait = time.Second

// Mailbox is an unbounded FIFO of pending deliveries for one receiver.
// Any number of goroutines may Enqueue; one goroutine normally drains it.
type Mailbox struct {
	mu     sync.Mutex
	queue  []Message
	closed bool

	// avail holds one token while the queue may be non-empty.
	avail chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{avail: make(chan struct{}, 1)}
}

// Enqueue appends msg and wakes a waiting consumer. Messages enqueued after
// Close are dropped.
func (m *Mailbox) Enqueue(msg Message) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	m.signal()
	return true
}

func (m *Mailbox) signal() {
	select {
	case m.avail <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest message. It waits at most timeout
// for one to arrive and returns false on timeout, on ctx cancellation, or
// once the mailbox is closed and empty.
func (m *Mailbox) Dequeue(ctx context.Context, timeout time.Duration) (Message, bool) {
	if msg, ok, done := m.pop(); ok || done {
		return msg, ok
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-m.avail:
			if msg, ok, done := m.pop(); ok || done {
				return msg, ok
			}
		case <-timer.C:
			return Message{}, false
		case <-ctx.Done():
			return Message{}, false
		}
	}
}

// pop takes the head under the lock. done is set when the mailbox is closed
// and nothing is left to deliver.
func (m *Mailbox) pop() (msg Message, ok bool, done bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return Message{}, false, m.closed
	}
	msg = m.queue[0]
	m.queue[0] = Message{}
	m.queue = m.queue[1:]
	if len(m.queue) > 0 {
		// Pass the wakeup on to the next waiter.
		m.signal()
	}
	return msg, true, false
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close discards undelivered messages and returns how many were dropped.
func (m *Mailbox) Close() int {
	m.mu.Lock()
	dropped := len(m.queue)
	m.queue = nil
	m.closed = true
	m.mu.Unlock()

	m.signal()
	return dropped
}
