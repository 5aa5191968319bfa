package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Connection frames Messages over a stream socket, one "tag:payload" line
// per message. Send and Receive may run on different goroutines; two
// concurrent Receives are not supported.
type Connection struct {
	conn net.Conn
	r    *bufio.Reader

	wmu          sync.Mutex
	writeTimeout time.Duration
	readTimeout  time.Duration

	last      atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn: conn,
		r:    bufio.NewReaderSize(conn, MaxLen+1),
	}
}

// Dial connects to a chat server.
func Dial(ctx context.Context, host string, port int) (*Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dial %s:%d: %w", host, port, err)
	}
	return NewConnection(conn), nil
}

// SetTimeouts sets per-operation deadlines; zero disables the deadline.
func (c *Connection) SetTimeouts(read, write time.Duration) {
	c.readTimeout = read
	c.writeTimeout = write
}

func (c *Connection) RemoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

func (c *Connection) IsOpen() bool {
	return c.conn != nil && !c.closed.Load()
}

// Close closes the socket. Calling it more than once is a no-op.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.conn != nil {
			c.closeErr = c.conn.Close()
		}
	})
	return c.closeErr
}

// LastResult reports the outcome of the most recent Send or Receive.
func (c *Connection) LastResult() Result {
	return Result(c.last.Load())
}

func (c *Connection) fail(r Result, err error) error {
	c.last.Store(int32(r))
	return err
}

// Send writes msg as one line. It fails with ErrInvalidMsg when the encoded
// message is longer than MaxLen and with ErrEOFOrError when the write does
// not complete.
func (c *Connection) Send(msg Message) error {
	if !c.IsOpen() {
		return c.fail(EOFOrError, ErrEOFOrError)
	}
	encoded := msg.Encode()
	if len(encoded) > MaxLen {
		return c.fail(InvalidMsg, fmt.Errorf("%w: encoded length %d exceeds %d", ErrInvalidMsg, len(encoded), MaxLen))
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	n, err := io.WriteString(c.conn, encoded)
	if err != nil || n != len(encoded) {
		return c.fail(EOFOrError, fmt.Errorf("%w: write: %v", ErrEOFOrError, err))
	}
	c.last.Store(int32(Success))
	return nil
}

// Receive blocks until a complete line arrives and splits it on the first
// colon. Over-long, empty and separator-less lines fail with ErrInvalidMsg;
// the stream stays usable. EOF and I/O errors fail with ErrEOFOrError.
func (c *Connection) Receive() (Message, error) {
	if !c.IsOpen() {
		return Message{}, c.fail(EOFOrError, ErrEOFOrError)
	}
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	line, tooLong, err := c.readLine()
	if err != nil {
		return Message{}, c.fail(EOFOrError, fmt.Errorf("%w: read: %v", ErrEOFOrError, err))
	}
	if tooLong {
		return Message{}, c.fail(InvalidMsg, fmt.Errorf("%w: line exceeds %d bytes", ErrInvalidMsg, MaxLen))
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Message{}, c.fail(InvalidMsg, fmt.Errorf("%w: empty line", ErrInvalidMsg))
	}
	tag, data, found := strings.Cut(line, ":")
	if !found {
		return Message{}, c.fail(InvalidMsg, fmt.Errorf("%w: missing separator", ErrInvalidMsg))
	}

	c.last.Store(int32(Success))
	return Message{Tag: tag, Data: data}, nil
}

// readLine reads through the next newline. Bytes past MaxLen are discarded
// and reported through tooLong. A final line without a newline is accepted.
func (c *Connection) readLine() (line string, tooLong bool, err error) {
	var buf []byte
	for {
		frag, rerr := c.r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(frag) > MaxLen {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, frag...)
			}
		}

		switch {
		case rerr == nil:
			return string(buf), tooLong, nil
		case errors.Is(rerr, bufio.ErrBufferFull):
			continue
		case errors.Is(rerr, io.EOF) && len(buf) > 0 && !tooLong:
			return string(buf), false, nil
		default:
			return "", false, rerr
		}
	}
}
