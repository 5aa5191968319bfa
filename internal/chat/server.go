package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config holds the server settings.
type Config struct {
	Addr string

	// MailboxWait bounds each mailbox wait in a receiver's delivery loop.
	MailboxWait time.Duration

	// WriteTimeout bounds each write to a client; zero means no limit.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Server accepts connections and runs one supervised session goroutine per
// client. It owns the room registry for its whole lifetime.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	registry *Registry

	// ctx is cancelled by Shutdown; every session runs under it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	sessions map[string]*session
	closed   bool
	wg       sync.WaitGroup
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MailboxWait <= 0 {
		cfg.MailboxWait = DefaultMailboxWait
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: NewRegistry(cfg.Logger),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.logger.Info("server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Shutdown is called,
// starting a session for each one without waiting on it. It returns
// ErrServerClosed after Shutdown. Cancelling ctx stops accepting but leaves
// running sessions alone; use Shutdown to end them.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return s.acceptLoop(gctx, ln)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			_ = ln.Close()
		case <-done:
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}
			// Anything else (EMFILE, ECONNABORTED, timeouts) is retried.
			backoff = nextBackoff(backoff)
			s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
			t := time.NewTimer(backoff)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				if s.isClosed() {
					return ErrServerClosed
				}
				return ctx.Err()
			}
			continue
		}
		backoff = 0

		s.logger.Info("client connected", "addr", conn.RemoteAddr().String())
		s.startSession(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) startSession(conn net.Conn) {
	c := NewConnection(conn)
	c.SetTimeouts(0, s.cfg.WriteTimeout)
	sess := newSession(s, c)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = c.Close()
		return
	}
	s.sessions[sess.id] = sess
	s.wg.Add(1)
	s.mu.Unlock()

	ConnectedSessions.Inc()
	go func() {
		defer s.wg.Done()
		defer s.untrack(sess)
		sess.run(s.ctx)
	}()
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	ConnectedSessions.Dec()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ActiveSessions reports how many session goroutines are still running.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// FindOrCreateRoom returns the unique room called name.
func (s *Server) FindOrCreateRoom(name string) *Room {
	return s.registry.FindOrCreate(name)
}

func (s *Server) Registry() *Registry { return s.registry }

// Shutdown stops accepting, ends every session and waits for their
// goroutines to return or ctx to expire. The registry is closed once all
// sessions are gone.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.listener != nil {
		_ = s.listener.Close()
	}
	active := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		active = append(active, sess)
	}
	s.mu.Unlock()

	s.logger.Info("shutting down", "sessions", len(active))

	s.cancel()
	for _, sess := range active {
		_ = sess.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for sessions: %w", ctx.Err())
	}

	s.registry.Close()
	s.logger.Info("shutdown complete")
	return nil
}
