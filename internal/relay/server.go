package relay

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/Lanternbit/echo-client-server/internal/config"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server accepts connections and runs one session per client.
type Server struct {
	cfg         config.ServerConfig
	logger      *slog.Logger
	reg         *Registry
	broadcaster *Broadcaster

	mu         sync.Mutex
	listener   net.Listener
	acceptDone chan struct{}
	stopping   bool
	sessions   sync.WaitGroup
}

func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	reg := NewRegistry(logger)
	return &Server{
		cfg:         cfg,
		logger:      logger,
		reg:         reg,
		broadcaster: NewBroadcaster(reg, logger),
	}
}

// Start listens on the configured port on all interfaces and accepts in the background.
func (s *Server) Start() error {
	addr := net.JoinHostPort("", strconv.Itoa(int(s.cfg.Port)))
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return pkgerrors.Wrapf(err, "listen on %s", addr)
	}
	if err := s.track(ln); err != nil {
		_ = ln.Close()
		return err
	}
	go s.acceptLoop(ln)
	return nil
}

// Serve accepts on ln until it is closed or Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.track(ln); err != nil {
		return err
	}
	s.acceptLoop(ln)
	return nil
}

func (s *Server) track(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		return ErrServerStopped
	}
	if s.listener != nil {
		return ErrServerStarted
	}
	s.listener = ln
	s.acceptDone = make(chan struct{})

	s.logger.Info("server started",
		"addr", ln.Addr().String(),
		"mode", s.cfg.Mode().String(),
		"sender", s.cfg.SenderPolicy.String(),
		"idle_timeout", s.cfg.IdleTimeout)
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Clients returns the number of registered clients.
func (s *Server) Clients() int {
	return s.reg.Len()
}

// Stop closes the listener, disconnects every client and waits for all
// sessions to finish or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	ln, acceptDone := s.listener, s.acceptDone
	s.mu.Unlock()

	s.logger.Info("shutting down")

	if ln != nil {
		_ = ln.Close()
		select {
		case <-acceptDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// No session can be opened from here on, so the snapshot is complete.
	for _, c := range s.reg.Snapshot() {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer close(s.acceptDone)

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isStopping() || errors.Is(err, net.ErrClosed) {
				return
			}
			AcceptErrorsTotal.Inc()
			delay = nextAcceptDelay(delay)
			s.logger.Warn("accept failed", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		s.spawn(conn)
	}
}

// spawn registers the client and starts its session. Registration happens
// under s.mu so Stop never misses a session that is about to start.
func (s *Server) spawn(conn net.Conn) {
	c := NewClient(conn, s.cfg.WriteTimeout)
	sess := newSession(c, s.reg, s.broadcaster, s.cfg, s.logger)

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		_ = c.Close()
		return
	}
	if err := sess.open(); err != nil {
		s.mu.Unlock()
		s.logger.Error("register client failed", "client", c.ID, "error", err)
		_ = c.Close()
		return
	}
	s.sessions.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.sessions.Done()
		sess.serve()
	}()
}

func (s *Server) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	if d *= 2; d > maxAcceptDelay {
		return maxAcceptDelay
	}
	return d
}
