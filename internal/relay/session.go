package relay

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/Lanternbit/echo-client-server/internal/config"
)

type session struct {
	client      *Client
	reg         *Registry
	broadcaster *Broadcaster
	cfg         config.ServerConfig
	logger      *slog.Logger
	started     time.Time
}

func newSession(c *Client, reg *Registry, b *Broadcaster, cfg config.ServerConfig, logger *slog.Logger) *session {
	return &session{
		client:      c,
		reg:         reg,
		broadcaster: b,
		cfg:         cfg,
		logger:      logger.With("client", c.ID, "remote", c.RemoteAddr()),
	}
}

// open registers the client. It runs before serve and before any read.
func (s *session) open() error {
	if err := s.reg.Register(s.client); err != nil {
		return err
	}
	s.started = time.Now()
	s.logger.Info("client connected")
	return nil
}

// serve runs the receive loop until the peer closes or an I/O error occurs.
// Deregistration and socket release happen on every exit path.
func (s *session) serve() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panicked", "panic", r)
		}
		s.reg.Deregister(s.client)
		_ = s.client.Close()
		SessionDuration.Observe(time.Since(s.started).Seconds())
		s.logger.Info("client disconnected")
	}()

	mode := s.cfg.Mode()
	var exclude *Client
	if s.cfg.SenderPolicy == config.SenderExcluded {
		exclude = s.client
	}

	buf := make([]byte, MaxChunk)
	for {
		if s.cfg.IdleTimeout > 0 {
			if err := s.client.Conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
				s.logger.Warn("set read deadline failed", "error", err)
				return
			}
		}
		n, err := s.client.Conn.Read(buf)
		if n > 0 {
			if !s.dispatch(mode, buf[:n], exclude) {
				return
			}
		}
		if err != nil {
			s.logReadError(err)
			return
		}
	}
}

// dispatch relays one payload and reports whether the session may continue.
// payload aliases the read buffer; every path below finishes with it before returning.
func (s *session) dispatch(mode config.Mode, payload []byte, exclude *Client) bool {
	PayloadsTotal.WithLabelValues(mode.String()).Inc()
	PayloadBytesTotal.Add(float64(len(payload)))
	s.logger.Info("received", "bytes", len(payload), "text", displayText(payload))

	switch mode {
	case config.ModeEcho:
		if err := s.client.Send(payload); err != nil {
			s.logger.Warn("echo send failed", "error", err)
			return false
		}
	case config.ModeBroadcast:
		report := s.broadcaster.Broadcast(payload, exclude)
		if len(report.Failures) > 0 {
			s.logger.Warn("broadcast partially failed",
				"attempted", report.Attempted,
				"delivered", report.Delivered,
				"failed", len(report.Failures))
		}
	}
	return true
}

func (s *session) logReadError(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		s.logger.Debug("peer closed connection")
	case errors.Is(err, net.ErrClosed):
		s.logger.Debug("connection closed locally")
	case errors.As(err, &netErr) && netErr.Timeout():
		s.logger.Info("idle timeout", "timeout", s.cfg.IdleTimeout)
	default:
		s.logger.Warn("read failed", "error", err)
	}
}

// displayText renders a payload for humans. Invalid UTF-8 is replaced, and
// the relay path never sees the result.
func displayText(p []byte) string {
	return strings.TrimRight(strings.ToValidUTF8(string(p), "\uFFFD"), "\r\n")
}
