package config

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// Mode selects what the server does with a received payload.
type Mode int

const (
	// ModeSilent only logs receipt.
	ModeSilent Mode = iota
	// ModeEcho sends the payload back to its sender.
	ModeEcho
	// ModeBroadcast fans the payload out to every connected client.
	ModeBroadcast
)

func (m Mode) String() string {
	switch m {
	case ModeEcho:
		return "echo"
	case ModeBroadcast:
		return "broadcast"
	default:
		return "silent"
	}
}

// SenderPolicy decides whether a broadcasting client receives its own payload.
type SenderPolicy int

const (
	SenderIncluded SenderPolicy = iota
	SenderExcluded
)

func (p SenderPolicy) String() string {
	if p == SenderExcluded {
		return "excluded"
	}
	return "included"
}

// ServerConfig is set once at startup and never mutated afterwards.
type ServerConfig struct {
	Port      uint16
	Echo      bool
	Broadcast bool

	SenderPolicy SenderPolicy

	// Zero disables the corresponding deadline.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration

	// Empty disables the metrics endpoint.
	MetricsAddr string
	LogLevel    string
}

// Mode resolves the echo and broadcast flags. Broadcast without echo has no effect.
func (c ServerConfig) Mode() Mode {
	switch {
	case c.Echo && c.Broadcast:
		return ModeBroadcast
	case c.Echo:
		return ModeEcho
	default:
		return ModeSilent
	}
}

// ClientConfig holds the address the client dials.
type ClientConfig struct {
	Host string
	Port string
}

// LogLevel parses debug, info, warn or error.
func LogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, errors.Wrapf(ErrUsage, "unknown log level %q", s)
	}
	return l, nil
}
