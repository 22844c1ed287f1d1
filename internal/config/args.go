package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// ErrUsage marks argument errors that should be answered with the usage text.
var ErrUsage = errors.New("invalid arguments")

// ParseServerArgs parses `<port> [-e [-b]]` plus the optional hardening flags.
// Flags may appear before or after the port.
func ParseServerArgs(args []string) (ServerConfig, error) {
	var (
		cfg           ServerConfig
		excludeSender bool
	)
	fs := newFlagSet("echo-server")
	fs.BoolVar(&cfg.Echo, "e", false, "echo received data back")
	fs.BoolVar(&cfg.Broadcast, "b", false, "broadcast received data to every client (requires -e)")
	fs.BoolVar(&excludeSender, "exclude-sender", false, "do not broadcast a payload back to its sender")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", 0, "disconnect clients silent for this long (0 disables)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", 0, "give up a single send after this long (0 disables)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "prometheus metrics listen address (empty disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return ServerConfig{}, err
	}
	if len(positional) != 1 {
		return ServerConfig{}, errors.Wrapf(ErrUsage, "expected exactly one port, got %d arguments", len(positional))
	}

	port, err := parsePort(positional[0])
	if err != nil {
		return ServerConfig{}, err
	}
	cfg.Port = port

	if cfg.IdleTimeout < 0 || cfg.WriteTimeout < 0 {
		return ServerConfig{}, errors.Wrap(ErrUsage, "timeouts must not be negative")
	}
	if excludeSender {
		cfg.SenderPolicy = SenderExcluded
	}
	return cfg, nil
}

// ParseClientArgs parses `<ip> <port>`.
func ParseClientArgs(args []string) (ClientConfig, string, error) {
	fs := newFlagSet("echo-client")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return ClientConfig{}, "", err
	}
	if len(positional) != 2 {
		return ClientConfig{}, "", errors.Wrapf(ErrUsage, "expected ip and port, got %d arguments", len(positional))
	}
	// Range is left to the dialer: the client only insists on digits.
	if err := checkNumeric(positional[1]); err != nil {
		return ClientConfig{}, "", err
	}
	return ClientConfig{Host: positional[0], Port: positional[1]}, *logLevel, nil
}

// ServerUsage writes the server usage text.
func ServerUsage(w io.Writer) {
	fmt.Fprintln(w, "syntax : echo-server <port> [-e [-b]]")
	fmt.Fprintln(w, "sample : echo-server 1234 -e -b")
}

// ClientUsage writes the client usage text.
func ClientUsage(w io.Writer) {
	fmt.Fprintln(w, "syntax : echo-client <ip> <port>")
	fmt.Fprintln(w, "sample : echo-client 192.168.10.2 1234")
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseInterleaved collects positional arguments while still honoring flags that follow them.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			if err == flag.ErrHelp {
				return nil, err
			}
			return nil, errors.Wrap(ErrUsage, err.Error())
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}
}

func checkNumeric(s string) error {
	if s == "" {
		return errors.Wrap(ErrUsage, "port is empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return errors.Wrapf(ErrUsage, "port %q is not numeric", s)
		}
	}
	return nil
}

func parsePort(s string) (uint16, error) {
	if err := checkNumeric(s); err != nil {
		return 0, err
	}
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil || port == 0 {
		return 0, errors.Wrapf(ErrUsage, "port %q out of range", s)
	}
	return uint16(port), nil
}
