package config

import (
	"bytes"
	"flag"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerArgs_Modes(t *testing.T) {
	cases := []struct {
		args []string
		mode Mode
	}{
		{[]string{"1234"}, ModeSilent},
		{[]string{"1234", "-e"}, ModeEcho},
		{[]string{"1234", "-e", "-b"}, ModeBroadcast},
		{[]string{"-e", "-b", "1234"}, ModeBroadcast},
		{[]string{"1234", "-b"}, ModeSilent},
	}
	for _, c := range cases {
		cfg, err := ParseServerArgs(c.args)
		require.NoError(t, err, "args %v", c.args)
		assert.Equal(t, uint16(1234), cfg.Port)
		assert.Equal(t, c.mode, cfg.Mode(), "args %v", c.args)
		assert.Equal(t, SenderIncluded, cfg.SenderPolicy)
	}
}

func TestParseServerArgs_Hardening(t *testing.T) {
	cfg, err := ParseServerArgs([]string{
		"8080", "-e", "-b", "-exclude-sender",
		"-idle-timeout", "30s", "-write-timeout=2s", "-metrics-addr", ":9090",
	})
	require.NoError(t, err)
	assert.Equal(t, SenderExcluded, cfg.SenderPolicy)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseServerArgs_Errors(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"-e"},
		{"abc"},
		{"0"},
		{"70000"},
		{"12a"},
		{"1234", "5678"},
		{"1234", "-x"},
		{"1234", "-idle-timeout", "-1s"},
	} {
		_, err := ParseServerArgs(args)
		require.Error(t, err, "args %v", args)
		assert.Equal(t, ErrUsage, errors.Cause(err), "args %v", args)
	}

	_, err := ParseServerArgs([]string{"-h"})
	assert.Equal(t, flag.ErrHelp, err)
}

func TestParseClientArgs(t *testing.T) {
	cfg, level, err := ParseClientArgs([]string{"127.0.0.1", "1234"})
	require.NoError(t, err)
	assert.Equal(t, ClientConfig{Host: "127.0.0.1", Port: "1234"}, cfg)
	assert.Equal(t, "info", level)

	_, level, err = ParseClientArgs([]string{"-log-level", "debug", "localhost", "80"})
	require.NoError(t, err)
	assert.Equal(t, "debug", level)

	for _, args := range [][]string{
		nil,
		{"127.0.0.1"},
		{"127.0.0.1", "http"},
		{"127.0.0.1", ""},
		{"127.0.0.1", "-12"},
		{"127.0.0.1", "1234", "extra"},
	} {
		_, _, err := ParseClientArgs(args)
		assert.Equal(t, ErrUsage, errors.Cause(err), "args %v", args)
	}
}

func TestParseClientArgs_PortRangeLeftToDialer(t *testing.T) {
	for _, port := range []string{"0", "70000"} {
		cfg, _, err := ParseClientArgs([]string{"127.0.0.1", port})
		require.NoError(t, err, "port %s", port)
		assert.Equal(t, port, cfg.Port)
	}
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	ServerUsage(&buf)
	assert.Contains(t, buf.String(), "echo-server <port> [-e [-b]]")

	buf.Reset()
	ClientUsage(&buf)
	assert.Contains(t, buf.String(), "echo-client <ip> <port>")
}

func TestLogLevel(t *testing.T) {
	l, err := LogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	_, err = LogLevel("loud")
	assert.Equal(t, ErrUsage, errors.Cause(err))
}
