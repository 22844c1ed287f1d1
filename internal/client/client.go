// Package client implements the interactive side of the relay: it streams
// input lines to the server and copies whatever the server sends to an output.
package client

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/pkg/errors"

	"github.com/Lanternbit/echo-client-server/internal/config"
)

// RecvBufSize bounds a single receive.
const RecvBufSize = 65535

// lineSuffix is appended to each input line for the human on the other end.
// It is not a framing rule.
const lineSuffix = "\r\n"

type Client struct {
	conn   net.Conn
	logger *slog.Logger
}

// Dial connects to the configured server.
func Dial(ctx context.Context, cfg config.ClientConfig, logger *slog.Logger) (*Client, error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to %s", addr)
	}
	return New(conn, logger), nil
}

// New wraps an established connection.
func New(conn net.Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:   conn,
		logger: logger.With("server", conn.RemoteAddr().String()),
	}
}

// Run sends every line read from in and concurrently copies received bytes
// to out. Once in is exhausted it half-closes the connection and waits for
// the server to close its side.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	defer c.conn.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.logger.Info("connected")
	recvDone := make(chan error, 1)
	go func() {
		recvDone <- c.receive(out)
	}()

	lines := make(chan string)
	inputErr := make(chan error, 1)
	go func() {
		inputErr <- readLines(ctx, in, lines)
	}()

	for {
		select {
		case line := <-lines:
			if err := c.send(line); err != nil {
				return err
			}
		case err := <-inputErr:
			if err != nil {
				return errors.Wrap(err, "read input")
			}
			// Half-close so replies still in flight get printed.
			if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
				if err := cw.CloseWrite(); err == nil {
					return c.waitReceive(ctx, recvDone)
				}
			}
			return nil
		case err := <-recvDone:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) send(line string) error {
	p := []byte(line + lineSuffix)
	n, err := c.conn.Write(p)
	if err != nil {
		return errors.Wrap(err, "send")
	}
	if n != len(p) {
		return errors.Wrap(io.ErrShortWrite, "send")
	}
	return nil
}

func (c *Client) waitReceive(ctx context.Context, recvDone <-chan error) error {
	select {
	case err := <-recvDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// receive copies raw bytes to out until the connection ends. An orderly close
// by the server is not an error.
func (c *Client) receive(out io.Writer) error {
	defer c.logger.Info("disconnected")

	buf := make([]byte, RecvBufSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return errors.Wrap(werr, "write output")
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "recv")
		}
	}
}

// readLines feeds lines from in without their terminator. A final line with
// no newline is still delivered.
func readLines(ctx context.Context, in io.Reader, lines chan<- string) error {
	r := bufio.NewReader(in)
	for {
		line, err := r.ReadString('\n')
		if line != "" || err == nil {
			select {
			case lines <- strings.TrimRight(line, "\r\n"):
			case <-ctx.Done():
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
