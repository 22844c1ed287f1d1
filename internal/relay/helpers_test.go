package relay

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// recordConn is an in-memory net.Conn that records writes. Reads block until Close.
type recordConn struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	writes   int
	writeErr error
	short    bool

	inflight   atomic.Int32
	overlapped atomic.Bool

	closeOnce sync.Once
	closed    chan struct{}
}

func newRecordConn() *recordConn {
	return &recordConn{closed: make(chan struct{})}
}

func (c *recordConn) Write(p []byte) (int, error) {
	if c.inflight.Add(1) > 1 {
		c.overlapped.Store(true)
	}
	defer c.inflight.Add(-1)
	// Widen the window for overlapping writers.
	time.Sleep(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.short {
		return 0, nil
	}
	c.writes++
	return c.buf.Write(p)
}

func (c *recordConn) Read(p []byte) (int, error) {
	<-c.closed
	return 0, net.ErrClosed
}

func (c *recordConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *recordConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *recordConn) received() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *recordConn) LocalAddr() net.Addr                { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }
func (c *recordConn) RemoteAddr() net.Addr               { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000} }
func (c *recordConn) SetDeadline(t time.Time) error      { return nil }
func (c *recordConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *recordConn) SetWriteDeadline(t time.Time) error { return nil }

var errBrokenPipe = errors.New("broken pipe")

func newTestClient() (*Client, *recordConn) {
	conn := newRecordConn()
	return NewClient(conn, 0), conn
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
