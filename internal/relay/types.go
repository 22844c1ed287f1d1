package relay

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxChunk is the largest payload a single receive can yield.
const MaxChunk = 65536

// Client is the handle of one live connection. The owning session reads from
// Conn; everybody else writes through Send.
type Client struct {
	ID   string
	Conn net.Conn

	writeTimeout time.Duration
	sendMu       sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

// NewClient wraps an accepted connection with a fresh id.
func NewClient(conn net.Conn, writeTimeout time.Duration) *Client {
	return &Client{
		ID:           uuid.NewString(),
		Conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// RemoteAddr is used for logging only.
func (c *Client) RemoteAddr() string {
	if c.Conn == nil || c.Conn.RemoteAddr() == nil {
		return ""
	}
	return c.Conn.RemoteAddr().String()
}

// Close closes the connection once; later calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

var (
	ErrDuplicateClient = errorString("client already registered")
	ErrServerStarted   = errorString("server already started")
	ErrServerStopped   = errorString("server stopped")
)

type errorString string

func (e errorString) Error() string { return string(e) }
