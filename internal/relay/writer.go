package relay

import (
	"io"
	"time"
)

// Send writes p to the client. Calls are serialized per client so an echo
// reply and any number of concurrent broadcasts never interleave on the wire.
func (c *Client) Send(p []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	n, err := c.Conn.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}
