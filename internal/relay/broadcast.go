package relay

import (
	"log/slog"
	"sync"
)

// BroadcastReport summarizes one fan-out.
type BroadcastReport struct {
	Attempted int
	Delivered int
	// Failures maps recipient ids to their send error.
	Failures map[string]error
}

// Broadcaster delivers one payload to every registered client.
type Broadcaster struct {
	reg    *Registry
	logger *slog.Logger
}

func NewBroadcaster(reg *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{reg: reg, logger: logger}
}

// Broadcast sends payload to each client registered at call time except
// exclude (which may be nil), and returns once every attempt has finished.
// A failed recipient is reported but left registered: its own session
// notices the broken connection and removes itself.
func (b *Broadcaster) Broadcast(payload []byte, exclude *Client) BroadcastReport {
	targets := b.reg.Snapshot()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = BroadcastReport{Failures: map[string]error{}}
	)
	for _, c := range targets {
		if c == exclude {
			continue
		}
		report.Attempted++

		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			err := c.Send(payload)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures[c.ID] = err
				BroadcastFailuresTotal.Inc()
				b.logger.Warn("broadcast send failed", "client", c.ID, "remote", c.RemoteAddr(), "error", err)
				return
			}
			report.Delivered++
		}(c)
	}
	wg.Wait()
	return report
}
