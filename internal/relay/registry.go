package relay

import (
	"log/slog"
	"sync"
)

// Registry is the set of live clients. Membership changes and snapshots
// serialize on one lock; the lock is never held across a network send.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds c. It fails only when a client with the same id is present.
func (r *Registry) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c.ID]; exists {
		return ErrDuplicateClient
	}
	r.clients[c.ID] = c
	ConnectedClients.Inc()

	r.logger.Debug("client registered", "client", c.ID, "clients", len(r.clients))
	return nil
}

// Deregister removes c if present and reports whether it did. Removing an
// absent client is a no-op.
func (r *Registry) Deregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.clients[c.ID]; !ok || cur != c {
		return false
	}
	delete(r.clients, c.ID)
	ConnectedClients.Dec()

	r.logger.Debug("client deregistered", "client", c.ID, "clients", len(r.clients))
	return true
}

// Snapshot returns a copy of the current members.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// ForEach calls fn for every member of a snapshot taken at call time.
func (r *Registry) ForEach(fn func(*Client)) {
	for _, c := range r.Snapshot() {
		fn(c)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
