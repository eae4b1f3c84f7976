// Package pool hands backend targets to sessions in round-robin order.
package pool

import (
	"context"
	"fmt"

	"github.com/wesleyorama2/shopload/internal/config"
	shophttp "github.com/wesleyorama2/shopload/internal/http"
)

// Backend is one pool entry: a target address plus the client used to reach
// it. Entries for the same target share one client.
type Backend struct {
	Target config.Target

	// Slot numbers the entries of a target with slots > 1, starting at 1
	Slot int

	client *shophttp.Client
}

// NewBackend creates a pool entry for target.
func NewBackend(target config.Target, slot int, client *shophttp.Client) *Backend {
	return &Backend{Target: target, Slot: slot, client: client}
}

// NewBackends builds the pool order for targets. A target with slots k
// contributes k entries; entries are interleaved so that all first slots come
// before all second slots, and so on.
func NewBackends(targets []config.Target, opts ...shophttp.ClientOption) []*Backend {
	clients := make([]*shophttp.Client, len(targets))
	maxSlots := 0
	for i, t := range targets {
		clientOpts := append([]shophttp.ClientOption{shophttp.WithBaseURL(t.BaseURL())}, opts...)
		clients[i] = shophttp.NewClient(clientOpts...)
		if t.SlotCount() > maxSlots {
			maxSlots = t.SlotCount()
		}
	}

	var backends []*Backend
	for slot := 1; slot <= maxSlots; slot++ {
		for i, t := range targets {
			if slot <= t.SlotCount() {
				backends = append(backends, NewBackend(t, slot, clients[i]))
			}
		}
	}
	return backends
}

// Do sends req to this backend.
func (b *Backend) Do(ctx context.Context, req *shophttp.Request) (*shophttp.Response, error) {
	return b.client.Do(ctx, req)
}

// BaseURL returns the base URL of the target.
func (b *Backend) BaseURL() string {
	return b.Target.BaseURL()
}

// String names the backend in logs.
func (b *Backend) String() string {
	if b.Target.SlotCount() > 1 {
		return fmt.Sprintf("%s#%d", b.Target.Address(), b.Slot)
	}
	return b.Target.Address()
}

// Close releases idle connections held by the backend's client.
func (b *Backend) Close() {
	b.client.CloseIdleConnections()
}
