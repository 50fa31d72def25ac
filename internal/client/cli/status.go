package cli

import (
	"context"
	"sync"
	"time"

	"github.com/silverkiwi/jobs-manager-sub002/internal/client/client"
)

// statusPoller probes server reachability in the background so the prompt
// can show whether autosaves have a chance of landing.
type statusPoller struct {
	api      client.Client
	interval time.Duration

	mu        sync.Mutex
	online    bool
	lastError error
}

func newStatusPoller(api client.Client, interval time.Duration) *statusPoller {
	return &statusPoller{api: api, interval: interval}
}

// Run pings the server on every tick until ctx is cancelled.
func (p *statusPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *statusPoller) probe(ctx context.Context) {
	err := p.api.Ping(ctx)

	p.mu.Lock()
	p.online = err == nil
	p.lastError = err
	p.mu.Unlock()
}

// Online reports the result of the most recent probe.
func (p *statusPoller) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}
