package guard

import (
	"context"
	"sync"

	"github.com/bookieverse/platform/internal/domain"
)

// ReplayGuard deduplicates external deliveries by replay key. The score feed
// redelivers updates and Stripe retries webhooks; the first delivery wins.
type ReplayGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewReplayGuard creates a new in-memory replay guard.
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{
		seen: make(map[string]bool),
	}
}

// Check returns whether the given key has already been processed.
func (g *ReplayGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.seen[key] {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate delivery: replay key already processed",
			Guard:   "replay",
		}
	}

	g.seen[key] = true
	return domain.GuardResult{Allowed: true}
}

// Remove deletes a key from the seen set so a failed handler can be retried.
func (g *ReplayGuard) Remove(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
}
