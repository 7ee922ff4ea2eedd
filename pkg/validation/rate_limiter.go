package validation

import (
	"sync"

	"github.com/opd-ai/go-isonav/pkg/entity"
)

// RateLimiter is a token bucket per agent measured in simulation ticks
// rather than wall time, so replays and tests behave the same at any speed.
type RateLimiter struct {
	maxRequests int
	windowTicks uint64
	tick        uint64
	clients     map[entity.ID]*bucket
	mu          sync.Mutex
}

type bucket struct {
	tokens     int
	lastRefill uint64
}

// NewRateLimiter allows maxRequests per windowTicks ticks for each agent.
func NewRateLimiter(maxRequests, windowTicks int) *RateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		windowTicks: uint64(windowTicks),
		clients:     make(map[entity.ID]*bucket),
	}
}

// Allow consumes a token for id if one is available.
func (rl *RateLimiter) Allow(id entity.ID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[id]
	if !ok {
		b = &bucket{tokens: rl.maxRequests, lastRefill: rl.tick}
		rl.clients[id] = b
	}

	elapsed := rl.tick - b.lastRefill
	if elapsed > 0 && b.tokens < rl.maxRequests {
		add := int(uint64(rl.maxRequests) * elapsed / rl.windowTicks)
		if add > 0 {
			b.tokens = min(b.tokens+add, rl.maxRequests)
			b.lastRefill = rl.tick
		}
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Advance moves the limiter forward one tick. Once per window it drops
// agents that have not been refilled for two windows.
func (rl *RateLimiter) Advance() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tick++
	if rl.tick%rl.windowTicks != 0 || rl.tick < 2*rl.windowTicks {
		return
	}
	cutoff := rl.tick - 2*rl.windowTicks
	for id, b := range rl.clients {
		if b.lastRefill < cutoff {
			delete(rl.clients, id)
		}
	}
}

// Forget drops the bucket of a removed agent.
func (rl *RateLimiter) Forget(id entity.ID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.clients, id)
}

// Tick returns the number of Advance calls so far.
func (rl *RateLimiter) Tick() uint64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tick
}

// Len returns the number of tracked agents.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
