// Package ratelimit implements per-client sliding-window rate limiting with
// a layered burst cap and bounded-memory eviction of idle clients.
package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/services"
)

// LimitKind identifies which window rejected a request
type LimitKind string

const (
	KindSustained LimitKind = "sustained"
	KindBurst     LimitKind = "burst"
)

const (
	sustainedWindow = time.Minute
	burstWindow     = time.Second
)

// Config holds the limiter thresholds
type Config struct {
	RequestsPerMinute int
	BurstLimit        int
	IdleEviction      time.Duration // idle clients older than this are dropped
	SweepInterval     time.Duration // minimum gap between full-map sweeps
}

// Decision is the outcome of an Allow call. Limit and Remaining describe the
// sustained window for client back-off headers.
type Decision struct {
	Allowed    bool
	Kind       LimitKind
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// clientState tracks one client's request timestamps. Both windows are
// pruned on every request from that client.
type clientState struct {
	minute   []time.Time
	second   []time.Time
	lastSeen time.Time
}

// Limiter is the explicit shared state object for rate limiting. All fields
// are guarded by mu; the check-prune-record sequence for a client is atomic
// with respect to concurrent requests and the eviction sweep. No I/O happens
// inside the critical section.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*clientState
	cfg       Config
	lastSweep time.Time
	logger    *zap.Logger
	now       func() time.Time
}

// NewLimiter creates a new Limiter
func NewLimiter(cfg Config, logger *zap.Logger) *Limiter {
	if cfg.IdleEviction <= 0 {
		cfg.IdleEviction = 5 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Limiter{
		clients: make(map[string]*clientState),
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source, used by tests
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow decides whether a request from the client may proceed. Both windows
// are checked before any timestamp is recorded, so a rejected request leaves
// no partial state behind.
func (l *Limiter) Allow(clientID string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		l.sweepLocked(now)
	}

	state, ok := l.clients[clientID]
	if !ok {
		state = &clientState{}
		l.clients[clientID] = state
	}

	state.minute = prune(state.minute, now.Add(-sustainedWindow))
	state.second = prune(state.second, now.Add(-burstWindow))

	if len(state.minute) >= l.cfg.RequestsPerMinute {
		retry := sustainedWindow - now.Sub(state.minute[0])
		return Decision{
			Kind:       KindSustained,
			Limit:      l.cfg.RequestsPerMinute,
			Remaining:  0,
			RetryAfter: retry,
		}
	}
	if len(state.second) >= l.cfg.BurstLimit {
		retry := burstWindow - now.Sub(state.second[0])
		return Decision{
			Kind:       KindBurst,
			Limit:      l.cfg.RequestsPerMinute,
			Remaining:  l.cfg.RequestsPerMinute - len(state.minute),
			RetryAfter: retry,
		}
	}

	state.minute = append(state.minute, now)
	state.second = append(state.second, now)
	state.lastSeen = now

	return Decision{
		Allowed:   true,
		Limit:     l.cfg.RequestsPerMinute,
		Remaining: l.cfg.RequestsPerMinute - len(state.minute),
	}
}

// Err maps a rejecting decision to the domain error taxonomy
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Kind == KindBurst {
		return services.ErrRateLimitBurst.WithDetail("kind", string(KindBurst))
	}
	return services.ErrRateLimitSustained.WithDetail("kind", string(KindSustained))
}

// TrackedClients returns the number of clients currently held in memory
func (l *Limiter) TrackedClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Reset drops all tracked state. Used at teardown and in tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients = make(map[string]*clientState)
	l.lastSweep = time.Time{}
}

// sweepLocked removes clients idle beyond the eviction threshold. Caller
// holds mu. This bounds memory to clients active within the threshold window.
func (l *Limiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-l.cfg.IdleEviction)
	evicted := 0
	for id, state := range l.clients {
		if state.lastSeen.Before(cutoff) {
			delete(l.clients, id)
			evicted++
		}
	}
	l.lastSweep = now
	if evicted > 0 {
		l.logger.Debug("evicted idle rate limit clients",
			zap.Int("evicted", evicted),
			zap.Int("remaining", len(l.clients)))
	}
}

// prune drops timestamps at or before the cutoff. Timestamps are appended in
// order, so the first retained index bounds the copy.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}
