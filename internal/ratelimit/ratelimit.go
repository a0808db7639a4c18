// Package ratelimit provides the fixed-window quota applied in front of the
// external-service endpoints. The limiter is an injected component owned by
// the API boundary, not a process-wide singleton.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Reference policy: 10 requests per 60-second window per caller identifier.
const (
	DefaultCapacity = 10
	DefaultWindow   = time.Minute
)

// Result reports one quota check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per identifier within fixed windows.
type Limiter struct {
	capacity int
	window   time.Duration
	clock    clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
}

func New(capacity int, window time.Duration, clock clockwork.Clock) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{
		capacity: capacity,
		window:   window,
		clock:    clock,
		entries:  make(map[string]*entry),
	}
}

// Check consumes one request for identifier if quota remains.
func (l *Limiter) Check(identifier string) Result {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok || now.After(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(l.window)}
		l.entries[identifier] = e
		return Result{Allowed: true, Remaining: l.capacity - 1, ResetAt: e.resetAt}
	}
	if e.count >= l.capacity {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}
	e.count++
	return Result{Allowed: true, Remaining: l.capacity - e.count, ResetAt: e.resetAt}
}

// Sweep drops expired windows. Callers run it periodically to keep the table
// from accumulating idle identifiers.
func (l *Limiter) Sweep() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, id)
		}
	}
}
