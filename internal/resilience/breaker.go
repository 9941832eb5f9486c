package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without running it.
var ErrOpen = errors.New("resilience: circuit open")

// State is the breaker's current position.
type State int

const (
	// Closed lets calls through and counts failures.
	Closed State = iota
	// Open rejects calls until the cooldown elapses.
	Open
	// HalfOpen lets one probe call through after the cooldown.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker is a circuit breaker: after Threshold consecutive failures it
// opens and rejects calls for Cooldown, then allows a single probe. A
// successful probe closes it again; a failed probe reopens it.
type Breaker struct {
	Threshold int
	Cooldown  time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	now      func() time.Time // test hook
}

// NewBreaker creates a breaker. Non-positive threshold defaults to 5,
// non-positive cooldown to 30s.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{Threshold: threshold, Cooldown: cooldown, now: time.Now}
}

// Do runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}

	err := fn()
	b.record(err == nil)
	return err
}

// State returns the breaker's current position, accounting for an elapsed
// cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.Cooldown {
		return HalfOpen
	}
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) >= b.Cooldown {
			b.state = HalfOpen
			return true
		}
		return false
	case HalfOpen:
		// One probe at a time; others are rejected until it reports.
		return false
	}
	return false
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		b.state = Closed
		b.failures = 0
		return
	}

	if b.state == HalfOpen {
		b.state = Open
		b.openedAt = b.now()
		return
	}

	b.failures++
	if b.failures >= b.Threshold {
		b.state = Open
		b.openedAt = b.now()
	}
}
