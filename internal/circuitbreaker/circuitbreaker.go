// Package circuitbreaker guards best-effort collaborators. When a dependency keeps
// failing, callers skip it instead of paying its timeout on every request.
//
// States:
//   - Closed: calls pass through
//   - Open: calls are skipped until the cool-down elapses
//   - Half-Open: a trial call decides whether to close again
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type Config struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes before closing
	Timeout          time.Duration // open duration before a trial call
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          30 * time.Second,
	}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name   string
	config Config
	now    func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	openedAt      time.Time
	onStateChange func(name string, from, to State)
}

func New(name string, cfg Config) *Breaker {
	return &Breaker{
		name:   name,
		config: cfg,
		now:    time.Now,
		state:  StateClosed,
	}
}

// OnStateChange registers fn to be called, outside the lock, on every transition.
func (b *Breaker) OnStateChange(fn func(name string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Allow returns domain.ErrCircuitBreakerOpen while the breaker is open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.config.Timeout {
			b.mu.Unlock()
			return domain.ErrCircuitBreakerOpen
		}
		notify := b.setState(StateHalfOpen)
		b.mu.Unlock()
		notify()
		return nil
	}
	b.mu.Unlock()
	return nil
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	notify := func() {}
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			notify = b.setState(StateClosed)
		}
	}
	b.mu.Unlock()
	notify()
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	notify := func() {}
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			notify = b.setState(StateOpen)
		}
	case StateHalfOpen:
		notify = b.setState(StateOpen)
	}
	b.mu.Unlock()
	notify()
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// setState must be called with mu held. It returns the pending notification.
func (b *Breaker) setState(to State) func() {
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == StateOpen {
		b.openedAt = b.now()
	}

	fn := b.onStateChange
	if fn == nil || from == to {
		return func() {}
	}
	name := b.name
	return func() { fn(name, from, to) }
}
