package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc is invoked outside the breaker lock after a transition.
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker trips after a run of consecutive failures, rejects calls for
// the cooldown, then lets a bounded number of probes through. Methods on a nil
// breaker are no-ops that always allow.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	probes    int
	onChange  StateChangeFunc
	now       func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openedAt  time.Time
	inFlight  int
	successes int
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: max(failureThreshold, 1),
		cooldown:  cmpOr(openTimeout, 15*time.Second),
		probes:    max(halfOpenMaxReq, 1),
		now:       time.Now,
		state:     CircuitStateClosed,
	}
}

func cmpOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (b *CircuitBreaker) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Allow reserves a call slot, returning ErrCircuitOpen when the breaker
// rejects it. Every nil return must be paired with Done.
func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}

	var err error
	b.update(func() {
		if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
			b.transition(CircuitStateHalfOpen)
		}
		switch b.state {
		case CircuitStateOpen:
			err = ErrCircuitOpen
		case CircuitStateHalfOpen:
			if b.inFlight >= b.probes {
				err = ErrCircuitOpen
				return
			}
			b.inFlight++
		}
	})
	return err
}

// Done reports the outcome of a call admitted by Allow. Only failures that
// say something about upstream health should pass failed=true.
func (b *CircuitBreaker) Done(failed bool) {
	if b == nil {
		return
	}

	b.update(func() {
		if b.state == CircuitStateHalfOpen && b.inFlight > 0 {
			b.inFlight--
		}
		switch {
		case b.state == CircuitStateOpen && failed:
			b.openedAt = b.now()
		case b.state == CircuitStateHalfOpen && failed:
			b.transition(CircuitStateOpen)
		case b.state == CircuitStateHalfOpen:
			b.successes++
			if b.successes >= b.probes && b.inFlight == 0 {
				b.transition(CircuitStateClosed)
			}
		case failed:
			b.failures++
			if b.failures >= b.threshold {
				b.transition(CircuitStateOpen)
			}
		default:
			b.failures = 0
		}
	})
}

// State reports half_open once the cooldown has elapsed, even before the
// next Allow moves the breaker there.
func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) update(fn func()) {
	b.mu.Lock()
	from := b.state
	fn()
	to := b.state
	b.mu.Unlock()

	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

// transition must be called with mu held.
func (b *CircuitBreaker) transition(to CircuitState) {
	b.state = to
	b.failures = 0
	b.inFlight = 0
	b.successes = 0
	b.openedAt = time.Time{}
	if to == CircuitStateOpen {
		b.openedAt = b.now()
	}
}
