package llm

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is blocking calls to a
// failing endpoint.
var ErrCircuitOpen = errors.New("llm endpoint circuit open; backing off")

// BreakerConfig holds circuit breaker thresholds.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures before tripping.
	Threshold int
	// ResetAfter is how long to block before allowing a probe call.
	ResetAfter time.Duration
}

// DefaultBreakerConfig returns the defaults used by the generator.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker trips after consecutive generation failures so a dead
// endpoint fails fast instead of stacking up timed-out requests.
type CircuitBreaker struct {
	mu            sync.Mutex
	cfg           BreakerConfig
	failures      int
	trippedAt     time.Time
	halfOpen      bool
	probeInFlight bool
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultBreakerConfig().Threshold
	}
	if cfg.ResetAfter <= 0 {
		cfg.ResetAfter = DefaultBreakerConfig().ResetAfter
	}
	return &CircuitBreaker{cfg: cfg}
}

// Allow returns nil when a call may proceed. While tripped it returns
// ErrCircuitOpen until ResetAfter has elapsed, then lets a single probe
// through.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.cfg.Threshold {
		return nil
	}

	if time.Since(b.trippedAt) < b.cfg.ResetAfter {
		return ErrCircuitOpen
	}

	// Half-open: one probe at a time.
	if b.probeInFlight {
		return ErrCircuitOpen
	}
	b.halfOpen = true
	b.probeInFlight = true
	return nil
}

// RecordSuccess closes the breaker.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.halfOpen = false
	b.probeInFlight = false
}

// RecordFailure counts a failure, tripping or re-tripping the breaker at
// the threshold.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.probeInFlight = false
	if b.halfOpen || b.failures == b.cfg.Threshold {
		b.trippedAt = time.Now()
		b.halfOpen = false
		// A failed probe keeps the breaker tripped for another window.
		if b.failures > b.cfg.Threshold {
			b.failures = b.cfg.Threshold
		}
	}
}

// ConsecutiveFailures reports the current failure streak.
func (b *CircuitBreaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
