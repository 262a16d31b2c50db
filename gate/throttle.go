package gate

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	// maxFailures is the number of consecutive failures before lockout begins.
	maxFailures = 5
	// baseLockout is the initial lockout after maxFailures is reached.
	baseLockout = 1 * time.Minute
	// maxLockout caps the exponential backoff.
	maxLockout = 15 * time.Minute
	// attemptExpiry is how long after the last failure a record is forgotten.
	attemptExpiry = 1 * time.Hour
)

// ThrottledError reports a rejected unlock attempt during lockout.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s; retry in %s", ErrThrottled, e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Unwrap() error { return ErrThrottled }

// RetryAfterSeconds formats the wait for a Retry-After header.
func (e *ThrottledError) RetryAfterSeconds() string {
	secs := int(e.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Throttle tracks consecutive failed unlocks per key and applies an
// exponential lockout. The zero value is not usable; call NewThrottle.
type Throttle struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	now      func() time.Time
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

func NewThrottle() *Throttle {
	return &Throttle{
		attempts: make(map[string]*attemptRecord),
		now:      time.Now,
	}
}

// Check returns how long key must wait. Zero means the attempt may proceed.
func (t *Throttle) Check(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.attempts[key]
	if !ok {
		return 0
	}
	now := t.now()
	if now.Sub(rec.lastFailure) > attemptExpiry {
		delete(t.attempts, key)
		return 0
	}
	if now.Before(rec.lockedUntil) {
		return rec.lockedUntil.Sub(now)
	}
	return 0
}

// Failure records a failed attempt for key.
func (t *Throttle) Failure(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.attempts[key]
	if !ok {
		rec = &attemptRecord{}
		t.attempts[key] = rec
	}
	now := t.now()
	rec.failures++
	rec.lastFailure = now

	if rec.failures >= maxFailures {
		lockout := baseLockout
		for i := 0; i < rec.failures-maxFailures; i++ {
			lockout *= 2
			if lockout > maxLockout {
				lockout = maxLockout
				break
			}
		}
		rec.lockedUntil = now.Add(lockout)
	}
}

// Success forgets key.
func (t *Throttle) Success(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, key)
}

// Sweep drops expired records. Call periodically from a background goroutine.
func (t *Throttle) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, rec := range t.attempts {
		if now.Sub(rec.lastFailure) > attemptExpiry {
			delete(t.attempts, key)
		}
	}
}
