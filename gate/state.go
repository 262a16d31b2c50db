package gate

import (
	"context"
	"fmt"
	"sync"
)

// State is the position of a Gate in its unlock cycle.
type State int

const (
	Locked State = iota
	Checking
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Checking:
		return "checking"
	case Unlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// UnlockFlag persists the unlocked marker for the current session so that a
// restart of the editor within the same session does not prompt again.
type UnlockFlag interface {
	Unlocked(ctx context.Context) (bool, error)
	MarkUnlocked(ctx context.Context) error
	ClearUnlocked(ctx context.Context) error
}

// Gate is the Locked -> Checking -> Unlocked state machine for one session.
type Gate struct {
	mu    sync.Mutex
	cfg   Config
	flag  UnlockFlag
	state State
	err   error

	// attempt identifies the newest unlock attempt. Only that attempt may
	// move the state; Lock bumps it so a verification still running cannot
	// unlock afterwards.
	attempt uint64

	throttle    *Throttle
	throttleKey string
}

// Option configures a Gate.
type Option func(*Gate)

// WithThrottle rejects unlock attempts for key while t reports a lockout.
func WithThrottle(t *Throttle, key string) Option {
	return func(g *Gate) {
		g.throttle = t
		g.throttleKey = key
	}
}

// New builds a Gate for cfg. A disabled gate starts Unlocked and clears any
// stale flag; an enabled one starts Unlocked only if flag says so.
func New(ctx context.Context, cfg Config, flag UnlockFlag, opts ...Option) (*Gate, error) {
	if flag == nil {
		flag = &memoryFlag{}
	}
	g := &Gate{cfg: cfg, flag: flag, state: Locked}
	for _, opt := range opts {
		opt(g)
	}

	if !IsEnabled(&cfg) {
		if err := flag.ClearUnlocked(ctx); err != nil {
			return nil, fmt.Errorf("clearing unlock flag: %w", err)
		}
		g.state = Unlocked
		return g, nil
	}

	unlocked, err := flag.Unlocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading unlock flag: %w", err)
	}
	if unlocked {
		g.state = Unlocked
	}
	return g, nil
}

// Reconfigure swaps in a new gate record, for instance after the operator
// validated a document carrying a different admin.gate block. The state is
// recomputed as in New and any attempt in flight is invalidated.
func (g *Gate) Reconfigure(ctx context.Context, cfg Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempt++
	g.cfg = cfg
	g.err = nil

	if !IsEnabled(&cfg) {
		g.state = Unlocked
		if err := g.flag.ClearUnlocked(ctx); err != nil {
			return fmt.Errorf("clearing unlock flag: %w", err)
		}
		return nil
	}
	unlocked, err := g.flag.Unlocked(ctx)
	if err != nil {
		g.state = Locked
		return fmt.Errorf("reading unlock flag: %w", err)
	}
	if unlocked {
		g.state = Unlocked
	} else {
		g.state = Locked
	}
	return nil
}

// Enabled reports whether the gate requires a password.
func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return IsEnabled(&g.cfg)
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the error of the last failed attempt, if the gate is still
// locked because of it.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Unlock verifies password against the configured gate. The derivation runs
// without holding the lock, so State reports Checking in the meantime.
func (g *Gate) Unlock(ctx context.Context, password string) error {
	g.mu.Lock()
	if !IsEnabled(&g.cfg) {
		g.state = Unlocked
		g.err = nil
		g.mu.Unlock()
		return nil
	}
	if password == "" {
		g.err = ErrPasswordRequired
		g.mu.Unlock()
		return ErrPasswordRequired
	}
	if g.throttle != nil {
		if wait := g.throttle.Check(g.throttleKey); wait > 0 {
			err := &ThrottledError{RetryAfter: wait}
			g.err = err
			g.mu.Unlock()
			return err
		}
	}
	g.attempt++
	attempt := g.attempt
	cfg := g.cfg
	g.state = Checking
	g.err = nil
	g.mu.Unlock()

	derived, err := DeriveHash(password, cfg.Salt, cfg.Iterations, HashSize)
	ok := err == nil && Verify(cfg.PasswordHash, derived)
	if err == nil && !ok {
		err = ErrWrongPassword
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	current := attempt == g.attempt

	if err != nil {
		if g.throttle != nil && err == ErrWrongPassword {
			g.throttle.Failure(g.throttleKey)
		}
		if current {
			g.state = Locked
			g.err = err
			if clearErr := g.flag.ClearUnlocked(ctx); clearErr != nil {
				return fmt.Errorf("%w (clearing unlock flag: %v)", err, clearErr)
			}
		}
		return err
	}

	if g.throttle != nil {
		g.throttle.Success(g.throttleKey)
	}
	if !current {
		return ErrSuperseded
	}
	if err := g.flag.MarkUnlocked(ctx); err != nil {
		g.state = Locked
		g.err = err
		return fmt.Errorf("persisting unlock flag: %w", err)
	}
	g.state = Unlocked
	return nil
}

// Lock returns the gate to Locked from any state and clears the session flag.
func (g *Gate) Lock(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempt++
	g.state = Locked
	g.err = nil
	if err := g.flag.ClearUnlocked(ctx); err != nil {
		return fmt.Errorf("clearing unlock flag: %w", err)
	}
	return nil
}

// memoryFlag keeps the unlock flag in process memory only.
type memoryFlag struct {
	mu  sync.Mutex
	set bool
}

func (f *memoryFlag) Unlocked(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set, nil
}

func (f *memoryFlag) MarkUnlocked(context.Context) error {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
	return nil
}

func (f *memoryFlag) ClearUnlocked(context.Context) error {
	f.mu.Lock()
	f.set = false
	f.mu.Unlock()
	return nil
}
