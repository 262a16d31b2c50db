package siteconfig

import (
	"context"
	"sync"
	"sync/atomic"
)

// Status tracks the lifecycle of the application configuration.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// Snapshot is an immutable view of the application configuration. Callers
// must treat Config as read-only; writers publish a new Snapshot instead.
type Snapshot struct {
	Config     SiteConfig
	Status     Status
	Generation uint64
}

// State owns the configuration shared by the process. It is created once at
// the application root and passed down. Readers get the current snapshot
// without locking; writers replace it atomically.
type State struct {
	current atomic.Pointer[Snapshot]
	// mu serializes writers so generations stay monotonic.
	mu sync.Mutex
}

// NewState starts with the built-in defaults in the Loading status.
func NewState() *State {
	s := &State{}
	s.current.Store(&Snapshot{Config: Default(), Status: StatusLoading})
	return s
}

func (s *State) Current() *Snapshot {
	return s.current.Load()
}

// Config is a shortcut for Current().Config.
func (s *State) Config() SiteConfig {
	return s.current.Load().Config
}

// Replace publishes cfg as the new ready configuration.
func (s *State) Replace(cfg SiteConfig) *Snapshot {
	return s.publish(cfg, StatusReady)
}

// Reload marks the state as loading, runs the loader and publishes the
// result. The loader falls back to defaults, so Reload always ends Ready.
func (s *State) Reload(ctx context.Context, l *Loader) *Snapshot {
	s.publish(s.Config(), StatusLoading)
	return s.publish(l.Load(ctx), StatusReady)
}

func (s *State) publish(cfg SiteConfig, status Status) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current.Load()
	next := &Snapshot{Config: cfg, Status: status, Generation: prev.Generation + 1}
	s.current.Store(next)
	return next
}
