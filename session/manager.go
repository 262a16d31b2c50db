package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
)

const unlockedValue = "1"

// Manager applies the retention rules of the session secrets:
//
//   - the access token lives in memory and reaches Storage only while the
//     operator asked to remember it;
//   - the unlocked flag always goes to Storage and is cleared on lock;
//   - turning remember off or logging out purges the stored token before
//     returning.
//
// Manager implements gate.UnlockFlag.
type Manager struct {
	mu       sync.Mutex
	storage  Storage
	token    *memguard.Enclave
	remember bool
}

func NewManager(storage Storage) *Manager {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Manager{storage: storage}
}

// SetToken replaces the in-memory token and mirrors it to storage when
// remember is on. An empty token removes the stored copy.
func (m *Manager) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = sealEnclave(token)
	return m.mirror(ctx, token)
}

func (m *Manager) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return openEnclave(m.token)
}

func (m *Manager) HasToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != nil
}

// SetRemember toggles mirroring of the token into storage.
func (m *Manager) SetRemember(ctx context.Context, remember bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remember = remember
	token, err := openEnclave(m.token)
	if err != nil {
		return err
	}
	return m.mirror(ctx, token)
}

func (m *Manager) Remember() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remember
}

// Restore loads a token remembered earlier in the session. Callers restore
// only once the gate is open. A restored token turns remember on.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	v, ok, err := m.storage.Get(ctx, KindAccessToken)
	if err != nil {
		return false, fmt.Errorf("restoring token: %w", err)
	}
	if !ok || v == "" {
		return false, nil
	}
	m.mu.Lock()
	m.token = sealEnclave(v)
	m.remember = true
	m.mu.Unlock()
	return true, nil
}

// Logout forgets the token and clears both stored secrets.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
	if err := m.storage.Clear(ctx, KindAccessToken); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return m.ClearUnlocked(ctx)
}

// Destroy drops the in-memory token without touching storage.
func (m *Manager) Destroy() {
	m.mu.Lock()
	m.token = nil
	m.remember = false
	m.mu.Unlock()
}

func (m *Manager) Unlocked(ctx context.Context) (bool, error) {
	v, ok, err := m.storage.Get(ctx, KindGateUnlocked)
	if err != nil {
		return false, err
	}
	return ok && v == unlockedValue, nil
}

func (m *Manager) MarkUnlocked(ctx context.Context) error {
	return m.storage.Set(ctx, KindGateUnlocked, unlockedValue)
}

func (m *Manager) ClearUnlocked(ctx context.Context) error {
	return m.storage.Clear(ctx, KindGateUnlocked)
}

// mirror must run with m.mu held.
func (m *Manager) mirror(ctx context.Context, token string) error {
	if !m.remember || token == "" {
		if err := m.storage.Clear(ctx, KindAccessToken); err != nil {
			return fmt.Errorf("clearing stored token: %w", err)
		}
		return nil
	}
	if err := m.storage.Set(ctx, KindAccessToken, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	return nil
}
