package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps values in memguard enclaves for as long as the process
// runs. It is the default for a single operator.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[Kind]*memguard.Enclave
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[Kind]*memguard.Enclave)}
}

func (s *MemoryStorage) Get(_ context.Context, kind Kind) (string, bool, error) {
	if !kind.Valid() {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	s.mu.Lock()
	enclave, ok := s.values[kind]
	s.mu.Unlock()
	if !ok {
		return "", false, nil
	}
	v, err := openEnclave(enclave)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *MemoryStorage) Set(_ context.Context, kind Kind, value string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	s.mu.Lock()
	s.values[kind] = sealEnclave(value)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Clear(_ context.Context, kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	s.mu.Lock()
	delete(s.values, kind)
	s.mu.Unlock()
	return nil
}

// Reset drops every value.
func (s *MemoryStorage) Reset() {
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
}

// sealEnclave moves value into an enclave. An empty value yields nil, which
// openEnclave reads back as "".
func sealEnclave(value string) *memguard.Enclave {
	if value == "" {
		return nil
	}
	return memguard.NewEnclave([]byte(value))
}

func openEnclave(e *memguard.Enclave) (string, error) {
	if e == nil {
		return "", nil
	}
	buf, err := e.Open()
	if err != nil {
		return "", fmt.Errorf("opening session secret: %w", err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}
