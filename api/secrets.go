package api

import (
	"context"
	"sync"

	"github.com/mickael31/location-benne-occitanie/session"
	sessionbolt "github.com/mickael31/location-benne-occitanie/session/bbolt"
	sessionredis "github.com/mickael31/location-benne-occitanie/session/redis"
)

// SecretBackend keeps the secrets of each editor session: the GitHub token
// when remembered and the gate unlock flag. A persistent backend lets a
// browser session survive a restart of the console.
type SecretBackend interface {
	Open(id string) session.Storage
	Exists(ctx context.Context, id string) (bool, error)
	End(ctx context.Context, id string) error
}

// MemoryBackend keeps secrets in process memory; they end with the process.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]*session.MemoryStorage
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]*session.MemoryStorage)}
}

func (b *MemoryBackend) Open(id string) session.Storage {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.data[id]
	if !ok {
		s = session.NewMemoryStorage()
		b.data[id] = s
	}
	return s
}

func (b *MemoryBackend) Exists(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[id]
	return ok, nil
}

func (b *MemoryBackend) End(_ context.Context, id string) error {
	b.mu.Lock()
	s, ok := b.data[id]
	delete(b.data, id)
	b.mu.Unlock()
	if ok {
		s.Reset()
	}
	return nil
}

// BoltBackend stores sealed secrets in a bbolt file.
func BoltBackend(db *sessionbolt.DB) SecretBackend {
	return boltBackend{db: db}
}

type boltBackend struct {
	db *sessionbolt.DB
}

func (b boltBackend) Open(id string) session.Storage { return b.db.Session(id) }

func (b boltBackend) Exists(_ context.Context, id string) (bool, error) {
	return b.db.Exists(id)
}

func (b boltBackend) End(_ context.Context, id string) error { return b.db.End(id) }

// RedisBackend stores secrets in redis with a TTL.
func RedisBackend(store *sessionredis.Store) SecretBackend {
	return redisBackend{store: store}
}

type redisBackend struct {
	store *sessionredis.Store
}

func (b redisBackend) Open(id string) session.Storage { return b.store.Session(id) }

func (b redisBackend) Exists(ctx context.Context, id string) (bool, error) {
	return b.store.Exists(ctx, id)
}

func (b redisBackend) End(ctx context.Context, id string) error { return b.store.End(ctx, id) }
