// Package redis keeps session secrets in Redis under
// {prefix}{session}:{kind} with a TTL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mickael31/location-benne-occitanie/internal/util"
	"github.com/mickael31/location-benne-occitanie/session"
)

const DefaultPrefix = "benneadmin:session:"

// Store holds the secrets of many sessions.
type Store struct {
	client  *goredis.Client
	prefix  string
	ttl     time.Duration
	sealKey []byte
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithKey seals values with AES-256-GCM before they reach Redis.
func WithKey(key []byte) Option {
	return func(s *Store) {
		s.sealKey = util.CopyBytes(key)
	}
}

// NewStore connects to redisURL and checks the connection.
func NewStore(redisURL string, ttl time.Duration, opts ...Option) (*Store, error) {
	redisOpts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	s, err := NewStoreWithClient(client, ttl, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithClient uses an existing client. A ttl of 0 keeps values until
// End.
func NewStoreWithClient(client *goredis.Client, ttl time.Duration, opts ...Option) (*Store, error) {
	s := &Store{client: client, prefix: DefaultPrefix, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	if s.sealKey != nil && len(s.sealKey) != util.AESKeySize {
		return nil, fmt.Errorf("session key must be exactly %d bytes, got %d", util.AESKeySize, len(s.sealKey))
	}
	return s, nil
}

func (s *Store) Close() error {
	util.WipeBytes(s.sealKey)
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Session returns the storage of one session.
func (s *Store) Session(id string) *Storage {
	return &Storage{store: s, id: id}
}

// Exists reports whether any value of the session is stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx,
		s.redisKey(id, session.KindAccessToken),
		s.redisKey(id, session.KindGateUnlocked),
	).Result()
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return n > 0, nil
}

// End deletes every value of the session.
func (s *Store) End(ctx context.Context, id string) error {
	keys := []string{
		s.redisKey(id, session.KindAccessToken),
		s.redisKey(id, session.KindGateUnlocked),
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (s *Store) redisKey(id string, kind session.Kind) string {
	return s.prefix + id + ":" + string(kind)
}

var _ session.Storage = (*Storage)(nil)

// Storage is the session.Storage of one session.
type Storage struct {
	store *Store
	id    string
}

func (s *Storage) Get(ctx context.Context, kind session.Kind) (string, bool, error) {
	if !kind.Valid() {
		return "", false, fmt.Errorf("%w: %q", session.ErrUnknownKind, kind)
	}
	raw, err := s.store.client.Get(ctx, s.store.redisKey(s.id, kind)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", kind, err)
	}
	if s.store.sealKey == nil {
		return string(raw), true, nil
	}
	plain, err := util.OpenAES(raw, s.store.sealKey, s.aad(kind))
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", kind, err)
	}
	defer util.WipeBytes(plain)
	return string(plain), true, nil
}

func (s *Storage) Set(ctx context.Context, kind session.Kind, value string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", session.ErrUnknownKind, kind)
	}
	payload := []byte(value)
	if s.store.sealKey != nil {
		sealed, err := util.SealAES(payload, s.store.sealKey, s.aad(kind))
		util.WipeBytes(payload)
		if err != nil {
			return fmt.Errorf("seal %s: %w", kind, err)
		}
		payload = sealed
	}
	if err := s.store.client.Set(ctx, s.store.redisKey(s.id, kind), payload, s.store.ttl).Err(); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

func (s *Storage) Clear(ctx context.Context, kind session.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", session.ErrUnknownKind, kind)
	}
	if err := s.store.client.Del(ctx, s.store.redisKey(s.id, kind)).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", kind, err)
	}
	return nil
}

func (s *Storage) aad(kind session.Kind) []byte {
	return []byte(s.store.redisKey(s.id, kind))
}
