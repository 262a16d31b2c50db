// Package bbolt keeps session secrets in a bbolt database, one bucket per
// session. Values are sealed with AES-256-GCM and expire with the session.
package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/mickael31/location-benne-occitanie/internal/util"
	"github.com/mickael31/location-benne-occitanie/session"
)

const (
	bucketPrefix = "session:"
	aadPrefix    = "benneadmin:session:"
)

type record struct {
	ExpiresAt  time.Time `json:"expires_at"`
	Ciphertext []byte    `json:"ciphertext"`
}

// DB stores the secrets of many sessions.
type DB struct {
	db  *bbolt.DB
	key []byte
	ttl time.Duration
	now func() time.Time

	closeOnce sync.Once
}

// New wraps an open database. key must be util.AESKeySize bytes; it is
// copied and wiped on Close. A ttl of 0 keeps values until End.
func New(db *bbolt.DB, key []byte, ttl time.Duration) (*DB, error) {
	if len(key) != util.AESKeySize {
		return nil, fmt.Errorf("session key must be exactly %d bytes, got %d", util.AESKeySize, len(key))
	}
	return &DB{db: db, key: util.CopyBytes(key), ttl: ttl, now: time.Now}, nil
}

// Open opens the database at path.
func Open(path string, key []byte, ttl time.Duration, options *bbolt.Options) (*DB, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	d, err := New(db, key, ttl)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close wipes the key and closes the database.
func (d *DB) Close() error {
	var err error
	d.closeOnce.Do(func() {
		util.WipeBytes(d.key)
		err = d.db.Close()
	})
	return err
}

// Session returns the storage of one session.
func (d *DB) Session(id string) *Storage {
	return &Storage{db: d, id: id}
}

// Exists reports whether anything is stored for the session.
func (d *DB) Exists(id string) (bool, error) {
	found := false
	err := d.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketName(id)) != nil
		return nil
	})
	return found, err
}

// End drops everything stored for the session.
func (d *DB) End(id string) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket(bucketName(id))
		if err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		return nil
	})
}

// Sweep removes expired values and empty session buckets. It returns the
// number of values removed.
func (d *DB) Sweep() (int, error) {
	now := d.now()
	removed := 0
	err := d.db.Update(func(tx *bbolt.Tx) error {
		var empty [][]byte
		err := tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			var expired [][]byte
			total := 0
			err := b.ForEach(func(k, v []byte) error {
				total++
				var rec record
				if err := json.Unmarshal(v, &rec); err != nil || rec.expired(now) {
					expired = append(expired, util.CopyBytes(k))
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, k := range expired {
				if err := b.Delete(k); err != nil {
					return err
				}
				removed++
			}
			if total == len(expired) {
				empty = append(empty, util.CopyBytes(name))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, name := range empty {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	return removed, err
}

func (r record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

func bucketName(id string) []byte {
	return []byte(bucketPrefix + id)
}

func aad(id string, kind session.Kind) []byte {
	return []byte(aadPrefix + id + ":" + string(kind))
}

var _ session.Storage = (*Storage)(nil)

// Storage is the session.Storage of one session.
type Storage struct {
	db *DB
	id string
}

func (s *Storage) Get(_ context.Context, kind session.Kind) (string, bool, error) {
	if !kind.Valid() {
		return "", false, fmt.Errorf("%w: %q", session.ErrUnknownKind, kind)
	}

	var rec record
	var found bool
	err := s.db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(s.id))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(kind))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", kind, err)
	}
	if !found {
		return "", false, nil
	}
	if rec.expired(s.db.now()) {
		if err := s.delete(kind); err != nil {
			return "", false, err
		}
		return "", false, nil
	}

	plain, err := util.OpenAES(rec.Ciphertext, s.db.key, aad(s.id, kind))
	if err != nil {
		return "", false, fmt.Errorf("opening %s: %w", kind, err)
	}
	defer util.WipeBytes(plain)
	return string(plain), true, nil
}

func (s *Storage) Set(_ context.Context, kind session.Kind, value string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", session.ErrUnknownKind, kind)
	}
	plain := []byte(value)
	defer util.WipeBytes(plain)
	ct, err := util.SealAES(plain, s.db.key, aad(s.id, kind))
	if err != nil {
		return fmt.Errorf("sealing %s: %w", kind, err)
	}

	rec := record{Ciphertext: ct}
	if s.db.ttl > 0 {
		rec.ExpiresAt = s.db.now().Add(s.db.ttl)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(s.id))
		if err != nil {
			return err
		}
		return b.Put([]byte(kind), data)
	})
}

func (s *Storage) Clear(_ context.Context, kind session.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", session.ErrUnknownKind, kind)
	}
	return s.delete(kind)
}

func (s *Storage) delete(kind session.Kind) error {
	return s.db.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(s.id))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(kind))
	})
}
