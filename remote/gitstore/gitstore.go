// Package gitstore implements remote.Store over local git repositories.
//
// Repositories live under {baseDir}/{owner}/{repo}. The revision of a
// document is the hash of its blob at the head of the branch, so a write is
// accepted only if the file still has the content the caller loaded.
package gitstore

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/mickael31/location-benne-occitanie/remote"
)

var _ remote.Store = (*Store)(nil)

type Store struct {
	baseDir string
	token   string
	author  string
	email   string
	logger  *slog.Logger

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

type Option func(*Store)

// WithToken requires callers to present token. Without it any token,
// including an empty one, is accepted.
func WithToken(token string) Option {
	return func(s *Store) {
		s.token = strings.TrimSpace(token)
	}
}

// WithAuthor sets the commit author. The name is also the identity
// returned by Identify.
func WithAuthor(name, email string) Option {
	return func(s *Store) {
		s.author = name
		s.email = email
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

func New(baseDir string, opts ...Option) *Store {
	s := &Store{
		baseDir: baseDir,
		author:  "benneadmin",
		email:   "benneadmin@localhost",
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}
