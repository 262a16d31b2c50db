// Package gate implements the password gate in front of the admin editor.
//
// A gate record stores a PBKDF2-HMAC-SHA256 hash of the admin password
// together with its salt and iteration count. Verification happens locally:
// the candidate password is derived with the stored parameters and compared
// in constant time against the stored hash.
package gate

import (
	"errors"
	"strings"
)

const (
	// DefaultIterations is the PBKDF2 round count for new gate records.
	DefaultIterations = 600_000
	// MinIterations and MaxIterations bound operator-chosen round counts.
	MinIterations = 100_000
	MaxIterations = 2_000_000
	// SaltSize is the number of random salt bytes.
	SaltSize = 16
	// HashSize is the number of derived bytes.
	HashSize = 32
	// MinPasswordLength applies when generating a new gate.
	MinPasswordLength = 12
)

var (
	ErrCryptoUnavailable = errors.New("cryptographic primitives unavailable")
	ErrInvalidParameters = errors.New("invalid gate parameters")
	ErrWrongPassword     = errors.New("wrong password")
	ErrPasswordRequired  = errors.New("password required")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrPasswordTooShort  = errors.New("password too short")
	ErrThrottled         = errors.New("too many failed attempts")
	ErrSuperseded        = errors.New("unlock attempt superseded")
)

// Config is the admin.gate block of the site document.
type Config struct {
	Enabled      bool   `json:"enabled"`
	Salt         string `json:"salt"`
	PasswordHash string `json:"passwordHash"`
	Iterations   int    `json:"iterations"`
}

// IsEnabled reports whether c describes an active gate. A gate is active only
// when it is enabled and carries a salt, a hash and a positive round count.
func IsEnabled(c *Config) bool {
	if c == nil {
		return false
	}
	return c.Enabled &&
		strings.TrimSpace(c.Salt) != "" &&
		strings.TrimSpace(c.PasswordHash) != "" &&
		c.Iterations > 0
}

// Disable returns c switched off with its secret material blanked.
func (c Config) Disable() Config {
	c.Enabled = false
	c.Salt = ""
	c.PasswordHash = ""
	return c
}
