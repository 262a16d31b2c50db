package gate

import (
	"crypto"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/mickael31/location-benne-occitanie/internal/util"
)

// NewSalt returns n random bytes as base64. n <= 0 selects SaltSize.
func NewSalt(n int) (string, error) {
	if n <= 0 {
		n = SaltSize
	}
	b, err := util.RandomBytes(n)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	return util.EncodeBase64(b), nil
}

// DeriveHash runs PBKDF2-HMAC-SHA256 over password and the base64 salt and
// returns size bytes of output as base64. size <= 0 selects HashSize.
func DeriveHash(password, salt string, iterations, size int) (string, error) {
	if !crypto.SHA256.Available() {
		return "", ErrCryptoUnavailable
	}
	if iterations <= 0 {
		return "", fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidParameters, iterations)
	}
	if size <= 0 {
		size = HashSize
	}
	saltBytes, err := util.DecodeBase64(salt)
	if err != nil {
		return "", fmt.Errorf("%w: salt is not base64: %v", ErrInvalidParameters, err)
	}

	key := pbkdf2.Key([]byte(password), saltBytes, iterations, size, sha256.New)
	defer util.WipeBytes(key)
	return util.EncodeBase64(key), nil
}

// Verify reports whether two base64 hashes hold the same bytes. Hashes of
// different length, or text that does not decode, never match. Equal-length
// inputs are compared in constant time.
func Verify(expected, actual string) bool {
	a, err := util.DecodeBase64(expected)
	if err != nil {
		return false
	}
	b, err := util.DecodeBase64(actual)
	if err != nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// FromPassword builds an enabled gate record for password with a fresh salt.
// iterations <= 0 selects DefaultIterations.
func FromPassword(password string, iterations int) (Config, error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	salt, err := NewSalt(SaltSize)
	if err != nil {
		return Config{}, err
	}
	hash, err := DeriveHash(password, salt, iterations, HashSize)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Enabled:      true,
		Salt:         salt,
		PasswordHash: hash,
		Iterations:   iterations,
	}, nil
}
