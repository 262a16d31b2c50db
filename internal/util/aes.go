package util

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// AESKeySize is the key length of the AES-256-GCM sealing used for
// session secrets at rest.
const AESKeySize = 32

var (
	ErrKeySize        = errors.New("sealing key must be 32 bytes")
	ErrSealedTooShort = errors.New("sealed value shorter than its nonce")
)

func gcmFor(key []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w, got %d", ErrKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// SealAES returns nonce || AES-256-GCM(plainText) with aad authenticated.
// Every call draws a fresh random nonce.
func SealAES(plainText, key, aad []byte) ([]byte, error) {
	aead, err := gcmFor(key)
	if err != nil {
		return nil, err
	}
	nonce, err := RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plainText, aad), nil
}

// OpenAES reverses SealAES. It fails when sealed was produced under another
// key or another aad.
func OpenAES(sealed, key, aad []byte) ([]byte, error) {
	aead, err := gcmFor(key)
	if err != nil {
		return nil, err
	}
	n := aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrSealedTooShort
	}
	plain, err := aead.Open(nil, sealed[:n], sealed[n:], aad)
	if err != nil {
		return nil, fmt.Errorf("opening sealed value: %w", err)
	}
	return plain, nil
}

// NewAESKey returns a random sealing key.
func NewAESKey() ([]byte, error) {
	return RandomBytes(AESKeySize)
}
