package util

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestAES(t *testing.T) {
	key, err := RandomBytes(AESKeySize)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	plainText := []byte("gho_exampletoken")
	aad := []byte("session:abc:lbo_admin_github_token")

	t.Run("SealOpen", func(t *testing.T) {
		cipherText, err := SealAES(plainText, key, aad)
		if err != nil {
			t.Fatalf("SealAES failed: %v", err)
		}

		decrypted, err := OpenAES(cipherText, key, aad)
		if err != nil {
			t.Fatalf("OpenAES failed: %v", err)
		}

		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("TamperAAD", func(t *testing.T) {
		cipherText, _ := SealAES(plainText, key, aad)
		_, err := OpenAES(cipherText, key, []byte("session:other:lbo_admin_github_token"))
		if err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		cipherText, _ := SealAES(plainText, key, aad)
		cipherText[len(cipherText)-1] ^= 0xFF
		_, err := OpenAES(cipherText, key, aad)
		if err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		_, err := SealAES(plainText, []byte("too short"), aad)
		if !errors.Is(err, ErrKeySize) {
			t.Errorf("expected ErrKeySize, got %v", err)
		}
		_, err = OpenAES(make([]byte, 64), key[:16], aad)
		if !errors.Is(err, ErrKeySize) {
			t.Errorf("expected ErrKeySize on open, got %v", err)
		}
	})

	t.Run("RejectShortCipherText", func(t *testing.T) {
		_, err := OpenAES([]byte{1, 2, 3}, key, aad)
		if !errors.Is(err, ErrSealedTooShort) {
			t.Errorf("expected ErrSealedTooShort, got %v", err)
		}
	})

	t.Run("FreshNonce", func(t *testing.T) {
		a, _ := SealAES(plainText, key, aad)
		b, _ := SealAES(plainText, key, aad)
		if bytes.Equal(a, b) {
			t.Error("two seals of the same value are identical")
		}
	})

	t.Run("NewAESKey", func(t *testing.T) {
		k, err := NewAESKey()
		if err != nil {
			t.Fatalf("NewAESKey failed: %v", err)
		}
		if len(k) != AESKeySize {
			t.Errorf("expected %d bytes, got %d", AESKeySize, len(k))
		}
	})
}

func TestDecodeBase64IgnoresWhitespace(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"meta":{"siteName":"Benne"}}`))
	wrapped := encoded[:10] + "\n" + encoded[10:20] + "\r\n " + encoded[20:]

	got, err := DecodeBase64(wrapped)
	if err != nil {
		t.Fatalf("DecodeBase64 failed: %v", err)
	}
	if string(got) != `{"meta":{"siteName":"Benne"}}` {
		t.Errorf("unexpected decode result %q", got)
	}

	if _, err := DecodeBase64("not base64!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestCleanText(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("  \n{\"a\":1}\n\t")...)
	if got := string(CleanText(in)); got != `{"a":1}` {
		t.Errorf("expected BOM and whitespace stripped, got %q", got)
	}
	if got := string(StripBOM([]byte("plain"))); got != "plain" {
		t.Errorf("StripBOM changed text without BOM: %q", got)
	}
}

func TestNormalizeText(t *testing.T) {
	decomposed := "Be\u0301ne"
	if got := NormalizeText(decomposed); got != "B\u00e9ne" {
		t.Errorf("expected composed form, got %q", got)
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(16)
	if err != nil {
		t.Fatalf("RandomToken failed: %v", err)
	}
	b, err := RandomToken(16)
	if err != nil {
		t.Fatalf("RandomToken failed: %v", err)
	}
	if a == b {
		t.Error("expected distinct tokens")
	}
	if len(a) != 22 {
		t.Errorf("expected 22 characters for 16 bytes, got %d", len(a))
	}
}

func TestWipeBytes(t *testing.T) {
	b := []byte("secret")
	c := CopyBytes(b)
	WipeBytes(b)
	if !bytes.Equal(b, make([]byte, 6)) {
		t.Errorf("expected zeroed slice, got %v", b)
	}
	if string(c) != "secret" {
		t.Errorf("copy should be independent, got %q", c)
	}
}
