package util

import (
	"bytes"
	"encoding/base64"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NormalizeText returns s in Unicode NFC form.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, utf8BOM)
}

// CleanText strips a leading BOM and surrounding whitespace.
func CleanText(b []byte) []byte {
	return bytes.TrimSpace(StripBOM(b))
}

// DecodeBase64 decodes standard base64, ignoring any whitespace in s.
func DecodeBase64(s string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(compact)
}

func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
