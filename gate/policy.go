package gate

import (
	"fmt"
	"unicode/utf8"
)

// ClampIterations maps an operator-chosen round count into
// [MinIterations, MaxIterations]. Non-positive values select the default.
func ClampIterations(n int) int {
	if n <= 0 {
		n = DefaultIterations
	}
	return max(MinIterations, min(MaxIterations, n))
}

// Generate validates a new password and its confirmation and returns a fresh
// gate record. Length is counted in characters.
func Generate(password, confirm string, iterations int) (Config, error) {
	if password == "" || confirm == "" {
		return Config{}, ErrPasswordRequired
	}
	if password != confirm {
		return Config{}, ErrPasswordMismatch
	}
	if n := utf8.RuneCountInString(password); n < MinPasswordLength {
		return Config{}, fmt.Errorf("%w: %d characters, need at least %d", ErrPasswordTooShort, n, MinPasswordLength)
	}
	return FromPassword(password, ClampIterations(iterations))
}
