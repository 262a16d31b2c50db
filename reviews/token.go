package reviews

import (
	"context"
	"strings"
	"time"
)

// ExpirySafetyMargin is subtracted from a token lifetime so that requests
// are not sent with a token about to expire.
const ExpirySafetyMargin = 30 * time.Second

// Token is an OAuth access token and when it was obtained.
type Token struct {
	AccessToken string    `json:"-"`
	ExpiresIn   int       `json:"expiresIn,omitempty"` // seconds, 0 if unknown
	IssuedAt    time.Time `json:"issuedAt"`
}

// Expired reports whether now is past the expiry minus the safety margin.
// A token without a lifetime never expires.
func (t Token) Expired(now time.Time) bool {
	if t.ExpiresIn <= 0 {
		return false
	}
	deadline := t.IssuedAt.Add(time.Duration(t.ExpiresIn)*time.Second - ExpirySafetyMargin)
	return now.After(deadline)
}

// Check returns ErrNotConnected or ErrTokenExpired when the token cannot be
// used at now.
func (t Token) Check(now time.Time) error {
	if strings.TrimSpace(t.AccessToken) == "" {
		return ErrNotConnected
	}
	if t.Expired(now) {
		return ErrTokenExpired
	}
	return nil
}

// TokenRequest asks an identity service for a token.
type TokenRequest struct {
	ClientID string
	Scope    string
	// Prompt is passed through as the OAuth prompt parameter: "consent",
	// "select_account" or "" for none. Callers default it to "consent".
	Prompt string
}

// TokenSource obtains access tokens.
type TokenSource interface {
	AcquireToken(ctx context.Context, req TokenRequest) (Token, error)
}

// StaticTokenSource hands out a token obtained elsewhere.
type StaticTokenSource struct {
	Token Token
}

func (s StaticTokenSource) AcquireToken(ctx context.Context, req TokenRequest) (Token, error) {
	if strings.TrimSpace(s.Token.AccessToken) == "" {
		return Token{}, ErrNotConnected
	}
	t := s.Token
	if t.IssuedAt.IsZero() {
		t.IssuedAt = time.Now()
	}
	return t, nil
}
