// Package session holds the secrets of one operator session: the access
// token of the document store and the unlocked flag of the gate.
//
// Nothing here outlives the session. Storage backends keep values only for
// the lifetime of a session and Manager decides what reaches them.
package session

import (
	"context"
	"errors"
)

// Kind names a secret kept for the session.
type Kind string

const (
	KindAccessToken  Kind = "lbo_admin_github_token"
	KindGateUnlocked Kind = "lbo_admin_gate_unlocked"
)

var ErrUnknownKind = errors.New("unknown session secret kind")

func (k Kind) Valid() bool {
	return k == KindAccessToken || k == KindGateUnlocked
}

// Storage keeps one value per Kind for a single session.
type Storage interface {
	// Get reports false when nothing is stored for kind.
	Get(ctx context.Context, kind Kind) (string, bool, error)
	Set(ctx context.Context, kind Kind, value string) error
	Clear(ctx context.Context, kind Kind) error
}
