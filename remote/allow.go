package remote

import (
	"context"
	"fmt"
	"strings"
)

// AllowList restricts which principals may load the document. It is an
// advisory check; the real boundary is the scope of the access token.
type AllowList []string

// Check allows everyone when the list is empty. Logins compare
// case-insensitively after trimming.
func (a AllowList) Check(id Identity) error {
	if len(a) == 0 {
		return nil
	}
	login := strings.TrimSpace(id.Login)
	for _, allowed := range a {
		if strings.EqualFold(strings.TrimSpace(allowed), login) && login != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrForbiddenPrincipal, id.Login)
}

// FetchAuthorized identifies the token owner, checks it against allow and
// only then reads the document.
func FetchAuthorized(ctx context.Context, store Store, loc Location, token string, allow AllowList) (Identity, Document, error) {
	id, err := store.Identify(ctx, token)
	if err != nil {
		return Identity{}, Document{}, err
	}
	if err := allow.Check(id); err != nil {
		return id, Document{}, err
	}
	doc, err := store.Fetch(ctx, loc, token)
	if err != nil {
		return id, Document{}, err
	}
	return id, doc, nil
}
