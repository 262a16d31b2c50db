// Package remote defines how the site document is read from and written to
// a version-controlled repository.
//
// Writes are conditional: every write carries the revision returned by the
// last fetch (or write) and the store rejects it when the file has moved on.
// Stores never retry on their own; callers re-fetch and reapply.
package remote

import (
	"context"
	"fmt"
	"strings"
)

// Location names one file on one branch of one repository.
type Location struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

// Validate requires every field to be set.
func (l Location) Validate() error {
	var missing []string
	if strings.TrimSpace(l.Owner) == "" {
		missing = append(missing, "owner")
	}
	if strings.TrimSpace(l.Repo) == "" {
		missing = append(missing, "repo")
	}
	if strings.TrimSpace(l.Branch) == "" {
		missing = append(missing, "branch")
	}
	if strings.TrimSpace(l.Path) == "" {
		missing = append(missing, "path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidLocation, strings.Join(missing, ", "))
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s@%s:%s", l.Owner, l.Repo, l.Branch, l.Path)
}

// Identity is the principal an access token belongs to.
type Identity struct {
	Login string `json:"login"`
}

// Document is the raw text of a file and the revision it was read at.
type Document struct {
	Revision string
	Text     string
}

// WriteRequest replaces the file content if it is still at Revision.
type WriteRequest struct {
	Revision string
	Text     string
	// Message defaults to DefaultCommitMessage when empty.
	Message string
}

// WriteResult carries the revision to use for the next write.
type WriteResult struct {
	Revision  string `json:"revision"`
	CommitRef string `json:"commitRef,omitempty"`
	CommitURL string `json:"commitUrl,omitempty"`
}

// Store reads and conditionally writes documents.
type Store interface {
	Identify(ctx context.Context, token string) (Identity, error)
	Fetch(ctx context.Context, loc Location, token string) (Document, error)
	Write(ctx context.Context, loc Location, token string, req WriteRequest) (WriteResult, error)
}

func DefaultCommitMessage(path string) string {
	return fmt.Sprintf("Update %s via admin", path)
}

// CheckWrite rejects requests that cannot be sent. Stores call it before any
// I/O so a write without a known revision never reaches the network.
func CheckWrite(req WriteRequest) error {
	if strings.TrimSpace(req.Revision) == "" {
		return ErrStaleOrMissingRevision
	}
	return nil
}

// CommitMessage returns req.Message or the default message for path.
func (req WriteRequest) CommitMessage(path string) string {
	if strings.TrimSpace(req.Message) != "" {
		return req.Message
	}
	return DefaultCommitMessage(path)
}
