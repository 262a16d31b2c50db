package remote

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLocation        = errors.New("invalid document location")
	ErrAuth                   = errors.New("authentication failed")
	ErrForbiddenPrincipal     = errors.New("principal is not allowed to edit this document")
	ErrNotFoundOrAuth         = errors.New("document not found or access denied")
	ErrUnsupportedEncoding    = errors.New("unsupported content encoding")
	ErrStaleOrMissingRevision = errors.New("missing document revision, reload the document first")
	ErrConflict               = errors.New("document changed since it was loaded")
)

// APIError is a non-2xx answer from a remote API. Err is the category the
// status maps to and may be nil when the status has no specific meaning.
type APIError struct {
	Service string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	service := e.Service
	if service == "" {
		service = "GitHub"
	}
	msg := fmt.Sprintf("%s API error (%d)", service, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }
