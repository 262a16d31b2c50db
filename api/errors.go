package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mickael31/location-benne-occitanie/admin"
	"github.com/mickael31/location-benne-occitanie/gate"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/reviews"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

const (
	maxSmallBodySize    = 64 << 10
	maxDocumentBodySize = 4 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads a JSON body of at most limit bytes. An empty body decodes
// to the zero value.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, limit int64) (T, bool) {
	var req T
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return req, false
	}
	return req, true
}

func mapError(w http.ResponseWriter, err error) {
	var throttled *gate.ThrottledError
	if errors.As(err, &throttled) {
		writeRateLimited(w, throttled)
		return
	}
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var googleErr *reviews.APIError
	switch {
	case errors.Is(err, gate.ErrWrongPassword),
		errors.Is(err, admin.ErrTokenRequired),
		errors.Is(err, remote.ErrAuth),
		errors.Is(err, reviews.ErrNotConnected),
		errors.Is(err, reviews.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, gate.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, admin.ErrLocked),
		errors.Is(err, remote.ErrForbiddenPrincipal):
		return http.StatusForbidden
	case errors.Is(err, remote.ErrNotFoundOrAuth),
		errors.Is(err, admin.ErrNotLoaded),
		errors.Is(err, admin.ErrReviewsDisabled):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrConflict),
		errors.Is(err, remote.ErrStaleOrMissingRevision),
		errors.Is(err, admin.ErrSuperseded),
		errors.Is(err, gate.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, siteconfig.ErrMalformedDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gate.ErrPasswordRequired),
		errors.Is(err, gate.ErrPasswordMismatch),
		errors.Is(err, gate.ErrPasswordTooShort),
		errors.Is(err, remote.ErrInvalidLocation),
		errors.Is(err, reviews.ErrClientIDRequired),
		errors.Is(err, reviews.ErrAccountRequired),
		errors.Is(err, reviews.ErrLocationRequired):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrUnsupportedEncoding),
		errors.As(err, &googleErr):
		return http.StatusBadGateway
	case errors.Is(err, reviews.ErrIdentityServiceUnavailable):
		return http.StatusServiceUnavailable
	}
	var ghErr *remote.APIError
	if errors.As(err, &ghErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeRateLimited sends a 429 Too Many Requests response.
func writeRateLimited(w http.ResponseWriter, err *gate.ThrottledError) {
	w.Header().Set("Retry-After", err.RetryAfterSeconds())
	writeError(w, http.StatusTooManyRequests, "too many failed unlock attempts; try again later")
}
