package api

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/mickael31/location-benne-occitanie/admin"
	"github.com/mickael31/location-benne-occitanie/gate"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/reviews"
)

func editorOf(r *http.Request) *admin.Editor {
	return editorFromContext(r.Context()).editor
}

func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, editorOf(r).Status())
}

// Logout ends the browser session: the gate locks, the token and the
// document are forgotten, and both cookies are cleared.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	es := editorFromContext(r.Context())
	if err := es.editor.Logout(r.Context()); err != nil {
		a.logger.WarnContext(r.Context(), "logging out editor", "error", err)
	}
	a.endSession(r.Context(), es.id)
	a.audit.log(AuditLogout, r)

	clearSessionCookie(w, r)
	clearCSRFCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) Unlock(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[UnlockRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	ed := editorOf(r)
	if err := ed.Unlock(r.Context(), req.Password); err != nil {
		switch {
		case errors.Is(err, gate.ErrThrottled):
			a.audit.logFailure(AuditUnlockThrottled, r, err)
		default:
			a.audit.logFailure(AuditUnlockFailure, r, err)
		}
		mapError(w, err)
		return
	}
	a.audit.log(AuditUnlockSuccess, r)
	writeJSON(w, http.StatusOK, ed.Status())
}

func (a *API) Lock(w http.ResponseWriter, r *http.Request) {
	ed := editorOf(r)
	if err := ed.Lock(r.Context()); err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditLock, r)
	writeJSON(w, http.StatusOK, ed.Status())
}

// GenerateGate writes a new gate record into the editor text. The gate in
// force changes only once the text is saved and published.
func (a *API) GenerateGate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[GenerateGateRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	ed := editorOf(r)
	cfg, err := ed.GenerateGate(r.Context(), req.Password, req.Confirm, req.Iterations)
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditGateGenerated, r, slog.Int("iterations", cfg.Iterations))
	writeJSON(w, http.StatusOK, GenerateGateResponse{Gate: cfg, Text: ed.Text()})
}

func (a *API) DisableGate(w http.ResponseWriter, r *http.Request) {
	ed := editorOf(r)
	if err := ed.DisableGate(r.Context()); err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditGateDisabled, r)
	writeJSON(w, http.StatusOK, TextResponse{Text: ed.Text()})
}

func (a *API) SetToken(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[TokenRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	ed := editorOf(r)
	if req.Remember != nil {
		if err := ed.SetRemember(r.Context(), *req.Remember); err != nil {
			mapError(w, err)
			return
		}
	}
	if err := ed.SetToken(r.Context(), req.Token); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ed.Status())
}

func (a *API) SetLocation(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LocationRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	ed := editorOf(r)
	if err := ed.SetLocation(req); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ed.Status())
}

func (a *API) LoadDocument(w http.ResponseWriter, r *http.Request) {
	ed := editorOf(r)
	res, err := ed.Load(r.Context())
	if err != nil {
		attrs := []slog.Attr{slog.String("location", ed.Location().String())}
		if login := ed.Status().Login; login != "" {
			attrs = append(attrs, slog.String("login", login))
		}
		a.audit.logFailure(AuditLoadFailure, r, err, attrs...)
		mapError(w, err)
		return
	}
	a.audit.log(AuditLoad, r,
		slog.String("location", ed.Location().String()),
		slog.String("login", res.Login),
		slog.String("revision", res.Revision))
	writeJSON(w, http.StatusOK, res)
}

// PutDocument replaces the editor text. The text is kept as sent, valid or
// not; validation happens on Validate and Save.
func (a *API) PutDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[DocumentRequest](w, r, maxDocumentBodySize)
	if !ok {
		return
	}
	ed := editorOf(r)
	if err := ed.SetText(req.Text); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	cfg, err := editorOf(r).Validate(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, SiteName: cfg.Meta.SiteName})
}

func (a *API) SaveDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[SaveRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	ed := editorOf(r)
	res, err := ed.Save(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, remote.ErrConflict) {
			a.audit.logFailure(AuditConflict, r, err, slog.String("location", ed.Location().String()))
		}
		mapError(w, err)
		return
	}
	a.audit.log(AuditSave, r,
		slog.String("location", ed.Location().String()),
		slog.String("revision", res.Revision))
	writeJSON(w, http.StatusOK, res)
}

// DownloadDocument sends the editor text as a data.config attachment.
func (a *API) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	body, err := editorOf(r).Download()
	if err != nil {
		mapError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": admin.DownloadName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ConnectGoogle runs the consent flow on the machine serving the console.
// It blocks until the operator answers or the flow times out.
func (a *API) ConnectGoogle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[GoogleConnectRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	accounts, err := editorOf(r).ConnectGoogle(r.Context(), req.ClientID, req.Scope)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountsResponse{Accounts: accounts})
}

func (a *API) SetGoogleToken(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[GoogleTokenRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "access token required")
		return
	}
	ed := editorOf(r)
	if err := ed.SetGoogleToken(reviews.Token{AccessToken: req.AccessToken, ExpiresIn: req.ExpiresIn}); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ed.Status())
}

func (a *API) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := editorOf(r).GoogleAccounts(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountsResponse{Accounts: accounts})
}

// ListLocations lists the locations of the account query parameter, or of
// the selected account.
func (a *API) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := editorOf(r).GoogleLocations(r.Context(), r.URL.Query().Get("account"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LocationsResponse{Locations: locations})
}

func (a *API) ListReviews(w http.ResponseWriter, r *http.Request) {
	list, err := editorOf(r).GoogleReviews(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReviewsResponse{Reviews: list})
}

func (a *API) ImportReviews(w http.ResponseWriter, r *http.Request) {
	ed := editorOf(r)
	items, err := ed.ImportReviews(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditReviewsImported, r, slog.Int("count", len(items)))
	writeJSON(w, http.StatusOK, ImportResponse{Items: items, Text: ed.Text()})
}
