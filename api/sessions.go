package api

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/mickael31/location-benne-occitanie/admin"
	"github.com/mickael31/location-benne-occitanie/gate"
	"github.com/mickael31/location-benne-occitanie/internal/util"
	"github.com/mickael31/location-benne-occitanie/session"
)

type contextKey int

const editorKey contextKey = iota

const (
	sessionCookieName = "benneadmin_session"
	sessionIDBytes    = 32
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

type editorSession struct {
	id             string
	editor         *admin.Editor
	lastAccessedAt time.Time
}

// sessionStore is the thread-safe in-memory table of open editors.
type sessionStore struct {
	mu          sync.Mutex
	data        map[string]*editorSession
	idleTimeout time.Duration
}

func newSessionStore(idleTimeout time.Duration) *sessionStore {
	return &sessionStore{
		data:        make(map[string]*editorSession),
		idleTimeout: idleTimeout,
	}
}

// get returns the session and refreshes its access time. An idle session
// is returned with false, for the caller to end.
func (s *sessionStore) get(id string) (*editorSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.data[id]
	if !ok {
		return nil, false
	}
	if s.idle(es, time.Now()) {
		return es, false
	}
	es.lastAccessedAt = time.Now()
	return es, true
}

func (s *sessionStore) put(es *editorSession) {
	s.mu.Lock()
	s.data[es.id] = es
	s.mu.Unlock()
}

func (s *sessionStore) remove(id string) (*editorSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.data[id]
	delete(s.data, id)
	return es, ok
}

func (s *sessionStore) all() []*editorSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*editorSession, 0, len(s.data))
	for _, es := range s.data {
		out = append(out, es)
	}
	return out
}

func (s *sessionStore) expired() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var ids []string
	for id, es := range s.data {
		if s.idle(es, now) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *sessionStore) idle(es *editorSession, now time.Time) bool {
	return s.idleTimeout > 0 && now.Sub(es.lastAccessedAt) > s.idleTimeout
}

// EditorMiddleware attaches the editor of the browser session to the
// request, opening one when the cookie is missing or stale. A cookie whose
// secrets survive in the backend resumes under the same id.
func (a *API) EditorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		es, err := a.sessionFor(w, r)
		if err != nil {
			a.logger.ErrorContext(r.Context(), "opening editor session", "error", err)
			writeError(w, http.StatusInternalServerError, "could not open editor session")
			return
		}
		ctx := context.WithValue(r.Context(), editorKey, es)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) sessionFor(w http.ResponseWriter, r *http.Request) (*editorSession, error) {
	ctx := r.Context()
	if cookie, err := r.Cookie(sessionCookieName); err == nil && sessionIDPattern.MatchString(cookie.Value) {
		id := cookie.Value
		es, ok := a.sessions.get(id)
		switch {
		case ok:
			return es, nil
		case es != nil:
			a.endSession(ctx, id)
		default:
			exists, err := a.secrets.Exists(ctx, id)
			if err != nil {
				return nil, err
			}
			if exists {
				return a.openSession(w, r, id)
			}
		}
	}

	id, err := util.RandomToken(sessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	return a.openSession(w, r, id)
}

func (a *API) openSession(w http.ResponseWriter, r *http.Request, id string) (*editorSession, error) {
	secrets := session.NewManager(a.secrets.Open(id))
	ed, err := admin.New(r.Context(), admin.Deps{
		State:       a.state,
		Store:       a.store,
		Secrets:     secrets,
		GateOptions: []gate.Option{gate.WithThrottle(a.throttle, a.extractClientIP(r))},
	}, a.editorOpts...)
	if err != nil {
		return nil, err
	}
	es := &editorSession{id: id, editor: ed, lastAccessedAt: time.Now()}
	a.sessions.put(es)

	writeSessionCookie(w, r, id)
	if c, err := r.Cookie(csrfCookieName); err != nil || c.Value == "" {
		writeCSRFCookie(w, r)
	}
	return es, nil
}

// endSession forgets the editor and its stored secrets.
func (a *API) endSession(ctx context.Context, id string) {
	if es, ok := a.sessions.remove(id); ok {
		es.editor.Close()
	}
	if err := a.secrets.End(ctx, id); err != nil {
		a.logger.WarnContext(ctx, "ending editor session", "error", err)
	}
}

func editorFromContext(ctx context.Context) *editorSession {
	es, _ := ctx.Value(editorKey).(*editorSession)
	return es
}

// writeSessionCookie sets a browser-session cookie: no Expires, so it ends
// with the browser session.
func writeSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
