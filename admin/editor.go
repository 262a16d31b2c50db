// Package admin drives one operator session of the configuration editor:
// gate, GitHub token, the editor text with its remote revision, and the
// Google review import.
//
// Editor methods may run concurrently. Network calls happen outside the
// editor lock; their results are applied only if no newer operation has
// replaced the state they were started against.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mickael31/location-benne-occitanie/gate"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/reviews"
	"github.com/mickael31/location-benne-occitanie/session"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

// DownloadName is the file name offered for downloads.
const DownloadName = siteconfig.Filename

var (
	ErrLocked        = errors.New("editor is locked")
	ErrTokenRequired = errors.New("GitHub token required")
	ErrSuperseded    = errors.New("result superseded by a newer operation")
	ErrNotLoaded     = errors.New("no document loaded")
)

// Editor is the state of one operator session.
type Editor struct {
	mu sync.Mutex

	gate    *gate.Gate
	secrets *session.Manager
	store   remote.Store
	state   *siteconfig.State
	logger  *slog.Logger
	now     func() time.Time

	loc   remote.Location
	allow remote.AllowList

	// generation is bumped by Load, Lock, Logout and SetLocation; a pending
	// fetch or write started under an older value is discarded. Edits do not
	// bump it: a save that completes after an edit still records the new
	// remote revision and leaves the edited text in place.
	generation uint64
	// edits is bumped by every change of text, so a late Load or gate
	// rewrite cannot overwrite newer edits.
	edits uint64

	text      string
	revision  string
	login     string
	commitURL string

	google       *reviews.Client
	tokenSource  reviews.TokenSource
	googleToken  reviews.Token
	googleConfig siteconfig.GoogleSettings
	fetched      []reviews.Review
}

type Option func(*Editor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = l
	}
}

// WithClock replaces time.Now, for Google token expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		e.now = now
	}
}

// WithLocation overrides the non-empty fields of the location read from the
// configuration.
func WithLocation(loc remote.Location) Option {
	return func(e *Editor) {
		e.loc = mergeLocation(e.loc, loc)
	}
}

// WithReviews enables the Google review import.
func WithReviews(client *reviews.Client, src reviews.TokenSource) Option {
	return func(e *Editor) {
		e.google = client
		e.tokenSource = src
	}
}

// Deps are the collaborators an Editor needs.
type Deps struct {
	State   *siteconfig.State
	Store   remote.Store
	Secrets *session.Manager
	// GateOptions are passed to gate.New, typically a shared throttle.
	GateOptions []gate.Option
}

// New opens an editor session. The gate record, location and allow-list
// come from the current application configuration. A token remembered
// earlier in the session is restored once the gate is open.
func New(ctx context.Context, deps Deps, opts ...Option) (*Editor, error) {
	if deps.State == nil || deps.Store == nil {
		return nil, errors.New("admin: state and store are required")
	}
	secrets := deps.Secrets
	if secrets == nil {
		secrets = session.NewManager(nil)
	}

	cfg := deps.State.Config()
	e := &Editor{
		secrets:      secrets,
		store:        deps.Store,
		state:        deps.State,
		loc:          locationFrom(cfg.Admin.GitHub),
		allow:        remote.AllowList(cfg.Admin.GitHub.AllowedUsers),
		googleConfig: cfg.Admin.Google,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.googleConfig.Scope == "" {
		e.googleConfig.Scope = reviews.BusinessProfileScope
	}

	g, err := gate.New(ctx, cfg.Admin.Gate, secrets, deps.GateOptions...)
	if err != nil {
		return nil, fmt.Errorf("opening gate: %w", err)
	}
	e.gate = g
	if g.State() == gate.Unlocked {
		if _, err := secrets.Restore(ctx); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func locationFrom(gh siteconfig.GitHubSettings) remote.Location {
	return remote.Location{
		Owner:  strings.TrimSpace(gh.Owner),
		Repo:   strings.TrimSpace(gh.Repo),
		Branch: strings.TrimSpace(gh.Branch),
		Path:   strings.TrimSpace(gh.Path),
	}
}

func mergeLocation(base, override remote.Location) remote.Location {
	if v := strings.TrimSpace(override.Owner); v != "" {
		base.Owner = v
	}
	if v := strings.TrimSpace(override.Repo); v != "" {
		base.Repo = v
	}
	if v := strings.TrimSpace(override.Branch); v != "" {
		base.Branch = v
	}
	if v := strings.TrimSpace(override.Path); v != "" {
		base.Path = v
	}
	return base
}

// Reconfigure applies a newly published configuration: the gate record and
// the allow-list follow it. The location is kept as the operator set it.
func (e *Editor) Reconfigure(ctx context.Context, cfg siteconfig.SiteConfig) error {
	e.mu.Lock()
	e.allow = remote.AllowList(cfg.Admin.GitHub.AllowedUsers)
	e.mu.Unlock()
	return e.gate.Reconfigure(ctx, cfg.Admin.Gate)
}

// Unlock checks password against the gate and restores a remembered token.
func (e *Editor) Unlock(ctx context.Context, password string) error {
	if err := e.gate.Unlock(ctx, password); err != nil {
		return err
	}
	if _, err := e.secrets.Restore(ctx); err != nil {
		return err
	}
	return nil
}

// Lock closes the gate. Pending loads and saves are discarded.
func (e *Editor) Lock(ctx context.Context) error {
	e.mu.Lock()
	e.generation++
	e.mu.Unlock()
	return e.gate.Lock(ctx)
}

func (e *Editor) Unlocked() bool {
	return e.gate.State() == gate.Unlocked
}

// SetToken replaces the GitHub token. The previous identity is forgotten.
func (e *Editor) SetToken(ctx context.Context, token string) error {
	if err := e.requireUnlocked(); err != nil {
		return err
	}
	if err := e.secrets.SetToken(ctx, token); err != nil {
		return err
	}
	e.mu.Lock()
	e.login = ""
	e.mu.Unlock()
	return nil
}

// SetRemember turns session storage of the token on or off.
func (e *Editor) SetRemember(ctx context.Context, remember bool) error {
	if err := e.requireUnlocked(); err != nil {
		return err
	}
	return e.secrets.SetRemember(ctx, remember)
}

func (e *Editor) Location() remote.Location {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loc
}

// SetLocation points the editor at another file. The loaded revision no
// longer applies and is dropped.
func (e *Editor) SetLocation(loc remote.Location) error {
	if err := e.requireUnlocked(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next := mergeLocation(e.loc, loc)
	if next != e.loc {
		e.loc = next
		e.generation++
		e.revision = ""
		e.commitURL = ""
	}
	return nil
}

// Logout locks the gate and forgets the token, the identity, the document
// and the Google session.
func (e *Editor) Logout(ctx context.Context) error {
	e.mu.Lock()
	e.generation++
	e.edits++
	e.text = ""
	e.revision = ""
	e.login = ""
	e.commitURL = ""
	e.googleToken = reviews.Token{}
	e.fetched = nil
	e.mu.Unlock()

	lockErr := e.gate.Lock(ctx)
	if err := e.secrets.Logout(ctx); err != nil {
		return err
	}
	return lockErr
}

// Close drops the in-memory token. Stored secrets are left to the storage
// owner.
func (e *Editor) Close() {
	e.secrets.Destroy()
}

// GoogleStatus is the review import part of Status.
type GoogleStatus struct {
	Connected    bool   `json:"connected"`
	Expired      bool   `json:"expired"`
	ClientID     string `json:"clientId,omitempty"`
	Scope        string `json:"scope,omitempty"`
	AccountName  string `json:"accountName,omitempty"`
	LocationName string `json:"locationName,omitempty"`
	Reviews      int    `json:"reviews"`
}

type Status struct {
	GateEnabled bool            `json:"gateEnabled"`
	Gate        string          `json:"gate"`
	HasToken    bool            `json:"hasToken"`
	Remember    bool            `json:"remember"`
	Login       string          `json:"login,omitempty"`
	Location    remote.Location `json:"location"`
	Loaded      bool            `json:"loaded"`
	Revision    string          `json:"revision,omitempty"`
	CommitURL   string          `json:"commitUrl,omitempty"`
	Google      GoogleStatus    `json:"google"`
}

// Status reports the session without revealing any secret.
func (e *Editor) Status() Status {
	st := Status{
		GateEnabled: e.gate.Enabled(),
		Gate:        e.gate.State().String(),
		HasToken:    e.secrets.HasToken(),
		Remember:    e.secrets.Remember(),
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st.Login = e.login
	st.Location = e.loc
	st.Loaded = e.revision != ""
	st.Revision = e.revision
	st.CommitURL = e.commitURL
	st.Google = GoogleStatus{
		Connected:    e.googleToken.AccessToken != "",
		Expired:      e.googleToken.AccessToken != "" && e.googleToken.Expired(e.now()),
		ClientID:     e.googleConfig.OAuthClientID,
		Scope:        e.googleConfig.Scope,
		AccountName:  e.googleConfig.AccountName,
		LocationName: e.googleConfig.LocationName,
		Reviews:      len(e.fetched),
	}
	return st
}

func (e *Editor) requireUnlocked() error {
	if e.gate.State() != gate.Unlocked {
		return ErrLocked
	}
	return nil
}

// githubToken returns the token for remote calls.
func (e *Editor) githubToken() (string, error) {
	token, err := e.secrets.Token()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrTokenRequired
	}
	return token, nil
}
