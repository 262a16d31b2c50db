// Package api serves the local admin console: a JSON API over admin.Editor
// with one editor per browser session.
package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/mickael31/location-benne-occitanie/admin"
	"github.com/mickael31/location-benne-occitanie/gate"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

// DefaultIdleTimeout drops editor sessions nobody used for that long.
const DefaultIdleTimeout = 30 * time.Minute

// API holds the dependencies needed by the REST handlers.
type API struct {
	state          *siteconfig.State
	store          remote.Store
	sessions       *sessionStore
	secrets        SecretBackend
	throttle       *gate.Throttle
	audit          *auditLogger
	logger         *slog.Logger
	editorOpts     []admin.Option
	trustedProxies []netip.Prefix
	alertFn        AlertFunc
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithIdleTimeout sets how long an unused editor session survives. Zero
// disables the idle check.
func WithIdleTimeout(d time.Duration) Option {
	return func(a *API) {
		a.sessions.idleTimeout = d
	}
}

// WithSecretBackend stores session secrets somewhere other than memory.
func WithSecretBackend(b SecretBackend) Option {
	return func(a *API) {
		a.secrets = b
	}
}

// WithEditorOptions passes options to every admin.Editor created.
func WithEditorOptions(opts ...admin.Option) Option {
	return func(a *API) {
		a.editorOpts = append(a.editorOpts, opts...)
	}
}

// WithTrustedProxies lets forwarding headers name the client address when
// the direct peer is inside one of the prefixes.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.trustedProxies = prefixes
	}
}

// WithAlertFunc receives alerts raised by bursts of unlock failures or save
// conflicts. Without it no alerts are raised.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// New creates a new API instance.
func New(state *siteconfig.State, store remote.Store, opts ...Option) *API {
	a := &API{
		state:    state,
		store:    store,
		sessions: newSessionStore(DefaultIdleTimeout),
		throttle: gate.NewThrottle(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if a.secrets == nil {
		a.secrets = NewMemoryBackend()
	}
	a.audit = newAuditLogger(a.logger, a.alertFn)
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Group(func(r chi.Router) {
		r.Use(a.EditorMiddleware)
		r.Use(a.CSRFMiddleware)

		r.Get("/status", a.Status)
		r.Post("/logout", a.Logout)

		r.Post("/gate/unlock", a.Unlock)
		r.Post("/gate/lock", a.Lock)
		r.Post("/gate/generate", a.GenerateGate)
		r.Post("/gate/disable", a.DisableGate)

		r.Put("/token", a.SetToken)
		r.Put("/location", a.SetLocation)

		r.Post("/document/load", a.LoadDocument)
		r.Put("/document", a.PutDocument)
		r.Post("/document/validate", a.ValidateDocument)
		r.Post("/document/save", a.SaveDocument)
		r.Get("/document/download", a.DownloadDocument)

		r.Post("/reviews/connect", a.ConnectGoogle)
		r.Put("/reviews/token", a.SetGoogleToken)
		r.Get("/reviews/accounts", a.ListAccounts)
		r.Get("/reviews/locations", a.ListLocations)
		r.Get("/reviews", a.ListReviews)
		r.Post("/reviews/import", a.ImportReviews)
	})

	return r
}

// ApplyConfig hands a newly published configuration to every open editor,
// for instance after the site file changed on disk.
func (a *API) ApplyConfig(ctx context.Context, cfg siteconfig.SiteConfig) {
	for _, s := range a.sessions.all() {
		if err := s.editor.Reconfigure(ctx, cfg); err != nil {
			a.logger.WarnContext(ctx, "reconfiguring editor session", "error", err)
		}
	}
}

// Sweep drops idle editor sessions and old throttle records. Call it
// periodically.
func (a *API) Sweep(ctx context.Context) int {
	n := 0
	for _, id := range a.sessions.expired() {
		a.endSession(ctx, id)
		n++
	}
	a.throttle.Sweep()
	return n
}
