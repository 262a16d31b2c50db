package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/mickael31/location-benne-occitanie/admin"
	"github.com/mickael31/location-benne-occitanie/api"
	"github.com/mickael31/location-benne-occitanie/internal/config"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/reviews"
	sessionbolt "github.com/mickael31/location-benne-occitanie/session/bbolt"
	sessionredis "github.com/mickael31/location-benne-occitanie/session/redis"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
	"github.com/mickael31/location-benne-occitanie/web"
)

// sweepInterval is how often idle sessions and expired records are dropped.
const sweepInterval = time.Minute

var (
	serveAddr  string
	serveSite  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site and the admin console",
	Long: `Serves the built site from server.site_dir, the admin console under
/admin/ and its API under /api/v1. With --watch, edits of the local
data.config are picked up without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().StringVar(&serveSite, "site-dir", "", "built site directory (default server.site_dir)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the site document when it changes on disk")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if serveAddr != "" {
		settings.Server.Addr = serveAddr
	}
	if serveSite != "" {
		settings.Server.SiteDir = serveSite
	}
	siteDir := settings.Server.SiteDir

	state := siteconfig.NewState()
	var loader *siteconfig.Loader
	if siteDir != "" {
		loader = siteconfig.NewLoader(siteconfig.FileSource{Path: filepath.Join(siteDir, siteconfig.Filename)}, siteconfig.WithLogger(logger))
		state.Reload(ctx, loader)
	} else {
		state.Replace(siteconfig.Default())
	}

	store, err := openStore(settings, logger)
	if err != nil {
		return err
	}

	proxies, err := parsePrefixes(settings.Server.TrustedProxies)
	if err != nil {
		return err
	}
	opts := []api.Option{
		api.WithLogger(logger),
		api.WithIdleTimeout(settings.Server.IdleTimeout),
		api.WithTrustedProxies(proxies),
		api.WithAlertFunc(func(ev api.AlertEvent) {
			logger.Warn("security alert", "alert", string(ev.Type), "message", ev.Message, "count", ev.Count)
		}),
	}

	editorOpts := []admin.Option{admin.WithLogger(logger)}
	if loc := settings.Location(); loc != documentLocation(siteconfig.Default()) {
		editorOpts = append(editorOpts, admin.WithLocation(loc))
	}
	if settings.Google.ClientID != "" || settings.Google.AccessToken != "" {
		editorOpts = append(editorOpts, admin.WithReviews(reviews.NewClient(reviews.WithLogger(logger)), tokenSource(cmd.ErrOrStderr())))
	}
	opts = append(opts, api.WithEditorOptions(editorOpts...))

	backend, sweepBackend, closeBackend, err := openSecretBackend(ctx, settings)
	if err != nil {
		return err
	}
	defer closeBackend()
	if backend != nil {
		opts = append(opts, api.WithSecretBackend(backend))
	}

	a := api.New(state, store, opts...)

	if serveWatch {
		if loader == nil {
			return errors.New("--watch needs a site directory")
		}
		reload := func(ctx context.Context) {
			snap := state.Reload(ctx, loader)
			a.ApplyConfig(ctx, snap.Config)
			logger.Info("site document reloaded", "generation", snap.Generation)
		}
		if err := watchFile(ctx, filepath.Join(siteDir, siteconfig.Filename), reload, logger); err != nil {
			return err
		}
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.Sweep(ctx); n > 0 {
					logger.Debug("idle sessions dropped", "count", n)
				}
				if sweepBackend != nil {
					if _, err := sweepBackend(); err != nil {
						logger.Warn("sweeping session store", "error", err)
					}
				}
			}
		}
	}()

	console, err := web.Console()
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Mount("/api/v1", a.Router())
	r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusMovedPermanently)
	})
	r.Handle("/admin/*", http.StripPrefix("/admin", api.SecurityHeaders(console)))
	if siteDir != "" {
		r.Handle("/*", web.Handler(os.DirFS(siteDir)))
	}

	server := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// The Google consent flow holds a request open for minutes.
		WriteTimeout: reviews.DefaultConsentTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("server failed: %w", err)
			return
		}
		done <- nil
	}()

	out := cmd.OutOrStdout()
	printBanner(out)
	fmt.Fprintf(out, "Admin console on http://%s/admin/ (store: %s, sessions: %s)\n",
		settings.Server.Addr, settings.Store.Backend, settings.Server.SessionBackend)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-done:
		return err
	}
}

// openSecretBackend returns a nil backend for the in-memory default. sweep
// is set for backends that do not expire records on their own.
func openSecretBackend(ctx context.Context, s config.Settings) (backend api.SecretBackend, sweep func() (int, error), closeFn func(), err error) {
	closeFn = func() {}
	if s.Server.SessionBackend == config.SessionMemory {
		return nil, nil, closeFn, nil
	}
	key, err := s.SessionKey()
	if err != nil {
		return nil, nil, closeFn, err
	}
	if s.Server.SessionKey == "" {
		logger.Warn("server.session_key not set, sessions will not survive a restart")
	}

	switch s.Server.SessionBackend {
	case config.SessionBolt:
		if err := os.MkdirAll(filepath.Dir(s.Server.BoltPath), 0o700); err != nil {
			return nil, nil, closeFn, fmt.Errorf("creating session directory: %w", err)
		}
		db, err := sessionbolt.Open(s.Server.BoltPath, key, s.Server.SessionTTL, nil)
		if err != nil {
			return nil, nil, closeFn, err
		}
		return api.BoltBackend(db), db.Sweep, func() { db.Close() }, nil
	case config.SessionRedis:
		rs, err := sessionredis.NewStore(s.Server.RedisURL, s.Server.SessionTTL, sessionredis.WithKey(key))
		if err != nil {
			return nil, nil, closeFn, err
		}
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, nil, closeFn, fmt.Errorf("connecting to redis: %w", err)
		}
		return api.RedisBackend(rs), nil, func() { rs.Close() }, nil
	}
	return nil, nil, closeFn, fmt.Errorf("unknown server.session_backend %q", s.Server.SessionBackend)
}

// parsePrefixes accepts CIDR prefixes and bare addresses.
func parsePrefixes(items []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range items {
		item = strings.TrimSpace(item)
		if p, err := netip.ParsePrefix(item); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", item)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}

func documentLocation(cfg siteconfig.SiteConfig) remote.Location {
	gh := cfg.Admin.GitHub
	return remote.Location{
		Owner:  strings.TrimSpace(gh.Owner),
		Repo:   strings.TrimSpace(gh.Repo),
		Branch: strings.TrimSpace(gh.Branch),
		Path:   strings.TrimSpace(gh.Path),
	}
}
