package siteconfig_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickael31/location-benne-occitanie/internal/log"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

func TestLoaderFallsBackOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	l := siteconfig.NewLoader(siteconfig.HTTPSource{BaseURL: baseURL}, siteconfig.WithLogger(log.Discard()))
	assert.Equal(t, siteconfig.Default(), l.Load(t.Context()))
}

func TestLoaderHTTP(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, cfg siteconfig.SiteConfig)
	}{
		{
			name:   "partial document merges onto defaults",
			status: http.StatusOK,
			body:   "\ufeff  {\"contact\":{\"email\":\"contact@example.fr\"}}\n",
			check: func(t *testing.T, cfg siteconfig.SiteConfig) {
				assert.Equal(t, "contact@example.fr", cfg.Contact.Email)
				assert.Equal(t, siteconfig.Default().Contact.Phone, cfg.Contact.Phone)
			},
		},
		{
			name:   "missing file",
			status: http.StatusNotFound,
			body:   "not found",
			check: func(t *testing.T, cfg siteconfig.SiteConfig) {
				assert.Equal(t, siteconfig.Default(), cfg)
			},
		},
		{
			name:   "invalid json",
			status: http.StatusOK,
			body:   `{"contact":`,
			check: func(t *testing.T, cfg siteconfig.SiteConfig) {
				assert.Equal(t, siteconfig.Default(), cfg)
			},
		},
		{
			name:   "wrong shape",
			status: http.StatusOK,
			body:   `{"home":"nope"}`,
			check: func(t *testing.T, cfg siteconfig.SiteConfig) {
				assert.Equal(t, siteconfig.Default(), cfg)
			},
		},
		{
			name:   "empty body",
			status: http.StatusOK,
			body:   "  ",
			check: func(t *testing.T, cfg siteconfig.SiteConfig) {
				assert.Equal(t, siteconfig.Default(), cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/site/data.config", r.URL.Path)
				assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			l := siteconfig.NewLoader(siteconfig.HTTPSource{BaseURL: srv.URL + "/site"}, siteconfig.WithLogger(log.Discard()))
			tt.check(t, l.Load(t.Context()))
		})
	}
}

func TestLoaderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, siteconfig.Filename)
	require.NoError(t, os.WriteFile(path, []byte(`{"meta":{"tagline":"Bennes 3 à 15 m³"}}`), 0o600))

	l := siteconfig.NewLoader(siteconfig.FileSource{Path: path}, siteconfig.WithLogger(log.Discard()))
	assert.Equal(t, "Bennes 3 à 15 m³", l.Load(t.Context()).Meta.Tagline)

	missing := siteconfig.NewLoader(siteconfig.FileSource{Path: filepath.Join(dir, "nope")}, siteconfig.WithLogger(log.Discard()))
	assert.Equal(t, siteconfig.Default(), missing.Load(t.Context()))

	assert.Equal(t, siteconfig.Default(), siteconfig.NewLoader(nil, siteconfig.WithLogger(log.Discard())).Load(t.Context()))
}
