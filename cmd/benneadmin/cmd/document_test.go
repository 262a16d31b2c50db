package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickael31/location-benne-occitanie/internal/config"
	ilog "github.com/mickael31/location-benne-occitanie/internal/log"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

func TestValidateDocument(t *testing.T) {
	cfg, err := validateDocument([]byte(`{"meta":{"siteName":"Benne Test"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Benne Test", cfg.Meta.SiteName)
	assert.Equal(t, siteconfig.Default().Meta.Language, cfg.Meta.Language, "missing keys come from the defaults")

	_, err = validateDocument([]byte(`{"meta":3}`))
	assert.ErrorIs(t, err, siteconfig.ErrMalformedDocument)

	_, err = validateDocument([]byte(`{"meta":{"language":"en"}}`))
	assert.ErrorIs(t, err, siteconfig.ErrMalformedDocument)
}

func TestSeedDocument(t *testing.T) {
	data, err := seedDocument("")
	require.NoError(t, err)
	assert.Equal(t, siteconfig.DefaultJSON(), data)

	dir := t.TempDir()
	data, err = seedDocument(dir)
	require.NoError(t, err)
	assert.Equal(t, siteconfig.DefaultJSON(), data, "a site without a document gets the defaults")

	require.NoError(t, os.WriteFile(filepath.Join(dir, siteconfig.Filename), []byte(`{"meta":{}}`), 0o644))
	data, err = seedDocument(dir)
	require.NoError(t, err)
	assert.Equal(t, `{"meta":{}}`, string(data))
}

func TestOpenGitStore(t *testing.T) {
	ctx := context.Background()
	s := config.Settings{
		GitHub: config.GitHub{
			Owner:        "mickael31",
			Repo:         "site",
			Branch:       "main",
			Path:         "public/data.config",
			AllowedUsers: []string{"mickael31"},
			Token:        "local-token",
		},
		Store: config.Store{Backend: config.StoreGit, GitDir: t.TempDir()},
	}

	store, err := openStore(s, ilog.Discard())
	require.NoError(t, err)

	id, doc, err := remote.FetchAuthorized(ctx, store, s.Location(), "local-token", s.GitHub.AllowedUsers)
	require.NoError(t, err)
	assert.Equal(t, "mickael31", id.Login)
	assert.Equal(t, string(siteconfig.DefaultJSON()), doc.Text)

	_, _, err = remote.FetchAuthorized(ctx, store, s.Location(), "wrong", s.GitHub.AllowedUsers)
	assert.ErrorIs(t, err, remote.ErrAuth)

	res, err := store.Write(ctx, s.Location(), "local-token", remote.WriteRequest{Revision: doc.Revision, Text: `{"meta":{}}`})
	require.NoError(t, err)
	assert.NotEqual(t, doc.Revision, res.Revision)

	// Reopening keeps the existing repository.
	store, err = openStore(s, ilog.Discard())
	require.NoError(t, err)
	got, err := store.Fetch(ctx, s.Location(), "local-token")
	require.NoError(t, err)
	assert.Equal(t, `{"meta":{}}`, got.Text)
}
