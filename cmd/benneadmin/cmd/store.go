package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mickael31/location-benne-occitanie/internal/config"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/remote/github"
	"github.com/mickael31/location-benne-occitanie/remote/gitstore"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

// openStore builds the document store named by the settings. The git
// backend creates the repository on first use, seeded with the document
// of the local site when there is one.
func openStore(s config.Settings, log *slog.Logger) (remote.Store, error) {
	switch s.Store.Backend {
	case config.StoreGit:
		author := "benneadmin"
		if len(s.GitHub.AllowedUsers) > 0 {
			author = s.GitHub.AllowedUsers[0]
		}
		store := gitstore.New(s.Store.GitDir,
			gitstore.WithToken(s.GitHub.Token),
			gitstore.WithAuthor(author, author+"@localhost"),
			gitstore.WithLogger(log),
		)
		seed, err := seedDocument(s.Server.SiteDir)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureRepository(s.Location(), string(seed)); err != nil {
			return nil, fmt.Errorf("preparing git repository: %w", err)
		}
		return store, nil
	default:
		return github.New(
			github.WithBaseURL(s.GitHub.APIURL),
			github.WithLogger(log),
		), nil
	}
}

func seedDocument(siteDir string) ([]byte, error) {
	if siteDir == "" {
		return siteconfig.DefaultJSON(), nil
	}
	data, err := os.ReadFile(filepath.Join(siteDir, siteconfig.Filename))
	if os.IsNotExist(err) {
		return siteconfig.DefaultJSON(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading site document: %w", err)
	}
	return data, nil
}
