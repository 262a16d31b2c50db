package remote_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickael31/location-benne-occitanie/remote"
)

type fakeStore struct {
	login       string
	identifyErr error
	fetches     int
}

func (f *fakeStore) Identify(context.Context, string) (remote.Identity, error) {
	if f.identifyErr != nil {
		return remote.Identity{}, f.identifyErr
	}
	return remote.Identity{Login: f.login}, nil
}

func (f *fakeStore) Fetch(context.Context, remote.Location, string) (remote.Document, error) {
	f.fetches++
	return remote.Document{Revision: "r1", Text: "{}"}, nil
}

func (f *fakeStore) Write(context.Context, remote.Location, string, remote.WriteRequest) (remote.WriteResult, error) {
	return remote.WriteResult{}, errors.New("not implemented")
}

func TestLocationValidate(t *testing.T) {
	loc := remote.Location{Owner: "mickael31", Repo: "site", Branch: "main", Path: "public/data.config"}
	require.NoError(t, loc.Validate())
	assert.Equal(t, "mickael31/site@main:public/data.config", loc.String())

	err := remote.Location{Owner: "mickael31", Branch: " "}.Validate()
	require.ErrorIs(t, err, remote.ErrInvalidLocation)
	assert.Contains(t, err.Error(), "repo, branch, path")
}

func TestCheckWrite(t *testing.T) {
	assert.ErrorIs(t, remote.CheckWrite(remote.WriteRequest{Text: "{}"}), remote.ErrStaleOrMissingRevision)
	assert.ErrorIs(t, remote.CheckWrite(remote.WriteRequest{Revision: "  ", Text: "{}"}), remote.ErrStaleOrMissingRevision)
	assert.NoError(t, remote.CheckWrite(remote.WriteRequest{Revision: "abc", Text: "{}"}))
}

func TestCommitMessage(t *testing.T) {
	assert.Equal(t, "Update public/data.config via admin", remote.WriteRequest{}.CommitMessage("public/data.config"))
	assert.Equal(t, "custom", remote.WriteRequest{Message: "custom"}.CommitMessage("public/data.config"))
}

func TestAllowList(t *testing.T) {
	tests := []struct {
		name  string
		allow remote.AllowList
		login string
		ok    bool
	}{
		{name: "empty list allows everyone", allow: nil, login: "anyone", ok: true},
		{name: "exact", allow: remote.AllowList{"mickael31"}, login: "mickael31", ok: true},
		{name: "case and spaces", allow: remote.AllowList{" Mickael31 "}, login: "mickael31", ok: true},
		{name: "other login", allow: remote.AllowList{"mickael31"}, login: "intruder", ok: false},
		{name: "empty login", allow: remote.AllowList{"mickael31"}, login: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.allow.Check(remote.Identity{Login: tt.login})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, remote.ErrForbiddenPrincipal)
			}
		})
	}
}

func TestFetchAuthorized(t *testing.T) {
	loc := remote.Location{Owner: "o", Repo: "r", Branch: "main", Path: "data.config"}

	t.Run("forbidden principal never reads", func(t *testing.T) {
		store := &fakeStore{login: "intruder"}
		id, _, err := remote.FetchAuthorized(t.Context(), store, loc, "tok", remote.AllowList{"mickael31"})
		require.ErrorIs(t, err, remote.ErrForbiddenPrincipal)
		assert.Equal(t, "intruder", id.Login)
		assert.Zero(t, store.fetches)
	})

	t.Run("identify failure", func(t *testing.T) {
		store := &fakeStore{identifyErr: remote.ErrAuth}
		_, _, err := remote.FetchAuthorized(t.Context(), store, loc, "tok", nil)
		require.ErrorIs(t, err, remote.ErrAuth)
		assert.Zero(t, store.fetches)
	})

	t.Run("allowed", func(t *testing.T) {
		store := &fakeStore{login: "mickael31"}
		id, doc, err := remote.FetchAuthorized(t.Context(), store, loc, "tok", remote.AllowList{"MICKAEL31"})
		require.NoError(t, err)
		assert.Equal(t, "mickael31", id.Login)
		assert.Equal(t, "r1", doc.Revision)
		assert.Equal(t, 1, store.fetches)
	})
}

func TestAPIError(t *testing.T) {
	err := error(&remote.APIError{Status: 409, Message: "sha mismatch", Err: remote.ErrConflict})
	assert.Equal(t, "GitHub API error (409): sha mismatch", err.Error())
	assert.ErrorIs(t, err, remote.ErrConflict)

	bare := &remote.APIError{Service: "Git", Status: 500}
	assert.Equal(t, "Git API error (500)", bare.Error())
	assert.NotErrorIs(t, bare, remote.ErrConflict)
}
