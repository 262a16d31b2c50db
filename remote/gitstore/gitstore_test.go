package gitstore_test

import (
	"sync"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickael31/location-benne-occitanie/internal/log"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/remote/gitstore"
)

var loc = remote.Location{Owner: "mickael31", Repo: "site", Branch: "main", Path: "public/data.config"}

func setup(t *testing.T, opts ...gitstore.Option) (*gitstore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	opts = append([]gitstore.Option{gitstore.WithLogger(log.Discard())}, opts...)
	s := gitstore.New(dir, opts...)
	require.NoError(t, s.EnsureRepository(loc, "{}"))
	return s, dir
}

func blobHash(text string) string {
	return plumbing.ComputeHash(plumbing.BlobObject, []byte(text)).String()
}

func headCommitMessage(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainOpen(dir + "/mickael31/site")
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	require.NoError(t, err)
	c, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	return c.Message
}

func TestEnsureAndFetch(t *testing.T) {
	s, dir := setup(t)

	doc, err := s.Fetch(t.Context(), loc, "")
	require.NoError(t, err)
	assert.Equal(t, "{}", doc.Text)
	assert.Equal(t, blobHash("{}"), doc.Revision)
	assert.Equal(t, "Import public/data.config", headCommitMessage(t, dir))

	// A second call leaves the repository alone.
	require.NoError(t, s.EnsureRepository(loc, `{"other":true}`))
	doc, err = s.Fetch(t.Context(), loc, "")
	require.NoError(t, err)
	assert.Equal(t, "{}", doc.Text)
}

func TestWrite(t *testing.T) {
	s, dir := setup(t)
	ctx := t.Context()

	doc, err := s.Fetch(ctx, loc, "")
	require.NoError(t, err)

	text := "{\n  \"contact\": {\n    \"phone\": \"05 63 00 00 00\"\n  }\n}"
	res, err := s.Write(ctx, loc, "", remote.WriteRequest{Revision: doc.Revision, Text: text})
	require.NoError(t, err)
	assert.Equal(t, blobHash(text), res.Revision)
	assert.Len(t, res.CommitRef, 40)
	assert.Equal(t, "Update public/data.config via admin", headCommitMessage(t, dir))

	got, err := s.Fetch(ctx, loc, "")
	require.NoError(t, err)
	assert.Equal(t, text, got.Text)
	assert.Equal(t, res.Revision, got.Revision)

	_, err = s.Write(ctx, loc, "", remote.WriteRequest{Revision: res.Revision, Text: "{}", Message: "Reset"})
	require.NoError(t, err)
	assert.Equal(t, "Reset", headCommitMessage(t, dir))
}

func TestWriteWithoutRevision(t *testing.T) {
	s, dir := setup(t)

	_, err := s.Write(t.Context(), loc, "", remote.WriteRequest{Text: `{"a":1}`})
	require.ErrorIs(t, err, remote.ErrStaleOrMissingRevision)
	assert.Equal(t, "Import public/data.config", headCommitMessage(t, dir))
}

func TestConcurrentWritersConflict(t *testing.T) {
	s, _ := setup(t)
	ctx := t.Context()

	a, err := s.Fetch(ctx, loc, "")
	require.NoError(t, err)
	b, err := s.Fetch(ctx, loc, "")
	require.NoError(t, err)

	_, err = s.Write(ctx, loc, "", remote.WriteRequest{Revision: b.Revision, Text: `{"by":"b"}`})
	require.NoError(t, err)

	_, err = s.Write(ctx, loc, "", remote.WriteRequest{Revision: a.Revision, Text: `{"by":"a"}`})
	require.ErrorIs(t, err, remote.ErrConflict)

	doc, err := s.Fetch(ctx, loc, "")
	require.NoError(t, err)
	assert.Equal(t, `{"by":"b"}`, doc.Text)
}

func TestParallelWritersOneWins(t *testing.T) {
	s, _ := setup(t)
	ctx := t.Context()

	doc, err := s.Fetch(ctx, loc, "")
	require.NoError(t, err)

	const writers = 6
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Write(ctx, loc, "", remote.WriteRequest{Revision: doc.Revision, Text: `{"writer":` + string(rune('0'+i)) + `}`})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, remote.ErrConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestToken(t *testing.T) {
	s, _ := setup(t, gitstore.WithToken("local-secret"), gitstore.WithAuthor("Mickael", "mickael@example.fr"))
	ctx := t.Context()

	id, err := s.Identify(ctx, " local-secret ")
	require.NoError(t, err)
	assert.Equal(t, "Mickael", id.Login)

	_, err = s.Identify(ctx, "wrong")
	assert.ErrorIs(t, err, remote.ErrAuth)

	_, err = s.Fetch(ctx, loc, "wrong")
	assert.ErrorIs(t, err, remote.ErrNotFoundOrAuth)

	_, err = s.Write(ctx, loc, "wrong", remote.WriteRequest{Revision: blobHash("{}"), Text: "{}"})
	assert.ErrorIs(t, err, remote.ErrNotFoundOrAuth)
}

func TestFetchErrors(t *testing.T) {
	s, _ := setup(t)
	ctx := t.Context()

	tests := []struct {
		name string
		loc  remote.Location
		want error
	}{
		{name: "unknown repository", loc: remote.Location{Owner: "mickael31", Repo: "other", Branch: "main", Path: "public/data.config"}, want: remote.ErrNotFoundOrAuth},
		{name: "unknown branch", loc: remote.Location{Owner: "mickael31", Repo: "site", Branch: "preview", Path: "public/data.config"}, want: remote.ErrNotFoundOrAuth},
		{name: "unknown file", loc: remote.Location{Owner: "mickael31", Repo: "site", Branch: "main", Path: "public/other.config"}, want: remote.ErrNotFoundOrAuth},
		{name: "escaping path", loc: remote.Location{Owner: "mickael31", Repo: "site", Branch: "main", Path: "../../etc/passwd"}, want: remote.ErrInvalidLocation},
		{name: "escaping repo", loc: remote.Location{Owner: "..", Repo: "site", Branch: "main", Path: "data.config"}, want: remote.ErrInvalidLocation},
		{name: "incomplete", loc: remote.Location{Owner: "mickael31"}, want: remote.ErrInvalidLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Fetch(ctx, tt.loc, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
