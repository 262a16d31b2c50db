package bbolt_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickael31/location-benne-occitanie/internal/util"
	"github.com/mickael31/location-benne-occitanie/session"
	sessionbolt "github.com/mickael31/location-benne-occitanie/session/bbolt"
)

func openDB(t *testing.T, ttl time.Duration) (*sessionbolt.DB, string, []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	key, err := util.NewAESKey()
	require.NoError(t, err)
	db, err := sessionbolt.Open(path, key, ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path, key
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := t.Context()
	db, _, _ := openDB(t, time.Hour)
	s := db.Session("abc")

	_, ok, err := s.Get(ctx, session.KindAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, session.KindAccessToken, "ghp_abc"))
	v, ok, err := s.Get(ctx, session.KindAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ghp_abc", v)

	other := db.Session("def")
	_, ok, err = other.Get(ctx, session.KindAccessToken)
	require.NoError(t, err)
	assert.False(t, ok, "sessions do not share values")

	require.NoError(t, s.Clear(ctx, session.KindAccessToken))
	_, ok, err = s.Get(ctx, session.KindAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.Set(ctx, session.Kind("x"), "v"), session.ErrUnknownKind)
}

func TestValuesSurviveReopenWithSameKey(t *testing.T) {
	ctx := t.Context()
	db, path, key := openDB(t, 0)
	require.NoError(t, db.Session("abc").Set(ctx, session.KindGateUnlocked, "1"))
	require.NoError(t, db.Close())

	reopened, err := sessionbolt.Open(path, key, 0, nil)
	require.NoError(t, err)
	v, ok, err := reopened.Session("abc").Get(ctx, session.KindGateUnlocked)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	require.NoError(t, reopened.Close())

	otherKey, err := util.NewAESKey()
	require.NoError(t, err)
	wrongKey, err := sessionbolt.Open(path, otherKey, 0, nil)
	require.NoError(t, err)
	defer wrongKey.Close()
	_, _, err = wrongKey.Session("abc").Get(ctx, session.KindGateUnlocked)
	assert.Error(t, err)
}

func TestExpiryAndSweep(t *testing.T) {
	ctx := t.Context()
	db, _, _ := openDB(t, time.Minute)
	now := time.Date(2025, 8, 4, 10, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return now })

	require.NoError(t, db.Session("a").Set(ctx, session.KindAccessToken, "ghp_a"))
	require.NoError(t, db.Session("b").Set(ctx, session.KindAccessToken, "ghp_b"))

	now = now.Add(2 * time.Minute)
	require.NoError(t, db.Session("b").Set(ctx, session.KindGateUnlocked, "1"))

	_, ok, err := db.Session("a").Get(ctx, session.KindAccessToken)
	require.NoError(t, err)
	assert.False(t, ok, "expired values read as absent")

	removed, err := db.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "only b's token was left to expire")

	v, ok, err := db.Session("b").Get(ctx, session.KindGateUnlocked)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestEnd(t *testing.T) {
	ctx := t.Context()
	db, _, _ := openDB(t, 0)
	s := db.Session("abc")
	require.NoError(t, s.Set(ctx, session.KindAccessToken, "ghp_abc"))
	require.NoError(t, s.Set(ctx, session.KindGateUnlocked, "1"))

	exists, err := db.Exists("abc")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, db.End("abc"))
	require.NoError(t, db.End("abc"), "ending twice is fine")

	exists, err = db.Exists("abc")
	require.NoError(t, err)
	assert.False(t, exists)

	_, ok, err := s.Get(ctx, session.KindAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerOverBolt(t *testing.T) {
	ctx := t.Context()
	db, _, _ := openDB(t, time.Hour)

	m := session.NewManager(db.Session("abc"))
	require.NoError(t, m.SetRemember(ctx, true))
	require.NoError(t, m.SetToken(ctx, "ghp_abc"))

	restored := session.NewManager(db.Session("abc"))
	ok, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	token, err := restored.Token()
	require.NoError(t, err)
	assert.Equal(t, "ghp_abc", token)
}

func TestRejectsBadKey(t *testing.T) {
	_, err := sessionbolt.Open(filepath.Join(t.TempDir(), "s.db"), []byte("short"), 0, nil)
	assert.Error(t, err)
}
