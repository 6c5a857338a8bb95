package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/connshare/internal/secrets"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(secrets.DefaultConfig(filepath.Join(t.TempDir(), "secrets.json")))
	require.NoError(t, err)
	return s
}

func TestGetMissingKey(t *testing.T) {
	s := newStore(t)

	val, ok, err := s.Get(context.Background(), "never-written")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, val)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "connshare.permissions", `{"a":"approved"}`))

	val, ok, err := s.Get(ctx, "connshare.permissions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":"approved"}`, val)
}

func TestOverwrite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))

	val, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", val)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting a missing key is not an error
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.json")
	ctx := context.Background()

	s1, err := New(secrets.DefaultConfig(path))
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "k", "v"))
	require.NoError(t, s1.Close())

	s2, err := New(secrets.DefaultConfig(path))
	require.NoError(t, err)
	val, ok, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestFilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.json")

	s, err := New(secrets.DefaultConfig(path))
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
