package profiles

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/connshare/internal/connection"
	"github.com/koustreak/connshare/internal/secrets"
	"github.com/koustreak/connshare/internal/secrets/file"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()

	sec, err := file.New(secrets.DefaultConfig(filepath.Join(dir, "secrets.json")))
	require.NoError(t, err)

	s, err := New(filepath.Join(dir, "profiles.db"), sec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample() connection.Profile {
	return connection.Profile{
		ID:       "conn-1",
		Name:     "sales primary",
		Driver:   connection.DriverPostgres,
		Server:   "db1.internal",
		Port:     5432,
		Database: "sales",
		User:     "app",
		Password: "s3cret",
		SSLMode:  "require",
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))

	p, ok, err := s.GetConnection(ctx, "conn-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sales primary", p.Name)
	assert.Equal(t, connection.DriverPostgres, p.Driver)
	assert.Equal(t, "s3cret", p.Password, "password comes back from the secret store")
}

func TestGetUnknownProfile(t *testing.T) {
	s := newStore(t)

	_, ok, err := s.GetConnection(context.Background(), "nonexistent-id")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetConnections(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p1 := sample()
	p2 := sample()
	p2.ID = "conn-2"
	p2.Name = "analytics replica"
	require.NoError(t, s.Save(ctx, p1))
	require.NoError(t, s.Save(ctx, p2))

	all, err := s.GetConnections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// ordered by name
	assert.Equal(t, "conn-2", all[0].ID)
	assert.Equal(t, "conn-1", all[1].ID)
}

func TestSaveUpdates(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := sample()
	require.NoError(t, s.Save(ctx, p))

	p.Database = "sales_v2"
	require.NoError(t, s.Save(ctx, p))

	got, ok, err := s.GetConnection(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sales_v2", got.Database)

	all, err := s.GetConnections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))
	require.NoError(t, s.Delete(ctx, "conn-1"))

	_, ok, err := s.GetConnection(ctx, "conn-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordNotInProfileDB(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	sec, err := file.New(secrets.DefaultConfig(filepath.Join(dir, "secrets.json")))
	require.NoError(t, err)
	s, err := New(filepath.Join(dir, "profiles.db"), sec)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, sample()))

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM pragma_table_info('connection_profiles') WHERE name LIKE '%password%'`).
		Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count, "no password column may exist in the profile table")
}
