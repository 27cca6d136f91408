package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLStore {
	t.Helper()

	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, openTestSQLite(t))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "T1/U1/auth", []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "T1/U1/auth")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	assert.Error(t, err)
}

func TestDialect_Rebind(t *testing.T) {
	assert.Equal(t, swapQuery, DialectSQLite.Rebind(swapQuery))
	assert.Equal(t,
		`UPDATE kv_entries SET entry_value = $1, updated_at = $2 WHERE entry_key = $3 AND entry_value = $4`,
		DialectPostgres.Rebind(swapQuery),
	)
}
