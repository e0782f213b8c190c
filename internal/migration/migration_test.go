package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestRunAppliesPendingMigrationsOnce(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	fsys := fstest.MapFS{
		"migrations/002_items.up.sql":   {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY, list_id TEXT REFERENCES lists(id));")},
		"migrations/001_lists.up.sql":   {Data: []byte("CREATE TABLE lists (id TEXT PRIMARY KEY);")},
		"migrations/001_lists.down.sql": {Data: []byte("DROP TABLE lists;")},
	}

	versions, err := Versions(fsys, "migrations")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_lists", "002_items"}, versions)

	n, err := Run(ctx, db, SQLite, fsys, "migrations")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = Run(ctx, db, SQLite, fsys, "migrations")
	require.NoError(t, err)
	assert.Zero(t, n)

	fsys["migrations/003_tags.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE tags (id TEXT);")}

	status, err := Status(ctx, db, SQLite, fsys, "migrations")
	require.NoError(t, err)
	require.Len(t, status, 3)
	assert.True(t, status[0].Applied)
	assert.NotNil(t, status[0].AppliedAt)
	assert.False(t, status[2].Applied)
}

func TestRunRollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	fsys := fstest.MapFS{
		"migrations/001_bad.up.sql": {Data: []byte("CREATE TABLE ok (id TEXT); CREATE TABLE broken (;")},
	}

	_, err = Run(ctx, db, SQLite, fsys, "migrations")
	require.Error(t, err)

	status, err := Status(ctx, db, SQLite, fsys, "migrations")
	require.NoError(t, err)
	assert.False(t, status[0].Applied)
}
