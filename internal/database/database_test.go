package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasofurniture/invoicer/internal/database"
)

func TestNew_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "invoices.db")

	db, err := database.New(path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())

	conn, release, err := db.Acquire()
	require.NoError(t, err)
	defer release()

	var name string
	err = conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'invoices'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "invoices", name)
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoices.db")

	first, err := database.New(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := database.New(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSeal_RefusesNewOperations(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "invoices.db"))
	require.NoError(t, err)

	require.NoError(t, db.PingContext(context.Background()))
	require.NoError(t, db.Seal())

	_, _, err = db.Acquire()
	assert.ErrorIs(t, err, database.ErrClosed)
	assert.ErrorIs(t, db.PingContext(context.Background()), database.ErrClosed)
	assert.ErrorIs(t, db.Seal(), database.ErrClosed)
	assert.NoError(t, db.Close())
}
