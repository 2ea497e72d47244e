package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/suratjalan/internal/config"
)

func TestOpenSQLite(t *testing.T) {
	db, err := Open("sqlite", "file::memory:", config.Database{MaxIdleConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, pingContext(context.Background(), db))
	assert.Equal(t, 1, db.DB.Stats().MaxOpenConnections)

	conns := Single(db)
	assert.Same(t, conns.Writer, conns.Reader)
}

func TestOpenRejectsBadInput(t *testing.T) {
	_, err := Open("oracle", "dsn", config.Database{})
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Open("mysql", "", config.Database{})
	assert.ErrorContains(t, err, "empty DSN")
}

func TestSelectDialect(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite"} {
		dialect, err := selectDialect(driver)
		require.NoError(t, err, driver)
		assert.NotNil(t, dialect)
	}
}
