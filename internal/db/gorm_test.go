package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenGormSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thunderfire.db")
	db, err := OpenGorm("sqlite", path)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestOpenGormInvalidDriver(t *testing.T) {
	_, err := OpenGorm("invalid", "x")
	assert.Error(t, err)
}

func TestOpenGormPostgresRequiresDSN(t *testing.T) {
	_, err := OpenGorm("postgres", "")
	assert.Error(t, err)
}

func TestOpenGormSQLiteCreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "path", "thunderfire.db")

	db, err := OpenGorm("sqlite", dbPath)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err)
}

func TestSQLiteFilePath(t *testing.T) {
	cases := []struct {
		dsn    string
		want   string
		wantOK bool
	}{
		{dsn: ":memory:", wantOK: false},
		{dsn: "file::memory:?cache=shared", wantOK: false},
		{dsn: "file:/tmp/a.db?mode=memory", wantOK: false},
		{dsn: "/tmp/a.db?_pragma=foreign_keys(1)", want: "/tmp/a.db", wantOK: true},
		{dsn: "data/a.db", want: "data/a.db", wantOK: true},
	}
	for _, tc := range cases {
		got, ok := sqliteFilePath(tc.dsn)
		assert.Equal(t, tc.wantOK, ok, tc.dsn)
		assert.Equal(t, tc.want, got, tc.dsn)
	}
}

func TestWithBusyTimeout(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=busy_timeout(5000)", withBusyTimeout("a.db"))
	assert.Equal(t, "a.db?x=1&_pragma=busy_timeout(5000)", withBusyTimeout("a.db?x=1"))
	assert.Equal(t, "a.db?_pragma=busy_timeout(100)", withBusyTimeout("a.db?_pragma=busy_timeout(100)"))
}
