package database

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMigrationFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.sql":   {Data: []byte("SELECT 1")},
		"001_init.sql":   {Data: []byte("SELECT 1")},
		"README.md":      {Data: []byte("notes")},
		"002_second.sql": {Data: []byte("SELECT 1")},
	}

	files, err := getMigrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_second.sql", "010_late.sql"}, files)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := getMigrationFiles(Migrations())
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
}

func TestCodeLookupsMatchUniqueIndexes(t *testing.T) {
	ddl, err := fs.ReadFile(Migrations(), "001_init.sql")
	require.NoError(t, err)
	schema := string(ddl)

	assert.Contains(t, schema, "ON coupons (upper(code))")
	assert.Contains(t, GetCouponByCodeSQL, "WHERE upper(code) = upper($1)")

	assert.Contains(t, schema, "public_code      TEXT NOT NULL UNIQUE")
	assert.Contains(t, GetOrderByPublicCodeSQL, "WHERE public_code = $1")
	assert.False(t, strings.Contains(GetOrderByPublicCodeSQL, "upper("))
}
