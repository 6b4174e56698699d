package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRun_AppliesAllMigrations(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Run(db))

	version, err := GetCurrentVersion(db)
	require.NoError(t, err)
	assert.Equal(t, AllMigrations[len(AllMigrations)-1].Version, version)
}

func TestRun_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Run(db))
	require.NoError(t, Run(db))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRun_NormalizesEmptyKeyTypes(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitSchema(db))

	_, err := db.Exec("INSERT INTO keys (reference, name, key_type) VALUES ('api', 'API', '')")
	require.NoError(t, err)

	require.NoError(t, Run(db))

	var keyType string
	require.NoError(t, db.QueryRow("SELECT key_type FROM keys WHERE reference = 'api'").Scan(&keyType))
	assert.Equal(t, "s", keyType)
}
