package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	"github.com/angelmondragon/packdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/packdrop-backend/pkg/migrate"
)

func readMigrations(t *testing.T) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(migrate.EmbeddedDir, "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	var b strings.Builder
	for _, path := range matches {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		b.Write(data)
	}
	return b.String()
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir(migrate.EmbeddedDir))
}

func TestEveryModelHasATable(t *testing.T) {
	content := readMigrations(t)
	cache := &sync.Map{}
	for _, model := range dbtest.AllModels() {
		s, err := schema.Parse(model, cache, schema.NamingStrategy{})
		require.NoError(t, err)
		assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS "+s.Table+" (", "missing table %s", s.Table)
		assert.Contains(t, content, "DROP TABLE IF EXISTS "+s.Table+";", "missing rollback for %s", s.Table)
	}
}

func TestLedgerConstraints(t *testing.T) {
	content := readMigrations(t)
	checks := []string{
		"CONSTRAINT ux_commission_order_source UNIQUE (order_id, source)",
		"CONSTRAINT ux_wallet_owner UNIQUE (owner_type, owner_id)",
		"order_id uuid NOT NULL UNIQUE",
		"CHECK (stock >= 0)",
		"CHECK (status IN ('OFFLINE', 'AVAILABLE', 'BUSY'))",
	}
	for _, sub := range checks {
		assert.Contains(t, content, sub)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Driver Ratings!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_driver_ratings.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}
