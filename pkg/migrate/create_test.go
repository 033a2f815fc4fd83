package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-backend/pkg/config"
)

func TestCreateSQLMigrationBumpsPastNewestVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := createSQLMigration(dir, "Add payout notes", now)
	require.NoError(t, err)
	assert.Equal(t, "20260301090000_add_payout_notes.sql", filepath.Base(first))

	second, err := createSQLMigration(dir, "index held balances", now)
	require.NoError(t, err)
	assert.Equal(t, "20260301090001_index_held_balances.sql", filepath.Base(second))

	body, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "-- +goose Down")

	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := createSQLMigration(dir, "add_zone_index", now)
	require.NoError(t, err)
	_, err = createSQLMigration(dir, "Add Zone Index", now.Add(time.Hour))
	assert.Error(t, err)

	_, err = createSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}

func TestAutoRunEnabledOnlyInDevWithFlag(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = config.AppEnvDev
	assert.False(t, AutoRunEnabled(cfg))

	cfg.FeatureFlags.AutoMigrate = true
	assert.True(t, AutoRunEnabled(cfg))

	cfg.App.Env = config.AppEnvProd
	assert.False(t, AutoRunEnabled(cfg))
	assert.False(t, AutoRunEnabled(nil))
}
