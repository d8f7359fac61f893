package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
)

func TestRunMigrations_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "wiki.db")}

	db, dialect, err := OpenForMigrations(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", dialect)
	require.NoError(t, RunMigrations(db, dialect, zap.NewNop()))

	// second run is a no-op
	db, _, err = OpenForMigrations(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, dialect, zap.NewNop()))

	db, _, err = OpenForMigrations(ctx, cfg)
	require.NoError(t, err)
	version, dirty, err := MigrationVersion(db, dialect, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestEmbeddedMigrations_AllDialects(t *testing.T) {
	for _, dialect := range Dialects {
		entries, err := migrationsFS.ReadDir("migrations/" + dialect)
		require.NoError(t, err, dialect)
		assert.Len(t, entries, 4, dialect)
	}
}

func TestOpenForMigrations_Errors(t *testing.T) {
	ctx := context.Background()

	_, _, err := OpenForMigrations(ctx, config.DatabaseConfig{Type: "oracle"})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)

	_, _, err = OpenForMigrations(ctx, config.DatabaseConfig{Type: "sqlite", Path: "x.db", TablePrefix: "mw_"})
	assert.ErrorContains(t, err, "table_prefix")
}
