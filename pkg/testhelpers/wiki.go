package testhelpers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/database"
)

// Wiki is a migrated SQLite wiki database in a test's temp dir.
type Wiki struct {
	Path     string
	Executor *datasource.SQLExecutor
}

// NewSQLiteWiki creates an empty wiki with the schema and dpl_clview applied.
// It is closed when the test ends.
func NewSQLiteWiki(t *testing.T) *Wiki {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "wiki.db")

	migrationDB, dialect, err := database.OpenForMigrations(ctx, config.DatabaseConfig{Type: "sqlite", Path: path})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(migrationDB, dialect, zap.NewNop()))

	exec, err := sqlite.NewQueryExecutor(ctx, &sqlite.Config{Path: path}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })

	return &Wiki{Path: path, Executor: exec}
}

// Exec runs a statement against the wiki.
func (w *Wiki) Exec(t *testing.T, stmt string, args ...any) {
	t.Helper()
	_, err := w.Executor.DB().ExecContext(context.Background(), stmt, args...)
	require.NoError(t, err)
}

// AddPage inserts a page with a touched date and length.
func (w *Wiki) AddPage(t *testing.T, id int64, namespace int, dbKey string) {
	t.Helper()
	w.Exec(t, `INSERT INTO page (page_id, page_namespace, page_title, page_is_redirect, page_touched, page_len) VALUES (?, ?, ?, 0, '20240101000000', ?)`,
		id, namespace, dbKey, 100*id)
}

// AddRedirect inserts a redirect page.
func (w *Wiki) AddRedirect(t *testing.T, id int64, namespace int, dbKey string) {
	t.Helper()
	w.Exec(t, `INSERT INTO page (page_id, page_namespace, page_title, page_is_redirect, page_touched, page_len) VALUES (?, ?, ?, 1, '20240101000000', 10)`,
		id, namespace, dbKey)
}

// Categorize adds page id to category with the given sort key.
func (w *Wiki) Categorize(t *testing.T, id int64, category, sortKey string) {
	t.Helper()
	w.Exec(t, `INSERT INTO categorylinks (cl_from, cl_to, cl_sortkey, cl_timestamp) VALUES (?, ?, ?, '2024-01-02 03:04:05')`,
		id, category, sortKey)
}

// Link adds a page link from id to namespace:dbKey.
func (w *Wiki) Link(t *testing.T, from int64, namespace int, dbKey string) {
	t.Helper()
	w.Exec(t, `INSERT INTO pagelinks (pl_from, pl_namespace, pl_title) VALUES (?, ?, ?)`, from, namespace, dbKey)
}

// AddRevision adds a revision of page.
func (w *Wiki) AddRevision(t *testing.T, revID, page, parent int64, timestamp, user string) {
	t.Helper()
	w.Exec(t, `INSERT INTO revision (rev_id, rev_page, rev_parent_id, rev_timestamp, rev_user, rev_user_text, rev_comment, rev_minor_edit) VALUES (?, ?, ?, ?, 1, ?, 'edit', 0)`,
		revID, page, parent, timestamp, user)
}
