package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{"database": "/var/lib/wiki.db", "read_only": true})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/wiki.db", cfg.Path)
	assert.Contains(t, cfg.dsn(), "mode=ro")

	_, err = FromMap(map[string]any{})
	assert.Error(t, err)
}

func TestQueryExecutor_Regexp(t *testing.T) {
	ctx := context.Background()
	exec, err := NewQueryExecutor(ctx, &Config{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	defer exec.Close()

	require.NoError(t, exec.TestConnection(ctx))

	_, err = exec.DB().ExecContext(ctx, `CREATE TABLE page (page_id INTEGER, page_title TEXT)`)
	require.NoError(t, err)
	_, err = exec.DB().ExecContext(ctx, `INSERT INTO page VALUES (1, 'Apple_pie'), (2, 'Banana'), (3, 'Apricot')`)
	require.NoError(t, err)

	cur, err := exec.Query(ctx, `SELECT page_title FROM page WHERE page_title REGEXP '^Ap' ORDER BY page_id`)
	require.NoError(t, err)
	defer cur.Close()

	var titles []string
	for cur.Next() {
		row, err := cur.Row()
		require.NoError(t, err)
		titles = append(titles, row["page_title"].(string))
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []string{"Apple_pie", "Apricot"}, titles)
	assert.Equal(t, "sqlite", exec.Dialect())
}

func TestQueryExecutor_InvalidRegexp(t *testing.T) {
	ctx := context.Background()
	exec, err := NewQueryExecutor(ctx, &Config{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	defer exec.Close()

	cur, err := exec.Query(ctx, `SELECT 'a' REGEXP '(' AS m`)
	if err == nil {
		for cur.Next() {
			_, err = cur.Row()
		}
		if err == nil {
			err = cur.Err()
		}
		cur.Close()
	}
	assert.Error(t, err)
}
