package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
)

func newMemoryRunner(t *testing.T) (*Runner, *datasource.SQLExecutor) {
	t.Helper()
	ctx := context.Background()

	exec, err := sqlite.NewQueryExecutor(ctx, &sqlite.Config{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })

	for _, stmt := range []string{
		`CREATE TABLE wiki_page (page_id INTEGER PRIMARY KEY, page_namespace INTEGER, page_title TEXT)`,
		`CREATE TABLE wiki_categorylinks (cl_from INTEGER, cl_to TEXT, cl_sortkey TEXT)`,
		`INSERT INTO wiki_page VALUES (1, 0, 'Apple'), (2, 0, 'Banana'), (3, 1, 'Apple'), (4, 0, 'Cherry')`,
		`INSERT INTO wiki_categorylinks VALUES (1, 'Fruit', 'Apple'), (1, 'Red', 'Apple'), (2, 'Fruit', 'Banana'), (3, 'Talk', 'Apple')`,
	} {
		_, err := exec.DB().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return NewRunner(exec, zap.NewNop()), exec
}

func collect(t *testing.T, cur datasource.RowCursor, column string) []string {
	t.Helper()
	defer cur.Close()
	var out []string
	for cur.Next() {
		row, err := cur.Row()
		require.NoError(t, err)
		out = append(out, row[column].(string))
	}
	require.NoError(t, cur.Err())
	return out
}

func TestRunner_Run(t *testing.T) {
	runner, _ := newMemoryRunner(t)

	store := params.NewStore(nil)
	store.Set("namespace", params.NamespaceSet{0})
	store.Set("category", params.CategorySelector{Groups: []params.CategoryGroup{
		{Comparison: params.CompareEqual, Operator: params.OpOr, Names: []string{"Fruit"}},
	}})
	store.Set("ordermethod", params.OrderMethods{"title"})

	plan, err := newTestBuilder(t, SQLite{}, testLimits()).Build(store)
	require.NoError(t, err)

	cur, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana"}, collect(t, cur, "page_title"))

	n, err := runner.Count(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRunner_GoalCategories(t *testing.T) {
	runner, _ := newMemoryRunner(t)

	store := params.NewStore(nil)
	store.Set("goal", params.String("categories"))
	store.Set("namespace", params.NamespaceSet{0})

	plan, err := newTestBuilder(t, SQLite{}, testLimits()).Build(store)
	require.NoError(t, err)

	cur, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fruit", "Red"}, collect(t, cur, "cl_to"))
}

func TestRunner_GoalCategoriesNoPages(t *testing.T) {
	runner, _ := newMemoryRunner(t)

	store := params.NewStore(nil)
	store.Set("goal", params.String("categories"))
	store.Set("namespace", params.NamespaceSet{10})

	plan, err := newTestBuilder(t, SQLite{}, testLimits()).Build(store)
	require.NoError(t, err)

	cur, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Empty(t, collect(t, cur, "cl_to"))
	assert.Equal(t, []string{"cl_to"}, cur.Columns())
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{int64(3), 3, false},
		{int32(4), 4, false},
		{"12", 12, false},
		{[]byte("7"), 7, false},
		{nil, 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := ToInt64(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPlan_Returned(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]params.Value
		total  int64
		want   int64
	}{
		{"default limit", nil, 800, 500},
		{"under the limit", nil, 12, 12},
		{"count and offset", map[string]params.Value{"count": params.Int(10), "offset": params.Int(5)}, 12, 7},
		{"offset past the end", map[string]params.Value{"count": params.Int(10), "offset": params.Int(20)}, 12, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := params.NewStore(nil)
			store.Set("namespace", params.NamespaceSet{0})
			for k, v := range tt.values {
				store.Set(k, v)
			}
			plan, err := newTestBuilder(t, SQLite{}, testLimits()).Build(store)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Returned(tt.total))
		})
	}
}
