package query

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func testLimits() config.PageListConfig {
	return config.PageListConfig{
		MaxCategoryCount: 4,
		MaxResultCount:   500,
	}
}

func newTestBuilder(t *testing.T, dialect Dialect, limits config.PageListConfig) *Builder {
	t.Helper()
	b, err := NewBuilder(dialect, "wiki_", titles.NewNamespaces(nil), limits, zap.NewNop())
	require.NoError(t, err)
	return b.WithClock(func() time.Time { return fixedNow })
}

func buildSQL(t *testing.T, store *params.Store) string {
	t.Helper()
	plan, err := newTestBuilder(t, SQLite{}, testLimits()).Build(store)
	require.NoError(t, err)
	return plan.SQL()
}

func TestNewBuilder_RejectsBadPrefix(t *testing.T) {
	_, err := NewBuilder(SQLite{}, "wiki; DROP", nil, testLimits(), zap.NewNop())
	assert.Error(t, err)

	_, err = NewBuilder(nil, "", nil, testLimits(), zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)
}

func TestBuild_Base(t *testing.T) {
	got := buildSQL(t, params.NewStore(nil))

	assert.Equal(t,
		"SELECT page.page_namespace AS page_namespace, page.page_id AS page_id, page.page_title AS page_title FROM wiki_page AS page LIMIT 500",
		got)
}

func TestBuild_Categories(t *testing.T) {
	tests := []struct {
		name        string
		group       params.CategoryGroup
		contains    []string
		notContains []string
	}{
		{
			name:  "AND joins once per name",
			group: params.CategoryGroup{Comparison: params.CompareEqual, Operator: params.OpAnd, Names: []string{"Fruit", "Red"}},
			contains: []string{
				"INNER JOIN wiki_categorylinks AS cl1 ON (page.page_id = cl1.cl_from AND (cl1.cl_to = 'Fruit'))",
				"INNER JOIN wiki_categorylinks AS cl2 ON (page.page_id = cl2.cl_from AND (cl2.cl_to = 'Red'))",
			},
		},
		{
			name:        "OR shares one join",
			group:       params.CategoryGroup{Comparison: params.CompareEqual, Operator: params.OpOr, Names: []string{"Fruit", "Red"}},
			contains:    []string{"INNER JOIN wiki_categorylinks AS cl1 ON (page.page_id = cl1.cl_from AND (cl1.cl_to = 'Fruit' OR cl1.cl_to = 'Red'))"},
			notContains: []string{"cl2"},
		},
		{
			name:     "wildcard uses LIKE",
			group:    params.CategoryGroup{Comparison: params.CompareLike, Operator: params.OpOr, Names: []string{"Fru%"}},
			contains: []string{"cl1.cl_to LIKE 'Fru%'"},
		},
		{
			name:     "uncategorized reads the view",
			group:    params.CategoryGroup{Comparison: params.CompareEqual, Operator: params.OpOr, Names: []string{""}},
			contains: []string{"INNER JOIN wiki_dpl_clview AS cl1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := params.NewStore(nil)
			store.Set("category", params.CategorySelector{Groups: []params.CategoryGroup{tt.group}})

			got := buildSQL(t, store)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestBuild_NotCategory(t *testing.T) {
	store := params.NewStore(nil)
	store.Set("notcategory", params.CategorySelector{Groups: []params.CategoryGroup{
		{Comparison: params.CompareEqual, Operator: params.OpAnd, Names: []string{"Rotten"}},
	}})

	got := buildSQL(t, store)
	assert.Contains(t, got, "LEFT OUTER JOIN wiki_categorylinks AS ecl1 ON (page.page_id = ecl1.cl_from AND ecl1.cl_to = 'Rotten')")
	assert.Contains(t, got, "WHERE ecl1.cl_to IS NULL")
}

func TestBuild_Namespaces(t *testing.T) {
	limits := testLimits()
	limits.NonIncludableNamespaces = []int{2, 3}

	store := params.NewStore(nil)
	store.Set("namespace", params.NamespaceSet{0, 1})

	plan, err := newTestBuilder(t, SQLite{}, limits).Build(store)
	require.NoError(t, err)

	got := plan.SQL()
	assert.Contains(t, got, "page.page_namespace IN (0, 1)")
	assert.Contains(t, got, "page.page_namespace NOT IN (2, 3)")
}

func TestBuild_Limits(t *testing.T) {
	tests := []struct {
		name      string
		unlimited bool
		count     *int
		offset    int
		want      string
		notWant   string
	}{
		{name: "default cap", want: "LIMIT 500"},
		{name: "unlimited", unlimited: true, notWant: "LIMIT"},
		{name: "explicit count", count: intPtr(5), want: "LIMIT 5"},
		{name: "offset forces cap", unlimited: true, offset: 10, want: "LIMIT 500 OFFSET 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := testLimits()
			limits.AllowUnlimitedResults = tt.unlimited

			store := params.NewStore(nil)
			if tt.count != nil {
				store.Set("count", params.Int(*tt.count))
			}
			if tt.offset > 0 {
				store.Set("offset", params.Int(tt.offset))
			}

			plan, err := newTestBuilder(t, SQLite{}, limits).Build(store)
			require.NoError(t, err)

			got := plan.SQL()
			if tt.want != "" {
				assert.Contains(t, got, tt.want)
			}
			if tt.notWant != "" {
				assert.NotContains(t, got, tt.notWant)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func TestBuild_GoalCategories(t *testing.T) {
	store := params.NewStore(nil)
	store.Set("goal", params.String("categories"))
	store.Set("count", params.Int(5))
	store.Set("namespace", params.NamespaceSet{0})

	plan, err := newTestBuilder(t, SQLite{}, testLimits()).Build(store)
	require.NoError(t, err)

	assert.True(t, plan.GoalCategories())
	assert.Equal(t,
		"SELECT DISTINCT page.page_id AS page_id FROM wiki_page AS page WHERE page.page_namespace = 0",
		plan.PageIDSQL())
	assert.Equal(t,
		"SELECT DISTINCT clgoal.cl_to AS cl_to FROM wiki_categorylinks AS clgoal WHERE clgoal.cl_from IN (1, 2) ORDER BY clgoal.cl_to ASC",
		plan.CategorySQL([]int64{1, 2}))
	assert.Empty(t, plan.CategorySQL(nil))
	assert.Equal(t, plan.PageIDSQL(), plan.String())
}

func TestBuild_RelativeTimestamp(t *testing.T) {
	store := params.NewStore(nil)
	store.Set("allrevisionssince", params.Timestamp("last week"))

	got := buildSQL(t, store)
	assert.Contains(t, got, "rev.rev_timestamp >= '20240308120000'")
	assert.Contains(t, got, "ORDER BY rev.rev_id DESC")
}

func TestBuild_OpenReferences(t *testing.T) {
	store := params.NewStore(nil)
	store.Set("openreferences", params.Bool(true))
	store.Set("namespace", params.NamespaceSet{0})

	got := buildSQL(t, store)
	assert.Contains(t, got, "FROM wiki_pagelinks AS pagelinks")
	assert.Contains(t, got, "pagelinks.pl_namespace = 0")
	assert.NotContains(t, got, "wiki_page AS page")
}

func TestBuild_OrderByTitle(t *testing.T) {
	store := params.NewStore(nil)
	store.Set("ordermethod", params.OrderMethods{"title"})
	store.Set("order", params.String("descending"))

	got := buildSQL(t, store)
	assert.Contains(t, got, "REPLACE((CASE page.page_namespace WHEN 1 THEN 'Talk:'")
	assert.Contains(t, got, "ORDER BY sortkey DESC")
}

func TestBuild_LinksTo(t *testing.T) {
	store := params.NewStore(nil)
	store.Set("linksto", params.TitleGroups{
		{{Namespace: titles.NSMain, Text: "Apple pie", ArticleID: 7}},
		{{Namespace: titles.NSMain, Text: "Banana", ArticleID: 8}},
	})

	got := buildSQL(t, store)
	assert.Contains(t, got, "page.page_id = pl.pl_from AND ((pl.pl_namespace = 0 AND pl.pl_title = 'Apple_pie'))")
	assert.Contains(t, got, "EXISTS (SELECT 1 FROM wiki_pagelinks AS plg1 WHERE plg1.pl_from = page.page_id")
}

func TestBuild_GroupingPerDialect(t *testing.T) {
	tests := []struct {
		dialect     Dialect
		contains    []string
		notContains []string
	}{
		{
			dialect:  SQLite{},
			contains: []string{"(SELECT GROUP_CONCAT(cl_gc.cl_to, ' | ') FROM wiki_categorylinks AS cl_gc WHERE cl_gc.cl_from = page.page_id) AS cats", " GROUP BY page.page_title"},
		},
		{
			dialect:  MySQL{},
			contains: []string{" GROUP BY page.page_title"},
		},
		{
			dialect:     Postgres{},
			contains:    []string{"(SELECT STRING_AGG(DISTINCT cl_gc.cl_to, ' | ' ORDER BY cl_gc.cl_to) FROM wiki_categorylinks AS cl_gc WHERE cl_gc.cl_from = page.page_id) AS cats"},
			notContains: []string{"GROUP BY"},
		},
		{
			dialect:     SQLServer{},
			notContains: []string{"GROUP BY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			store := params.NewStore(nil)
			store.Set("category", params.CategorySelector{Groups: []params.CategoryGroup{
				{Comparison: params.CompareEqual, Operator: params.OpOr, Names: []string{"Fruit"}},
			}})
			store.Set("linksto", params.TitleGroups{{{Namespace: titles.NSMain, Text: "Apple", ArticleID: 7}}})
			store.Set("distinct", params.DistinctStrict)
			store.Set("addcategories", params.Bool(true))
			store.Set("addcontribution", params.Bool(true))

			plan, err := newTestBuilder(t, tt.dialect, testLimits()).Build(store)
			require.NoError(t, err)
			got := plan.SQL()

			assert.Contains(t, got, "SELECT DISTINCT ")
			assert.Contains(t, got, "FROM wiki_recentchanges AS rc WHERE rc.rc_cur_id = page.page_id) AS contribution")
			assert.Contains(t, got, "EXISTS (SELECT 1 FROM wiki_recentchanges AS rc WHERE rc.rc_cur_id = page.page_id)")
			assert.NotContains(t, got, "GROUP BY rc.")
			assert.NotContains(t, got, "GROUP BY page.page_id")
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestBuild_OrderByUserTiesRevisionToPage(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]params.Value
		pinned bool
	}{
		{
			name:   "user order alone",
			values: map[string]params.Value{"ordermethod": params.OrderMethods{"user", "title"}},
		},
		{
			name: "user order with first edit",
			values: map[string]params.Value{
				"ordermethod": params.OrderMethods{"user", "firstedit"},
			},
			pinned: true,
		},
		{
			name: "user order with author",
			values: map[string]params.Value{
				"ordermethod": params.OrderMethods{"user", "title"},
				"addauthor":   params.Bool(true),
			},
			pinned: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := params.NewStore(nil)
			for name, v := range tt.values {
				store.Set(name, v)
			}

			got := buildSQL(t, store)
			assert.Equal(t, 1, strings.Count(got, "page.page_id = rev.rev_page"))
			assert.Contains(t, got, "ORDER BY rev.rev_user_text ASC")
			if tt.pinned {
				assert.Contains(t, got, "FROM wiki_revision AS rev_aux")
			}
		})
	}
}

func TestBuild_SelectAliasConflict(t *testing.T) {
	store := params.NewStore(nil)
	target := params.TitleGroups{{{Namespace: titles.NSMain, Text: "Apple pie", ArticleID: 7}}}
	store.Set("linksto", target)
	store.Set("linksfrom", target)

	_, err := newTestBuilder(t, SQLite{}, testLimits()).Build(store)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBuild)
	assert.Contains(t, err.Error(), "linksfrom")
}

func TestBuild_RegexpUnsupported(t *testing.T) {
	store := params.NewStore(nil)
	store.Set("category", params.CategorySelector{Groups: []params.CategoryGroup{
		{Comparison: params.CompareRegexp, Operator: params.OpOr, Names: []string{"^Fr"}},
	}})

	_, err := newTestBuilder(t, SQLServer{}, testLimits()).Build(store)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFeature)
	assert.ErrorIs(t, err, apperrors.ErrBuild)
}

func TestBuild_CalcRows(t *testing.T) {
	store := params.NewStore(nil)
	store.Set("resultsheader", params.String("Found %TOTALPAGES% pages"))

	plan, err := newTestBuilder(t, SQLite{}, testLimits()).Build(store)
	require.NoError(t, err)

	assert.True(t, plan.CalcRows())
	assert.Equal(t,
		"SELECT COUNT(*) AS row_count FROM (SELECT page.page_namespace AS page_namespace, page.page_id AS page_id, page.page_title AS page_title FROM wiki_page AS page) AS dpl_found",
		plan.CountSQL())
}
