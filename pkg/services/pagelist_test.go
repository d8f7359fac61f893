package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/articles"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/testhelpers"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

// seedWiki creates:
//
//	1 Apple   Foo, Red
//	2 Banana  Foo
//	3 Cherry  Bar
//	4 Date    (uncategorized)
//	5 Apple/Seeds  Foo
func seedWiki(t *testing.T) *testhelpers.Wiki {
	t.Helper()
	w := testhelpers.NewSQLiteWiki(t)

	w.AddPage(t, 1, titles.NSMain, "Apple")
	w.AddPage(t, 2, titles.NSMain, "Banana")
	w.AddPage(t, 3, titles.NSMain, "Cherry")
	w.AddPage(t, 4, titles.NSMain, "Date")
	w.AddPage(t, 5, titles.NSMain, "Apple/Seeds")
	w.AddPage(t, 10, titles.NSCategory, "Foo")
	w.AddPage(t, 11, titles.NSCategory, "Bar")

	w.Categorize(t, 1, "Foo", "")
	w.Categorize(t, 1, "Red", "")
	w.Categorize(t, 2, "Foo", "")
	w.Categorize(t, 3, "Bar", "")
	w.Categorize(t, 5, "Foo", "")

	w.AddRevision(t, 100, 1, 0, "20240101000000", "Alice")
	w.AddRevision(t, 101, 1, 100, "20240201000000", "Bob")
	w.AddRevision(t, 102, 2, 0, "20240105000000", "Carol")
	return w
}

func newTestService(t *testing.T, w *testhelpers.Wiki, mutate func(*config.Config)) PageListService {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	svc, err := NewPageListService(w.Executor, cfg, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func evaluate(t *testing.T, svc PageListService, input string) *Result {
	t.Helper()
	result, err := svc.Evaluate(context.Background(), &EvaluateRequest{Input: input})
	require.NoError(t, err)
	return result
}

func recordTitles(records []*articles.Article) []string {
	var out []string
	for _, a := range records {
		out = append(out, a.PrefixedText)
	}
	return out
}

func criticals(result *Result) []diagnostics.Code {
	var out []diagnostics.Code
	for _, d := range result.Diagnostics {
		if d.Severity == diagnostics.SeverityCritical {
			out = append(out, d.Code)
		}
	}
	return out
}

func TestEvaluate_SingleCategory(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result := evaluate(t, svc, "category = Foo")

	assert.Empty(t, criticals(result))
	assert.Equal(t, []string{"Apple", "Apple/Seeds", "Banana"}, recordTitles(result.Records))
	assert.Equal(t, 3, result.Count)
	assert.Nil(t, result.TotalRows)
	for _, a := range result.Records {
		assert.NotZero(t, a.ID)
		assert.NotEmpty(t, a.Link)
		assert.Zero(t, a.Revision)
		assert.Empty(t, a.UserLink)
		assert.Nil(t, a.Date)
	}
	assert.Equal(t, "[[Apple|Apple]]", result.Records[0].Link)
}

func TestEvaluate_OrCategoriesWithCount(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result := evaluate(t, svc, "category = Foo|Bar\ncount = 2")

	assert.Empty(t, criticals(result))
	assert.Equal(t, []string{"Apple", "Apple/Seeds"}, recordTitles(result.Records))
	assert.Contains(t, result.SQL, "LIMIT 2")
	assert.NotContains(t, result.SQL, "OFFSET")

	all := evaluate(t, svc, "category = Foo|Bar\nincludesubpages = false")
	assert.Equal(t, []string{"Apple", "Banana", "Cherry"}, recordTitles(all.Records))
}

func TestEvaluate_OpenReferencesConflict(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result := evaluate(t, svc, "openreferences = true\ncategory = Foo")

	assert.Equal(t, []diagnostics.Code{diagnostics.CriticalOpenReferences}, criticals(result))
	assert.Empty(t, result.Records)
	assert.Empty(t, result.SQL, "no query is built")
}

func TestEvaluate_Headings(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result := evaluate(t, svc, "category = Foo|Bar\nordermethod = category,title\nheadingmode = unordered\nincludesubpages = false\nnotcategory = Red")

	assert.Empty(t, criticals(result))
	assert.Equal(t, []string{"Cherry", "Banana"}, recordTitles(result.Records))
	assert.Equal(t, []articles.HeadingGroup{
		{Key: "Bar", Link: "[[:Category:Bar|Bar]]", Count: 1},
		{Key: "Foo", Link: "[[:Category:Foo|Foo]]", Count: 1},
	}, result.Headings)
}

func TestEvaluate_HeadingsGroupCounts(t *testing.T) {
	w := seedWiki(t)
	w.Categorize(t, 4, "Bar", "")
	svc := newTestService(t, w, nil)

	result := evaluate(t, svc, "category = Bar|Red\nordermethod = category,title\nheadingmode = definition")

	assert.Empty(t, criticals(result))
	// Apple is listed under each of its categories.
	assert.Equal(t, []string{"Cherry", "Date", "Apple", "Apple"}, recordTitles(result.Records))
	assert.Equal(t, []articles.HeadingGroup{
		{Key: "Bar", Link: "[[:Category:Bar|Bar]]", Count: 2},
		{Key: "Foo", Link: "[[:Category:Foo|Foo]]", Count: 1},
		{Key: "Red", Link: "[[:Category:Red|Red]]", Count: 1},
	}, result.Headings)
}

func TestEvaluate_HeadingModeNeedsTwoOrderMethods(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result := evaluate(t, svc, "category = Foo\nordermethod = category\nheadingmode = unordered")

	assert.Empty(t, criticals(result))
	assert.Nil(t, result.Headings)
	var codes []diagnostics.Code
	for _, d := range result.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, diagnostics.WarnHeadingModeTooFewOrderMethods)
}

func TestEvaluate_Preflight(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		mutate func(*config.Config)
		want   diagnostics.Code
	}{
		{
			name:  "no selection",
			input: "count = 5",
			want:  diagnostics.CriticalNoSelection,
		},
		{
			name:  "too many categories",
			input: "category = A\ncategory = B\ncategory = C\ncategory = D\ncategory = E",
			want:  diagnostics.CriticalTooManyCategories,
		},
		{
			name:   "too few categories",
			input:  "namespace = Talk",
			mutate: func(c *config.Config) { c.PageList.MinCategoryCount = 1 },
			want:   diagnostics.CriticalTooFewCategories,
		},
		{
			name:  "two date types",
			input: "category = Foo\naddpagetoucheddate = true\naddeditdate = true",
			want:  diagnostics.CriticalMoreThanOneTypeOfDate,
		},
		{
			name:  "author and last editor",
			input: "category = Foo\naddauthor = true\naddlasteditor = true",
			want:  diagnostics.CriticalAuthorAndLastEditor,
		},
		{
			name:  "categoryadd without categories",
			input: "namespace = Talk\nordermethod = categoryadd",
			want:  diagnostics.CriticalNoCategoriesForOrderMethod,
		},
		{
			name:  "first category date without categories",
			input: "namespace = Talk\naddfirstcategorydate = true",
			want:  diagnostics.CriticalNoCategoriesForAddDate,
		},
		{
			name:  "categoryadd with only excluded categories",
			input: "notcategory = Foo\nordermethod = categoryadd",
			want:  diagnostics.CriticalNoCategoriesForOrderMethod,
		},
		{
			name:  "first category date with only excluded categories",
			input: "notcategory = Foo\naddfirstcategorydate = true",
			want:  diagnostics.CriticalNoCategoriesForAddDate,
		},
		{
			name:  "category mode with size order",
			input: "category = Foo\nmode = category\nordermethod = size",
			want:  diagnostics.CriticalWrongOrderMethod,
		},
		{
			name:  "adduser without edit order",
			input: "category = Foo\nadduser = true",
			want:  diagnostics.CriticalWrongOrderMethod,
		},
		{
			name:  "minoredits without edit order",
			input: "category = Foo\nminoredits = exclude",
			want:  diagnostics.CriticalWrongOrderMethod,
		},
		{
			name:   "protected pages only",
			input:  "category = Foo",
			mutate: func(c *config.Config) { c.PageList.RunFromProtectedPagesOnly = true },
			want:   diagnostics.CriticalNotProtected,
		},
	}

	w := seedWiki(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, w, tt.mutate)
			result := evaluate(t, svc, tt.input)
			assert.Equal(t, []diagnostics.Code{tt.want}, criticals(result))
			assert.Empty(t, result.Records)
			assert.Zero(t, result.Count)
		})
	}
}

func TestEvaluate_ProtectedRequest(t *testing.T) {
	svc := newTestService(t, seedWiki(t), func(c *config.Config) { c.PageList.RunFromProtectedPagesOnly = true })

	result, err := svc.Evaluate(context.Background(), &EvaluateRequest{Input: "category = Foo", Protected: true})
	require.NoError(t, err)
	assert.Empty(t, criticals(result))
	assert.NotEmpty(t, result.Records)
}

func TestEvaluate_SkipThisPage(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Input:        "category = Foo\nincludesubpages = false",
		CurrentTitle: "Apple",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Banana"}, recordTitles(result.Records))

	_, err = svc.Evaluate(context.Background(), &EvaluateRequest{Input: "category = Foo", CurrentTitle: "Bad[title]"})
	assert.Error(t, err)
}

func TestEvaluate_GoalCategories(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result := evaluate(t, svc, "category = Foo\ngoal = categories")

	assert.Empty(t, criticals(result))
	assert.Equal(t, []string{"Category:Foo", "Category:Red"}, recordTitles(result.Records))
	for _, a := range result.Records {
		assert.Equal(t, titles.NSCategory, a.Namespace)
	}
}

func TestEvaluate_Uncategorized(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result := evaluate(t, svc, "category = _none_")

	assert.Empty(t, criticals(result))
	assert.Equal(t, []string{"Category:Bar", "Category:Foo", "Date"}, recordTitles(result.Records))
}

func TestEvaluate_Author(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result := evaluate(t, svc, "category = Foo\naddauthor = true")

	assert.Empty(t, criticals(result))
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Apple", result.Records[0].Title)
	assert.Equal(t, "[[User:Alice|Alice]]", result.Records[0].UserLink)
	assert.Equal(t, "Banana", result.Records[1].Title)
	assert.Equal(t, "[[User:Carol|Carol]]", result.Records[1].UserLink)
}

func TestEvaluate_RandomCountIsDeterministic(t *testing.T) {
	w := seedWiki(t)
	for i := int64(20); i < 30; i++ {
		w.AddPage(t, i, titles.NSMain, "Page_"+string(rune('A'+i-20)))
		w.Categorize(t, i, "Many", "")
	}
	svc := newTestService(t, w, nil)

	input := "category = Many\nrandomcount = 3\nrandomseed = 42"
	first := evaluate(t, svc, input)
	second := evaluate(t, svc, input)

	assert.Empty(t, criticals(first))
	assert.Len(t, first.Records, 3)
	assert.Equal(t, recordTitles(first.Records), recordTitles(second.Records))
	require.NotNil(t, first.TotalRows)
	assert.Equal(t, int64(10), *first.TotalRows)

	unseeded := evaluate(t, svc, "category = Many\nrandomcount = 20")
	assert.Len(t, unseeded.Records, 10, "never more than the rows available")
}

func TestEvaluate_DebugSQL(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	result, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Input:       "category = Foo\ndebug = 3",
		Permissions: []string{params.PermissionDebug},
	})
	require.NoError(t, err)

	var found bool
	for _, d := range result.Diagnostics {
		if d.Code == diagnostics.DebugQuery {
			found = true
			assert.Contains(t, d.Message, "categorylinks")
		}
	}
	assert.True(t, found)

	denied := evaluate(t, svc, "category = Foo\ndebug = 3")
	for _, d := range denied.Diagnostics {
		assert.NotEqual(t, diagnostics.DebugQuery, d.Code)
	}
}

func TestEvaluate_ExecutionFailure(t *testing.T) {
	w := seedWiki(t)
	w.Exec(t, "DROP TABLE categorylinks")
	svc := newTestService(t, w, nil)

	result := evaluate(t, svc, "category = Foo")

	assert.Equal(t, []diagnostics.Code{diagnostics.CriticalSQLExecutionError}, criticals(result))
	assert.Empty(t, result.Records)
	assert.NotEmpty(t, result.SQL)
}

func TestParameters(t *testing.T) {
	svc := newTestService(t, seedWiki(t), nil)

	var names []string
	for _, def := range svc.Parameters() {
		names = append(names, def.Name)
	}
	assert.Contains(t, names, "category")
	assert.Contains(t, names, "ordermethod")
	assert.Contains(t, names, "randomseed")
}
