package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
)

func TestParseInput(t *testing.T) {
	registry := NewRegistry()
	diags := diagnostics.NewCollector(zap.NewNop())

	input := "category = Foo¦Bar\r\n" +
		"# a comment\n" +
		"\n" +
		"  Namespace =\n" +
		"title« = M\n" +
		"no equals sign here\n" +
		"bogus = 1\n" +
		"count =\n" +
		"resultsheader = ²{Tpl}²\n"

	got := ParseInput(input, registry, diags)

	assert.Equal(t, []Assignment{
		{Name: "category", Value: "Foo|Bar"},
		{Name: "namespace", Value: ""},
		{Name: "titlelt", Value: "M"},
		{Name: "resultsheader", Value: "{{Tpl}}"},
	}, got)
	assert.Equal(t, 1, diags.Count(diagnostics.WarnParamNoOption))
	assert.Equal(t, 1, diags.Count(diagnostics.WarnUnknownParam))
}

func TestParseInput_ValueMayContainEquals(t *testing.T) {
	diags := diagnostics.NewCollector(zap.NewNop())

	got := ParseInput("titleregexp = ^a=b$", NewRegistry(), diags)

	assert.Equal(t, []Assignment{{Name: "titleregexp", Value: "^a=b$"}}, got)
	assert.Empty(t, diags.Items())
}

func TestSortByPriority(t *testing.T) {
	in := []Assignment{
		{Name: "count", Value: "5"},
		{Name: "ordermethod", Value: "title"},
		{Name: "linksto", Value: "A"},
		{Name: "category", Value: "X"},
		{Name: "distinct", Value: "false"},
		{Name: "include", Value: "s"},
		{Name: "namespace", Value: "Help"},
	}

	got := SortByPriority(in)

	var names []string
	for _, a := range got {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"distinct", "category", "ordermethod", "include", "count", "linksto", "namespace"}, names)
	assert.Equal(t, "count", in[0].Name, "input must not be reordered")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	for _, def := range registry.Definitions() {
		if def.Kind == KindCustom {
			assert.NotNil(t, def.Handler, def.Name)
		}
	}
	assert.True(t, registry.Exists("ordermethod"))
	assert.False(t, registry.Exists("nosuchparam"))
	assert.IsIncreasing(t, registry.Names())

	assert.Panics(t, func() {
		newRegistry([]*Definition{{Name: "a"}, {Name: "a"}})
	})
}

func TestNewStoreSeedsDefaults(t *testing.T) {
	store := NewStore(NewRegistry())

	assert.Equal(t, OrderMethods{"title"}, store.OrderMethods())
	assert.Equal(t, DistinctOn, store.Distinct())
	assert.Equal(t, "exclude", store.String("redirects"))
	assert.True(t, store.Bool("includesubpages"))
	assert.False(t, store.Has("count"))
	assert.False(t, store.CriteriaFound())
}
