package titles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
)

func TestNamespaces_Index(t *testing.T) {
	ns := NewNamespaces(map[int]string{100: "Portal"})

	tests := []struct {
		name     string
		input    string
		expected int
		ok       bool
	}{
		{name: "main", input: "", expected: NSMain, ok: true},
		{name: "category", input: "Category", expected: NSCategory, ok: true},
		{name: "case insensitive", input: "category", expected: NSCategory, ok: true},
		{name: "underscores", input: "User_talk", expected: NSUserTalk, ok: true},
		{name: "image alias", input: "Image", expected: NSFile, ok: true},
		{name: "extra namespace", input: "portal", expected: 100, ok: true},
		{name: "unknown", input: "Nope", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ns.Index(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, id)
			}
		})
	}
}

func TestNamespaces_IDsSorted(t *testing.T) {
	ns := NewNamespaces(map[int]string{100: "Portal"})
	ids := ns.IDs()

	require.NotEmpty(t, ids)
	assert.Equal(t, NSMedia, ids[0])
	assert.Equal(t, 100, ids[len(ids)-1])
	assert.IsIncreasing(t, ids)
}

func TestParse(t *testing.T) {
	ns := NewNamespaces(nil)

	tests := []struct {
		name      string
		input     string
		defaultNS int
		namespace int
		text      string
		dbKey     string
		prefixed  string
		isSubpage bool
	}{
		{name: "plain", input: "main page", namespace: NSMain, text: "Main page", dbKey: "Main_page", prefixed: "Main page"},
		{name: "underscores and spaces", input: "  Foo__bar_ ", namespace: NSMain, text: "Foo bar", dbKey: "Foo_bar", prefixed: "Foo bar"},
		{name: "prefix wins", input: "Category:Birds", defaultNS: NSTemplate, namespace: NSCategory, text: "Birds", dbKey: "Birds", prefixed: "Category:Birds"},
		{name: "default namespace", input: "Infobox", defaultNS: NSTemplate, namespace: NSTemplate, text: "Infobox", dbKey: "Infobox", prefixed: "Template:Infobox"},
		{name: "unknown prefix stays in text", input: "Star Wars: Episode I", namespace: NSMain, text: "Star Wars: Episode I", dbKey: "Star_Wars:_Episode_I", prefixed: "Star Wars: Episode I"},
		{name: "leading colon", input: ":Category:Birds", namespace: NSCategory, text: "Birds", dbKey: "Birds", prefixed: "Category:Birds"},
		{name: "fragment dropped", input: "Help:Contents#Top", namespace: NSHelp, text: "Contents", dbKey: "Contents", prefixed: "Help:Contents"},
		{name: "subpage", input: "User:Alice/sandbox", namespace: NSUser, text: "Alice/sandbox", dbKey: "Alice/sandbox", prefixed: "User:Alice/sandbox", isSubpage: true},
		{name: "unicode first letter", input: "élan", namespace: NSMain, text: "Élan", dbKey: "Élan", prefixed: "Élan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, err := ns.Parse(tt.input, tt.defaultNS)
			require.NoError(t, err)
			assert.Equal(t, tt.namespace, title.Namespace)
			assert.Equal(t, tt.text, title.Text)
			assert.Equal(t, tt.dbKey, title.DBKey())
			assert.Equal(t, tt.prefixed, title.PrefixedText())
			assert.Equal(t, tt.isSubpage, title.IsSubpage())
		})
	}
}

func TestParse_NFC(t *testing.T) {
	ns := NewNamespaces(nil)

	decomposed := "Cafe\u0301"
	title, err := ns.Parse(decomposed, NSMain)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", title.Text)
}

func TestParse_Invalid(t *testing.T) {
	ns := NewNamespaces(nil)

	for _, input := range []string{"", "   ", "#only-fragment", "Foo[bar]", "A|B", "Category:", "{{tpl}}"} {
		t.Run(input, func(t *testing.T) {
			_, err := ns.Parse(input, NSMain)
			assert.ErrorIs(t, err, ErrInvalidTitle)
		})
	}
}

func TestFromParts_UnknownNamespace(t *testing.T) {
	_, err := NewNamespaces(nil).FromParts(999, "X")
	assert.ErrorIs(t, err, ErrInvalidTitle)
}

func TestResolver(t *testing.T) {
	ns := NewNamespaces(nil)
	lookup := MapLookup{
		Key(NSMain, "Main_page"):   1,
		Key(NSTemplate, "Infobox"): 7,
	}
	r := NewResolver(ns, lookup)
	ctx := context.Background()

	title, err := r.Resolve(ctx, NSMain, "main page")
	require.NoError(t, err)
	assert.Equal(t, int64(1), title.ArticleID)
	assert.True(t, title.Exists())

	title, err = r.Resolve(ctx, NSTemplate, "Infobox")
	require.NoError(t, err)
	assert.Equal(t, int64(7), title.ArticleID)

	_, err = r.Resolve(ctx, NSMain, "Missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = r.Resolve(ctx, NSMain, "Bad|Title")
	assert.ErrorIs(t, err, ErrInvalidTitle)

	assert.Same(t, ns, r.Namespaces())
}

func TestResolver_NoLookup(t *testing.T) {
	_, err := NewResolver(NewNamespaces(nil), nil).Resolve(context.Background(), NSMain, "X")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEqual(t *testing.T) {
	ns := NewNamespaces(nil)
	a, _ := ns.Parse("Foo bar", NSMain)
	b, _ := ns.Parse("Foo_bar", NSMain)
	c, _ := ns.Parse("Talk:Foo bar", NSMain)

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}
