package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/articles"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/services"
)

func TestRecordLine(t *testing.T) {
	color.NoColor = true
	size := int64(2048)

	tests := []struct {
		name    string
		article *articles.Article
		want    string
	}{
		{
			name:    "title only",
			article: &articles.Article{PrefixedText: "Apple", DisplayTitle: "Apple"},
			want:    "Apple",
		},
		{
			name:    "falls back to prefixed text",
			article: &articles.Article{PrefixedText: "Help:Apple"},
			want:    "Help:Apple",
		},
		{
			name: "extras",
			article: &articles.Article{
				DisplayTitle:  "Apple",
				Size:          &size,
				Counter:       12345,
				User:          "Alice",
				CategoryTexts: []string{"Fruit", "Red"},
			},
			want: "Apple  2.0 kB, 12,345 views, Alice, Fruit | Red",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recordLine(tt.article))
		})
	}
}

func TestRenderResult(t *testing.T) {
	color.NoColor = true
	total := int64(1200)

	result := &services.Result{
		Records: []*articles.Article{
			{DisplayTitle: "Cherry", HeadingKey: "Bar"},
			{DisplayTitle: "Date", HeadingKey: "Bar"},
			{DisplayTitle: "Apple", HeadingKey: ""},
		},
		Count:     3,
		TotalRows: &total,
		Headings: []articles.HeadingGroup{
			{Key: "Bar", Count: 2},
			{Key: "", Count: 1},
		},
		Diagnostics: []diagnostics.Diagnostic{
			{Severity: diagnostics.SeverityWarning, Code: diagnostics.WarnUnknownParam, Message: "unknown parameter colour"},
		},
		SQL:      "SELECT page_title FROM page",
		Duration: 1500 * time.Microsecond,
	}

	var out, errOut bytes.Buffer
	require.NoError(t, renderResult(&out, &errOut, result, true))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "SELECT page_title FROM page\n"))
	assert.Contains(t, text, "2 headings")
	assert.Contains(t, text, "Bar (2)")
	assert.Contains(t, text, "(uncategorized) (1)")
	assert.Less(t, strings.Index(text, "Cherry"), strings.Index(text, "Date"))
	assert.Contains(t, text, "3 records of 1,200 in 1.5ms")

	assert.Equal(t, "warning 2013: unknown parameter colour\n", errOut.String())
}

func TestRenderResult_FlatList(t *testing.T) {
	color.NoColor = true

	result := &services.Result{
		Records: []*articles.Article{{DisplayTitle: "Apple"}},
		Count:   1,
	}

	var out bytes.Buffer
	require.NoError(t, renderResult(&out, &bytes.Buffer{}, result, false))
	assert.Equal(t, "Apple\n1 record in 0s\n", out.String())
}

func TestRenderParams(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderParams(&out, nil))
	assert.Equal(t, "NAME  KIND  DEFAULT  DESCRIPTION\n", out.String())
}
