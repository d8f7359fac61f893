package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/services"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/testhelpers"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

func fruitWiki(t *testing.T) string {
	t.Helper()
	w := testhelpers.NewSQLiteWiki(t)
	w.AddPage(t, 1, titles.NSMain, "Apple")
	w.AddPage(t, 2, titles.NSMain, "Banana")
	w.AddPage(t, 3, titles.NSMain, "Carrot")
	w.Categorize(t, 1, "Fruit", "")
	w.Categorize(t, 2, "Fruit", "")
	w.Categorize(t, 3, "Vegetables", "")
	return writeConfig(t, w.Path)
}

func TestQueryCommand_JSON(t *testing.T) {
	cfgPath := fruitWiki(t)

	stdout, _, err := execute(t, "--config", cfgPath, "--format", "json", "query", "--input", "category = Fruit")
	require.NoError(t, err)

	var result services.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Apple", result.Records[0].Title)
	assert.Equal(t, "Banana", result.Records[1].Title)
}

func TestQueryCommand_TextHeadings(t *testing.T) {
	cfgPath := fruitWiki(t)

	stdout, _, err := execute(t, "--config", cfgPath, "query",
		"--input", "category = Fruit|Vegetables\nordermethod = category,title\nheadingmode = unordered")
	require.NoError(t, err)

	assert.Contains(t, stdout, "2 headings")
	assert.Contains(t, stdout, "Fruit (2)")
	assert.Contains(t, stdout, "Vegetables (1)")
	assert.Contains(t, stdout, "Carrot")
	assert.Contains(t, stdout, "3 records")
}

func TestQueryCommand_FromStdin(t *testing.T) {
	cfgPath := fruitWiki(t)

	cmd := NewRootCommand("test")
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetErr(&strings.Builder{})
	cmd.SetIn(strings.NewReader("category = Vegetables\n"))
	cmd.SetArgs([]string{"--config", cfgPath, "--no-color", "query", "--file", "-"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Carrot")
	assert.Contains(t, out.String(), "1 record ")
}

func TestQueryCommand_FromFile(t *testing.T) {
	cfgPath := fruitWiki(t)
	request := filepath.Join(t.TempDir(), "request.txt")
	require.NoError(t, os.WriteFile(request, []byte("category = Fruit\ncount = 1\n"), 0o600))

	stdout, _, err := execute(t, "--config", cfgPath, "--format", "yaml", "query", "--file", request)
	require.NoError(t, err)
	assert.Contains(t, stdout, "title: Apple")
	assert.NotContains(t, stdout, "title: Banana")
}

func TestQueryCommand_Critical(t *testing.T) {
	cfgPath := fruitWiki(t)

	_, stderr, err := execute(t, "--config", cfgPath, "query", "--input", "order = descending")
	require.Error(t, err)
	assert.Equal(t, ExitCritical, GetExitCode(err))
	assert.Contains(t, stderr, fmt.Sprintf("critical %d", diagnostics.CriticalNoSelection))
}

func TestQueryCommand_RequiresInput(t *testing.T) {
	_, _, err := execute(t, "query")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrateCommand(t *testing.T) {
	cfgPath := writeConfig(t, filepath.Join(t.TempDir(), "wiki.db"))

	stdout, _, err := execute(t, "--config", cfgPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sqlite schema is up to date")

	stdout, _, err = execute(t, "--config", cfgPath, "--format", "json", "migrate", "--status")
	require.NoError(t, err)
	var status struct {
		Dialect string `json:"dialect"`
		Version uint   `json:"version"`
		Dirty   bool   `json:"dirty"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.Equal(t, "sqlite", status.Dialect)
	assert.Equal(t, uint(2), status.Version)
	assert.False(t, status.Dirty)
}

func TestParamsCommand(t *testing.T) {
	stdout, _, err := execute(t, "params", "ORDER", "debug")
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "ascending|descending")
	assert.Contains(t, stdout, "requires "+params.PermissionDebug)

	stdout, _, err = execute(t, "--format", "json", "params")
	require.NoError(t, err)
	var descriptors []params.Descriptor
	require.NoError(t, json.Unmarshal([]byte(stdout), &descriptors))
	assert.Len(t, descriptors, len(params.NewRegistry().Names()))

	_, _, err = execute(t, "params", "nosuch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
