package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jinzhu/inflection"
	"github.com/xlab/treeprint"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/articles"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/services"
)

var (
	criticalFormat = color.New(color.FgHiRed, color.Bold).SprintFunc()
	warningFormat  = color.New(color.FgHiYellow).SprintFunc()
	debugFormat    = color.New(color.FgCyan).SprintFunc()
	mutedFormat    = color.New(color.FgHiBlack).SprintFunc()
	boldFormat     = color.New(color.Bold).SprintFunc()
)

// renderResult prints a result as text: records (as a heading tree when
// headings were requested), then a summary line. Diagnostics go to errW.
func renderResult(w, errW io.Writer, result *services.Result, showSQL bool) error {
	renderDiagnostics(errW, result.Diagnostics)

	if showSQL && result.SQL != "" {
		if err := renderSQL(w, result.SQL); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	if len(result.Headings) > 0 {
		fmt.Fprint(w, headingTree(result))
	} else {
		for _, a := range result.Records {
			fmt.Fprintln(w, recordLine(a))
		}
	}

	summary := fmt.Sprintf("%s %s", humanize.Comma(int64(result.Count)), noun(result.Count, "record"))
	if result.TotalRows != nil {
		summary += fmt.Sprintf(" of %s", humanize.Comma(*result.TotalRows))
	}
	summary += fmt.Sprintf(" in %s", result.Duration.Round(time.Microsecond))
	fmt.Fprintln(w, mutedFormat(summary))
	return nil
}

func renderDiagnostics(w io.Writer, items []diagnostics.Diagnostic) {
	for _, d := range items {
		label := fmt.Sprintf("%s %d", d.Severity, d.Code)
		switch d.Severity {
		case diagnostics.SeverityCritical:
			label = criticalFormat(label)
		case diagnostics.SeverityWarning:
			label = warningFormat(label)
		default:
			label = debugFormat(label)
		}
		fmt.Fprintf(w, "%s: %s\n", label, d.Message)
	}
}

// renderSQL highlights the generated query when the terminal supports color.
func renderSQL(w io.Writer, sql string) error {
	if color.NoColor {
		_, err := fmt.Fprintln(w, sql)
		return err
	}
	if err := quick.Highlight(w, sql+"\n", "sql", "terminal256", "monokai"); err != nil {
		return fmt.Errorf("failed to highlight sql: %w", err)
	}
	return nil
}

// headingTree groups records under their headings in first-seen order.
func headingTree(result *services.Result) string {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("%d %s", len(result.Headings), noun(len(result.Headings), "heading")))

	branches := make(map[string]treeprint.Tree, len(result.Headings))
	for _, g := range result.Headings {
		key := g.Key
		if key == "" {
			key = "(uncategorized)"
		}
		branches[g.Key] = tree.AddBranch(fmt.Sprintf("%s %s", boldFormat(key), mutedFormat(fmt.Sprintf("(%d)", g.Count))))
	}
	for _, a := range result.Records {
		branch, ok := branches[a.HeadingKey]
		if !ok {
			tree.AddNode(recordLine(a))
			continue
		}
		branch.AddNode(recordLine(a))
	}
	return tree.String()
}

// recordLine is the one-line text form of a record.
func recordLine(a *articles.Article) string {
	var b strings.Builder
	b.WriteString(a.DisplayTitle)
	if b.Len() == 0 {
		b.WriteString(a.PrefixedText)
	}

	var extra []string
	if a.Size != nil {
		extra = append(extra, humanize.Bytes(uint64(max(*a.Size, 0))))
	}
	if a.Counter > 0 {
		extra = append(extra, humanize.Comma(a.Counter)+" views")
	}
	if date := a.DisplayDate(); date != "" {
		extra = append(extra, date)
	}
	if a.User != "" {
		extra = append(extra, a.User)
	}
	if a.Contrib != "" {
		extra = append(extra, a.Contrib)
	}
	if len(a.CategoryTexts) > 0 {
		extra = append(extra, strings.Join(a.CategoryTexts, " | "))
	}
	if a.ExternalLink != "" {
		extra = append(extra, a.ExternalLink)
	}
	if len(extra) > 0 {
		b.WriteString("  ")
		b.WriteString(mutedFormat(strings.Join(extra, ", ")))
	}
	return b.String()
}

func noun(n int, word string) string {
	if n == 1 {
		return word
	}
	return inflection.Plural(word)
}
