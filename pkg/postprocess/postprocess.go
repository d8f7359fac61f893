// Package postprocess applies the ordering steps that run after rows were
// materialized: backward-scroll reversal, card suit collation and heading
// grouping.
package postprocess

import (
	"regexp"
	"slices"
	"strings"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/articles"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
)

// Options controls Apply.
type Options struct {
	// Reverse is set for titlelt without titlegt in descending order.
	Reverse bool
	// SuitSort orders bridge bidding sequences (ordercollation=bridge).
	SuitSort bool
	// Headings is the counter filled while materializing, or nil.
	Headings *articles.HeadingCounter
}

// OptionsFromStore derives the options of one evaluation.
func OptionsFromStore(store *params.Store, headings *articles.HeadingCounter) Options {
	return Options{
		Reverse:  store.Has("titlelt") && !store.Has("titlegt") && store.String("order") == "descending",
		SuitSort: store.Bool(params.KeyOrderSuitSymbol),
		Headings: headings,
	}
}

// Output is the final ordered result.
type Output struct {
	Articles []*articles.Article
	Headings []articles.HeadingGroup
}

// Apply orders records and groups them under their headings. The input
// slice is not modified.
func Apply(records []*articles.Article, opts Options) Output {
	out := slices.Clone(records)
	if opts.Reverse {
		slices.Reverse(out)
	}
	if opts.SuitSort {
		SortBySuit(out)
	}
	return Output{Articles: out, Headings: groups(out, opts.Headings)}
}

// groups lists the counted headings in the order they first appear in the
// final records.
func groups(records []*articles.Article, counter *articles.HeadingCounter) []articles.HeadingGroup {
	if counter == nil || counter.Len() == 0 {
		return nil
	}
	byKey := make(map[string]articles.HeadingGroup, counter.Len())
	for _, g := range counter.Groups() {
		byKey[g.Key] = g
	}

	result := make([]articles.HeadingGroup, 0, len(byKey))
	for _, a := range records {
		if g, ok := byKey[a.HeadingKey]; ok {
			result = append(result, g)
			delete(byKey, a.HeadingKey)
		}
	}
	return result
}

var (
	namespacePrefix = regexp.MustCompile(`.*:`)
	bidSeparator    = regexp.MustCompile(` - *`)
)

// SortBySuit stably sorts articles by their bidding sequence: "1♣ - 1♥ - p".
func SortBySuit(records []*articles.Article) {
	keys := make(map[*articles.Article]string, len(records))
	for _, a := range records {
		keys[a] = SuitKey(a.PrefixedText)
	}
	slices.SortStableFunc(records, func(x, y *articles.Article) int {
		return strings.Compare(keys[x], keys[y])
	})
}

var suitCodes = map[string]string{
	"♣": "1",
	"♦": "2",
	"♥": "3",
	"♠": "4",
}

// SuitKey builds the collation key of one title.
func SuitKey(title string) string {
	title = namespacePrefix.ReplaceAllString(title, "")

	var b strings.Builder
	for _, token := range bidSeparator.Split(title, -1) {
		if token == "" {
			continue
		}
		initial := token[0]
		switch {
		case initial >= '1' && initial <= '7':
			b.WriteByte(initial)
			suit := token[1:]
			if code, ok := suitCodes[suit]; ok {
				b.WriteString(code)
			} else if s := strings.ToLower(suit); s == "sa" || s == "nt" {
				b.WriteString("5 ")
			} else {
				b.WriteString(suit)
			}
		case initial == 'p' || initial == 'P':
			b.WriteString("0 ")
		case initial == 'x' || initial == 'X':
			b.WriteString("8 ")
		default:
			b.WriteString(token)
		}
	}
	return b.String()
}
