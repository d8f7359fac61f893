package params

import (
	"sort"
	"strings"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
)

// Assignment is one "name = value" line of input.
type Assignment struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var inputReplacer = strings.NewReplacer(
	"«", "<",
	"»", ">",
	"¦", "|",
	"²{", "{{",
	"}²", "}}",
	"\r\n", "\n",
	"\r", "\n",
)

// emptyAllowed names the parameters whose empty value is still processed.
var emptyAllowed = map[string]bool{
	"namespace":    true,
	"notnamespace": true,
	"category":     true,
}

// ParseInput splits raw input into assignments. Unknown names and lines
// without "=" are reported to diags and dropped.
func ParseInput(input string, registry *Registry, diags *diagnostics.Collector) []Assignment {
	var out []Assignment
	for _, line := range strings.Split(inputReplacer.Replace(input), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			diags.Add(diagnostics.WarnParamNoOption, trimmed)
			continue
		}

		name = strings.TrimSpace(name)
		name = strings.ReplaceAll(name, "<", "lt")
		name = strings.ReplaceAll(name, ">", "gt")
		name = strings.ToLower(name)
		value = strings.TrimSpace(value)

		if !registry.Exists(name) {
			diags.Add(diagnostics.WarnUnknownParam, name)
			continue
		}
		if value == "" && !emptyAllowed[name] {
			continue
		}
		out = append(out, Assignment{Name: name, Value: value})
	}
	return out
}

// priority lists the parameters processed before all others, in this order.
var priority = map[string]int{
	"distinct":       1,
	"openreferences": 2,
	"ignorecase":     3,
	"category":       4,
	"goal":           5,
	"ordercollation": 6,
	"ordermethod":    7,
	"includepage":    8,
	"include":        9,
}

func rank(name string) int {
	if r, ok := priority[name]; ok {
		return r
	}
	return len(priority) + 1
}

// SortByPriority returns a copy of assignments with prioritized parameters
// first; the relative input order is otherwise preserved.
func SortByPriority(assignments []Assignment) []Assignment {
	out := make([]Assignment, len(assignments))
	copy(out, assignments)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Name) < rank(out[j].Name)
	})
	return out
}
