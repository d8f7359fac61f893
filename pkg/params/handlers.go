package params

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

// UncategorizedName is the category option naming the uncategorized pseudo-category.
const UncategorizedName = "_none_"

var collationPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidOption, fmt.Sprintf(format, args...))
}

// splitOperator splits on "|" (OR) when present and on "&" (AND) otherwise.
func splitOperator(option string) ([]string, BoolOp) {
	if strings.Contains(option, "|") {
		return strings.Split(option, "|"), OpOr
	}
	return strings.Split(option, "&"), OpAnd
}

func appendCategoryGroups(v *Validator, key string, groups ...CategoryGroup) {
	sel := v.store.Categories(key)
	sel.Groups = append(sel.Groups, groups...)
	v.store.Set(key, sel)
}

func handleCategory(ctx context.Context, v *Validator, option string) error {
	if option == "" {
		return invalid("empty category")
	}

	var heading, notHeading bool
	if strings.HasPrefix(option, "+") {
		heading = true
		option = strings.TrimLeft(option, "+")
	}
	if strings.HasPrefix(option, "-") {
		notHeading = true
		option = strings.TrimLeft(option, "-")
	}

	// Entities are decoded first so "&amp;" is not read as an AND.
	parts, operator := splitOperator(html.UnescapeString(option))

	var expanded, names []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch {
		case part == "" || part == UncategorizedName:
			v.store.Set(KeyIncludeUncat, Bool(true))
			names = append(names, "")

		case strings.HasPrefix(part, "*") && len(part) >= 2:
			depth := 1
			if strings.HasPrefix(part, "**") {
				depth = 2
			}
			parent := part[depth:]
			subs, err := v.subcategories(ctx, parent, depth)
			if err != nil {
				return err
			}
			for _, name := range append(subs, parent) {
				if t, err := v.Namespaces().Parse(name, titles.NSCategory); err == nil {
					expanded = append(expanded, t.DBKey())
				}
			}

		default:
			t, err := v.Namespaces().Parse(part, titles.NSCategory)
			if err != nil {
				continue
			}
			names = append(names, t.DBKey())
		}
	}

	var groups []CategoryGroup
	if len(expanded) > 0 {
		groups = append(groups, CategoryGroup{Comparison: CompareEqual, Operator: OpOr, Names: expanded})
	}
	if len(names) > 0 {
		groups = append(groups, CategoryGroup{Comparison: CompareEqual, Operator: operator, Names: names})
	}
	if len(groups) == 0 {
		return invalid("no valid category names in %q", option)
	}
	appendCategoryGroups(v, "category", groups...)

	all := append(slices.Clone(expanded), names...)
	if heading {
		v.store.Set(KeyCatHeadings, mergeUnique(v.store.Strings(KeyCatHeadings), all))
	}
	if notHeading {
		v.store.Set(KeyCatNotHeadings, mergeUnique(v.store.Strings(KeyCatNotHeadings), all))
	}
	return nil
}

func (v *Validator) subcategories(ctx context.Context, category string, depth int) ([]string, error) {
	if v.env.Subcategories == nil {
		return nil, nil
	}
	t, err := v.Namespaces().Parse(category, titles.NSCategory)
	if err != nil {
		return nil, invalid("invalid category %q", category)
	}
	subs, err := v.env.Subcategories.Subcategories(ctx, t.DBKey(), depth)
	if err != nil {
		return nil, fmt.Errorf("failed to expand subcategories of %s: %w", t.DBKey(), err)
	}
	return subs, nil
}

func mergeUnique(have StringList, add []string) StringList {
	out := slices.Clone(have)
	for _, s := range add {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func handleCategoryMatch(_ context.Context, v *Validator, option string) error {
	parts, operator := splitOperator(option)
	names := likePatterns(parts)
	if len(names) == 0 {
		return invalid("empty category pattern")
	}
	appendCategoryGroups(v, "category", CategoryGroup{Comparison: CompareLike, Operator: operator, Names: names})
	return nil
}

func handleCategoryRegexp(_ context.Context, v *Validator, option string) error {
	if err := validateRegexps(option); err != nil {
		return err
	}
	appendCategoryGroups(v, "category", CategoryGroup{Comparison: CompareRegexp, Operator: OpAnd, Names: []string{option}})
	return nil
}

func handleNotCategory(_ context.Context, v *Validator, option string) error {
	t, err := v.Namespaces().Parse(option, titles.NSCategory)
	if err != nil {
		return invalid("invalid category %q", option)
	}
	appendCategoryGroups(v, "notcategory", CategoryGroup{Comparison: CompareEqual, Operator: OpAnd, Names: []string{t.DBKey()}})
	return nil
}

func handleNotCategoryMatch(_ context.Context, v *Validator, option string) error {
	names := likePatterns(strings.Split(option, "|"))
	if len(names) == 0 {
		return invalid("empty category pattern")
	}
	appendCategoryGroups(v, "notcategory", CategoryGroup{Comparison: CompareLike, Operator: OpAnd, Names: names})
	return nil
}

func handleNotCategoryRegexp(_ context.Context, v *Validator, option string) error {
	if err := validateRegexps(option); err != nil {
		return err
	}
	appendCategoryGroups(v, "notcategory", CategoryGroup{Comparison: CompareRegexp, Operator: OpAnd, Names: []string{option}})
	return nil
}

func likePatterns(parts []string) []string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ReplaceAll(p, " ", "_"))
		}
	}
	return out
}

func validateRegexps(patterns ...string) error {
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return invalid("empty regular expression")
		}
		if _, err := regexp.Compile(p); err != nil {
			return invalid("invalid regular expression %q: %v", p, err)
		}
	}
	return nil
}

func handleCategoriesMinMax(_ context.Context, v *Validator, option string) error {
	m := categoriesMinMaxPattern.FindStringSubmatch(option)
	if m == nil || (m[1] == "" && m[2] == "") {
		return invalid("expected min,max but got %q", option)
	}
	var r Range
	if m[1] != "" {
		n, _ := strconv.Atoi(m[1])
		r.Min = &n
	}
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		r.Max = &n
	}
	v.store.Set("categoriesminmax", r)
	return nil
}

func handleNamespace(_ context.Context, v *Validator, option string) error {
	allowed := v.env.Limits.AllowedNamespaces
	return addNamespaces(v, "namespace", option, func(name string) bool {
		if len(allowed) == 0 {
			return true
		}
		return slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, name) })
	})
}

func handleNotNamespace(_ context.Context, v *Validator, option string) error {
	return addNamespaces(v, "notnamespace", option, func(string) bool { return true })
}

func addNamespaces(v *Validator, key, option string, allowed func(string) bool) error {
	set := v.store.Namespaces(key)
	for _, name := range strings.Split(option, "|") {
		name = strings.TrimSpace(name)
		id, ok := v.Namespaces().Index(name)
		if !ok {
			return invalid("unknown namespace %q", name)
		}
		if !allowed(name) {
			return invalid("namespace %q is not allowed", name)
		}
		if !slices.Contains(set, id) {
			set = append(set, id)
		}
	}
	v.store.Set(key, set)
	return nil
}

func handleTitle(_ context.Context, v *Validator, option string) error {
	t, err := v.Namespaces().Parse(option, titles.NSMain)
	if err != nil {
		return invalid("invalid title %q", option)
	}

	filter := v.store.TitleFilter("title")
	filter.Clauses = append(filter.Clauses, TitleClause{Comparison: CompareEqual, Pattern: t.DBKey()})
	v.store.Set("title", filter)

	set := v.store.Namespaces("namespace")
	if !slices.Contains(set, t.Namespace) {
		set = append(set, t.Namespace)
	}
	v.store.Set("namespace", set)

	v.store.Set("mode", String("userformat"))
	v.store.Set("ordermethod", OrderMethods{})
	return nil
}

// titleMatchHandler accumulates LIKE or REGEXP clauses under key. Spaces in
// LIKE patterns match a literal underscore; in regular expressions they become
// an underscore.
func titleMatchHandler(key string, cmp Comparison) Handler {
	return func(_ context.Context, v *Validator, option string) error {
		space := `\_`
		if cmp == CompareRegexp {
			space = "_"
		}
		var patterns []string
		for _, p := range strings.Split(strings.ReplaceAll(option, " ", space), "|") {
			if p != "" {
				patterns = append(patterns, p)
			}
		}
		if len(patterns) == 0 {
			return invalid("empty title pattern")
		}
		if cmp == CompareRegexp {
			if err := validateRegexps(patterns...); err != nil {
				return err
			}
		}

		filter := v.store.TitleFilter(key)
		for _, p := range patterns {
			filter.Clauses = append(filter.Clauses, TitleClause{Comparison: cmp, Pattern: p})
		}
		v.store.Set(key, filter)
		return nil
	}
}

func handleOpenReferences(_ context.Context, v *Validator, option string) error {
	b, err := FilterBool(option)
	if err != nil {
		return err
	}
	v.store.Set("ordermethod", OrderMethods{"none"})
	v.store.Set("openreferences", Bool(b))
	return nil
}

func handleDistinct(_ context.Context, v *Validator, option string) error {
	if option == "strict" {
		v.store.Set("distinct", DistinctStrict)
		return nil
	}
	b, err := FilterBool(option)
	if err != nil {
		return err
	}
	if b {
		v.store.Set("distinct", DistinctOn)
	} else {
		v.store.Set("distinct", DistinctOff)
	}
	return nil
}

func handleCount(_ context.Context, v *Validator, option string) error {
	n, err := coerceInt(option)
	if err != nil {
		return err
	}
	limits := v.env.Limits
	if n <= 0 || (n > limits.MaxResultCount && !limits.AllowUnlimitedResults) {
		return invalid("count must be between 1 and %d", limits.MaxResultCount)
	}
	v.store.Set("count", Int(n))
	return nil
}

func handleRandomSeed(_ context.Context, v *Validator, option string) error {
	if option == "" {
		return invalid("empty seed")
	}
	if n, err := strconv.Atoi(option); err == nil {
		v.store.Set("randomseed", Int(n))
		return nil
	}
	v.store.Set("randomseed", String(option))
	return nil
}

func handleOrderMethod(_ context.Context, v *Validator, option string) error {
	var methods OrderMethods
	for _, m := range strings.Split(option, ",") {
		methods = append(methods, strings.TrimSpace(m))
	}
	v.store.Set("ordermethod", methods)
	if methods[0] != "none" {
		v.store.SetOpenRefConflict()
	}
	return nil
}

func handleOrderCollation(_ context.Context, v *Validator, option string) error {
	if option == "bridge" {
		v.store.Set(KeyOrderSuitSymbol, Bool(true))
		return nil
	}
	if !collationPattern.MatchString(option) {
		return invalid("invalid collation %q", option)
	}
	v.store.Set("ordercollation", String(option))
	return nil
}

func handleReplaceInTitle(_ context.Context, v *Validator, option string) error {
	parts := strings.SplitN(option, ",", 2)
	if len(parts) != 2 {
		return invalid("expected /pattern/,replacement")
	}
	re, err := CompilePHPRegexp(strings.TrimSpace(parts[0]))
	if err != nil {
		return invalid("%v", err)
	}
	replacement := html.UnescapeString(v.strip.Sanitize(parts[1]))
	v.store.Set("replaceintitle", Replace{
		Source:      option,
		Pattern:     re,
		Replacement: ConvertReplacement(replacement),
	})
	return nil
}

func handleMode(_ context.Context, v *Validator, option string) error {
	switch option {
	case "none":
		v.store.Set("mode", String("inline"))
		v.store.Set(KeyInlineText, String("<br/>"))
	case "userformat":
		v.store.Set("mode", String(option))
		v.store.Set(KeyInlineText, String(""))
	default:
		v.store.Set("mode", String(option))
	}
	return nil
}

func handleInclude(_ context.Context, v *Validator, option string) error {
	if option == "" {
		return invalid("empty include")
	}
	v.store.Set(KeyIncPage, Bool(true))
	v.store.Set(KeySecLabels, StringList(strings.Split(option, ",")))
	return nil
}
