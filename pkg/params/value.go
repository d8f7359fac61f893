package params

import (
	"regexp"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

// Value is a coerced parameter value. The set of implementations is closed.
type Value interface {
	isValue()
}

// Bool is a three-state-filtered boolean.
type Bool bool

// Int is an integer option.
type Int int

// String is a free-text option after case and markup handling.
type String string

// StringList is an ordered list of strings, e.g. regex captures or section labels.
type StringList []string

// StringGroups holds one group per occurrence of a list parameter.
type StringGroups [][]string

// Timestamp is either a relative keyword ("today", "last week", ...) or a
// 14 digit YYYYMMDDHHMMSS value.
type Timestamp string

// TitleGroups holds one group of resolved titles per occurrence of a
// page-name-list parameter. Titles within a group are ORed.
type TitleGroups [][]titles.Title

// NamespaceSet is an ordered set of namespace ids.
type NamespaceSet []int

// OrderMethods lists the requested order methods, most significant first.
type OrderMethods []string

// DistinctMode controls duplicate elimination.
type DistinctMode int

const (
	DistinctOff DistinctMode = iota
	DistinctOn
	DistinctStrict
)

func (d DistinctMode) String() string {
	switch d {
	case DistinctOff:
		return "false"
	case DistinctStrict:
		return "strict"
	}
	return "true"
}

// Replace is a compiled title replacement.
type Replace struct {
	Source      string
	Pattern     *regexp.Regexp
	Replacement string
}

// Range is an optional inclusive min/max pair.
type Range struct {
	Min *int
	Max *int
}

// Comparison is the SQL operator used to match a name.
type Comparison string

const (
	CompareEqual  Comparison = "="
	CompareLike   Comparison = "LIKE"
	CompareRegexp Comparison = "REGEXP"
)

// BoolOp joins the names of one category group.
type BoolOp string

const (
	OpAnd BoolOp = "AND"
	OpOr  BoolOp = "OR"
)

// CategoryGroup is one group of category db keys sharing a comparison and
// boolean operator. An empty name is the uncategorized pseudo-category.
type CategoryGroup struct {
	Comparison Comparison
	Operator   BoolOp
	Names      []string
}

// HasUncategorized reports whether the group includes the pseudo-category.
func (g CategoryGroup) HasUncategorized() bool {
	for _, name := range g.Names {
		if name == "" {
			return true
		}
	}
	return false
}

// CategorySelector is the accumulated category or notcategory selection.
type CategorySelector struct {
	Groups []CategoryGroup
}

// Count returns the number of category names across all groups.
func (c CategorySelector) Count() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Names)
	}
	return n
}

// TitleClause matches page titles with one comparison.
type TitleClause struct {
	Comparison Comparison
	Pattern    string
}

// TitleFilter is the accumulated title or nottitle selection. Clauses are ORed.
type TitleFilter struct {
	Clauses []TitleClause
}

func (Bool) isValue()             {}
func (Int) isValue()              {}
func (String) isValue()           {}
func (StringList) isValue()       {}
func (StringGroups) isValue()     {}
func (Timestamp) isValue()        {}
func (TitleGroups) isValue()      {}
func (NamespaceSet) isValue()     {}
func (OrderMethods) isValue()     {}
func (DistinctMode) isValue()     {}
func (Replace) isValue()          {}
func (Range) isValue()            {}
func (CategorySelector) isValue() {}
func (TitleFilter) isValue()      {}
