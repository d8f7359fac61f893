package query

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	pagesql "github.com/ekaya-inc/ekaya-pagelist/pkg/sql"
)

// Direction is the shared sort direction of all ORDER BY clauses.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// JoinType is the SQL join keyword.
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT OUTER JOIN"
)

// JoinSpec describes how a registered table alias is joined.
type JoinSpec struct {
	Type JoinType
	On   string
}

// Field is one selected expression and its result column name.
type Field struct {
	Alias string
	Expr  string
}

type tableRef struct {
	alias string
	table string
}

// State accumulates the parts of one SELECT statement. Handlers mutate it in
// a fixed order; Plan renders it.
type State struct {
	tables  []tableRef
	fields  []Field
	where   []string
	joins   map[string]JoinSpec
	joinSeq []string
	groupBy []string
	orderBy []string

	direction Direction
	limit     int
	hasLimit  bool
	offset    int
	hasOffset bool
	distinct  bool
	calcRows  bool
	collation string
}

// NewState returns an empty state sorting ascending.
func NewState() *State {
	return &State{
		joins:     make(map[string]JoinSpec),
		direction: Ascending,
	}
}

var aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AddTable registers table under alias. Registering the same pair again is a
// no-op. An alias already bound to a different table keeps its first table
// and an error is returned.
func (s *State) AddTable(table, alias string) error {
	if !aliasPattern.MatchString(alias) {
		return fmt.Errorf("%w: invalid table alias %q", apperrors.ErrBuild, alias)
	}
	for _, t := range s.tables {
		if t.alias != alias {
			continue
		}
		if t.table == table {
			return nil
		}
		return fmt.Errorf("%w: alias %q is already bound to table %q, not %q", apperrors.ErrBuild, alias, t.table, table)
	}
	s.tables = append(s.tables, tableRef{alias: alias, table: table})
	return nil
}

// HasTable reports whether alias is registered.
func (s *State) HasTable(alias string) bool {
	return slices.ContainsFunc(s.tables, func(t tableRef) bool { return t.alias == alias })
}

// TableFor returns the table bound to alias.
func (s *State) TableFor(alias string) (string, bool) {
	for _, t := range s.tables {
		if t.alias == alias {
			return t.table, true
		}
	}
	return "", false
}

// AddSelect adds result columns. Selecting the same expression twice under
// one alias is a no-op; a different expression for an existing alias fails.
func (s *State) AddSelect(fields ...Field) error {
	for _, f := range fields {
		if !aliasPattern.MatchString(f.Alias) {
			return fmt.Errorf("%w: invalid field alias %q", apperrors.ErrBuild, f.Alias)
		}
		idx := slices.IndexFunc(s.fields, func(have Field) bool { return have.Alias == f.Alias })
		if idx < 0 {
			s.fields = append(s.fields, f)
			continue
		}
		if s.fields[idx].Expr != f.Expr {
			return fmt.Errorf("%w: field alias %q is already %q, not %q", apperrors.ErrBuild, f.Alias, s.fields[idx].Expr, f.Expr)
		}
	}
	return nil
}

// Fields returns the selected columns in selection order.
func (s *State) Fields() []Field {
	return slices.Clone(s.fields)
}

// AddWhere appends predicates. All predicates are ANDed; a predicate
// already present is not added again.
func (s *State) AddWhere(preds ...string) {
	for _, p := range preds {
		if p = strings.TrimSpace(p); p != "" && !slices.Contains(s.where, p) {
			s.where = append(s.where, p)
		}
	}
}

// AddNotWhere excludes values of field: != for one value, NOT IN for several.
// values must already be rendered as SQL literals.
func (s *State) AddNotWhere(field string, values []string) {
	switch len(values) {
	case 0:
	case 1:
		s.AddWhere(field + " != " + values[0])
	default:
		s.AddWhere(field + " NOT IN (" + strings.Join(values, ", ") + ")")
	}
}

// AddJoin attaches a join condition to a registered table alias. An alias
// can be joined only once.
func (s *State) AddJoin(alias string, spec JoinSpec) error {
	if !s.HasTable(alias) {
		return fmt.Errorf("%w: join alias %q is not a registered table", apperrors.ErrBuild, alias)
	}
	if _, ok := s.joins[alias]; ok {
		return fmt.Errorf("%w: alias %q is already joined", apperrors.ErrBuild, alias)
	}
	if spec.Type == "" {
		spec.Type = InnerJoin
	}
	s.joins[alias] = spec
	s.joinSeq = append(s.joinSeq, alias)
	return nil
}

// HasJoin reports whether alias carries a join condition.
func (s *State) HasJoin(alias string) bool {
	_, ok := s.joins[alias]
	return ok
}

// AddGroupBy appends a GROUP BY expression once.
func (s *State) AddGroupBy(expr string) {
	if !slices.Contains(s.groupBy, expr) {
		s.groupBy = append(s.groupBy, expr)
	}
}

// AddOrderBy appends an ORDER BY clause once.
func (s *State) AddOrderBy(clause string) {
	if !slices.Contains(s.orderBy, clause) {
		s.orderBy = append(s.orderBy, clause)
	}
}

// SetOrderDir sets the direction shared by all ORDER BY clauses.
func (s *State) SetOrderDir(d Direction) {
	s.direction = d
}

// SetLimit parses a row limit. A non-numeric value clears the limit.
func (s *State) SetLimit(raw string) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		s.limit, s.hasLimit = 0, false
		return
	}
	s.limit, s.hasLimit = n, true
}

// SetOffset parses a row offset. A non-numeric value clears the offset.
func (s *State) SetOffset(raw string) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		s.offset, s.hasOffset = 0, false
		return
	}
	s.offset, s.hasOffset = n, true
}

// Limit returns the row limit and whether one is set.
func (s *State) Limit() (int, bool) { return s.limit, s.hasLimit }

// Offset returns the row offset and whether one is set.
func (s *State) Offset() (int, bool) { return s.offset, s.hasOffset }

// SetCollation sets the collation applied to sort keys.
func (s *State) SetCollation(c string) { s.collation = c }

// Collation returns the sort key collation.
func (s *State) Collation() string { return s.collation }

// SetDistinct toggles SELECT DISTINCT.
func (s *State) SetDistinct(v bool) { s.distinct = v }

// SetCalcRows marks that the total row count must be computed.
func (s *State) SetCalcRows(v bool) { s.calcRows = v }

var (
	qualifierPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.[A-Za-z_]`)
	subSelectPattern = regexp.MustCompile(`(?i)\(\s*SELECT\b`)
	directionSuffix  = regexp.MustCompile(`(?i)\s(ASC|DESC)$`)
)

// checkReferences verifies that every alias qualifier outside string literals
// and nested sub-selects names a registered table.
func (s *State) checkReferences(backslashEscapes bool) error {
	check := func(kind, expr string) error {
		masked := stripSubSelects(pagesql.MaskLiterals(expr, backslashEscapes))
		for _, m := range qualifierPattern.FindAllStringSubmatch(masked, -1) {
			if !s.HasTable(m[1]) {
				return fmt.Errorf("%w: %s %q references unknown alias %q", apperrors.ErrBuild, kind, expr, m[1])
			}
		}
		return nil
	}

	for _, f := range s.fields {
		if err := check("select", f.Expr); err != nil {
			return err
		}
	}
	for _, w := range s.where {
		if err := check("where", w); err != nil {
			return err
		}
	}
	for _, alias := range s.joinSeq {
		if err := check("join", s.joins[alias].On); err != nil {
			return err
		}
	}
	for _, g := range s.groupBy {
		if err := check("group by", g); err != nil {
			return err
		}
	}
	for _, o := range s.orderBy {
		if err := check("order by", o); err != nil {
			return err
		}
	}
	return nil
}

// stripSubSelects blanks every parenthesized sub-select. Literals must be
// masked first so parentheses inside strings are not counted.
func stripSubSelects(masked string) string {
	b := []byte(masked)
	for {
		loc := subSelectPattern.FindIndex(b)
		if loc == nil {
			return string(b)
		}
		depth := 0
		end := len(b)
		for i := loc[0]; i < len(b); i++ {
			if b[i] == '(' {
				depth++
			} else if b[i] == ')' {
				depth--
				if depth == 0 {
					end = i + 1
					break
				}
			}
		}
		for i := loc[0]; i < end; i++ {
			b[i] = ' '
		}
	}
}

type renderOptions struct {
	fields        []Field
	forceDistinct bool
	noOrder       bool
	noPaginate    bool
}

// render assembles the statement.
func (s *State) render(d Dialect, opts renderOptions) string {
	fields := opts.fields
	if fields == nil {
		fields = s.fields
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if s.distinct || opts.forceDistinct {
		b.WriteString("DISTINCT ")
	}
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Expr)
		if f.Expr != f.Alias {
			b.WriteString(" AS ")
			b.WriteString(f.Alias)
		}
	}

	b.WriteString(" FROM ")
	first := true
	for _, t := range s.tables {
		if s.HasJoin(t.alias) {
			continue
		}
		if !first {
			b.WriteString(" CROSS JOIN ")
		}
		first = false
		writeTable(&b, t)
	}
	for _, alias := range s.joinSeq {
		table, _ := s.TableFor(alias)
		spec := s.joins[alias]
		b.WriteString(" ")
		b.WriteString(string(spec.Type))
		b.WriteString(" ")
		writeTable(&b, tableRef{alias: alias, table: table})
		b.WriteString(" ON (")
		b.WriteString(spec.On)
		b.WriteString(")")
	}

	if len(s.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(s.where, " AND "))
	}
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.groupBy, ", "))
	}

	hasOrder := !opts.noOrder && len(s.orderBy) > 0
	if hasOrder {
		b.WriteString(" ORDER BY ")
		for i, o := range s.orderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o)
			if !directionSuffix.MatchString(o) {
				b.WriteString(" ")
				b.WriteString(string(s.direction))
			}
		}
	}

	if !opts.noPaginate {
		if p := d.Paginate(s.limit, s.offset, s.hasLimit, hasOrder); p != "" {
			b.WriteString(" ")
			b.WriteString(p)
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, t tableRef) {
	b.WriteString(t.table)
	if t.table != t.alias {
		b.WriteString(" AS ")
		b.WriteString(t.alias)
	}
}
