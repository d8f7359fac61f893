package query

import (
	"fmt"
	"strings"
)

// Plan is a built query. The same state can be projected as the record
// query, a page id query, or a row count.
type Plan struct {
	dialect        Dialect
	state          *State
	goalCategories bool
	categoryTable  string
}

// Dialect returns the dialect the plan renders for.
func (p *Plan) Dialect() Dialect {
	return p.dialect
}

// GoalCategories reports whether the plan lists categories rather than pages.
func (p *Plan) GoalCategories() bool {
	return p.goalCategories
}

// CalcRows reports whether the total row count is needed.
func (p *Plan) CalcRows() bool {
	return p.state.calcRows
}

// Fields returns the selected columns.
func (p *Plan) Fields() []Field {
	return p.state.Fields()
}

// Direction returns the shared sort direction.
func (p *Plan) Direction() Direction {
	return p.state.direction
}

// SQL renders the record query.
func (p *Plan) SQL() string {
	return p.state.render(p.dialect, renderOptions{})
}

// PageIDSQL renders the distinct page ids matched by the state, unordered
// and unbounded.
func (p *Plan) PageIDSQL() string {
	return p.state.render(p.dialect, renderOptions{
		fields:        []Field{{Alias: "page_id", Expr: "page.page_id"}},
		forceDistinct: true,
		noOrder:       true,
		noPaginate:    true,
	})
}

// CategorySQL renders the distinct categories of the given pages ordered by
// name. It returns "" when ids is empty.
func (p *Plan) CategorySQL(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	return fmt.Sprintf("SELECT DISTINCT clgoal.cl_to AS cl_to FROM %s AS clgoal WHERE %s ORDER BY clgoal.cl_to %s",
		p.categoryTable, inList("clgoal.cl_from", intLiterals(ids)), p.state.direction)
}

// CountSQL renders the number of rows the record query matches without
// LIMIT and OFFSET.
func (p *Plan) CountSQL() string {
	inner := p.state.render(p.dialect, renderOptions{noOrder: true, noPaginate: true})
	return "SELECT COUNT(*) AS row_count FROM (" + inner + ") AS dpl_found"
}

// Returned is the number of rows the record query yields when total rows
// match before OFFSET and LIMIT.
func (p *Plan) Returned(total int64) int64 {
	n := total
	if offset, ok := p.state.Offset(); ok {
		n = max(n-int64(offset), 0)
	}
	if limit, ok := p.state.Limit(); ok {
		n = min(n, int64(limit))
	}
	return n
}

// String renders the statement that Run executes first.
func (p *Plan) String() string {
	if p.goalCategories {
		return p.PageIDSQL()
	}
	return p.SQL()
}

// tableNames lists the registered tables, used in debug output.
func (p *Plan) tableNames() string {
	names := make([]string, 0, len(p.state.tables))
	for _, t := range p.state.tables {
		names = append(names, t.alias)
	}
	return strings.Join(names, ",")
}
