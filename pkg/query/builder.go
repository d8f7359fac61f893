package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

// TotalPagesMarker in a header or footer requests the total row count.
const TotalPagesMarker = "%TOTALPAGES%"

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Builder turns a resolved parameter store into an executable Plan.
// A Builder is immutable and safe for concurrent use.
type Builder struct {
	dialect    Dialect
	prefix     string
	namespaces *titles.Namespaces
	limits     config.PageListConfig
	now        func() time.Time
	logger     *zap.Logger
}

// NewBuilder creates a builder for one database dialect and table prefix.
func NewBuilder(dialect Dialect, tablePrefix string, namespaces *titles.Namespaces, limits config.PageListConfig, logger *zap.Logger) (*Builder, error) {
	if dialect == nil {
		return nil, fmt.Errorf("%w: no dialect", apperrors.ErrUnsupportedDialect)
	}
	if !tablePrefixPattern.MatchString(tablePrefix) {
		return nil, fmt.Errorf("invalid table prefix %q", tablePrefix)
	}
	if namespaces == nil {
		namespaces = titles.NewNamespaces(nil)
	}
	return &Builder{
		dialect:    dialect,
		prefix:     tablePrefix,
		namespaces: namespaces,
		limits:     limits,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// WithClock returns a copy of the builder that resolves relative timestamps
// against now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	clone := *b
	clone.now = now
	return &clone
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() Dialect {
	return b.dialect
}

// Table returns the prefixed name of a wiki table.
func (b *Builder) Table(name string) string {
	return b.prefix + name
}

// Build runs every handler whose parameter is set, in handler order, then
// applies the query options and renders a Plan.
func (b *Builder) Build(store *params.Store) (*Plan, error) {
	c := &build{
		Builder:        b,
		store:          store,
		state:          NewState(),
		openRefs:       store.OpenReferences(),
		imageContainer: store.ImageContainer(),
	}

	if err := c.bindBase(); err != nil {
		return nil, err
	}

	for _, name := range handlerOrder {
		v, ok := store.Get(name)
		if !ok {
			continue
		}
		if err := handlers[name](c, v); err != nil {
			b.logger.Debug("Query handler failed",
				zap.String("parameter", name),
				zap.Error(err))
			return nil, fmt.Errorf("%w: failed to apply %s: %w", apperrors.ErrBuild, name, err)
		}
	}

	c.applyOptions()
	c.excludeNamespaces()

	if err := c.state.checkReferences(b.dialect.BackslashEscapes()); err != nil {
		return nil, err
	}

	return &Plan{
		dialect:        b.dialect,
		state:          c.state,
		goalCategories: store.GoalCategories(),
		categoryTable:  b.Table("categorylinks"),
	}, nil
}

// build is the per-evaluation context shared by the handlers.
type build struct {
	*Builder
	store          *params.Store
	state          *State
	openRefs       bool
	imageContainer bool

	// categoryAliases numbers the cl1, cl2, ... category joins.
	categoryAliases int
	// notCategoryAliases numbers the ecl1, ecl2, ... exclusion joins.
	notCategoryAliases int
	linkGroups         int
	revisionAuxAdded   bool
}

// bindBase registers the driving table and its identity columns.
func (c *build) bindBase() error {
	st := c.state
	switch {
	case c.openRefs && c.imageContainer:
		if err := st.AddTable(c.Table("imagelinks"), "ic"); err != nil {
			return err
		}
		return st.AddSelect(Field{Alias: "il_to", Expr: "ic.il_to"})
	case c.openRefs:
		if err := st.AddTable(c.Table("pagelinks"), "pagelinks"); err != nil {
			return err
		}
		return st.AddSelect(
			Field{Alias: "pl_namespace", Expr: "pagelinks.pl_namespace"},
			Field{Alias: "pl_title", Expr: "pagelinks.pl_title"},
		)
	default:
		if err := st.AddTable(c.Table("page"), "page"); err != nil {
			return err
		}
		return st.AddSelect(
			Field{Alias: "page_namespace", Expr: "page.page_namespace"},
			Field{Alias: "page_id", Expr: "page.page_id"},
			Field{Alias: "page_title", Expr: "page.page_title"},
		)
	}
}

// nsColumn is the namespace of the listed target: the page itself, or the
// link target in open-references mode.
func (c *build) nsColumn() string {
	switch {
	case c.openRefs && c.imageContainer:
		return strconv.Itoa(titles.NSFile)
	case c.openRefs:
		return "pagelinks.pl_namespace"
	}
	return "page.page_namespace"
}

// titleColumn is the db key of the listed target.
func (c *build) titleColumn() string {
	switch {
	case c.openRefs && c.imageContainer:
		return "ic.il_to"
	case c.openRefs:
		return "pagelinks.pl_title"
	}
	return "page.page_title"
}

func (c *build) quote(s string) string {
	return c.dialect.QuoteLiteral(s)
}

// applyOptions sets LIMIT, DISTINCT and the row-count marker.
func (c *build) applyOptions() {
	st := c.state
	if c.store.GoalCategories() {
		st.SetDistinct(true)
		return
	}
	offset, _ := st.Offset()
	if _, ok := st.Limit(); !ok && (offset > 0 || !c.limits.AllowUnlimitedResults) {
		st.SetLimit(strconv.Itoa(c.limits.MaxResultCount))
	}
	st.SetCalcRows(c.needsTotalRows())
}

func (c *build) needsTotalRows() bool {
	if _, ok := c.store.Int("randomcount"); ok {
		return true
	}
	for _, name := range []string{"resultsheader", "resultsfooter", "oneresultheader", "oneresultfooter", "noresultsheader"} {
		if strings.Contains(c.store.String(name), TotalPagesMarker) {
			return true
		}
	}
	return false
}

func (c *build) excludeNamespaces() {
	if len(c.limits.NonIncludableNamespaces) == 0 {
		return
	}
	values := make([]string, 0, len(c.limits.NonIncludableNamespaces))
	for _, ns := range c.limits.NonIncludableNamespaces {
		values = append(values, strconv.Itoa(ns))
	}
	c.state.AddNotWhere(c.nsColumn(), values)
}

// namespaceCase renders "CASE expr WHEN 1 THEN 'Talk:' ... ELSE '' END",
// the display prefix of every non-main namespace.
func (c *build) namespaceCase(expr string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(expr)
	for _, id := range c.namespaces.IDs() {
		if id <= titles.NSMain {
			continue
		}
		name, _ := c.namespaces.Name(id)
		fmt.Fprintf(&b, " WHEN %d THEN %s", id, c.quote(name+":"))
	}
	b.WriteString(" ELSE '' END")
	return b.String()
}

// relativeTimestamp converts a stored Timestamp into a 14 digit literal.
func (c *build) relativeTimestamp(ts params.Timestamp) string {
	now := c.now().UTC()
	var t time.Time
	switch string(ts) {
	case "today":
		t = now
	case "last hour":
		t = now.Add(-time.Hour)
	case "last day":
		t = now.AddDate(0, 0, -1)
	case "last week":
		t = now.AddDate(0, 0, -7)
	case "last month":
		t = now.AddDate(0, -1, 0)
	case "last year":
		t = now.AddDate(-1, 0, 0)
	default:
		return c.quote(string(ts))
	}
	return c.quote(t.Format("20060102150405"))
}
