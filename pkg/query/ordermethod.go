package query

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
)

// handleOrderMethod translates each requested order method, most significant
// first. goal=categories orders by category name instead.
func handleOrderMethod(c *build, v params.Value) error {
	methods, ok := v.(params.OrderMethods)
	if !ok {
		return unexpected(v)
	}
	if c.store.GoalCategories() {
		return nil
	}
	for _, method := range methods {
		fn, ok := orderMethods[method]
		if !ok {
			return fmt.Errorf("unknown order method %q", method)
		}
		if err := fn(c); err != nil {
			return fmt.Errorf("ordermethod %s: %w", method, err)
		}
	}
	return nil
}

var orderMethods = map[string]func(c *build) error{
	"category":              orderByCategory,
	"categoryadd":           orderByCategoryAdd,
	"counter":               orderByCounter,
	"firstedit":             func(c *build) error { return c.orderByEdit("MIN") },
	"lastedit":              func(c *build) error { return c.orderByEdit("MAX") },
	"pagesel":               orderByPageSel,
	"pagetouched":           orderByPageTouched,
	"size":                  orderBySize,
	"sortkey":               orderBySortKey,
	"title":                 orderByTitle,
	"titlewithoutnamespace": orderByTitleWithoutNamespace,
	"user":                  orderByUser,
	"none":                  func(*build) error { return nil },
}

// orderByCategory left-joins the heading categories so every page appears
// once per category it is listed under.
func orderByCategory(c *build) error {
	headings := c.store.Strings(params.KeyCatHeadings)
	notHeadings := c.store.Strings(params.KeyCatNotHeadings)

	table := c.Table("categorylinks")
	for _, name := range append(append([]string{}, headings...), notHeadings...) {
		if name == "" {
			table = c.Table("dpl_clview")
			break
		}
	}

	if err := c.state.AddTable(table, "cl_head"); err != nil {
		return err
	}
	if err := c.state.AddJoin("cl_head", JoinSpec{Type: LeftJoin, On: "page.page_id = cl_head.cl_from"}); err != nil {
		return err
	}
	if err := c.state.AddSelect(Field{Alias: "cl_to", Expr: "cl_head.cl_to"}); err != nil {
		return err
	}
	c.state.AddOrderBy("cl_head.cl_to")

	if len(headings) > 0 {
		c.state.AddWhere(inList("cl_head.cl_to", c.quoteAll(headings)))
	}
	c.state.AddNotWhere("cl_head.cl_to", c.quoteAll(notHeadings))
	return nil
}

func (c *build) quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = c.quote(v)
	}
	return out
}

func orderByCategoryAdd(c *build) error {
	if err := c.state.AddSelect(c.firstCategoryDate()); err != nil {
		return err
	}
	c.state.AddOrderBy("cl_timestamp")
	return nil
}

func orderByCounter(c *build) error {
	if err := handleAddPageCounter(c); err != nil {
		return err
	}
	c.state.AddOrderBy("hit_counter.page_counter")
	return nil
}

// orderByEdit sorts by the first (MIN) or last (MAX) edit. The revision
// constraint is added once even when both are requested.
func (c *build) orderByEdit(agg string) error {
	if err := c.addRevision(); err != nil {
		return err
	}
	if err := c.state.AddSelect(Field{Alias: "rev_timestamp", Expr: "rev.rev_timestamp"}); err != nil {
		return err
	}
	c.state.AddOrderBy("rev.rev_timestamp")
	if c.revisionAuxAdded {
		return nil
	}
	c.revisionAuxAdded = true
	c.state.AddWhere(
		"page.page_id = rev.rev_page",
		fmt.Sprintf("rev.rev_timestamp = (SELECT %s(rev_aux.rev_timestamp) FROM %s AS rev_aux WHERE rev_aux.rev_page = rev.rev_page)",
			agg, c.Table("revision")),
	)
	return nil
}

func orderByPageSel(c *build) error {
	expr := c.dialect.Collate(c.dialect.Concat("pl.pl_namespace", "pl.pl_title"), c.state.Collation())
	if err := c.state.AddSelect(Field{Alias: "sortkey", Expr: expr}); err != nil {
		return err
	}
	c.state.AddOrderBy("sortkey")
	return nil
}

func orderByPageTouched(c *build) error {
	if err := handleAddPageTouchedDate(c); err != nil {
		return err
	}
	c.state.AddOrderBy("page.page_touched")
	return nil
}

func orderBySize(c *build) error {
	if err := handleAddPageSize(c); err != nil {
		return err
	}
	c.state.AddOrderBy("page.page_len")
	return nil
}

// displayTitle renders the title as shown: namespace prefix plus text with
// underscores as spaces.
func (c *build) displayTitle() string {
	return fmt.Sprintf("REPLACE(%s, '_', ' ')", c.dialect.Concat(c.namespaceCase(c.nsColumn()), c.titleColumn()))
}

// orderBySortKey uses the category sort key of the heading or first
// category join, falling back to the display title.
func orderBySortKey(c *build) error {
	expr := c.displayTitle()
	switch {
	case c.store.HasOrderMethod("category"):
		expr = "COALESCE(cl_head.cl_sortkey, " + expr + ")"
	case c.store.Categories("category").Count() > 0:
		expr = "COALESCE(cl1.cl_sortkey, " + expr + ")"
	}
	if err := c.state.AddSelect(Field{Alias: "sortkey", Expr: c.dialect.Collate(expr, c.state.Collation())}); err != nil {
		return err
	}
	c.state.AddOrderBy("sortkey")
	return nil
}

func orderByTitle(c *build) error {
	expr := c.dialect.Collate(c.displayTitle(), c.state.Collation())
	if err := c.state.AddSelect(Field{Alias: "sortkey", Expr: expr}); err != nil {
		return err
	}
	c.state.AddOrderBy("sortkey")
	return nil
}

func orderByTitleWithoutNamespace(c *build) error {
	expr := c.dialect.Collate(c.titleColumn(), c.state.Collation())
	if err := c.state.AddSelect(Field{Alias: "sortkey", Expr: expr}); err != nil {
		return err
	}
	c.state.AddOrderBy("sortkey")
	return nil
}

func orderByUser(c *build) error {
	if err := c.addUserFields(); err != nil {
		return err
	}
	c.state.AddOrderBy("rev.rev_user_text")
	return nil
}
