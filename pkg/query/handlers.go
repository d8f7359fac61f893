package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

type handlerFunc func(c *build, v params.Value) error

// handlerOrder fixes the order in which parameters mutate the query state.
// count and offset precede goal so goal=categories can clear them; order
// precedes the revision windows so their DESC wins; ordercollation precedes
// ordermethod. addexternallink has no handler: linkstoexternal selects el_to.
var handlerOrder = []string{
	"count", "offset", "goal", "distinct", "order",
	"namespace", "notnamespace",
	"category", "notcategory", "categoriesminmax", "articlecategory",
	"title", params.KeyNotTitle, "titlegt", "titlelt",
	"linksto", "notlinksto", "linksfrom", "notlinksfrom", "linkstoexternal",
	"uses", "notuses", "usedby", "imageused", "imagecontainer",
	"createdby", "notcreatedby", "modifiedby", "notmodifiedby", "lastmodifiedby", "notlastmodifiedby",
	"allrevisionsbefore", "allrevisionssince", "firstrevisionsince", "lastrevisionbefore",
	"minrevisions", "maxrevisions", "minoredits",
	"redirects", "stablepages", "qualitypages",
	"ordercollation", "ordermethod",
	"addauthor", "addlasteditor", "adduser", "addcategories", "addcontribution", "addeditdate",
	"addfirstcategorydate", "addpagecounter", "addpagesize", "addpagetoucheddate",
}

var handlers = map[string]handlerFunc{
	"count":    handleCount,
	"offset":   handleOffset,
	"goal":     handleGoal,
	"distinct": handleDistinct,
	"order":    handleOrder,

	"namespace":    handleNamespace,
	"notnamespace": handleNotNamespace,

	"category":         handleCategory,
	"notcategory":      handleNotCategory,
	"categoriesminmax": handleCategoriesMinMax,
	"articlecategory":  handleArticleCategory,

	"title":           handleTitle,
	params.KeyNotTitle: handleNotTitle,
	"titlegt":         titleBoundHandler(">"),
	"titlelt":         titleBoundHandler("<"),

	"linksto":         handleLinksTo,
	"notlinksto":      handleNotLinksTo,
	"linksfrom":       handleLinksFrom,
	"notlinksfrom":    handleNotLinksFrom,
	"linkstoexternal": handleLinksToExternal,
	"uses":            handleUses,
	"notuses":         handleNotUses,
	"usedby":          handleUsedBy,
	"imageused":       handleImageUsed,
	"imagecontainer":  handleImageContainer,

	"createdby":         handleCreatedBy,
	"notcreatedby":      handleNotCreatedBy,
	"modifiedby":        handleModifiedBy,
	"notmodifiedby":     handleNotModifiedBy,
	"lastmodifiedby":    lastModifiedByHandler("="),
	"notlastmodifiedby": lastModifiedByHandler("!="),

	"allrevisionsbefore": revisionWindowHandler("<"),
	"allrevisionssince":  revisionWindowHandler(">="),
	"firstrevisionsince": boundaryRevisionHandler(">=", "MIN", "rev_aux_snc"),
	"lastrevisionbefore": boundaryRevisionHandler("<", "MAX", "rev_aux_bef"),

	"minrevisions": revisionCountHandler(">=", "rev_aux2"),
	"maxrevisions": revisionCountHandler("<=", "rev_aux3"),
	"minoredits":   handleMinorEdits,

	"redirects":    handleRedirects,
	"stablepages":  flaggedHandler("fp.fp_stable IS NOT NULL", "fp.fp_stable IS NULL"),
	"qualitypages": flaggedHandler("fp.fp_quality >= 1", "fp.fp_quality = 0"),

	"ordercollation": handleOrderCollation,
	"ordermethod":    handleOrderMethod,

	"addauthor":            boolHandler(handleAddAuthor),
	"addlasteditor":        boolHandler(handleAddLastEditor),
	"adduser":              boolHandler(handleAddUser),
	"addcategories":        boolHandler(handleAddCategories),
	"addcontribution":      boolHandler(handleAddContribution),
	"addeditdate":          boolHandler(handleAddEditDate),
	"addfirstcategorydate": boolHandler(handleAddFirstCategoryDate),
	"addpagecounter":       boolHandler(handleAddPageCounter),
	"addpagesize":          boolHandler(handleAddPageSize),
	"addpagetoucheddate":   boolHandler(handleAddPageTouchedDate),
}

// Handled reports whether the builder translates name into SQL.
func Handled(name string) bool {
	_, ok := handlers[name]
	return ok
}

func unexpected(v params.Value) error {
	return fmt.Errorf("unexpected value type %T", v)
}

func boolHandler(fn func(c *build) error) handlerFunc {
	return func(c *build, v params.Value) error {
		b, ok := v.(params.Bool)
		if !ok {
			return unexpected(v)
		}
		if !b {
			return nil
		}
		return fn(c)
	}
}

// inList renders "expr = v" for one value and "expr IN (...)" for several.
func inList(expr string, values []string) string {
	if len(values) == 1 {
		return expr + " = " + values[0]
	}
	return expr + " IN (" + strings.Join(values, ", ") + ")"
}

func intLiterals[T ~int | ~int64](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatInt(int64(v), 10)
	}
	return out
}

func flatten(groups params.TitleGroups) []titles.Title {
	var out []titles.Title
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func articleIDs(groups params.TitleGroups) []int64 {
	var ids []int64
	for _, t := range flatten(groups) {
		ids = append(ids, t.ArticleID)
	}
	return ids
}

// compare renders "expr <cmp> pattern" with pattern quoted.
func (c *build) compare(expr string, cmp params.Comparison, pattern string) (string, error) {
	switch cmp {
	case params.CompareLike:
		return expr + " LIKE " + c.quote(pattern), nil
	case params.CompareRegexp:
		return c.dialect.RegexpMatch(expr, c.quote(pattern))
	}
	return expr + " = " + c.quote(pattern), nil
}

// matchKey compares a title column with a db key, using LIKE when the key
// carries a % wildcard and folding case under ignorecase.
func (c *build) matchKey(col, key string) string {
	op := " = "
	if strings.Contains(key, "%") {
		op = " LIKE "
	}
	if c.store.Bool("ignorecase") {
		return c.dialect.FoldCase(col) + op + c.quote(strings.ToLower(key))
	}
	return col + op + c.quote(key)
}

// distinctStrict collapses rows sharing a title. Dialects that reject
// ungrouped columns fall back to SELECT DISTINCT.
func (c *build) distinctStrict() {
	if c.store.Distinct() != params.DistinctStrict {
		return
	}
	if c.dialect.LooseGroupBy() {
		c.state.AddGroupBy("page.page_title")
		return
	}
	c.state.SetDistinct(true)
}

func handleCount(c *build, v params.Value) error {
	n, ok := v.(params.Int)
	if !ok {
		return unexpected(v)
	}
	c.state.SetLimit(strconv.Itoa(int(n)))
	return nil
}

func handleOffset(c *build, v params.Value) error {
	n, ok := v.(params.Int)
	if !ok {
		return unexpected(v)
	}
	c.state.SetOffset(strconv.Itoa(int(n)))
	return nil
}

func handleGoal(c *build, v params.Value) error {
	if s, _ := v.(params.String); s == "categories" {
		c.state.SetLimit("")
		c.state.SetOffset("")
	}
	return nil
}

func handleDistinct(c *build, v params.Value) error {
	mode, ok := v.(params.DistinctMode)
	if !ok {
		return unexpected(v)
	}
	c.state.SetDistinct(mode != params.DistinctOff)
	return nil
}

func handleOrder(c *build, v params.Value) error {
	first := c.store.FirstOrderMethod()
	if first == "" || first == "none" {
		return nil
	}
	if s, _ := v.(params.String); s == "descending" {
		c.state.SetOrderDir(Descending)
	} else {
		c.state.SetOrderDir(Ascending)
	}
	return nil
}

func handleNamespace(c *build, v params.Value) error {
	set, ok := v.(params.NamespaceSet)
	if !ok {
		return unexpected(v)
	}
	if len(set) > 0 {
		c.state.AddWhere(inList(c.nsColumn(), intLiterals(set)))
	}
	return nil
}

func handleNotNamespace(c *build, v params.Value) error {
	set, ok := v.(params.NamespaceSet)
	if !ok {
		return unexpected(v)
	}
	c.state.AddNotWhere(c.nsColumn(), intLiterals(set))
	return nil
}

// handleCategory joins one categorylinks alias per OR group and one per name
// of an AND group. Groups naming the uncategorized pseudo-category read the
// dpl_clview view instead.
func handleCategory(c *build, v params.Value) error {
	sel, ok := v.(params.CategorySelector)
	if !ok {
		return unexpected(v)
	}
	for _, group := range sel.Groups {
		table := c.Table("categorylinks")
		if group.HasUncategorized() {
			table = c.Table("dpl_clview")
		}

		if group.Operator == params.OpOr {
			c.categoryAliases++
			alias := "cl" + strconv.Itoa(c.categoryAliases)
			var ors []string
			for _, name := range group.Names {
				cond, err := c.compare(alias+".cl_to", group.Comparison, name)
				if err != nil {
					return err
				}
				ors = append(ors, cond)
			}
			if err := c.joinCategory(table, alias, strings.Join(ors, " OR ")); err != nil {
				return err
			}
			continue
		}

		for _, name := range group.Names {
			c.categoryAliases++
			alias := "cl" + strconv.Itoa(c.categoryAliases)
			cond, err := c.compare(alias+".cl_to", group.Comparison, name)
			if err != nil {
				return err
			}
			if err := c.joinCategory(table, alias, cond); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *build) joinCategory(table, alias, cond string) error {
	if err := c.state.AddTable(table, alias); err != nil {
		return err
	}
	return c.state.AddJoin(alias, JoinSpec{
		Type: InnerJoin,
		On:   fmt.Sprintf("page.page_id = %s.cl_from AND (%s)", alias, cond),
	})
}

func handleNotCategory(c *build, v params.Value) error {
	sel, ok := v.(params.CategorySelector)
	if !ok {
		return unexpected(v)
	}
	for _, group := range sel.Groups {
		for _, name := range group.Names {
			c.notCategoryAliases++
			alias := "ecl" + strconv.Itoa(c.notCategoryAliases)
			cond, err := c.compare(alias+".cl_to", group.Comparison, name)
			if err != nil {
				return err
			}
			if err := c.state.AddTable(c.Table("categorylinks"), alias); err != nil {
				return err
			}
			if err := c.state.AddJoin(alias, JoinSpec{
				Type: LeftJoin,
				On:   fmt.Sprintf("page.page_id = %s.cl_from AND %s", alias, cond),
			}); err != nil {
				return err
			}
			c.state.AddWhere(alias + ".cl_to IS NULL")
		}
	}
	return nil
}

func handleCategoriesMinMax(c *build, v params.Value) error {
	r, ok := v.(params.Range)
	if !ok {
		return unexpected(v)
	}
	count := fmt.Sprintf("(SELECT COUNT(*) FROM %s AS clmm WHERE clmm.cl_from = page.page_id)", c.Table("categorylinks"))
	if r.Min != nil {
		c.state.AddWhere(fmt.Sprintf("%d <= %s", *r.Min, count))
	}
	if r.Max != nil {
		c.state.AddWhere(fmt.Sprintf("%d >= %s", *r.Max, count))
	}
	return nil
}

// handleArticleCategory selects talk pages whose subject page is in a category.
func handleArticleCategory(c *build, v params.Value) error {
	s, ok := v.(params.String)
	if !ok {
		return unexpected(v)
	}
	c.state.AddWhere(fmt.Sprintf(
		"page.page_title IN (SELECT p2.page_title FROM %s AS p2 INNER JOIN %s AS clstc ON (clstc.cl_from = p2.page_id AND clstc.cl_to = %s) WHERE p2.page_namespace = %d)",
		c.Table("page"), c.Table("categorylinks"), c.quote(string(s)), titles.NSMain))
	return nil
}

func (c *build) titleConditions(filter params.TitleFilter) (string, error) {
	col := c.titleColumn()
	fold := c.store.Bool("ignorecase")
	var ors []string
	for _, clause := range filter.Clauses {
		expr, pattern := col, clause.Pattern
		if fold {
			expr, pattern = c.dialect.FoldCase(col), strings.ToLower(pattern)
		}
		cond, err := c.compare(expr, clause.Comparison, pattern)
		if err != nil {
			return "", err
		}
		ors = append(ors, cond)
	}
	return strings.Join(ors, " OR "), nil
}

func handleTitle(c *build, v params.Value) error {
	filter, ok := v.(params.TitleFilter)
	if !ok {
		return unexpected(v)
	}
	if len(filter.Clauses) == 0 {
		return nil
	}
	cond, err := c.titleConditions(filter)
	if err != nil {
		return err
	}
	c.state.AddWhere("(" + cond + ")")
	return nil
}

func handleNotTitle(c *build, v params.Value) error {
	filter, ok := v.(params.TitleFilter)
	if !ok {
		return unexpected(v)
	}
	if len(filter.Clauses) == 0 {
		return nil
	}
	cond, err := c.titleConditions(filter)
	if err != nil {
		return err
	}
	c.state.AddWhere("NOT (" + cond + ")")
	return nil
}

// titleBoundHandler compares titles with a bound; a leading "=_" makes the
// bound inclusive.
func titleBoundHandler(op string) handlerFunc {
	return func(c *build, v params.Value) error {
		s, ok := v.(params.String)
		if !ok {
			return unexpected(v)
		}
		bound, cmp := string(s), op
		if strings.HasPrefix(bound, "=_") {
			bound, cmp = bound[2:], op+"="
		}
		c.state.AddWhere(c.titleColumn() + " " + cmp + " " + c.quote(bound))
		return nil
	}
}

func (c *build) linkConditions(alias, nsCol, titleCol string, targets []titles.Title) string {
	ors := make([]string, 0, len(targets))
	for _, t := range targets {
		ors = append(ors, fmt.Sprintf("(%s.%s = %d AND %s)", alias, nsCol, t.Namespace, c.matchKey(alias+"."+titleCol, t.DBKey())))
	}
	return strings.Join(ors, " OR ")
}

// handleLinksTo joins the first group and requires every further group
// through an EXISTS sub-select, so groups are ANDed and names within a
// group ORed.
func handleLinksTo(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	c.distinctStrict()
	for i, group := range groups {
		if i == 0 {
			if err := c.state.AddTable(c.Table("pagelinks"), "pl"); err != nil {
				return err
			}
			if err := c.state.AddSelect(
				Field{Alias: "sel_title", Expr: "pl.pl_title"},
				Field{Alias: "sel_ns", Expr: "pl.pl_namespace"},
			); err != nil {
				return err
			}
			c.state.AddWhere("page.page_id = pl.pl_from AND (" + c.linkConditions("pl", "pl_namespace", "pl_title", group) + ")")
			continue
		}
		c.linkGroups++
		alias := "plg" + strconv.Itoa(c.linkGroups)
		c.state.AddWhere(fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s.pl_from = page.page_id AND (%s))",
			c.Table("pagelinks"), alias, alias, c.linkConditions(alias, "pl_namespace", "pl_title", group)))
	}
	return nil
}

func handleNotLinksTo(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	targets := flatten(groups)
	if len(targets) == 0 {
		return nil
	}
	c.state.AddWhere(fmt.Sprintf("page.page_id NOT IN (SELECT plnt.pl_from FROM %s AS plnt WHERE (%s))",
		c.Table("pagelinks"), c.linkConditions("plnt", "pl_namespace", "pl_title", targets)))
	return nil
}

func handleLinksFrom(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	ids := intLiterals(articleIDs(groups))
	if len(ids) == 0 {
		return nil
	}
	if c.openRefs {
		c.state.AddWhere(inList("pagelinks.pl_from", ids))
		return nil
	}

	if err := c.state.AddTable(c.Table("pagelinks"), "plf"); err != nil {
		return err
	}
	if err := c.state.AddTable(c.Table("page"), "pagesrc"); err != nil {
		return err
	}
	if err := c.state.AddSelect(
		Field{Alias: "sel_title", Expr: "pagesrc.page_title"},
		Field{Alias: "sel_ns", Expr: "pagesrc.page_namespace"},
	); err != nil {
		return err
	}
	c.state.AddWhere(
		"page.page_namespace = plf.pl_namespace",
		"page.page_title = plf.pl_title",
		"pagesrc.page_id = plf.pl_from",
		inList("plf.pl_from", ids),
	)
	return nil
}

func handleNotLinksFrom(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	ids := intLiterals(articleIDs(groups))
	if len(ids) == 0 {
		return nil
	}
	if c.openRefs {
		c.state.AddNotWhere("pagelinks.pl_from", ids)
		return nil
	}
	c.state.AddWhere(fmt.Sprintf(
		"NOT EXISTS (SELECT 1 FROM %s AS plnf WHERE %s AND plnf.pl_namespace = page.page_namespace AND plnf.pl_title = page.page_title)",
		c.Table("pagelinks"), inList("plnf.pl_from", ids)))
	return nil
}

func handleLinksToExternal(c *build, v params.Value) error {
	groups, ok := v.(params.StringGroups)
	if !ok {
		return unexpected(v)
	}
	c.distinctStrict()
	for i, group := range groups {
		if len(group) == 0 {
			continue
		}
		alias := "el"
		if i > 0 {
			c.linkGroups++
			alias = "elg" + strconv.Itoa(c.linkGroups)
		}
		ors := make([]string, 0, len(group))
		for _, pattern := range group {
			ors = append(ors, alias+".el_to LIKE "+c.quote(pattern))
		}
		cond := strings.Join(ors, " OR ")

		if i > 0 {
			c.state.AddWhere(fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s.el_from = page.page_id AND (%s))",
				c.Table("externallinks"), alias, alias, cond))
			continue
		}
		if err := c.state.AddTable(c.Table("externallinks"), "el"); err != nil {
			return err
		}
		if err := c.state.AddSelect(Field{Alias: "el_to", Expr: "el.el_to"}); err != nil {
			return err
		}
		c.state.AddWhere("page.page_id = el.el_from AND (" + cond + ")")
	}
	return nil
}

func handleUses(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	targets := flatten(groups)
	if len(targets) == 0 {
		return nil
	}
	if err := c.state.AddTable(c.Table("templatelinks"), "tl"); err != nil {
		return err
	}
	c.state.AddWhere("page.page_id = tl.tl_from AND (" + c.linkConditions("tl", "tl_namespace", "tl_title", targets) + ")")
	return nil
}

func handleNotUses(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	targets := flatten(groups)
	if len(targets) == 0 {
		return nil
	}
	c.state.AddWhere(fmt.Sprintf("page.page_id NOT IN (SELECT tlnu.tl_from FROM %s AS tlnu WHERE (%s))",
		c.Table("templatelinks"), c.linkConditions("tlnu", "tl_namespace", "tl_title", targets)))
	return nil
}

// handleUsedBy lists the templates transcluded by the given pages.
func handleUsedBy(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	ids := intLiterals(articleIDs(groups))
	if len(ids) == 0 {
		return nil
	}
	if err := c.state.AddTable(c.Table("templatelinks"), "tpl"); err != nil {
		return err
	}
	if err := c.state.AddTable(c.Table("page"), "tplsrc"); err != nil {
		return err
	}
	if err := c.state.AddSelect(
		Field{Alias: "tpl_sel_title", Expr: "tplsrc.page_title"},
		Field{Alias: "tpl_sel_ns", Expr: "tplsrc.page_namespace"},
	); err != nil {
		return err
	}
	c.state.AddWhere(
		"page.page_namespace = tpl.tl_namespace",
		"page.page_title = tpl.tl_title",
		"tplsrc.page_id = tpl.tl_from",
		inList("tpl.tl_from", ids),
	)
	return nil
}

func handleImageUsed(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	targets := flatten(groups)
	if len(targets) == 0 {
		return nil
	}
	c.distinctStrict()
	if err := c.state.AddTable(c.Table("imagelinks"), "il"); err != nil {
		return err
	}
	if err := c.state.AddSelect(Field{Alias: "image_sel_title", Expr: "il.il_to"}); err != nil {
		return err
	}
	ors := make([]string, 0, len(targets))
	for _, t := range targets {
		ors = append(ors, c.matchKey("il.il_to", t.DBKey()))
	}
	c.state.AddWhere("page.page_id = il.il_from AND (" + strings.Join(ors, " OR ") + ")")
	return nil
}

// handleImageContainer lists the images used by the given pages.
func handleImageContainer(c *build, v params.Value) error {
	groups, ok := v.(params.TitleGroups)
	if !ok {
		return unexpected(v)
	}
	ids := intLiterals(articleIDs(groups))
	if len(ids) == 0 {
		return nil
	}
	if err := c.state.AddTable(c.Table("imagelinks"), "ic"); err != nil {
		return err
	}
	if err := c.state.AddSelect(Field{Alias: "il_to", Expr: "ic.il_to"}); err != nil {
		return err
	}
	if !c.openRefs {
		c.state.AddWhere(
			fmt.Sprintf("page.page_namespace = %d", titles.NSFile),
			"page.page_title = ic.il_to",
		)
	}
	c.state.AddWhere(inList("ic.il_from", ids))
	return nil
}

func userValue(v params.Value) (string, error) {
	s, ok := v.(params.String)
	if !ok {
		return "", unexpected(v)
	}
	return string(s), nil
}

func handleCreatedBy(c *build, v params.Value) error {
	user, err := userValue(v)
	if err != nil {
		return err
	}
	if err := c.state.AddTable(c.Table("revision"), "creation_rev"); err != nil {
		return err
	}
	c.state.AddWhere(
		"creation_rev.rev_user_text = "+c.quote(user),
		"creation_rev.rev_page = page.page_id",
		"creation_rev.rev_parent_id = 0",
	)
	return nil
}

func handleNotCreatedBy(c *build, v params.Value) error {
	user, err := userValue(v)
	if err != nil {
		return err
	}
	if err := c.state.AddTable(c.Table("revision"), "no_creation_rev"); err != nil {
		return err
	}
	c.state.AddWhere(
		"no_creation_rev.rev_user_text != "+c.quote(user),
		"no_creation_rev.rev_page = page.page_id",
		"no_creation_rev.rev_parent_id = 0",
	)
	return nil
}

func handleModifiedBy(c *build, v params.Value) error {
	user, err := userValue(v)
	if err != nil {
		return err
	}
	if err := c.state.AddTable(c.Table("revision"), "change_rev"); err != nil {
		return err
	}
	c.state.AddWhere(
		"change_rev.rev_user_text = "+c.quote(user),
		"change_rev.rev_page = page.page_id",
	)
	return nil
}

func handleNotModifiedBy(c *build, v params.Value) error {
	user, err := userValue(v)
	if err != nil {
		return err
	}
	c.state.AddWhere(fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s AS nmr WHERE nmr.rev_page = page.page_id AND nmr.rev_user_text = %s)",
		c.Table("revision"), c.quote(user)))
	return nil
}

// lastModifiedByHandler compares the user of the newest revision. The newest
// revision is the one with the highest id.
func lastModifiedByHandler(op string) handlerFunc {
	return func(c *build, v params.Value) error {
		user, err := userValue(v)
		if err != nil {
			return err
		}
		rev := c.Table("revision")
		c.state.AddWhere(fmt.Sprintf(
			"%s %s (SELECT lmr.rev_user_text FROM %s AS lmr WHERE lmr.rev_page = page.page_id AND lmr.rev_id = (SELECT MAX(lmr2.rev_id) FROM %s AS lmr2 WHERE lmr2.rev_page = page.page_id))",
			c.quote(user), op, rev, rev))
		return nil
	}
}

func (c *build) addRevision() error {
	return c.state.AddTable(c.Table("revision"), "rev")
}

func (c *build) addRevisionFields() error {
	return c.state.AddSelect(
		Field{Alias: "rev_id", Expr: "rev.rev_id"},
		Field{Alias: "rev_timestamp", Expr: "rev.rev_timestamp"},
	)
}

func timestampValue(v params.Value) (params.Timestamp, error) {
	ts, ok := v.(params.Timestamp)
	if !ok {
		return "", unexpected(v)
	}
	return ts, nil
}

// revisionWindowHandler lists every revision on one side of a timestamp,
// newest first.
func revisionWindowHandler(op string) handlerFunc {
	return func(c *build, v params.Value) error {
		ts, err := timestampValue(v)
		if err != nil {
			return err
		}
		if err := c.addRevision(); err != nil {
			return err
		}
		if err := c.addRevisionFields(); err != nil {
			return err
		}
		c.state.SetOrderDir(Descending)
		c.state.AddOrderBy("rev.rev_id")
		c.state.AddWhere(
			"page.page_id = rev.rev_page",
			"rev.rev_timestamp "+op+" "+c.relativeTimestamp(ts),
		)
		return nil
	}
}

// boundaryRevisionHandler selects the single revision closest to a
// timestamp: the first one since, or the last one before.
func boundaryRevisionHandler(op, agg, aux string) handlerFunc {
	return func(c *build, v params.Value) error {
		ts, err := timestampValue(v)
		if err != nil {
			return err
		}
		if err := c.addRevision(); err != nil {
			return err
		}
		if err := c.addRevisionFields(); err != nil {
			return err
		}
		literal := c.relativeTimestamp(ts)
		c.state.AddWhere(
			"page.page_id = rev.rev_page",
			"rev.rev_timestamp "+op+" "+literal,
			fmt.Sprintf("rev.rev_timestamp = (SELECT %s(%s.rev_timestamp) FROM %s AS %s WHERE %s.rev_page = rev.rev_page AND %s.rev_timestamp %s %s)",
				agg, aux, c.Table("revision"), aux, aux, aux, op, literal),
		)
		return nil
	}
}

func revisionCountHandler(op, aux string) handlerFunc {
	return func(c *build, v params.Value) error {
		n, ok := v.(params.Int)
		if !ok {
			return unexpected(v)
		}
		c.state.AddWhere(fmt.Sprintf("((SELECT COUNT(%s.rev_page) FROM %s AS %s WHERE %s.rev_page = page.page_id) %s %d)",
			aux, c.Table("revision"), aux, aux, op, int(n)))
		return nil
	}
}

func handleMinorEdits(c *build, v params.Value) error {
	if s, _ := v.(params.String); s == "exclude" {
		c.state.AddWhere("rev.rev_minor_edit = 0")
	}
	return nil
}

func handleRedirects(c *build, v params.Value) error {
	if c.openRefs {
		return nil
	}
	switch s, _ := v.(params.String); s {
	case "only":
		c.state.AddWhere("page.page_is_redirect = 1")
	case "exclude":
		c.state.AddWhere("page.page_is_redirect = 0")
	}
	return nil
}

// flaggedHandler filters on the review state in flaggedpages. Both stable
// and quality filters share one join.
func flaggedHandler(only, exclude string) handlerFunc {
	return func(c *build, v params.Value) error {
		s, _ := v.(params.String)
		if s != "only" && s != "exclude" {
			return nil
		}
		if !c.state.HasJoin("fp") {
			if err := c.state.AddTable(c.Table("flaggedpages"), "fp"); err != nil {
				return err
			}
			if err := c.state.AddJoin("fp", JoinSpec{Type: LeftJoin, On: "page.page_id = fp.fp_page_id"}); err != nil {
				return err
			}
		}
		if s == "only" {
			c.state.AddWhere(only)
		} else {
			c.state.AddWhere(exclude)
		}
		return nil
	}
}

func handleOrderCollation(c *build, v params.Value) error {
	s, ok := v.(params.String)
	if !ok {
		return unexpected(v)
	}
	c.state.SetCollation(string(s))
	return nil
}

// addUserFields selects the user of each listed revision. rev is tied to
// the page here; the order and add handlers narrow it further.
func (c *build) addUserFields() error {
	if err := c.addRevision(); err != nil {
		return err
	}
	c.state.AddWhere("page.page_id = rev.rev_page")
	return c.state.AddSelect(
		Field{Alias: "rev_user", Expr: "rev.rev_user"},
		Field{Alias: "rev_user_text", Expr: "rev.rev_user_text"},
		Field{Alias: "rev_comment", Expr: "rev.rev_comment"},
	)
}

// boundaryEdit pins rev to the first (MIN) or last (MAX) revision of the page.
func (c *build) boundaryEdit(agg, aux string) error {
	if err := c.addRevision(); err != nil {
		return err
	}
	c.state.AddWhere(
		"page.page_id = rev.rev_page",
		fmt.Sprintf("rev.rev_timestamp = (SELECT %s(%s.rev_timestamp) FROM %s AS %s WHERE %s.rev_page = rev.rev_page)",
			agg, aux, c.Table("revision"), aux, aux),
	)
	return nil
}

func handleAddAuthor(c *build) error {
	if err := c.boundaryEdit("MIN", "rev_aux_min"); err != nil {
		return err
	}
	return c.addUserFields()
}

func handleAddLastEditor(c *build) error {
	if err := c.boundaryEdit("MAX", "rev_aux_max"); err != nil {
		return err
	}
	return c.addUserFields()
}

func handleAddUser(c *build) error {
	return c.addUserFields()
}

// handleAddCategories selects the page's categories through a correlated
// sub-select, leaving the outer statement ungrouped.
func handleAddCategories(c *build) error {
	expr := fmt.Sprintf("(SELECT %s FROM %s AS cl_gc WHERE cl_gc.cl_from = page.page_id)",
		c.dialect.GroupConcat("cl_gc.cl_to", " | "), c.Table("categorylinks"))
	return c.state.AddSelect(Field{Alias: "cats", Expr: expr})
}

// handleAddContribution sums the recent change volume per page. Pages
// without recent changes are dropped.
func handleAddContribution(c *build) error {
	perPage := func(expr string) string {
		return fmt.Sprintf("(SELECT %s FROM %s AS rc WHERE rc.rc_cur_id = page.page_id)", expr, c.Table("recentchanges"))
	}
	if err := c.state.AddSelect(
		Field{Alias: "contribution", Expr: perPage("SUM(ABS(rc.rc_new_len - rc.rc_old_len))")},
		Field{Alias: "contributor", Expr: perPage("MAX(rc.rc_user_text)")},
	); err != nil {
		return err
	}
	c.state.AddWhere("EXISTS " + perPage("1"))
	return nil
}

func handleAddEditDate(c *build) error {
	if err := c.addRevision(); err != nil {
		return err
	}
	if err := c.state.AddSelect(Field{Alias: "rev_timestamp", Expr: "rev.rev_timestamp"}); err != nil {
		return err
	}
	c.state.AddWhere("page.page_id = rev.rev_page")
	return nil
}

func (c *build) firstCategoryDate() Field {
	return Field{Alias: "cl_timestamp", Expr: c.dialect.FormatTimestamp("cl1.cl_timestamp")}
}

func handleAddFirstCategoryDate(c *build) error {
	return c.state.AddSelect(c.firstCategoryDate())
}

func (c *build) addHitCounter() error {
	if c.state.HasJoin("hit_counter") {
		return nil
	}
	if err := c.state.AddTable(c.Table("hit_counter"), "hit_counter"); err != nil {
		return err
	}
	return c.state.AddJoin("hit_counter", JoinSpec{Type: LeftJoin, On: "hit_counter.page_id = page.page_id"})
}

func handleAddPageCounter(c *build) error {
	if err := c.addHitCounter(); err != nil {
		return err
	}
	return c.state.AddSelect(Field{Alias: "page_counter", Expr: "hit_counter.page_counter"})
}

func handleAddPageSize(c *build) error {
	return c.state.AddSelect(Field{Alias: "page_len", Expr: "page.page_len"})
}

func handleAddPageTouchedDate(c *build) error {
	return c.state.AddSelect(Field{Alias: "page_touched", Expr: "page.page_touched"})
}
