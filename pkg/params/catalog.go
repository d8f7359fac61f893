package params

import "regexp"

// OrderMethodValues lists the accepted ordermethod entries.
var OrderMethodValues = []string{
	"counter", "size", "category", "sortkey", "categoryadd", "firstedit", "lastedit",
	"pagetouched", "pagesel", "title", "titlewithoutnamespace", "user", "none",
}

// ModeValues lists the accepted list modes.
var ModeValues = []string{
	"category", "definition", "gallery", "inline", "none", "ordered", "subpage", "unordered", "userformat",
}

var categoriesMinMaxPattern = regexp.MustCompile(`^(\d*),?(\d*)$`)

func boolParam(name, description string, def bool, conflict bool) *Definition {
	return &Definition{
		Name:            name,
		Description:     description,
		Kind:            KindBool,
		Default:         Bool(def),
		OpenRefConflict: conflict,
	}
}

func userParam(name, description string) *Definition {
	return &Definition{
		Name:            name,
		Description:     description,
		Kind:            KindString,
		PreserveCase:    true,
		Screen:          true,
		SetsCriteria:    true,
		OpenRefConflict: true,
	}
}

func revisionWindowParam(name, description string) *Definition {
	return &Definition{
		Name:            name,
		Description:     description,
		Kind:            KindTimestamp,
		SetsCriteria:    true,
		OpenRefConflict: true,
	}
}

func pageListParam(name, description string, mustExist, conflict bool) *Definition {
	return &Definition{
		Name:              name,
		Description:       description,
		Kind:              KindPageNameList,
		PageNameMustExist: mustExist,
		SetsCriteria:      true,
		OpenRefConflict:   conflict,
	}
}

func textParam(name, description string) *Definition {
	return &Definition{
		Name:         name,
		Description:  description,
		Kind:         KindString,
		PreserveCase: true,
		StripHTML:    true,
	}
}

func catalog() []*Definition {
	return []*Definition{
		// Category selection
		{Name: "category", Description: "pages in these categories; | is OR, & is AND, +/- mark headings, * and ** expand subcategories", Kind: KindCustom, PreserveCase: true, SetsCriteria: true, OpenRefConflict: true, Handler: handleCategory},
		{Name: "categorymatch", Description: "category LIKE patterns", Kind: KindCustom, PreserveCase: true, Screen: true, SetsCriteria: true, OpenRefConflict: true, Handler: handleCategoryMatch},
		{Name: "categoryregexp", Description: "category regular expression", Kind: KindCustom, PreserveCase: true, Screen: true, SetsCriteria: true, OpenRefConflict: true, Handler: handleCategoryRegexp},
		{Name: "notcategory", Description: "exclude pages in this category", Kind: KindCustom, PreserveCase: true, SetsCriteria: true, OpenRefConflict: true, Handler: handleNotCategory},
		{Name: "notcategorymatch", Description: "exclude categories matching LIKE patterns", Kind: KindCustom, PreserveCase: true, Screen: true, SetsCriteria: true, OpenRefConflict: true, Handler: handleNotCategoryMatch},
		{Name: "notcategoryregexp", Description: "exclude categories matching a regular expression", Kind: KindCustom, PreserveCase: true, Screen: true, SetsCriteria: true, OpenRefConflict: true, Handler: handleNotCategoryRegexp},
		{Name: "categoriesminmax", Description: "min,max number of categories a page belongs to", Kind: KindCustom, Pattern: categoriesMinMaxPattern, OpenRefConflict: true, Handler: handleCategoriesMinMax},
		{Name: "articlecategory", Description: "talk pages whose article is in this category", Kind: KindString, PreserveCase: true, DBFormat: true, Screen: true, OpenRefConflict: true},

		// Namespaces and titles
		{Name: "namespace", Description: "namespaces to include, | separated", Kind: KindCustom, SetsCriteria: true, Handler: handleNamespace},
		{Name: "notnamespace", Description: "namespaces to exclude, | separated", Kind: KindCustom, SetsCriteria: true, Handler: handleNotNamespace},
		{Name: "title", Description: "exactly this page", Kind: KindCustom, PreserveCase: true, SetsCriteria: true, OpenRefConflict: true, Handler: handleTitle},
		{Name: "titlematch", Description: "title LIKE patterns", Kind: KindCustom, PreserveCase: true, Screen: true, SetsCriteria: true, Handler: titleMatchHandler("title", CompareLike)},
		{Name: "titleregexp", Description: "title regular expressions", Kind: KindCustom, PreserveCase: true, Screen: true, SetsCriteria: true, Handler: titleMatchHandler("title", CompareRegexp)},
		{Name: "nottitlematch", Description: "exclude title LIKE patterns", Kind: KindCustom, PreserveCase: true, Screen: true, SetsCriteria: true, Handler: titleMatchHandler(KeyNotTitle, CompareLike)},
		{Name: "nottitleregexp", Description: "exclude title regular expressions", Kind: KindCustom, PreserveCase: true, Screen: true, SetsCriteria: true, Handler: titleMatchHandler(KeyNotTitle, CompareRegexp)},
		{Name: "titlegt", Description: "titles after this one (=_ prefix: inclusive)", Kind: KindString, PreserveCase: true, DBFormat: true, Screen: true},
		{Name: "titlelt", Description: "titles before this one (=_ prefix: inclusive)", Kind: KindString, PreserveCase: true, DBFormat: true, Screen: true},

		// Link relations
		pageListParam("linksto", "pages linking to these pages", false, true),
		pageListParam("notlinksto", "pages not linking to these pages", false, true),
		pageListParam("linksfrom", "pages linked from these pages", true, false),
		pageListParam("notlinksfrom", "pages not linked from these pages", true, false),
		{Name: "linkstoexternal", Description: "pages linking to these external URL patterns", Kind: KindList, Screen: true, PreserveCase: true, SetsCriteria: true, OpenRefConflict: true},
		pageListParam("uses", "pages transcluding these templates", false, true),
		pageListParam("notuses", "pages not transcluding these templates", false, true),
		pageListParam("usedby", "templates transcluded by these pages", true, true),
		pageListParam("imageused", "pages using these images", false, true),
		pageListParam("imagecontainer", "images used by these pages", true, false),

		// Authors and revisions
		userParam("createdby", "pages created by this user"),
		userParam("notcreatedby", "pages not created by this user"),
		userParam("modifiedby", "pages modified by this user"),
		userParam("notmodifiedby", "pages never modified by this user"),
		userParam("lastmodifiedby", "pages last modified by this user"),
		userParam("notlastmodifiedby", "pages not last modified by this user"),
		revisionWindowParam("allrevisionsbefore", "all revisions before this time"),
		revisionWindowParam("allrevisionssince", "all revisions since this time"),
		revisionWindowParam("firstrevisionsince", "first revision since this time"),
		revisionWindowParam("lastrevisionbefore", "last revision before this time"),
		{Name: "minrevisions", Description: "pages with at least this many revisions", Kind: KindInt, OpenRefConflict: true},
		{Name: "maxrevisions", Description: "pages with at most this many revisions", Kind: KindInt, OpenRefConflict: true},
		{Name: "minoredits", Description: "include or exclude minor edits", Kind: KindString, Values: []string{"include", "exclude"}, OpenRefConflict: true},

		// Page properties
		{Name: "redirects", Description: "include, only or exclude redirects", Kind: KindString, Values: []string{"include", "only", "exclude"}, Default: String("exclude"), OpenRefConflict: true},
		{Name: "stablepages", Description: "include, only or exclude stable pages", Kind: KindString, Values: []string{"include", "only", "exclude"}, OpenRefConflict: true},
		{Name: "qualitypages", Description: "include, only or exclude quality pages", Kind: KindString, Values: []string{"include", "only", "exclude"}, OpenRefConflict: true},
		boolParam("includesubpages", "include subpages", true, false),
		boolParam("skipthispage", "skip the invoking page", true, false),
		boolParam("ignorecase", "case-insensitive title and link matching", false, false),

		// Query shape
		{Name: "goal", Description: "pages or categories", Kind: KindString, Values: []string{"pages", "categories"}, Default: String("pages"), OpenRefConflict: true},
		{Name: "openreferences", Description: "list link targets, including missing pages", Kind: KindCustom, Default: Bool(false), Handler: handleOpenReferences},
		{Name: "distinct", Description: "true, false or strict", Kind: KindCustom, Default: DistinctOn, Handler: handleDistinct},
		{Name: "count", Description: "maximum number of results", Kind: KindCustom, Handler: handleCount},
		{Name: "offset", Description: "skip this many results", Kind: KindInt, Default: Int(0)},
		{Name: "randomcount", Description: "pick this many results at random", Kind: KindInt},
		{Name: "randomseed", Description: "seed for reproducible random picks", Kind: KindCustom, PreserveCase: true, Handler: handleRandomSeed},
		{Name: "order", Description: "ascending or descending", Kind: KindString, Values: []string{"ascending", "descending"}, Default: String("ascending")},
		{Name: "ordermethod", Description: "comma separated sort keys", Kind: KindCustom, Values: OrderMethodValues, Multiple: true, Default: OrderMethods{"title"}, Handler: handleOrderMethod},
		{Name: "ordercollation", Description: "SQL collation for sorting, or bridge for card suits", Kind: KindCustom, Handler: handleOrderCollation},

		// Enrichment
		boolParam("addauthor", "add the page creator", false, true),
		boolParam("addlasteditor", "add the last editor", false, true),
		boolParam("adduser", "add the revision user", false, true),
		boolParam("addcategories", "add the page categories", false, true),
		boolParam("addcontribution", "add recent change volume and contributor", false, true),
		boolParam("addeditdate", "add the revision date", false, true),
		boolParam("addexternallink", "add the matched external link", false, false),
		boolParam("addfirstcategorydate", "add the date the page entered the first category", false, true),
		boolParam("addpagecounter", "add the view counter", false, true),
		boolParam("addpagesize", "add the page length", false, true),
		boolParam("addpagetoucheddate", "add the page touched date", false, true),

		// Output shaping consumed by the record builder and checks
		boolParam("shownamespace", "show the namespace in titles", true, false),
		boolParam("escapelinks", "colon-prefix category and file links", true, false),
		boolParam("showcurid", "link by current page id", false, false),
		boolParam("headingcount", "show the number of pages per heading", false, false),
		{Name: "titlemaxlength", Description: "truncate titles to this many characters", Kind: KindInt},
		{Name: "replaceintitle", Description: "/pattern/,replacement applied to titles", Kind: KindCustom, PreserveCase: true, Screen: true, Handler: handleReplaceInTitle},
		{Name: "userdateformat", Description: "date format for dates", Kind: KindString, PreserveCase: true, StripHTML: true},
		{Name: "mode", Description: "list mode", Kind: KindCustom, Values: ModeValues, Default: String("unordered"), Handler: handleMode},
		{Name: "headingmode", Description: "heading list mode", Kind: KindString, Values: []string{"none", "ordered", "unordered", "definition", "h2", "h3", "h4"}, Default: String("none")},
		{Name: "include", Description: "section labels to include", Kind: KindCustom, PreserveCase: true, Handler: handleInclude},
		{Name: "includepage", Description: "alias of include", Kind: KindCustom, PreserveCase: true, Handler: handleInclude},
		{Name: "dominantsection", Description: "index of the dominant included section", Kind: KindInt, Default: Int(-1)},
		textParam("resultsheader", "text before the results"),
		textParam("resultsfooter", "text after the results"),
		textParam("noresultsheader", "text when nothing matched"),
		textParam("oneresultheader", "text before a single result"),
		textParam("oneresultfooter", "text after a single result"),
		{Name: "debug", Description: "diagnostic level 0-5; 3 and above records the SQL", Kind: KindInt, Values: []string{"0", "1", "2", "3", "4", "5"}, Default: Int(1), Permission: PermissionDebug},
	}
}

// PermissionDebug allows raising the debug level, which exposes generated SQL.
const PermissionDebug = "pagelist-debug"
