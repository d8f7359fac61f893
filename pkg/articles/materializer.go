package articles

import (
	"fmt"
	"html"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

// maxContribStars caps the contribution bar.
const maxContribStars = 17

var revisionWindowParams = []string{"lastrevisionbefore", "allrevisionsbefore", "firstrevisionsince", "allrevisionssince"}

// options is the subset of the parameter store the materializer reads,
// captured once per evaluation.
type options struct {
	goalCategories  bool
	openReferences  bool
	imageContainer  bool
	includeSubpages bool
	skipThisPage    bool
	showCurID       bool
	escapeLinks     bool
	showNamespace   bool
	replace         *params.Replace
	titleMaxLength  int
	addPageSize     bool
	selectedPage    bool
	selectedImage   bool
	revisionWindow  bool
	addTouchedDate  bool
	addCategoryDate bool
	addEditDate     bool
	userDateFormat  string
	addContribution bool
	addUser         bool
	addCategories   bool
	headingBy       string
}

func optionsFromStore(store *params.Store) options {
	o := options{
		goalCategories:  store.GoalCategories(),
		openReferences:  store.OpenReferences(),
		imageContainer:  store.ImageContainer(),
		includeSubpages: store.Bool("includesubpages"),
		skipThisPage:    store.Bool("skipthispage"),
		showCurID:       store.Bool("showcurid"),
		escapeLinks:     store.Bool("escapelinks"),
		showNamespace:   store.Bool("shownamespace"),
		addPageSize:     store.Bool("addpagesize"),
		selectedPage:    len(store.TitleGroups("linksto")) > 0 || len(store.TitleGroups("linksfrom")) > 0,
		selectedImage:   len(store.TitleGroups("imageused")) > 0,
		addTouchedDate:  store.Bool("addpagetoucheddate"),
		addCategoryDate: store.Bool("addfirstcategorydate"),
		addEditDate:     store.Bool("addeditdate"),
		userDateFormat:  store.String("userdateformat"),
		addContribution: store.Bool("addcontribution"),
		addUser:         store.Bool("adduser") || store.Bool("addauthor") || store.Bool("addlasteditor"),
		addCategories:   store.Bool("addcategories"),
	}
	if r, ok := store.Replace(); ok {
		o.replace = &r
	}
	if n, ok := store.Int("titlemaxlength"); ok && n > 0 {
		o.titleMaxLength = n
	}
	for _, name := range revisionWindowParams {
		if store.Has(name) {
			o.revisionWindow = true
		}
	}
	if mode := store.String("headingmode"); mode != "" && mode != "none" {
		switch first := store.FirstOrderMethod(); first {
		case "category", "user":
			o.headingBy = first
		}
	}
	return o
}

// Materializer turns result rows into Articles. It is owned by one
// evaluation and carries that evaluation's heading counter.
type Materializer struct {
	opts       options
	namespaces *titles.Namespaces
	scriptPath string
	location   *time.Location
	current    *titles.Title
	headings   *HeadingCounter
	logger     *zap.Logger
}

// NewMaterializer creates a materializer for one evaluation. current is the
// invoking page and may be nil.
func NewMaterializer(store *params.Store, namespaces *titles.Namespaces, wiki config.WikiConfig, current *titles.Title, logger *zap.Logger) *Materializer {
	return &Materializer{
		opts:       optionsFromStore(store),
		namespaces: namespaces,
		scriptPath: wiki.ScriptPath,
		location:   wiki.Location(),
		current:    current,
		headings:   NewHeadingCounter(),
		logger:     logger.Named("articles"),
	}
}

// Headings returns the heading counter filled by Build.
func (m *Materializer) Headings() *HeadingCounter {
	return m.headings
}

// Build materializes one row. It returns false when the row is skipped
// (subpage or the invoking page).
func (m *Materializer) Build(row map[string]any) (*Article, bool, error) {
	namespace, dbKey, err := m.identity(row)
	if err != nil {
		return nil, false, err
	}

	if !m.opts.includeSubpages && strings.Contains(dbKey, "/") {
		return nil, false, nil
	}

	title := m.makeTitle(namespace, dbKey)
	if m.opts.skipThisPage && m.current != nil && titles.Equal(*m.current, title) {
		m.logger.Debug("Skipping invoking page", zap.String("title", title.PrefixedText()))
		return nil, false, nil
	}

	a := &Article{
		Namespace:    namespace,
		Title:        title.Text,
		PrefixedText: title.PrefixedText(),
	}
	if id, ok := rowInt(row, "page_id"); ok {
		a.ID = id
	}

	a.DisplayTitle = m.titleText(title)
	a.EscapedTitle = html.EscapeString(a.DisplayTitle)
	a.Link = m.link(title, a)
	a.StartChar = startChar(row, dbKey)

	if s, ok := rowString(row, "el_to"); ok {
		a.ExternalLink = s
	}
	if n, ok := rowInt(row, "page_counter"); ok {
		a.Counter = n
	}
	if m.opts.addPageSize {
		if n, ok := rowInt(row, "page_len"); ok {
			a.Size = &n
		}
	}
	if m.opts.selectedPage {
		a.SelTitle, a.SelNamespace = UnknownPage, titles.NSMain
		if s, ok := rowString(row, "sel_title"); ok {
			a.SelTitle = s
			ns, _ := rowInt(row, "sel_ns")
			a.SelNamespace = int(ns)
		}
	}
	if m.opts.selectedImage {
		a.ImageSelTitle = UnknownImage
		if s, ok := rowString(row, "image_sel_title"); ok {
			a.ImageSelTitle = s
		}
	}

	if m.opts.goalCategories {
		return a, true, nil
	}

	if err := m.setRevision(a, row); err != nil {
		return nil, false, err
	}
	if err := m.setDate(a, row); err != nil {
		return nil, false, err
	}
	m.setContribution(a, row)
	if m.opts.addUser {
		user, _ := rowString(row, "rev_user_text")
		a.User = user
		a.UserLink = userLink(user)
	}
	if m.opts.addCategories {
		if cats, ok := rowString(row, "cats"); ok {
			a.CategoryLinks, a.CategoryTexts = splitCategories(cats)
		}
	}
	m.setHeading(a, row)

	return a, true, nil
}

// identity picks the listed title's namespace and db key for the mode.
func (m *Materializer) identity(row map[string]any) (int, string, error) {
	var nsCol, titleCol string
	switch {
	case m.opts.goalCategories:
		s, ok := rowString(row, "cl_to")
		if !ok {
			return 0, "", missingColumn("cl_to")
		}
		return titles.NSCategory, s, nil
	case m.opts.openReferences && m.opts.imageContainer:
		s, ok := rowString(row, "il_to")
		if !ok {
			return 0, "", missingColumn("il_to")
		}
		return titles.NSFile, s, nil
	case m.opts.openReferences:
		nsCol, titleCol = "pl_namespace", "pl_title"
	default:
		nsCol, titleCol = "page_namespace", "page_title"
	}

	ns, ok := rowInt(row, nsCol)
	if !ok {
		return 0, "", missingColumn(nsCol)
	}
	s, ok := rowString(row, titleCol)
	if !ok {
		return 0, "", missingColumn(titleCol)
	}
	return int(ns), s, nil
}

// makeTitle builds a title from stored values without validating them.
func (m *Materializer) makeTitle(namespace int, dbKey string) titles.Title {
	name, ok := m.namespaces.Name(namespace)
	if !ok && namespace != titles.NSMain {
		name = strconv.Itoa(namespace)
	}
	return titles.Title{
		Namespace:     namespace,
		Text:          strings.ReplaceAll(dbKey, "_", " "),
		NamespaceName: name,
	}
}

func (m *Materializer) titleText(title titles.Title) string {
	text := title.Text
	if m.opts.showNamespace {
		text = title.PrefixedText()
	}
	if m.opts.replace != nil {
		text = m.opts.replace.Pattern.ReplaceAllString(text, m.opts.replace.Replacement)
	}
	if limit := m.opts.titleMaxLength; limit > 0 && utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		text = string(runes[:limit]) + "..."
	}
	return text
}

func (m *Materializer) link(title titles.Title, a *Article) string {
	if m.opts.showCurID && a.ID > 0 {
		return fmt.Sprintf("[%s %s]", m.curIDURL(title, a.ID), a.EscapedTitle)
	}

	var b strings.Builder
	b.WriteString("[[")
	if m.opts.escapeLinks && (title.Namespace == titles.NSCategory || title.Namespace == titles.NSFile) {
		b.WriteByte(':')
	}
	b.WriteString(title.PrefixedText())
	b.WriteByte('|')
	b.WriteString(a.EscapedTitle)
	b.WriteString("]]")
	return b.String()
}

var titleURLUnescaper = strings.NewReplacer("%3A", ":", "%2F", "/")

func (m *Materializer) curIDURL(title titles.Title, id int64) string {
	escaped := titleURLUnescaper.Replace(url.QueryEscape(title.PrefixedDBKey()))
	return fmt.Sprintf("%s?title=%s&curid=%d", m.scriptPath, escaped, id)
}

func (m *Materializer) setRevision(a *Article, row map[string]any) error {
	if !m.opts.revisionWindow {
		return nil
	}
	a.Revision, _ = rowInt(row, "rev_id")
	a.User, _ = rowString(row, "rev_user_text")
	a.Comment, _ = rowString(row, "rev_comment")
	if v, ok := row["rev_timestamp"]; ok && v != nil {
		ts, err := parseTimestamp(v)
		if err != nil {
			return fmt.Errorf("failed to parse rev_timestamp: %w", err)
		}
		local := ts.In(m.location)
		a.Date = &local
	}
	return nil
}

// setDate applies the first requested date source: page touched, first
// category date, then edit date (falling back to page touched).
func (m *Materializer) setDate(a *Article, row map[string]any) error {
	var column string
	switch {
	case m.opts.addTouchedDate:
		column = "page_touched"
	case m.opts.addCategoryDate:
		column = "cl_timestamp"
	case m.opts.addEditDate && hasValue(row, "rev_timestamp"):
		column = "rev_timestamp"
	case m.opts.addEditDate && hasValue(row, "page_touched"):
		column = "page_touched"
	default:
		return nil
	}
	if !hasValue(row, column) {
		return nil
	}

	ts, err := parseTimestamp(row[column])
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", column, err)
	}
	local := ts.In(m.location)
	a.Date = &local
	if m.opts.userDateFormat != "" {
		a.UserDate = FormatPHPDate(local, m.opts.userDateFormat)
	}
	return nil
}

func (m *Materializer) setContribution(a *Article, row map[string]any) {
	if !m.opts.addContribution {
		return
	}
	a.Contribution, _ = rowInt(row, "contribution")
	a.Contributor, _ = rowString(row, "contributor")
	a.Contrib = ContributionBar(a.Contribution)
}

func (m *Materializer) setHeading(a *Article, row map[string]any) {
	switch m.opts.headingBy {
	case "category":
		cat, _ := rowString(row, "cl_to")
		a.HeadingKey = cat
		if cat == "" {
			a.HeadingLink = "[[:Special:Uncategorizedpages|Uncategorized pages]]"
		} else {
			a.HeadingLink = categoryLink(cat)
		}
	case "user":
		user, _ := rowString(row, "rev_user_text")
		a.HeadingKey = user
		a.HeadingLink = userLink(user)
	default:
		return
	}
	m.headings.setLink(a.HeadingKey, a.HeadingLink)
	a.HeadingCount = m.headings.Increment(a.HeadingKey)
}

// ContributionBar returns round(ln(contribution)) stars, at most 17.
func ContributionBar(contribution int64) string {
	if contribution <= 1 {
		return ""
	}
	n := int(math.Round(math.Log(float64(contribution))))
	n = min(max(n, 0), maxContribStars)
	return strings.Repeat("*", n)
}

func userLink(user string) string {
	return fmt.Sprintf("[[User:%s|%s]]", user, user)
}

func categoryLink(dbKey string) string {
	return fmt.Sprintf("[[:Category:%s|%s]]", dbKey, strings.ReplaceAll(dbKey, "_", " "))
}

// splitCategories parses a " | " joined category aggregate into sorted,
// de-duplicated links and display texts.
func splitCategories(joined string) ([]string, []string) {
	var names []string
	for _, name := range strings.Split(joined, " | ") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)

	links := make([]string, 0, len(names))
	texts := make([]string, 0, len(names))
	for _, name := range names {
		links = append(links, categoryLink(name))
		texts = append(texts, strings.ReplaceAll(name, "_", " "))
	}
	return links, texts
}

// startChar is the upper-cased first character of the sort key, or of the
// title when the row has no sort key.
func startChar(row map[string]any, dbKey string) string {
	source := dbKey
	if s, ok := rowString(row, "sortkey"); ok && s != "" {
		source = s
	}
	r, _ := utf8.DecodeRuneInString(source)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

func missingColumn(name string) error {
	return fmt.Errorf("result row has no %s column", name)
}
