package articles

import (
	"time"
)

const (
	// UnknownPage marks a linksto/linksfrom row that did not carry the matched title.
	UnknownPage = "unknown page"
	// UnknownImage marks an imageused row that did not carry the matched image.
	UnknownImage = "unknown image"
)

// Article is one materialized result row.
type Article struct {
	ID           int64  `json:"id" yaml:"id"`
	Namespace    int    `json:"namespace" yaml:"namespace"`
	Title        string `json:"title" yaml:"title"`
	PrefixedText string `json:"prefixed_text" yaml:"prefixed_text"`
	Link         string `json:"link" yaml:"link"`
	// DisplayTitle is the title text after shownamespace, replaceintitle and
	// titlemaxlength were applied. EscapedTitle is the same text HTML-escaped.
	DisplayTitle string `json:"display_title" yaml:"display_title"`
	EscapedTitle string `json:"escaped_title" yaml:"escaped_title"`
	StartChar    string `json:"start_char,omitempty" yaml:"start_char,omitempty"`

	ExternalLink string `json:"external_link,omitempty" yaml:"external_link,omitempty"`
	Counter      int64  `json:"counter,omitempty" yaml:"counter,omitempty"`
	Size         *int64 `json:"size,omitempty" yaml:"size,omitempty"`

	SelTitle      string `json:"sel_title,omitempty" yaml:"sel_title,omitempty"`
	SelNamespace  int    `json:"sel_namespace,omitempty" yaml:"sel_namespace,omitempty"`
	ImageSelTitle string `json:"image_sel_title,omitempty" yaml:"image_sel_title,omitempty"`

	Revision int64      `json:"revision,omitempty" yaml:"revision,omitempty"`
	Comment  string     `json:"comment,omitempty" yaml:"comment,omitempty"`
	Date     *time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	UserDate string     `json:"user_date,omitempty" yaml:"user_date,omitempty"`

	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	UserLink string `json:"user_link,omitempty" yaml:"user_link,omitempty"`

	Contribution int64  `json:"contribution,omitempty" yaml:"contribution,omitempty"`
	Contributor  string `json:"contributor,omitempty" yaml:"contributor,omitempty"`
	Contrib      string `json:"contrib,omitempty" yaml:"contrib,omitempty"`

	CategoryLinks []string `json:"category_links,omitempty" yaml:"category_links,omitempty"`
	CategoryTexts []string `json:"category_texts,omitempty" yaml:"category_texts,omitempty"`

	HeadingKey  string `json:"heading_key,omitempty" yaml:"heading_key,omitempty"`
	HeadingLink string `json:"heading_link,omitempty" yaml:"heading_link,omitempty"`
	// HeadingCount is the position of the article among those listed under
	// HeadingKey so far, starting at 1.
	HeadingCount int `json:"heading_count,omitempty" yaml:"heading_count,omitempty"`
}

// DisplayDate renders Date in the wiki's default style, or UserDate when a
// custom format was requested.
func (a *Article) DisplayDate() string {
	if a.UserDate != "" {
		return a.UserDate
	}
	if a.Date == nil {
		return ""
	}
	return a.Date.Format("15:04, 2 January 2006")
}
