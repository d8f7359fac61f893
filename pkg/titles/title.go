package titles

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidTitle is returned when text cannot name a page.
var ErrInvalidTitle = errors.New("invalid title")

const maxTitleBytes = 255

// Title identifies one page. Text uses spaces; DBKey uses underscores.
type Title struct {
	Namespace     int    `json:"namespace"`
	Text          string `json:"text"`
	NamespaceName string `json:"namespace_name,omitempty"`
	ArticleID     int64  `json:"article_id,omitempty"`
}

// DBKey returns the title text in database form.
func (t Title) DBKey() string {
	return strings.ReplaceAll(t.Text, " ", "_")
}

// PrefixedText returns "Namespace:Text", or just Text in the main namespace.
func (t Title) PrefixedText() string {
	if t.NamespaceName == "" {
		return t.Text
	}
	return t.NamespaceName + ":" + t.Text
}

// PrefixedDBKey returns PrefixedText in database form.
func (t Title) PrefixedDBKey() string {
	return strings.ReplaceAll(t.PrefixedText(), " ", "_")
}

// IsSubpage reports whether the title text contains a subpage separator.
func (t Title) IsSubpage() bool {
	return strings.Contains(t.Text, "/")
}

// Exists reports whether the title was matched to an existing page.
func (t Title) Exists() bool {
	return t.ArticleID > 0
}

// Parse builds a Title from user text, honoring a namespace prefix when present.
// defaultNS applies when the text has no recognized prefix.
func (n *Namespaces) Parse(text string, defaultNS int) (Title, error) {
	clean := normalizeText(text)
	if i := strings.IndexByte(clean, '#'); i >= 0 {
		clean = strings.TrimSpace(clean[:i])
	}
	clean = strings.TrimPrefix(clean, ":")

	ns := defaultNS
	if i := strings.IndexByte(clean, ':'); i > 0 {
		if id, ok := n.Index(clean[:i]); ok {
			ns = id
			clean = strings.TrimSpace(clean[i+1:])
		}
	}

	return n.FromParts(ns, clean)
}

// FromParts builds a Title from an explicit namespace and unprefixed text.
func (n *Namespaces) FromParts(namespace int, text string) (Title, error) {
	clean := normalizeText(text)
	if clean == "" {
		return Title{}, fmt.Errorf("%w: empty title", ErrInvalidTitle)
	}
	if len(clean) > maxTitleBytes {
		return Title{}, fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidTitle, clean, maxTitleBytes)
	}
	for _, r := range clean {
		if strings.ContainsRune("<>[]{}|#", r) || unicode.IsControl(r) {
			return Title{}, fmt.Errorf("%w: %q contains %q", ErrInvalidTitle, clean, r)
		}
	}

	name, ok := n.Name(namespace)
	if !ok {
		return Title{}, fmt.Errorf("%w: unknown namespace %d", ErrInvalidTitle, namespace)
	}

	return Title{
		Namespace:     namespace,
		Text:          upperFirst(clean),
		NamespaceName: name,
	}, nil
}

// normalizeText applies NFC, maps underscores to spaces and collapses runs of spaces.
func normalizeText(text string) string {
	s := norm.NFC.String(text)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
