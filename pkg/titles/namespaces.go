// Package titles resolves wiki page titles and namespaces.
package titles

import (
	"sort"
	"strings"
)

// Canonical MediaWiki namespace ids.
const (
	NSMedia         = -2
	NSSpecial       = -1
	NSMain          = 0
	NSTalk          = 1
	NSUser          = 2
	NSUserTalk      = 3
	NSProject       = 4
	NSProjectTalk   = 5
	NSFile          = 6
	NSFileTalk      = 7
	NSMediaWiki     = 8
	NSMediaWikiTalk = 9
	NSTemplate      = 10
	NSTemplateTalk  = 11
	NSHelp          = 12
	NSHelpTalk      = 13
	NSCategory      = 14
	NSCategoryTalk  = 15
)

var canonicalNamespaces = map[int]string{
	NSMedia:         "Media",
	NSSpecial:       "Special",
	NSMain:          "",
	NSTalk:          "Talk",
	NSUser:          "User",
	NSUserTalk:      "User talk",
	NSProject:       "Project",
	NSProjectTalk:   "Project talk",
	NSFile:          "File",
	NSFileTalk:      "File talk",
	NSMediaWiki:     "MediaWiki",
	NSMediaWikiTalk: "MediaWiki talk",
	NSTemplate:      "Template",
	NSTemplateTalk:  "Template talk",
	NSHelp:          "Help",
	NSHelpTalk:      "Help talk",
	NSCategory:      "Category",
	NSCategoryTalk:  "Category talk",
}

var namespaceAliases = map[string]int{
	"image":      NSFile,
	"image talk": NSFileTalk,
}

// Namespaces maps namespace ids to display names and back.
type Namespaces struct {
	names  map[int]string
	byName map[string]int
}

// NewNamespaces returns the canonical namespaces plus extra site namespaces.
func NewNamespaces(extra map[int]string) *Namespaces {
	ns := &Namespaces{
		names:  make(map[int]string, len(canonicalNamespaces)+len(extra)),
		byName: make(map[string]int, len(canonicalNamespaces)+len(extra)+len(namespaceAliases)),
	}
	for id, name := range canonicalNamespaces {
		ns.add(id, name)
	}
	for id, name := range extra {
		ns.add(id, name)
	}
	for alias, id := range namespaceAliases {
		ns.byName[alias] = id
	}
	return ns
}

func (n *Namespaces) add(id int, name string) {
	n.names[id] = name
	n.byName[normalizeNamespaceName(name)] = id
}

func normalizeNamespaceName(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, "_", " ")))
}

// Name returns the display name of a namespace ("" for the main namespace).
func (n *Namespaces) Name(id int) (string, bool) {
	name, ok := n.names[id]
	return name, ok
}

// Index resolves a namespace name (case-insensitive, underscores allowed) to its id.
func (n *Namespaces) Index(name string) (int, bool) {
	id, ok := n.byName[normalizeNamespaceName(name)]
	return id, ok
}

// IDs returns all known namespace ids in ascending order.
func (n *Namespaces) IDs() []int {
	ids := make([]int, 0, len(n.names))
	for id := range n.names {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
