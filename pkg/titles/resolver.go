package titles

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
)

// PageLookup finds the id of an existing page.
// Implementations return an error wrapping apperrors.ErrNotFound for missing pages.
type PageLookup interface {
	PageID(ctx context.Context, namespace int, dbKey string) (int64, error)
}

// Resolver turns user text into titles of existing pages.
type Resolver interface {
	// Resolve parses text (a namespace prefix in text wins over namespace) and
	// looks up the page id. Missing pages wrap apperrors.ErrNotFound; text that
	// cannot name a page wraps ErrInvalidTitle.
	Resolve(ctx context.Context, namespace int, text string) (Title, error)

	// Namespaces returns the namespace table used for parsing.
	Namespaces() *Namespaces
}

type resolver struct {
	namespaces *Namespaces
	lookup     PageLookup
}

// NewResolver creates a Resolver backed by lookup.
func NewResolver(namespaces *Namespaces, lookup PageLookup) Resolver {
	return &resolver{
		namespaces: namespaces,
		lookup:     lookup,
	}
}

func (r *resolver) Namespaces() *Namespaces {
	return r.namespaces
}

func (r *resolver) Resolve(ctx context.Context, namespace int, text string) (Title, error) {
	title, err := r.namespaces.Parse(text, namespace)
	if err != nil {
		return Title{}, err
	}

	if r.lookup == nil {
		return Title{}, fmt.Errorf("no page lookup configured for %q: %w", title.PrefixedText(), apperrors.ErrNotFound)
	}

	id, err := r.lookup.PageID(ctx, title.Namespace, title.DBKey())
	if err != nil {
		return Title{}, fmt.Errorf("failed to resolve %q: %w", title.PrefixedText(), err)
	}

	title.ArticleID = id
	return title, nil
}

// Equal reports whether two titles name the same page.
func Equal(a, b Title) bool {
	return a.Namespace == b.Namespace && a.DBKey() == b.DBKey()
}

// MapLookup is an in-memory PageLookup keyed by Key(namespace, dbKey).
type MapLookup map[string]int64

// PageID implements PageLookup.
func (m MapLookup) PageID(_ context.Context, namespace int, dbKey string) (int64, error) {
	if id, ok := m[Key(namespace, dbKey)]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("page %s: %w", Key(namespace, dbKey), apperrors.ErrNotFound)
}

// Key returns the MapLookup key for a namespace and db key.
func Key(namespace int, dbKey string) string {
	return fmt.Sprintf("%d:%s", namespace, dbKey)
}
