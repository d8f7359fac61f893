package repositories

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/query"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

// maxSubcategoryDepth bounds category wildcard expansion.
const maxSubcategoryDepth = 2

// CategoryViewName is the view listing every page with its categories, the
// uncategorized ones under "".
const CategoryViewName = "dpl_clview"

// WikiRepository reads the wiki metadata the validator and pre-flight checks
// need: page ids, subcategories and the category view.
type WikiRepository interface {
	titles.PageLookup
	params.SubcategoryLookup

	// HasCategoryView reports whether the dpl_clview view exists.
	HasCategoryView(ctx context.Context) (bool, error)
}

type wikiRepository struct {
	exec    datasource.QueryExecutor
	dialect query.Dialect
	prefix  string
	logger  *zap.Logger
}

// NewWikiRepository creates a repository over exec. prefix is the wiki
// table prefix, validated by the query builder.
func NewWikiRepository(exec datasource.QueryExecutor, dialect query.Dialect, prefix string, logger *zap.Logger) WikiRepository {
	return &wikiRepository{
		exec:    exec,
		dialect: dialect,
		prefix:  prefix,
		logger:  logger,
	}
}

var _ WikiRepository = (*wikiRepository)(nil)

// PageID returns the id of the page, wrapping apperrors.ErrNotFound when it
// does not exist.
func (r *wikiRepository) PageID(ctx context.Context, namespace int, dbKey string) (int64, error) {
	q := fmt.Sprintf(`SELECT page_id FROM %s WHERE page_namespace = %d AND page_title = %s`,
		r.prefix+"page", namespace, r.dialect.QuoteLiteral(dbKey))

	rows, err := r.queryColumn(ctx, q, "page_id")
	if err != nil {
		return 0, fmt.Errorf("failed to look up page: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("page %s: %w", titles.Key(namespace, dbKey), apperrors.ErrNotFound)
	}

	id, err := query.ToInt64(rows[0])
	if err != nil {
		return 0, fmt.Errorf("failed to read page id: %w", err)
	}
	return id, nil
}

// Subcategories returns the distinct subcategories of category, descending
// at most two levels.
func (r *wikiRepository) Subcategories(ctx context.Context, category string, depth int) ([]string, error) {
	depth = min(depth, maxSubcategoryDepth)
	if depth < 1 {
		return nil, nil
	}

	q := fmt.Sprintf(`SELECT DISTINCT page.page_title AS page_title FROM %s AS page INNER JOIN %s AS categorylinks ON (page.page_id = categorylinks.cl_from) WHERE page.page_namespace = %d AND categorylinks.cl_to = %s`,
		r.prefix+"page", r.prefix+"categorylinks", titles.NSCategory, r.dialect.QuoteLiteral(category))

	values, err := r.queryColumn(ctx, q, "page_title")
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories of %s: %w", category, err)
	}

	var out []string
	for _, v := range values {
		name := fmt.Sprint(v)
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
		if depth > 1 {
			deeper, err := r.Subcategories(ctx, name, depth-1)
			if err != nil {
				return nil, err
			}
			for _, d := range deeper {
				if !slices.Contains(out, d) {
					out = append(out, d)
				}
			}
		}
	}

	r.logger.Debug("Expanded subcategories",
		zap.String("category", category),
		zap.Int("depth", depth),
		zap.Int("count", len(out)))
	return out, nil
}

// HasCategoryView probes the view with a query that returns no rows.
func (r *wikiRepository) HasCategoryView(ctx context.Context) (bool, error) {
	q := fmt.Sprintf(`SELECT cl_from FROM %s WHERE 1 = 0`, r.dialect.QuoteIdentifier(r.prefix+CategoryViewName))

	cur, err := r.exec.Query(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		r.logger.Debug("Category view probe failed", zap.Error(err))
		return false, nil
	}
	defer cur.Close()
	for cur.Next() {
	}
	if err := cur.Err(); err != nil {
		r.logger.Debug("Category view probe failed", zap.Error(err))
		return false, nil
	}
	return true, nil
}

// queryColumn returns one column of every row.
func (r *wikiRepository) queryColumn(ctx context.Context, q, column string) ([]any, error) {
	cur, err := r.exec.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var out []any
	for cur.Next() {
		row, err := cur.Row()
		if err != nil {
			return nil, err
		}
		out = append(out, row[column])
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
