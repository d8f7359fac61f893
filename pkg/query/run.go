package query

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/sql"
)

// Runner executes plans against one wiki database.
type Runner struct {
	exec   datasource.QueryExecutor
	logger *zap.Logger
}

// NewRunner creates a runner over exec.
func NewRunner(exec datasource.QueryExecutor, logger *zap.Logger) *Runner {
	return &Runner{exec: exec, logger: logger}
}

// Run executes the plan and returns its rows. For goal=categories the page
// ids are collected first and the categories of those pages are returned
// as rows with a single cl_to column.
func (r *Runner) Run(ctx context.Context, plan *Plan) (datasource.RowCursor, error) {
	r.logger.Debug("Running page list query",
		zap.String("dialect", plan.Dialect().Name()),
		zap.String("tables", plan.tableNames()),
		zap.Bool("goal_categories", plan.GoalCategories()))

	if !plan.GoalCategories() {
		return r.query(ctx, plan, plan.SQL())
	}

	ids, err := r.pageIDs(ctx, plan)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return datasource.NewSliceCursor([]string{"cl_to"}, nil), nil
	}
	return r.query(ctx, plan, plan.CategorySQL(ids))
}

// Count returns the number of rows the plan matches without paging.
func (r *Runner) Count(ctx context.Context, plan *Plan) (int64, error) {
	cur, err := r.query(ctx, plan, plan.CountSQL())
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return 0, fmt.Errorf("%w: %w", apperrors.ErrQueryExecution, err)
		}
		return 0, nil
	}
	row, err := cur.Row()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrQueryExecution, err)
	}
	n, err := ToInt64(row["row_count"])
	if err != nil {
		return 0, fmt.Errorf("%w: row count: %w", apperrors.ErrQueryExecution, err)
	}
	return n, nil
}

func (r *Runner) pageIDs(ctx context.Context, plan *Plan) ([]int64, error) {
	cur, err := r.query(ctx, plan, plan.PageIDSQL())
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var ids []int64
	for cur.Next() {
		row, err := cur.Row()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryExecution, err)
		}
		id, err := ToInt64(row["page_id"])
		if err != nil {
			return nil, fmt.Errorf("%w: page id: %w", apperrors.ErrQueryExecution, err)
		}
		ids = append(ids, id)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryExecution, err)
	}
	return ids, nil
}

// query validates a generated statement and sends it to the executor.
func (r *Runner) query(ctx context.Context, plan *Plan, statement string) (datasource.RowCursor, error) {
	result := sql.ValidateStatement(statement, plan.Dialect().BackslashEscapes())
	if result.Error != nil {
		return nil, fmt.Errorf("%w: generated statement rejected: %w", apperrors.ErrBuild, result.Error)
	}

	cur, err := r.exec.Query(ctx, result.NormalizedSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryExecution, err)
	}
	return cur, nil
}

// ToInt64 converts a numeric column value as returned by any of the drivers.
func ToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case nil:
		return 0, fmt.Errorf("unexpected NULL")
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}
