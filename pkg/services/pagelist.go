package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/articles"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/logging"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/postprocess"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/query"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/repositories"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/sampling"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

// debugLevelSQL is the debug level from which the generated SQL is reported.
const debugLevelSQL = 3

// PageListService evaluates page list requests against one wiki database.
type PageListService interface {
	// Evaluate runs one request. Option problems and query failures are
	// reported as diagnostics in the result; the error return is reserved
	// for malformed requests and cancellation.
	Evaluate(ctx context.Context, req *EvaluateRequest) (*Result, error)

	// Parameters returns the parameter catalog.
	Parameters() []*params.Definition
}

// EvaluateRequest is one page list invocation.
type EvaluateRequest struct {
	Input        string   `json:"input"`
	CurrentTitle string   `json:"current_title,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	Protected    bool     `json:"protected,omitempty"`
}

// Result is the outcome of one evaluation.
type Result struct {
	EvaluationID uuid.UUID                `json:"evaluation_id" yaml:"evaluation_id"`
	Records      []*articles.Article      `json:"records" yaml:"records"`
	TotalRows    *int64                   `json:"total_rows,omitempty" yaml:"total_rows,omitempty"`
	Count        int                      `json:"count" yaml:"count"`
	Headings     []articles.HeadingGroup  `json:"headings,omitempty" yaml:"headings,omitempty"`
	Diagnostics  []diagnostics.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	SQL          string                   `json:"sql,omitempty" yaml:"sql,omitempty"`
	Duration     time.Duration            `json:"duration_ns" yaml:"duration"`
}

// HasCritical reports whether evaluation was aborted.
func (r *Result) HasCritical() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diagnostics.SeverityCritical {
			return true
		}
	}
	return false
}

type pageListService struct {
	registry   *params.Registry
	runner     *query.Runner
	builder    *query.Builder
	wiki       repositories.WikiRepository
	namespaces *titles.Namespaces
	cfg        *config.Config
	logger     *zap.Logger
}

var _ PageListService = (*pageListService)(nil)

// NewPageListService creates the service over exec. The SQL dialect follows
// the executor.
func NewPageListService(exec datasource.QueryExecutor, cfg *config.Config, logger *zap.Logger) (PageListService, error) {
	dialect, err := query.DialectFor(exec.Dialect())
	if err != nil {
		return nil, err
	}

	namespaces := titles.NewNamespaces(cfg.Wiki.ExtraNamespaces)
	builder, err := query.NewBuilder(dialect, cfg.Database.TablePrefix, namespaces, cfg.PageList, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create query builder: %w", err)
	}

	return &pageListService{
		registry:   params.NewRegistry(),
		runner:     query.NewRunner(exec, logger),
		builder:    builder,
		wiki:       repositories.NewWikiRepository(exec, dialect, cfg.Database.TablePrefix, logger),
		namespaces: namespaces,
		cfg:        cfg,
		logger:     logger.Named("pagelist"),
	}, nil
}

// WithClock replaces the clock used for relative timestamps.
func (s *pageListService) WithClock(now func() time.Time) *pageListService {
	s.builder = s.builder.WithClock(now)
	return s
}

func (s *pageListService) Parameters() []*params.Definition {
	return s.registry.Definitions()
}

func (s *pageListService) Evaluate(ctx context.Context, req *EvaluateRequest) (*Result, error) {
	start := time.Now()
	result := &Result{EvaluationID: uuid.New()}
	logger := s.logger.With(zap.String("evaluation_id", result.EvaluationID.String()))
	diags := diagnostics.NewCollector(logger)

	var current *titles.Title
	if req.CurrentTitle != "" {
		t, err := s.namespaces.Parse(req.CurrentTitle, titles.NSMain)
		if err != nil {
			return nil, fmt.Errorf("%w: current title: %w", apperrors.ErrInvalidOption, err)
		}
		current = &t
	}

	store := params.NewStore(s.registry)
	validator := params.NewValidator(s.registry, store, params.Environment{
		Resolver:      titles.NewResolver(s.namespaces, s.wiki),
		Subcategories: s.wiki,
		Limits:        s.cfg.PageList,
		Permissions:   req.Permissions,
	}, diags, logger)
	validator.ProcessAll(ctx, params.ParseInput(req.Input, s.registry, diags))

	finish := func() (*Result, error) {
		result.Diagnostics = diags.Items()
		result.Count = len(result.Records)
		result.Duration = time.Since(start)
		if result.HasCritical() {
			result.Records, result.Headings, result.Count = nil, nil, 0
		}
		logger.Info("Page list evaluated",
			zap.Int("records", result.Count),
			zap.Int("diagnostics", len(result.Diagnostics)),
			zap.Duration("duration", result.Duration))
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.preflight(ctx, store, req, diags) {
		return finish()
	}

	plan, err := s.builder.Build(store)
	if err != nil {
		diags.Add(diagnostics.CriticalSQLBuildError, err.Error())
		return finish()
	}
	result.SQL = plan.String()
	if level, _ := store.Int("debug"); level >= debugLevelSQL {
		diags.Add(diagnostics.DebugQuery, result.SQL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PageList.QueryTimeout())
	defer cancel()

	records, err := s.execute(ctx, plan, store, current, result, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		code := diagnostics.CriticalSQLExecutionError
		if errors.Is(err, apperrors.ErrBuild) {
			code = diagnostics.CriticalSQLBuildError
		}
		logger.Error("Page list query failed",
			zap.String("sql", logging.SanitizeQuery(result.SQL)),
			zap.String("error", logging.SanitizeError(err)))
		diags.Add(code, logging.SanitizeError(err))
		return finish()
	}

	out := postprocess.Apply(records.records, postprocess.OptionsFromStore(store, records.headings))
	result.Records = out.Articles
	result.Headings = out.Headings
	if len(result.Records) == 0 {
		diags.Add(diagnostics.WarnNoResults)
	}
	return finish()
}

type materialized struct {
	records  []*articles.Article
	headings *articles.HeadingCounter
}

// execute runs the plan and materializes the surviving rows, sampling them
// when randomcount is set.
func (s *pageListService) execute(ctx context.Context, plan *query.Plan, store *params.Store, current *titles.Title, result *Result, logger *zap.Logger) (*materialized, error) {
	randomCount, _ := store.Int("randomcount")

	var returned int64
	if plan.CalcRows() && !plan.GoalCategories() {
		total, err := s.runner.Count(ctx, plan)
		if err != nil {
			return nil, err
		}
		result.TotalRows = &total
		returned = plan.Returned(total)
	}

	cur, err := s.runner.Run(ctx, plan)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	materializer := articles.NewMaterializer(store, s.namespaces, s.cfg.Wiki, current, logger)
	next := func() (map[string]any, bool, error) {
		if !cur.Next() {
			return nil, false, cur.Err()
		}
		row, err := cur.Row()
		return row, err == nil, err
	}

	// Category rows are not counted up front; they are few, so buffer them
	// to learn how many there are.
	if randomCount > 0 && plan.GoalCategories() {
		rows, err := drain(next, s.cfg.PageList.MaxMaterializedRows)
		if err != nil {
			return nil, err
		}
		returned = int64(len(rows))
		total := returned
		result.TotalRows = &total
		i := 0
		next = func() (map[string]any, bool, error) {
			if i >= len(rows) {
				return nil, false, nil
			}
			i++
			return rows[i-1], true, nil
		}
	}

	var picker *sampling.Picker
	if randomCount > 0 {
		picker = sampling.NewPicker(randomCount, int(returned), seedFromStore(store))
	}

	var out []*articles.Article
	limit := s.cfg.PageList.MaxMaterializedRows
	for {
		row, ok, err := next()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryExecution, err)
		}
		if !ok {
			break
		}
		if picker != nil {
			if !picker.Next() {
				if !picker.Remaining() {
					break
				}
				continue
			}
		}

		a, keep, err := materializer.Build(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryExecution, err)
		}
		if !keep {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			logger.Warn("Materialized row limit reached", zap.Int("limit", limit))
			break
		}
	}

	return &materialized{records: out, headings: materializer.Headings()}, nil
}

func drain(next func() (map[string]any, bool, error), limit int) ([]map[string]any, error) {
	var rows []map[string]any
	for limit <= 0 || len(rows) < limit {
		row, ok, err := next()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryExecution, err)
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func seedFromStore(store *params.Store) sampling.Seed {
	v, ok := store.Get("randomseed")
	if !ok {
		return sampling.Seed{}
	}
	switch seed := v.(type) {
	case params.Int:
		return sampling.IntSeed(int64(seed))
	case params.String:
		return sampling.TextSeed(string(seed))
	}
	return sampling.Seed{}
}
