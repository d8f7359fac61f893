package params

import (
	"context"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/sql"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/titles"
)

// SubcategoryLookup expands a category into its subcategories.
type SubcategoryLookup interface {
	// Subcategories returns the db keys of the subcategories of category,
	// descending at most depth levels.
	Subcategories(ctx context.Context, category string, depth int) ([]string, error)
}

// Environment holds the collaborators and limits a Validator consults.
type Environment struct {
	Resolver      titles.Resolver
	Subcategories SubcategoryLookup
	Limits        config.PageListConfig
	Permissions   []string
}

// Validator turns raw options into typed values in a Store.
type Validator struct {
	registry *Registry
	store    *Store
	env      Environment
	diags    *diagnostics.Collector
	logger   *zap.Logger
	strip    *bluemonday.Policy
}

// NewValidator creates a validator writing into store.
func NewValidator(registry *Registry, store *Store, env Environment, diags *diagnostics.Collector, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if env.Resolver == nil {
		env.Resolver = titles.NewResolver(titles.NewNamespaces(nil), nil)
	}
	return &Validator{
		registry: registry,
		store:    store,
		env:      env,
		diags:    diags,
		logger:   logger.Named("params"),
		strip:    bluemonday.StrictPolicy(),
	}
}

// Store returns the store the validator writes into.
func (v *Validator) Store() *Store {
	return v.store
}

// Namespaces returns the namespace table used for title parsing.
func (v *Validator) Namespaces() *titles.Namespaces {
	return v.env.Resolver.Namespaces()
}

// Limits returns the configured admission limits.
func (v *Validator) Limits() config.PageListConfig {
	return v.env.Limits
}

// ProcessAll validates assignments in priority order.
func (v *Validator) ProcessAll(ctx context.Context, assignments []Assignment) {
	for _, a := range SortByPriority(assignments) {
		v.Process(ctx, a.Name, a.Value)
	}
}

// Process validates one option and stores its value. It reports whether the
// option was accepted; rejections are recorded as diagnostics.
func (v *Validator) Process(ctx context.Context, name, raw string) bool {
	def, ok := v.registry.Lookup(name)
	if !ok {
		v.diags.Add(diagnostics.WarnUnknownParam, name)
		return false
	}

	if def.Permission != "" && !slices.Contains(v.env.Permissions, def.Permission) {
		v.diags.Add(diagnostics.WarnPermissionDenied, name, def.Permission)
		return false
	}

	option := strings.TrimSpace(raw)
	if def.Screen {
		if hit := sql.ScreenOption(name, option); hit != nil {
			v.diags.Add(diagnostics.WarnSuspiciousValue, name, hit.Fingerprint)
		}
	}

	if err := v.apply(ctx, def, option); err != nil {
		v.logger.Debug("Rejected page list option",
			zap.String("param", name),
			zap.Error(err))
		if def.Kind == KindInt {
			v.diags.Add(diagnostics.WarnWrongParamInt, raw, name)
		} else {
			v.diags.Add(diagnostics.WarnWrongParam, raw, name)
		}
		return false
	}

	if def.SetsCriteria {
		v.store.SetCriteriaFound()
	}
	if def.OpenRefConflict {
		v.store.SetOpenRefConflict()
	}
	return true
}

func (v *Validator) apply(ctx context.Context, def *Definition, option string) error {
	if len(def.Values) > 0 {
		if err := checkAllowed(def, option); err != nil {
			return err
		}
	}

	if !def.PreserveCase && def.Kind != KindPageNameList {
		option = strings.ToLower(option)
	}

	if def.StripHTML {
		option = html.UnescapeString(v.strip.Sanitize(option))
	}

	switch def.Kind {
	case KindCustom:
		if def.Handler == nil {
			return fmt.Errorf("parameter %s has no handler", def.Name)
		}
		return def.Handler(ctx, v, option)

	case KindInt:
		n, err := coerceInt(option)
		if err != nil {
			if d, ok := def.Default.(Int); ok {
				v.store.Set(def.Name, d)
				return nil
			}
			return err
		}
		v.store.Set(def.Name, Int(n))
		return nil

	case KindBool:
		b, err := FilterBool(option)
		if err != nil {
			return err
		}
		v.store.Set(def.Name, Bool(b))
		return nil

	case KindTimestamp:
		ts, err := coerceTimestamp(option)
		if err != nil {
			return err
		}
		v.store.Set(def.Name, ts)
		return nil

	case KindPageNameList:
		group, err := v.resolvePageNames(ctx, def, option)
		if err != nil {
			return err
		}
		// Repeated occurrences are ANDed; an identical group adds nothing.
		groups := v.store.TitleGroups(def.Name)
		if !slices.ContainsFunc(groups, func(g []titles.Title) bool { return slices.Equal(g, group) }) {
			groups = append(groups, group)
		}
		v.store.Set(def.Name, groups)
		return nil

	case KindList:
		group := splitPipe(option)
		if len(group) == 0 {
			return fmt.Errorf("%w: empty list", apperrors.ErrInvalidOption)
		}
		groups := v.store.StringGroups(def.Name)
		if !slices.ContainsFunc(groups, func(g []string) bool { return slices.Equal(g, group) }) {
			groups = append(groups, group)
		}
		v.store.Set(def.Name, groups)
		return nil
	}

	if def.Pattern != nil {
		captures := def.Pattern.FindStringSubmatch(option)
		if captures == nil {
			return fmt.Errorf("%w: %q does not match %s", apperrors.ErrInvalidOption, option, def.Pattern)
		}
		v.store.Set(def.Name, StringList(captures[1:]))
		return nil
	}
	if def.DBFormat {
		option = dbKey(option)
	}
	v.store.Set(def.Name, String(option))
	return nil
}

func checkAllowed(def *Definition, option string) error {
	items := []string{option}
	if def.Multiple {
		items = strings.Split(option, ",")
	}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if !def.PreserveCase {
			item = strings.ToLower(item)
		}
		if !slices.Contains(def.Values, item) {
			return fmt.Errorf("%w: %q is not one of %s", apperrors.ErrInvalidOption, item, strings.Join(def.Values, ", "))
		}
	}
	return nil
}

// resolvePageNames turns "A|B|C" into one group of titles. When the definition
// requires existing pages any unresolvable name fails the whole list; otherwise
// names that cannot form a title are skipped.
func (v *Validator) resolvePageNames(ctx context.Context, def *Definition, option string) ([]titles.Title, error) {
	var group []titles.Title
	for _, name := range splitPipe(option) {
		name = strings.TrimRight(name, `\`)
		if name == "" {
			continue
		}
		if def.PageNameMustExist {
			t, err := v.env.Resolver.Resolve(ctx, titles.NSMain, name)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", def.Name, err)
			}
			group = append(group, t)
			continue
		}
		t, err := v.Namespaces().Parse(name, titles.NSMain)
		if err != nil {
			v.logger.Debug("Skipping invalid page name", zap.String("param", def.Name), zap.String("name", name))
			continue
		}
		group = append(group, t)
	}
	if len(group) == 0 {
		return nil, fmt.Errorf("%w: no valid page names", apperrors.ErrInvalidOption)
	}
	return group, nil
}

// FilterBool implements the three-state boolean filter.
func FilterBool(option string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(option)) {
	case "1", "true", "on", "yes":
		return true, nil
	case "0", "false", "off", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", apperrors.ErrInvalidOption, option)
}

func coerceInt(option string) (int, error) {
	if n, err := strconv.Atoi(option); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(option, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", apperrors.ErrInvalidOption, option)
	}
	return int(f), nil
}

// RelativeTimestamps are the keywords accepted instead of a 14 digit timestamp.
var RelativeTimestamps = []string{"today", "last hour", "last day", "last week", "last month", "last year"}

func coerceTimestamp(option string) (Timestamp, error) {
	if slices.Contains(RelativeTimestamps, option) {
		return Timestamp(option), nil
	}
	var b strings.Builder
	for _, r := range option {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || len(digits) > 14 {
		return "", fmt.Errorf("%w: %q is not a timestamp", apperrors.ErrInvalidOption, option)
	}
	return Timestamp(digits + strings.Repeat("0", 14-len(digits))), nil
}

func splitPipe(option string) []string {
	var out []string
	for _, part := range strings.Split(option, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dbKey(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}
