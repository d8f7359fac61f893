package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/diagnostics"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/params"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/repositories"
)

var revisionWindowParams = []string{"allrevisionsbefore", "allrevisionssince", "firstrevisionsince", "lastrevisionbefore"}

// categoryModeIgnored lists the options that have no effect with mode=category.
var categoryModeIgnored = []string{
	"addcategories", "addeditdate", "addfirstcategorydate", "addpagetoucheddate",
	"adduser", "addauthor", "addcontribution", "addlasteditor",
}

// preflight runs the option consistency checks that must pass before any
// SQL is built. It records diagnostics and reports whether evaluation may
// continue. Warnings may adjust the store (headingmode is reset to none).
func (s *pageListService) preflight(ctx context.Context, store *params.Store, req *EvaluateRequest, diags *diagnostics.Collector) bool {
	limits := s.cfg.PageList

	if limits.RunFromProtectedPagesOnly && !req.Protected {
		diags.Add(diagnostics.CriticalNotProtected)
		return false
	}

	total := store.CategoryCount()
	if total > limits.MaxCategoryCount && !limits.AllowUnlimitedCategories {
		diags.Add(diagnostics.CriticalTooManyCategories, diagnostics.Quantity(limits.MaxCategoryCount, "category"))
		return false
	}
	if total < limits.MinCategoryCount {
		diags.Add(diagnostics.CriticalTooFewCategories, diagnostics.Quantity(limits.MinCategoryCount, "category"))
		return false
	}
	if total == 0 && !store.CriteriaFound() {
		diags.Add(diagnostics.CriticalNoSelection)
		return false
	}
	// Both read the first category join, which notcategory does not create.
	if store.Categories("category").Count() == 0 {
		if store.HasOrderMethod("categoryadd") {
			diags.Add(diagnostics.CriticalNoCategoriesForOrderMethod, "categoryadd")
			return false
		}
		if store.Bool("addfirstcategorydate") {
			diags.Add(diagnostics.CriticalNoCategoriesForAddDate)
			return false
		}
	}

	dates := 0
	for _, name := range []string{"addpagetoucheddate", "addfirstcategorydate", "addeditdate"} {
		if store.Bool(name) {
			dates++
		}
	}
	if dates > 1 {
		diags.Add(diagnostics.CriticalMoreThanOneTypeOfDate)
		return false
	}

	if store.Bool("addauthor") && store.Bool("addlasteditor") {
		diags.Add(diagnostics.CriticalAuthorAndLastEditor)
		return false
	}

	if dominant, ok := store.Int("dominantsection"); ok && dominant > 0 {
		if labels := len(store.Strings(params.KeySecLabels)); labels < dominant {
			diags.Add(diagnostics.CriticalDominantSectionRange, labels)
			return false
		}
	}

	mode := store.String("mode")
	if mode == "category" && !store.HasOrderMethod("sortkey", "title", "titlewithoutnamespace") {
		diags.Add(diagnostics.CriticalWrongOrderMethod, "mode=category", "sortkey | title | titlewithoutnamespace")
		return false
	}
	if store.Bool("addpagetoucheddate") && !store.HasOrderMethod("pagetouched", "title") {
		diags.Add(diagnostics.CriticalWrongOrderMethod, "addpagetoucheddate=true", "pagetouched | title")
		return false
	}

	editOrder := store.HasOrderMethod("firstedit", "lastedit")
	window := false
	for _, name := range revisionWindowParams {
		if store.Has(name) {
			window = true
		}
	}
	if store.Bool("addeditdate") && !editOrder && window {
		diags.Add(diagnostics.CriticalWrongOrderMethod, "addeditdate=true", "firstedit | lastedit")
		return false
	}
	if store.Bool("adduser") && !editOrder && !window {
		diags.Add(diagnostics.CriticalWrongOrderMethod, "adduser=true", "firstedit | lastedit")
		return false
	}
	if store.Has("minoredits") && !editOrder {
		diags.Add(diagnostics.CriticalWrongOrderMethod, "minoredits", "firstedit | lastedit")
		return false
	}

	if store.IncludeUncategorized() {
		ok, err := s.wiki.HasCategoryView(ctx)
		if err != nil {
			s.logger.Warn("Failed to probe category view", zap.Error(err))
		}
		if !ok {
			diags.Add(diagnostics.CriticalNoCategoryView, s.cfg.Database.TablePrefix+repositories.CategoryViewName)
			return false
		}
	}

	if mode == "category" {
		var ignored []string
		for _, name := range categoryModeIgnored {
			if store.Bool(name) {
				ignored = append(ignored, name)
			}
		}
		if store.Has(params.KeyIncPage) {
			ignored = append(ignored, "includepage")
		}
		if len(ignored) > 0 {
			diags.Add(diagnostics.WarnCatOutputButWrongParams, strings.Join(ignored, ", "))
		}
	}

	if heading := store.String("headingmode"); heading != "none" && heading != "" && len(store.OrderMethods()) < 2 {
		diags.Add(diagnostics.WarnHeadingModeTooFewOrderMethods, heading)
		store.Set("headingmode", params.String("none"))
	}

	if store.OpenRefConflict() && store.OpenReferences() {
		diags.Add(diagnostics.CriticalOpenReferences)
		return false
	}

	return true
}
