// Package diagnostics accumulates the structured warnings and critical errors
// produced while evaluating one page list request.
package diagnostics

import (
	"fmt"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
)

// Severity orders diagnostics; lower is more severe.
type Severity int

const (
	SeverityCritical Severity = 1
	SeverityWarning  Severity = 2
	SeverityDebug    Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	case SeverityDebug:
		return "debug"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Code identifies a diagnostic. The thousands digit is the severity.
type Code int

const (
	CriticalTooManyCategories          Code = 1003
	CriticalTooFewCategories           Code = 1004
	CriticalNoSelection                Code = 1005
	CriticalNoCategoriesForOrderMethod Code = 1006
	CriticalNoCategoriesForAddDate     Code = 1007
	CriticalMoreThanOneTypeOfDate      Code = 1008
	CriticalWrongOrderMethod           Code = 1009
	CriticalDominantSectionRange       Code = 1010
	CriticalNoCategoryView             Code = 1011
	CriticalOpenReferences             Code = 1012
	CriticalNotProtected               Code = 1023
	CriticalSQLBuildError              Code = 1024
	CriticalSQLExecutionError          Code = 1025
	CriticalAuthorAndLastEditor        Code = 1026

	WarnUnknownParam                  Code = 2013
	WarnWrongParam                    Code = 2014
	WarnWrongParamInt                 Code = 2015
	WarnNoResults                     Code = 2016
	WarnCatOutputButWrongParams       Code = 2017
	WarnHeadingModeTooFewOrderMethods Code = 2018
	WarnParamNoOption                 Code = 2022
	WarnPermissionDenied              Code = 2027
	WarnSuspiciousValue               Code = 2028

	DebugQuery Code = 3030
)

// Severity derives the severity from the code range.
func (c Code) Severity() Severity {
	return Severity(int(c) / 1000)
}

var messages = map[Code]string{
	CriticalTooManyCategories:          "too many categories: at most %s may be used",
	CriticalTooFewCategories:           "too few categories: at least %s must be used",
	CriticalNoSelection:                "no selection criteria found; at least one category, namespace, title or link parameter is required",
	CriticalNoCategoriesForOrderMethod: "ordermethod=%s requires at least one category",
	CriticalNoCategoriesForAddDate:     "addfirstcategorydate requires at least one category",
	CriticalMoreThanOneTypeOfDate:      "only one of addpagetoucheddate, addfirstcategorydate and addeditdate may be used",
	CriticalWrongOrderMethod:           "%s requires ordermethod %s",
	CriticalDominantSectionRange:       "dominantsection must be between 1 and %d",
	CriticalNoCategoryView:             "the uncategorized pseudo-category requires the dpl_clview view: %s",
	CriticalOpenReferences:             "openreferences cannot be combined with page-based selection parameters",
	CriticalNotProtected:               "page lists may only be evaluated from protected pages",
	CriticalSQLBuildError:              "failed to build the query: %s",
	CriticalSQLExecutionError:          "the query failed: %s",
	CriticalAuthorAndLastEditor:        "addauthor and addlasteditor cannot be used together",

	WarnUnknownParam:                  "unknown parameter %q; known parameters are listed by the params command",
	WarnWrongParam:                    "invalid value %q for parameter %q; using the default",
	WarnWrongParamInt:                 "invalid value %q for parameter %q; expected an integer",
	WarnNoResults:                     "no pages matched the selection",
	WarnCatOutputButWrongParams:       "mode=category ignores %s",
	WarnHeadingModeTooFewOrderMethods: "headingmode=%s needs at least two order methods; headings disabled",
	WarnParamNoOption:                 "parameter line %q has no value",
	WarnPermissionDenied:              "parameter %q requires the %q permission",
	WarnSuspiciousValue:               "value for parameter %q looks like SQL (fingerprint %s); it is quoted as a literal",

	DebugQuery: "query: %s",
}

// Diagnostic is one recorded message.
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Code     Code     `json:"code" yaml:"code"`
	Message  string   `json:"message" yaml:"message"`
}

// Collector accumulates diagnostics for a single evaluation.
type Collector struct {
	items  []Diagnostic
	logger *zap.Logger
}

// NewCollector creates an empty collector that mirrors entries to logger.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{logger: logger}
}

// Add records a diagnostic for code, formatting the code's message with args.
func (c *Collector) Add(code Code, args ...any) Diagnostic {
	format, ok := messages[code]
	if !ok {
		format = "diagnostic %d"
		args = []any{int(code)}
	}
	d := Diagnostic{
		Severity: code.Severity(),
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
	c.items = append(c.items, d)

	fields := []zap.Field{zap.Int("code", int(code)), zap.String("message", d.Message)}
	switch d.Severity {
	case SeverityCritical:
		c.logger.Warn("Page list critical diagnostic", fields...)
	case SeverityWarning:
		c.logger.Info("Page list warning", fields...)
	default:
		c.logger.Debug("Page list debug note", fields...)
	}
	return d
}

// HasCritical reports whether any critical diagnostic was recorded.
func (c *Collector) HasCritical() bool {
	for _, d := range c.items {
		if d.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Count returns how many diagnostics carry code.
func (c *Collector) Count(code Code) int {
	n := 0
	for _, d := range c.items {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Items returns the diagnostics in recording order.
func (c *Collector) Items() []Diagnostic {
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Quantity renders "1 category" or "4 categories".
func Quantity(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %s", n, inflection.Plural(noun))
}
