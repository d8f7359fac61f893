// Package params defines the page list parameter catalog and turns raw
// "name = value" options into typed values.
package params

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind selects the generic coercion applied to a parameter.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindTimestamp
	// KindPageNameList resolves "|"-separated titles into one TitleGroups group.
	KindPageNameList
	// KindList splits "|"-separated raw strings into one StringGroups group.
	KindList
	// KindCustom values are produced by the definition's Handler.
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindTimestamp:
		return "timestamp"
	case KindPageNameList:
		return "page-name-list"
	case KindList:
		return "list"
	case KindCustom:
		return "custom"
	}
	return "string"
}

// Handler validates a raw option and writes its result into the validator's store.
type Handler func(ctx context.Context, v *Validator, raw string) error

// Definition is the static metadata of one parameter.
type Definition struct {
	Name        string
	Description string
	Default     Value
	Kind        Kind

	// Values restricts the option to an allowed set (compared lower-cased).
	Values []string
	// Multiple applies Values to each comma-separated item.
	Multiple bool
	// Pattern turns the option into its capture groups.
	Pattern *regexp.Regexp
	// Permission names the capability a caller needs to set this parameter.
	Permission string

	SetsCriteria      bool
	OpenRefConflict   bool
	StripHTML         bool
	DBFormat          bool
	PreserveCase      bool
	PageNameMustExist bool
	// Screen runs libinjection over the option.
	Screen bool

	Handler Handler
}

// Registry is the immutable parameter catalog.
type Registry struct {
	defs  map[string]*Definition
	names []string
}

// NewRegistry builds the catalog.
func NewRegistry() *Registry {
	return newRegistry(catalog())
}

func newRegistry(defs []*Definition) *Registry {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, def := range defs {
		if _, dup := r.defs[def.Name]; dup {
			panic(fmt.Sprintf("params: duplicate definition %q", def.Name))
		}
		r.defs[def.Name] = def
		r.names = append(r.names, def.Name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Exists reports whether name is a known parameter.
func (r *Registry) Exists(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Names returns every parameter name in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Definitions returns every definition sorted by name.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.defs[name])
	}
	return out
}

// Descriptor is the serializable view of a Definition.
type Descriptor struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Kind         string   `json:"kind" yaml:"kind"`
	Default      string   `json:"default,omitempty" yaml:"default,omitempty"`
	Values       []string `json:"values,omitempty" yaml:"values,omitempty"`
	Multiple     bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Permission   string   `json:"permission,omitempty" yaml:"permission,omitempty"`
	SetsCriteria bool     `json:"sets_criteria,omitempty" yaml:"sets_criteria,omitempty"`
}

// Describe returns the serializable view of d.
func (d *Definition) Describe() Descriptor {
	return Descriptor{
		Name:         d.Name,
		Description:  d.Description,
		Kind:         d.Kind.String(),
		Default:      FormatValue(d.Default),
		Values:       d.Values,
		Multiple:     d.Multiple,
		Permission:   d.Permission,
		SetsCriteria: d.SetsCriteria,
	}
}

// FormatValue renders scalar and list defaults. Structured values render
// as the empty string.
func FormatValue(v Value) string {
	switch d := v.(type) {
	case Bool:
		return strconv.FormatBool(bool(d))
	case Int:
		return strconv.Itoa(int(d))
	case String:
		return string(d)
	case Timestamp:
		return string(d)
	case OrderMethods:
		return strings.Join(d, ",")
	case StringList:
		return strings.Join(d, ",")
	case DistinctMode:
		return d.String()
	}
	return ""
}
