package params

import "sort"

// Derived keys written by handlers rather than by users.
const (
	KeyCatHeadings     = "catheadings"
	KeyCatNotHeadings  = "catnotheadings"
	KeyIncludeUncat    = "includeuncat"
	KeyIncPage         = "incpage"
	KeySecLabels       = "seclabels"
	KeyOrderSuitSymbol = "ordersuitsymbols"
	KeyInlineText      = "inlinetext"
	KeyNotTitle        = "nottitle"
)

// Store holds the resolved parameter values of one evaluation.
type Store struct {
	values          map[string]Value
	criteriaFound   bool
	openRefConflict bool
}

// NewStore creates a store seeded with the registry defaults.
func NewStore(registry *Registry) *Store {
	s := &Store{values: make(map[string]Value)}
	if registry != nil {
		for _, def := range registry.defs {
			if def.Default != nil {
				s.values[def.Name] = def.Default
			}
		}
	}
	return s
}

// Set stores a value.
func (s *Store) Set(name string, v Value) {
	s.values[name] = v
}

// Get returns the stored value.
func (s *Store) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name holds a value.
func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Delete removes a value.
func (s *Store) Delete(name string) {
	delete(s.values, name)
}

// Names returns the stored parameter names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bool returns a boolean value, false when unset.
func (s *Store) Bool(name string) bool {
	v, _ := s.values[name].(Bool)
	return bool(v)
}

// Int returns an integer value and whether it is set.
func (s *Store) Int(name string) (int, bool) {
	v, ok := s.values[name].(Int)
	return int(v), ok
}

// String returns a string value, "" when unset.
func (s *Store) String(name string) string {
	switch v := s.values[name].(type) {
	case String:
		return string(v)
	case Timestamp:
		return string(v)
	}
	return ""
}

// Strings returns a string list, nil when unset.
func (s *Store) Strings(name string) []string {
	v, _ := s.values[name].(StringList)
	return v
}

// StringGroups returns grouped strings, nil when unset.
func (s *Store) StringGroups(name string) StringGroups {
	v, _ := s.values[name].(StringGroups)
	return v
}

// TitleGroups returns grouped titles, nil when unset.
func (s *Store) TitleGroups(name string) TitleGroups {
	v, _ := s.values[name].(TitleGroups)
	return v
}

// Categories returns a category selector, zero when unset.
func (s *Store) Categories(name string) CategorySelector {
	v, _ := s.values[name].(CategorySelector)
	return v
}

// TitleFilter returns a title filter, zero when unset.
func (s *Store) TitleFilter(name string) TitleFilter {
	v, _ := s.values[name].(TitleFilter)
	return v
}

// Namespaces returns a namespace set, nil when unset.
func (s *Store) Namespaces(name string) NamespaceSet {
	v, _ := s.values[name].(NamespaceSet)
	return v
}

// OrderMethods returns the order methods.
func (s *Store) OrderMethods() OrderMethods {
	v, _ := s.values["ordermethod"].(OrderMethods)
	return v
}

// FirstOrderMethod returns the most significant order method, "" when none.
func (s *Store) FirstOrderMethod() string {
	methods := s.OrderMethods()
	if len(methods) == 0 {
		return ""
	}
	return methods[0]
}

// HasOrderMethod reports whether any of methods was requested.
func (s *Store) HasOrderMethod(methods ...string) bool {
	for _, have := range s.OrderMethods() {
		for _, want := range methods {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Distinct returns the distinct mode, DistinctOn when unset.
func (s *Store) Distinct() DistinctMode {
	if v, ok := s.values["distinct"].(DistinctMode); ok {
		return v
	}
	return DistinctOn
}

// Replace returns the title replacement and whether it is set.
func (s *Store) Replace() (Replace, bool) {
	v, ok := s.values["replaceintitle"].(Replace)
	return v, ok
}

// Range returns a range value and whether it is set.
func (s *Store) Range(name string) (Range, bool) {
	v, ok := s.values[name].(Range)
	return v, ok
}

// CriteriaFound reports whether any selection criterion was accepted.
func (s *Store) CriteriaFound() bool {
	return s.criteriaFound
}

// SetCriteriaFound marks that a selection criterion was accepted.
func (s *Store) SetCriteriaFound() {
	s.criteriaFound = true
}

// OpenRefConflict reports whether a parameter incompatible with open
// references was accepted.
func (s *Store) OpenRefConflict() bool {
	return s.openRefConflict
}

// SetOpenRefConflict marks an open-references conflict.
func (s *Store) SetOpenRefConflict() {
	s.openRefConflict = true
}

// OpenReferences reports whether open-references mode is enabled.
func (s *Store) OpenReferences() bool {
	return s.Bool("openreferences")
}

// GoalCategories reports whether goal=categories.
func (s *Store) GoalCategories() bool {
	return s.String("goal") == "categories"
}

// CategoryCount is the number of category and notcategory names selected.
func (s *Store) CategoryCount() int {
	return s.Categories("category").Count() + s.Categories("notcategory").Count()
}

// IncludeUncategorized reports whether the uncategorized pseudo-category was selected.
func (s *Store) IncludeUncategorized() bool {
	return s.Bool(KeyIncludeUncat)
}

// ImageContainer reports whether an image container filter is active.
func (s *Store) ImageContainer() bool {
	return len(s.TitleGroups("imagecontainer")) > 0
}
