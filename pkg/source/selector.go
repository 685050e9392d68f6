package source

import (
	"maps"
	"slices"

	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
)

// Selector names a backend endpoint and how to read its records.
type Selector struct {
	Name  string          `toml:"-" json:"name"`
	Path  string          `toml:"path" json:"path"`
	Shape hierarchy.Shape `toml:"shape" json:"shape"`
}

// Built-in selector names.
const (
	SelectorCourses    = "courses"
	SelectorProfessors = "professors"
)

// Selectors is a set of named selectors.
type Selectors map[string]Selector

// DefaultSelectors returns a fresh copy of the built-in selectors.
func DefaultSelectors() Selectors {
	return Selectors{
		SelectorCourses:    {Name: SelectorCourses, Path: "/cursos/estructura", Shape: hierarchy.ShapeCourse},
		SelectorProfessors: {Name: SelectorProfessors, Path: "/profesores/estructura", Shape: hierarchy.ShapeProfessor},
	}
}

// Lookup returns the selector called name, or SELECTOR_NOT_FOUND.
func (s Selectors) Lookup(name string) (Selector, error) {
	sel, ok := s[name]
	if !ok {
		return Selector{}, errors.New(errors.ErrCodeSelectorNotFound,
			"unknown selector %q (known: %v)", name, s.Names())
	}
	if sel.Name == "" {
		sel.Name = name
	}
	return sel, nil
}

// Names returns the selector names sorted.
func (s Selectors) Names() []string {
	return slices.Sorted(maps.Keys(s))
}
