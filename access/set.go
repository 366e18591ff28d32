package access

import "sort"

// Set is an unordered collection of role or permission names.
type Set map[string]struct{}

// NewSet builds a Set from names. Empty names are ignored.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the names in ascending order, giving wire calls a stable shape.
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s Set) Clone() Set {
	c := make(Set, len(s))
	for n := range s {
		c[n] = struct{}{}
	}
	return c
}

// Minus returns the names in s that are not in other.
func (s Set) Minus(other Set) Set {
	d := make(Set)
	for n := range s {
		if !other.Has(n) {
			d[n] = struct{}{}
		}
	}
	return d
}

// Equal reports whether both sets hold the same names.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

// Toggle adds name when on is true and removes it otherwise, mirroring a
// checkbox edit on a form.
func (s Set) Toggle(name string, on bool) {
	if on {
		s[name] = struct{}{}
		return
	}
	delete(s, name)
}
