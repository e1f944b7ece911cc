package lang

import (
	"iter"
	"slices"
)

// Scope is an ordered mapping from names to values with an optional parent.
// It serves both as a lexical environment and as the runtime form of an
// object literal.
//
// A frozen scope rejects every write. Assigning to a name bound only in a
// frozen ancestor binds it in the scope that was written to instead.
type Scope struct {
	parent *Scope
	names  []string
	vars   map[string]Value
	frozen bool
}

// NewScope returns an empty scope whose lookups fall back to parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]Value)}
}

// NewRootScope returns an empty scope whose parent is the built-in registry.
func NewRootScope() *Scope { return NewScope(Builtins()) }

// Parent returns the enclosing scope, or nil.
func (s *Scope) Parent() *Scope { return s.parent }

// Frozen reports whether s rejects writes.
func (s *Scope) Frozen() bool { return s.frozen }

// Len returns the number of bindings in s itself.
func (s *Scope) Len() int { return len(s.names) }

// Names returns the names bound in s itself, in binding order.
func (s *Scope) Names() []string { return slices.Clone(s.names) }

// All iterates over the bindings of s itself in binding order.
func (s *Scope) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, name := range s.names {
			if !yield(name, s.vars[name]) {
				return
			}
		}
	}
}

// Get returns the value bound to name in s itself.
func (s *Scope) Get(name string) (Value, bool) {
	v, ok := s.vars[name]

	return v, ok
}

// Lookup returns the value bound to name in s or its nearest ancestor.
func (s *Scope) Lookup(name string) (Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// Define binds name in s itself, replacing any existing binding there.
// It reports false if s is frozen.
func (s *Scope) Define(name string, v Value) bool {
	if s.frozen {
		return false
	}

	if _, ok := s.vars[name]; !ok {
		s.names = append(s.names, name)
	}

	s.vars[name] = v

	return true
}

// Assign updates the nearest writable binding of name in s or its
// ancestors, or binds name in s when there is none. It reports false if the
// binding would land in a frozen scope.
func (s *Scope) Assign(name string, v Value) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			if sc.frozen {
				break
			}

			sc.vars[name] = v

			return true
		}
	}

	return s.Define(name, v)
}

// Freeze makes s and every scope-valued binding in it read-only.
func (s *Scope) Freeze() *Scope {
	s.frozen = true

	for _, v := range s.vars {
		if child, ok := v.(*Scope); ok && !child.frozen {
			child.Freeze()
		}
	}

	return s
}

// NewScriptScope returns a root scope binding script to the script path and
// args to its arguments.
func NewScriptScope(script string, args []string) *Scope {
	sc := NewRootScope()

	elems := make([]Value, len(args))
	for i, a := range args {
		elems[i] = String(a)
	}

	sc.Define("script", String(script))
	sc.Define("args", NewArray(elems...))

	return sc
}
