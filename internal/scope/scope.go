// Package scope provides the chained name environment shared by the type
// checker, the IR generator and the interpreter.
package scope

import (
	"errors"
	"fmt"
)

// ErrUnbound is returned when a name has no binding up to the root scope.
var ErrUnbound = errors.New("unbound name")

// ErrRedeclared is returned when a name is defined twice in one scope.
var ErrRedeclared = errors.New("already defined in this scope")

// Env is a lexical scope mapping names to values of type V.
// Scopes form a tree: each one points at its parent, never at children.
type Env[V any] struct {
	parent *Env[V]
	vars   map[string]V
}

// New creates a scope with an optional parent
func New[V any](parent *Env[V]) *Env[V] {
	return &Env[V]{
		parent: parent,
		vars:   make(map[string]V),
	}
}

// Child opens a nested scope
func (e *Env[V]) Child() *Env[V] {
	return New(e)
}

// Parent returns the enclosing scope, or nil at the root
func (e *Env[V]) Parent() *Env[V] {
	return e.parent
}

// Define binds name in this scope.
// Returns ErrRedeclared if the name is already bound in this scope.
func (e *Env[V]) Define(name string, v V) error {
	if _, exists := e.vars[name]; exists {
		return fmt.Errorf("%q %w", name, ErrRedeclared)
	}
	e.vars[name] = v
	return nil
}

// Declared reports whether name is bound in this scope (not parent scopes)
func (e *Env[V]) Declared(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// Lookup finds the nearest binding of name, walking to the root
func (e *Env[V]) Lookup(name string) (V, error) {
	if owner := e.Owner(name); owner != nil {
		return owner.vars[name], nil
	}
	var zero V
	return zero, fmt.Errorf("%q: %w", name, ErrUnbound)
}

// Owner returns the nearest scope that binds name, or nil
func (e *Env[V]) Owner(name string) *Env[V] {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.vars[name]; ok {
			return s
		}
	}
	return nil
}

// Assign updates the nearest existing binding of name.
// It never creates a binding.
func (e *Env[V]) Assign(name string, v V) error {
	owner := e.Owner(name)
	if owner == nil {
		return fmt.Errorf("%q: %w", name, ErrUnbound)
	}
	owner.vars[name] = v
	return nil
}
