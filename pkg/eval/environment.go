// Package eval executes compiled programs.
package eval

import (
	"sort"

	"github.com/antibyte/kscr/pkg/value"
)

type binding struct {
	value value.Value
	bound bool
}

// Environment maps variable names to values for one execution. A declared
// name without a value is unbound.
type Environment struct {
	vars map[string]binding
}

func NewEnvironment() *Environment {
	return &Environment{vars: make(map[string]binding)}
}

// Declare inserts name as unbound, replacing any previous binding.
func (e *Environment) Declare(name string) {
	e.vars[name] = binding{}
}

// Bind sets the value of name, declaring it if needed.
func (e *Environment) Bind(name string, v value.Value) {
	e.vars[name] = binding{value: v, bound: true}
}

// Declared reports whether name exists, bound or not.
func (e *Environment) Declared(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// Lookup returns the bound value of name.
func (e *Environment) Lookup(name string) (value.Value, bool) {
	b, ok := e.vars[name]
	if !ok || !b.bound {
		return nil, false
	}
	return b.value, true
}

// Names returns the declared names in sorted order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Environment) Len() int {
	return len(e.vars)
}
