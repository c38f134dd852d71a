// Package symtab is the reusable scope-tracking mixin of C2: a
// Visitor/Mutator composes with it by calling Push on entering a VarDef
// or For and Pop on leaving it, receiving name-to-definition lookup in
// between. Grounded on the teacher's internal/semantic parent-chained
// SymbolTable, generalized from Kanso declarations to VarDef/For.
package symtab

import (
	"fmt"

	"tensorc/internal/cerrors"
	"tensorc/internal/ir"
)

// Scope is one nested level: either a VarDef (defines one Buffer) or a For
// (defines one loop iterator).
type Scope struct {
	parent *Scope
	defs   map[string]*ir.VarDef
	loops  map[string]*ir.For
}

// Env is the mutable scope environment threaded through a traversal. The
// zero value is a valid empty root scope.
type Env struct {
	top *Scope
}

func NewEnv() *Env { return &Env{} }

// PushVarDef enters the scope introduced by v, rejecting a nested
// redefinition of the same name in any enclosing scope (§3.5, §4.2).
func (e *Env) PushVarDef(v *ir.VarDef) error {
	if e.hasAny(v.Name) {
		return cerrors.New(cerrors.InvalidProgram, fmt.Sprintf("var %s", v.Name),
			"nested same-name definition is not allowed")
	}
	s := &Scope{parent: e.top, defs: map[string]*ir.VarDef{v.Name: v}}
	e.top = s
	return nil
}

// PushFor enters the scope introduced by f, rejecting a nested
// redefinition of the same iterator name.
func (e *Env) PushFor(f *ir.For) error {
	if e.hasAny(f.Iter) {
		return cerrors.New(cerrors.InvalidProgram, fmt.Sprintf("for %s", f.Iter),
			"nested same-name definition is not allowed")
	}
	s := &Scope{parent: e.top, loops: map[string]*ir.For{f.Iter: f}}
	e.top = s
	return nil
}

// Pop leaves the most recently pushed scope.
func (e *Env) Pop() {
	if e.top != nil {
		e.top = e.top.parent
	}
}

func (e *Env) hasAny(name string) bool {
	for s := e.top; s != nil; s = s.parent {
		if _, ok := s.defs[name]; ok {
			return true
		}
		if _, ok := s.loops[name]; ok {
			return true
		}
	}
	return false
}

// HasDef reports whether name is defined by an enclosing VarDef.
func (e *Env) HasDef(name string) bool {
	_, ok := e.lookupDef(name)
	return ok
}

func (e *Env) lookupDef(name string) (*ir.VarDef, bool) {
	for s := e.top; s != nil; s = s.parent {
		if v, ok := s.defs[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Def returns the enclosing VarDef named name, or an error if none exists
// (§3.5: every access must have an enclosing VarDef).
func (e *Env) Def(name string) (*ir.VarDef, error) {
	if v, ok := e.lookupDef(name); ok {
		return v, nil
	}
	return nil, cerrors.New(cerrors.InvalidProgram, name, "unresolved variable name")
}

// Buffer returns the Buffer owned by the enclosing VarDef named name.
func (e *Env) Buffer(name string) (*ir.Buffer, error) {
	v, err := e.Def(name)
	if err != nil {
		return nil, err
	}
	return v.Buffer, nil
}

// Loop returns the enclosing For whose iterator is named name.
func (e *Env) Loop(name string) (*ir.For, bool) {
	for s := e.top; s != nil; s = s.parent {
		if f, ok := s.loops[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// Names returns every name visible in the current scope chain, innermost
// first, defs before loop iterators.
func (e *Env) Names() []string {
	var out []string
	for s := e.top; s != nil; s = s.parent {
		for name := range s.defs {
			out = append(out, name)
		}
		for name := range s.loops {
			out = append(out, name)
		}
	}
	return out
}
