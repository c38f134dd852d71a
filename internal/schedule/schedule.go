// Package schedule implements C5: the Schedule façade, the mutable handle
// a front-end drives to rewrite a tree through named, legality-checked
// transformations. Every public method either replaces the current tree
// and appends a history entry, or leaves the tree untouched and returns a
// structured error — never a partially-applied rewrite.
package schedule

import (
	"fmt"

	"tensorc/internal/cerrors"
	"tensorc/internal/ir"
	"tensorc/internal/symtab"
)

// Verbosity controls how much detail appendLog records.
type Verbosity int

const (
	Quiet Verbosity = iota
	Verbose
)

// Schedule wraps a current AST handle, a verbosity level, and a history
// log of applied transformations, per §4.5.
type Schedule struct {
	tree      ir.Stmt
	verbosity Verbosity
	history   []string
}

// New wraps root as a fresh Schedule with no history.
func New(root ir.Stmt, v Verbosity) *Schedule {
	return &Schedule{tree: root, verbosity: v}
}

// Ast returns a read-only snapshot of the current tree (a deep copy, so
// callers cannot mutate the Schedule's state out from under it).
func (s *Schedule) Ast() ir.Stmt {
	return ir.DeepCopy(s.tree)
}

// History returns the applied-operation log in application order.
func (s *Schedule) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Find returns the unique statement matching pred, failing with
// UnexpectedQuery when the match count is not exactly one.
func (s *Schedule) Find(op string, pred func(ir.Stmt) bool) (ir.Stmt, error) {
	matches := ir.Find(s.tree, pred)
	if len(matches) != 1 {
		return nil, cerrors.New(cerrors.UnexpectedQuery, op, fmt.Sprintf("expected exactly one match, got %d", len(matches)))
	}
	return matches[0], nil
}

// FindAll returns every statement matching pred.
func (s *Schedule) FindAll(pred func(ir.Stmt) bool) []ir.Stmt {
	return ir.Find(s.tree, pred)
}

// ByID is a convenience predicate for Find/FindAll.
func ByID(id ir.ID) func(ir.Stmt) bool {
	return func(s ir.Stmt) bool { return s.StmtID() == id }
}

// apply performs a rewrite atomically: it hands the current tree to
// rewrite, validates the result against §3.5's invariants, and on
// success replaces the tree and appends op to the history. Any error —
// from rewrite itself or from Validate — leaves the tree untouched and
// is converted to an InvalidSchedule per §7 Propagation.
func (s *Schedule) apply(op string, rewrite func(ir.Stmt) (ir.Stmt, error)) error {
	next, err := rewrite(s.tree)
	if err != nil {
		return cerrors.Invalid(op, err)
	}
	if err := symtab.Validate(next); err != nil {
		return cerrors.Invalid(op, err)
	}
	s.tree = next
	s.history = append(s.history, op)
	return nil
}

func findFor(root ir.Stmt, id ir.ID) (*ir.For, error) {
	n := ir.FindByID(root, id)
	if n == nil {
		return nil, fmt.Errorf("loop %s not found", id)
	}
	f, ok := n.(*ir.For)
	if !ok {
		return nil, fmt.Errorf("%s is not a For", id)
	}
	return f, nil
}

func findVarDef(root ir.Stmt, id ir.ID) (*ir.VarDef, error) {
	n := ir.FindByID(root, id)
	if n == nil {
		return nil, fmt.Errorf("VarDef %s not found", id)
	}
	def, ok := n.(*ir.VarDef)
	if !ok {
		return nil, fmt.Errorf("%s is not a VarDef", id)
	}
	return def, nil
}
