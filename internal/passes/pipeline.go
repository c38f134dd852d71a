// Package passes implements C4: the individual semantics-preserving
// rewrites the Schedule façade and Lowering Driver compose. Every pass is
// a pure function Tree -> Tree; none may violate a §3.5 invariant, and
// every pass is idempotent at its own fixpoint (§4.4).
package passes

import "tensorc/internal/ir"

// Pass is one rewrite in the catalog, grounded on the teacher's
// Tree -> Tree optimization shape (internal/ir/optimizations.go).
type Pass func(ir.Stmt) (ir.Stmt, error)

// Named pairs a Pass with the name used in logs and error signatures.
type Named struct {
	Name string
	Run  Pass
}

// RunToFixpoint repeatedly applies p until an iteration returns a tree
// structurally identical to its input (simplify's contract: "aborts when
// one iteration yields a structurally identical tree"), or maxIters is
// reached as a backstop against a non-terminating rewrite.
func RunToFixpoint(p Pass, s ir.Stmt, maxIters int) (ir.Stmt, error) {
	cur := s
	for i := 0; i < maxIters; i++ {
		next, err := p(cur)
		if err != nil {
			return nil, err
		}
		if ir.Equal(cur, next, false) {
			return next, nil
		}
		cur = next
	}
	return cur, nil
}

// Pipeline runs a fixed ordered sequence of passes once each, the shape
// the Lowering Driver (C6) composes.
type Pipeline struct {
	Passes []Named
}

func (p *Pipeline) Run(s ir.Stmt) (ir.Stmt, error) {
	cur := s
	for _, n := range p.Passes {
		next, err := n.Run(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
