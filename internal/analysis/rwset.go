package analysis

import "tensorc/internal/ir"

// Access records one occurrence of a Load/Store/ReduceTo against a
// variable, with the indices as written (not yet compared for
// same/different across iterations; that is the dependency finder's job).
type Access struct {
	Var     string
	Indices []ir.Expr
	IsWrite bool
	IsRead  bool // ReduceTo is both
	Stmt    ir.Stmt
}

// RWSet is the read/write set of a subtree: which variable names are read,
// written, or both (a ReduceTo target), plus the full access list for
// dependency analysis.
type RWSet struct {
	Reads   map[string]bool
	Writes  map[string]bool
	Access  []Access
}

// ExtractRW walks s and collects its read/write set (§4.3).
func ExtractRW(s ir.Stmt) *RWSet {
	c := &rwCollector{set: &RWSet{Reads: map[string]bool{}, Writes: map[string]bool{}}}
	c.Self = c
	c.VisitStmt(s)
	return c.set
}

type rwCollector struct {
	ir.BaseVisitor
	set *RWSet
}

func (c *rwCollector) VisitStmt(s ir.Stmt) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *ir.Store:
		c.set.Writes[n.Var] = true
		c.set.Access = append(c.set.Access, Access{Var: n.Var, Indices: n.Indices, IsWrite: true, Stmt: s})
	case *ir.ReduceTo:
		c.set.Writes[n.Var] = true
		c.set.Reads[n.Var] = true
		c.set.Access = append(c.set.Access, Access{Var: n.Var, Indices: n.Indices, IsWrite: true, IsRead: true, Stmt: s})
	}
	c.BaseVisitor.VisitStmt(s)
}

func (c *rwCollector) VisitExpr(e ir.Expr) {
	if e == nil {
		return
	}
	if l, ok := e.(*ir.LoadExpr); ok {
		c.set.Reads[l.Var] = true
		c.set.Access = append(c.set.Access, Access{Var: l.Var, Indices: l.Indices, IsRead: true})
	}
	c.BaseVisitor.VisitExpr(e)
}

// Equivalent reports whether two read/write sets are the same modulo a set
// of names to ignore (cache/reduction buffers a pass introduced), the
// property §8 requires every successful pass to preserve.
func (rw *RWSet) Equivalent(other *RWSet, ignore map[string]bool) bool {
	return setEqual(rw.Reads, other.Reads, ignore) && setEqual(rw.Writes, other.Writes, ignore)
}

func setEqual(a, b map[string]bool, ignore map[string]bool) bool {
	for k := range a {
		if ignore[k] {
			continue
		}
		if !b[k] {
			return false
		}
	}
	for k := range b {
		if ignore[k] {
			continue
		}
		if !a[k] {
			return false
		}
	}
	return true
}
