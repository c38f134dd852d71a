package ir

// FindByID returns the statement with the given ID within s, or nil if
// none matches. Used by the Schedule façade to resolve an operation's
// target before rewriting.
func FindByID(s Stmt, id ID) Stmt {
	var found Stmt
	v := &idFinder{target: id, found: &found}
	v.Self = v
	Walk(v, s)
	return found
}

type idFinder struct {
	BaseVisitor
	target ID
	found  *Stmt
}

func (v *idFinder) VisitStmt(s Stmt) {
	if *v.found != nil {
		return
	}
	if s.StmtID() == v.target {
		*v.found = s
		return
	}
	v.BaseVisitor.VisitStmt(s)
}

// ReplaceByID rewrites the subtree rooted at id to replacement's result,
// leaving every other node untouched (structurally copied by the default
// Mutator traversal, preserving IDs).
func ReplaceByID(s Stmt, id ID, replace func(Stmt) Stmt) Stmt {
	m := &idReplacer{target: id, replace: replace}
	m.Self = m
	return m.MutateStmt(s)
}

type idReplacer struct {
	BaseMutator
	target  ID
	replace func(Stmt) Stmt
}

func (m *idReplacer) MutateStmt(s Stmt) Stmt {
	if s.StmtID() == m.target {
		return m.replace(s)
	}
	return m.BaseMutator.MutateStmt(s)
}

// Find returns every statement in s for which pred holds, in traversal
// (pre-)order.
func Find(s Stmt, pred func(Stmt) bool) []Stmt {
	var out []Stmt
	v := &predFinder{pred: pred, out: &out}
	v.Self = v
	Walk(v, s)
	return out
}

type predFinder struct {
	BaseVisitor
	pred func(Stmt) bool
	out  *[]Stmt
}

func (v *predFinder) VisitStmt(s Stmt) {
	if v.pred(s) {
		*v.out = append(*v.out, s)
	}
	v.BaseVisitor.VisitStmt(s)
}

// Parent locates the direct structural parent of the node with the given
// ID within s (nil if id is the root or not found). Used by operations
// that need sibling context (swap, fission, move-to).
func Parent(s Stmt, id ID) Stmt {
	var parent Stmt
	v := &parentFinder{target: id, parent: &parent}
	v.Self = v
	Walk(v, s)
	return parent
}

type parentFinder struct {
	BaseVisitor
	target ID
	parent *Stmt
	cur    Stmt
}

func (v *parentFinder) VisitStmt(s Stmt) {
	prev := v.cur
	v.cur = s
	if childHasID(s, v.target) && *v.parent == nil {
		*v.parent = s
	}
	v.BaseVisitor.VisitStmt(s)
	v.cur = prev
}

func childHasID(s Stmt, id ID) bool {
	switch n := s.(type) {
	case *StmtSeq:
		for _, c := range n.Stmts {
			if c.StmtID() == id {
				return true
			}
		}
	case *VarDef:
		return n.Body != nil && n.Body.StmtID() == id
	case *For:
		return n.Body != nil && n.Body.StmtID() == id
	case *If:
		return (n.Then != nil && n.Then.StmtID() == id) || (n.Else != nil && n.Else.StmtID() == id)
	case *Assert:
		return n.Body != nil && n.Body.StmtID() == id
	case *Assume:
		return n.Body != nil && n.Body.StmtID() == id
	}
	return false
}
