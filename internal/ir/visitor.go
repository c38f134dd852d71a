package ir

// Visitor walks a tree read-only. Embed BaseVisitor and override only the
// hooks a concrete visitor cares about; VisitStmt/VisitExpr dispatch on
// node kind and recurse into children through the embedded default, so
// subclasses never enumerate children themselves.
type Visitor interface {
	VisitStmt(Stmt)
	VisitExpr(Expr)
}

// BaseVisitor provides the default per-kind recursion. A real visitor
// embeds *BaseVisitor and sets Self to itself so overridden hooks on the
// outer type are reached even when BaseVisitor's own methods recurse.
type BaseVisitor struct {
	Self Visitor
}

func (b *BaseVisitor) self() Visitor {
	if b.Self != nil {
		return b.Self
	}
	return b
}

func (b *BaseVisitor) VisitStmt(s Stmt) {
	if s == nil {
		return
	}
	self := b.self()
	switch n := s.(type) {
	case *StmtSeq:
		for _, c := range n.Stmts {
			self.VisitStmt(c)
		}
	case *VarDef:
		self.VisitStmt(n.Body)
	case *Store:
		for _, idx := range n.Indices {
			self.VisitExpr(idx)
		}
		self.VisitExpr(n.Expr)
	case *ReduceTo:
		for _, idx := range n.Indices {
			self.VisitExpr(idx)
		}
		self.VisitExpr(n.Expr)
	case *For:
		self.VisitExpr(n.Begin)
		self.VisitExpr(n.End)
		self.VisitExpr(n.Step)
		self.VisitStmt(n.Body)
	case *If:
		self.VisitExpr(n.Cond)
		self.VisitStmt(n.Then)
		if n.Else != nil {
			self.VisitStmt(n.Else)
		}
	case *Assert:
		self.VisitExpr(n.Cond)
		self.VisitStmt(n.Body)
	case *Assume:
		self.VisitExpr(n.Cond)
		self.VisitStmt(n.Body)
	case *Eval:
		self.VisitExpr(n.Expr)
	case *AnyStmt:
		// leaf
	}
}

func (b *BaseVisitor) VisitExpr(e Expr) {
	if e == nil {
		return
	}
	self := b.self()
	switch n := e.(type) {
	case *VarExpr, *IntConst, *FloatConst, *BoolConst, *AnyExpr:
		// leaves
	case *LoadExpr:
		for _, idx := range n.Indices {
			self.VisitExpr(idx)
		}
	case *BinaryExpr:
		self.VisitExpr(n.LHS)
		self.VisitExpr(n.RHS)
	case *MinMaxExpr:
		self.VisitExpr(n.LHS)
		self.VisitExpr(n.RHS)
	case *CompareExpr:
		self.VisitExpr(n.LHS)
		self.VisitExpr(n.RHS)
	case *LogicalExpr:
		self.VisitExpr(n.LHS)
		if n.RHS != nil {
			self.VisitExpr(n.RHS)
		}
	case *UnaryExpr:
		self.VisitExpr(n.Arg)
	case *IfExpr:
		self.VisitExpr(n.Cond)
		self.VisitExpr(n.Then)
		self.VisitExpr(n.Else)
	case *CastExpr:
		self.VisitExpr(n.Arg)
	case *IntrinsicExpr:
		for _, a := range n.Args {
			self.VisitExpr(a)
		}
	}
}

// Walk visits every statement and expression reachable from s with v.
func Walk(v Visitor, s Stmt) { v.VisitStmt(s) }
