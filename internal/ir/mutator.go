package ir

// Mutator walks a tree and returns a (possibly new) node of the same
// category. MutateStmt/MutateExpr's default hook rebuilds the node with
// recursively-mutated children; a concrete mutator embeds *BaseMutator,
// sets Self to itself, and overrides only the kinds it rewrites.
type Mutator interface {
	MutateStmt(Stmt) Stmt
	MutateExpr(Expr) Expr
}

type BaseMutator struct {
	Self Mutator
}

func (b *BaseMutator) self() Mutator {
	if b.Self != nil {
		return b.Self
	}
	return b
}

func (b *BaseMutator) MutateStmt(s Stmt) Stmt {
	if s == nil {
		return nil
	}
	self := b.self()
	switch n := s.(type) {
	case *StmtSeq:
		out := make([]Stmt, len(n.Stmts))
		for i, c := range n.Stmts {
			out[i] = self.MutateStmt(c)
		}
		r := NewStmtSeq(out...)
		r.id = n.id
		return r
	case *VarDef:
		r := NewVarDef(n.Name, n.Buffer.Clone(), self.MutateStmt(n.Body))
		r.id = n.id
		return r
	case *Store:
		r := NewStore(n.Var, mutateExprs(self, n.Indices), self.MutateExpr(n.Expr))
		r.id = n.id
		return r
	case *ReduceTo:
		r := NewReduceTo(n.Var, mutateExprs(self, n.Indices), n.Op, self.MutateExpr(n.Expr))
		r.id = n.id
		r.Atomic = n.Atomic
		return r
	case *For:
		r := NewFor(n.Iter, self.MutateExpr(n.Begin), self.MutateExpr(n.End), self.MutateExpr(n.Step), self.MutateStmt(n.Body))
		r.id = n.id
		r.Property = n.Property.Clone()
		return r
	case *If:
		var els Stmt
		if n.Else != nil {
			els = self.MutateStmt(n.Else)
		}
		r := NewIf(self.MutateExpr(n.Cond), self.MutateStmt(n.Then), els)
		r.id = n.id
		return r
	case *Assert:
		r := NewAssert(self.MutateExpr(n.Cond), self.MutateStmt(n.Body))
		r.id = n.id
		return r
	case *Assume:
		r := NewAssume(self.MutateExpr(n.Cond), self.MutateStmt(n.Body))
		r.id = n.id
		return r
	case *Eval:
		r := NewEval(self.MutateExpr(n.Expr))
		r.id = n.id
		return r
	case *AnyStmt:
		r := NewAnyStmt()
		r.id = n.id
		return r
	default:
		return s
	}
}

func mutateExprs(m Mutator, in []Expr) []Expr {
	if in == nil {
		return nil
	}
	out := make([]Expr, len(in))
	for i, e := range in {
		out[i] = m.MutateExpr(e)
	}
	return out
}

func (b *BaseMutator) MutateExpr(e Expr) Expr {
	if e == nil {
		return nil
	}
	self := b.self()
	switch n := e.(type) {
	case *VarExpr:
		return NewVar(n.Name)
	case *LoadExpr:
		return NewLoad(n.Var, mutateExprs(self, n.Indices)...)
	case *IntConst:
		return NewIntConst(n.Value)
	case *FloatConst:
		return NewFloatConst(n.Value, n.DType)
	case *BoolConst:
		return NewBoolConst(n.Value)
	case *BinaryExpr:
		return NewBinary(n.Op, self.MutateExpr(n.LHS), self.MutateExpr(n.RHS))
	case *MinMaxExpr:
		if n.IsMax {
			return NewMax(self.MutateExpr(n.LHS), self.MutateExpr(n.RHS))
		}
		return NewMin(self.MutateExpr(n.LHS), self.MutateExpr(n.RHS))
	case *CompareExpr:
		return NewCompare(n.Op, self.MutateExpr(n.LHS), self.MutateExpr(n.RHS))
	case *LogicalExpr:
		var rhs Expr
		if n.RHS != nil {
			rhs = self.MutateExpr(n.RHS)
		}
		return NewLogical(n.Op, self.MutateExpr(n.LHS), rhs)
	case *UnaryExpr:
		return NewUnary(n.Op, self.MutateExpr(n.Arg))
	case *IfExpr:
		return NewIfExpr(self.MutateExpr(n.Cond), self.MutateExpr(n.Then), self.MutateExpr(n.Else))
	case *CastExpr:
		return NewCast(n.DType, self.MutateExpr(n.Arg))
	case *IntrinsicExpr:
		r := NewIntrinsic(n.Template, n.DType, mutateExprs(self, n.Args)...)
		r.HasSideEffect = n.HasSideEffect
		return r
	case *AnyExpr:
		return NewAnyExpr()
	default:
		return e
	}
}
