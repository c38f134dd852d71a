package symtab

import (
	"fmt"

	"tensorc/internal/cerrors"
	"tensorc/internal/ir"
)

// Validate walks s and checks every §3.5 invariant: VarDef/For names are
// unique in their scope, every Load/Store/ReduceTo has an enclosing VarDef
// of matching rank, and IDs are unique across the tree. It is run after
// every public Schedule/Pass API call (§8 Universal invariants).
func Validate(s ir.Stmt) error {
	v := &validator{env: NewEnv(), ids: map[ir.ID]bool{}}
	v.BaseVisitor.Self = v
	v.VisitStmt(s)
	if v.err != nil {
		return v.err
	}
	return nil
}

type validator struct {
	ir.BaseVisitor
	env *Env
	ids map[ir.ID]bool
	err error
}

func (v *validator) fail(err error) {
	if v.err == nil {
		v.err = err
	}
}

func (v *validator) checkID(s ir.Stmt) bool {
	id := s.StmtID()
	if v.ids[id] {
		v.fail(cerrors.New(cerrors.InvalidProgram, string(id), "duplicate statement ID"))
		return false
	}
	v.ids[id] = true
	return true
}

func (v *validator) VisitStmt(s ir.Stmt) {
	if s == nil || v.err != nil {
		return
	}
	if !v.checkID(s) {
		return
	}
	switch n := s.(type) {
	case *ir.VarDef:
		if err := v.env.PushVarDef(n); err != nil {
			v.fail(err)
			return
		}
		v.VisitStmt(n.Body)
		v.env.Pop()
		return
	case *ir.For:
		if err := v.env.PushFor(n); err != nil {
			v.fail(err)
			return
		}
		v.VisitStmt(n.Body)
		v.env.Pop()
		return
	case *ir.Store:
		v.checkAccess(n.Var, len(n.Indices))
	case *ir.ReduceTo:
		v.checkAccess(n.Var, len(n.Indices))
	}
	v.BaseVisitor.VisitStmt(s)
}

func (v *validator) VisitExpr(e ir.Expr) {
	if e == nil || v.err != nil {
		return
	}
	if l, ok := e.(*ir.LoadExpr); ok {
		v.checkAccess(l.Var, len(l.Indices))
	}
	v.BaseVisitor.VisitExpr(e)
}

func (v *validator) checkAccess(name string, rank int) {
	buf, err := v.env.Buffer(name)
	if err != nil {
		v.fail(err)
		return
	}
	if buf.Tensor.Rank() != rank {
		v.fail(cerrors.New(cerrors.InvalidProgram, name,
			fmt.Sprintf("access has %d indices but %s has rank %d", rank, name, buf.Tensor.Rank())))
	}
}
