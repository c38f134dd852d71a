package irtext

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"tensorc/internal/ir"
)

// Build converts a parsed Program into one ir.Stmt per function, keyed by
// function name.
func Build(p *Program) (map[string]ir.Stmt, error) {
	out := map[string]ir.Stmt{}
	for _, f := range p.Funcs {
		tree, err := buildFunc(f)
		if err != nil {
			return nil, fmt.Errorf("func %s: %w", f.Name, err)
		}
		out[f.Name] = tree
	}
	return out, nil
}

func buildFunc(f *FuncDecl) (ir.Stmt, error) {
	return buildBlock(f.Body)
}

// buildBlock builds a statement list, threading a "var" declaration's
// scope: everything that follows it in the same list becomes its Body,
// recursively, since the DSL (unlike the printed IR) writes a VarDecl and
// its scope's statements as flat siblings rather than nested braces.
func buildBlock(stmts []*Stmt) (ir.Stmt, error) {
	if len(stmts) == 0 {
		return ir.NewStmtSeq(), nil
	}
	head := stmts[0]
	if head.VarDecl != nil {
		def, err := buildVarDecl(head.VarDecl)
		if err != nil {
			return nil, err
		}
		rest, err := buildBlock(stmts[1:])
		if err != nil {
			return nil, err
		}
		vd := def.(*ir.VarDef)
		vd.Body = rest
		return ir.NewStmtSeq(vd), nil
	}
	n, err := buildStmt(head)
	if err != nil {
		return nil, err
	}
	rest, err := buildBlock(stmts[1:])
	if err != nil {
		return nil, err
	}
	restSeq, ok := rest.(*ir.StmtSeq)
	if !ok {
		restSeq = ir.NewStmtSeq(rest)
	}
	return ir.NewStmtSeq(append([]ir.Stmt{n}, restSeq.Stmts...)...), nil
}

func buildStmt(s *Stmt) (ir.Stmt, error) {
	switch {
	case s.For != nil:
		return buildFor(s.For)
	case s.If != nil:
		return buildIf(s.If)
	case s.Reduce != nil:
		return buildReduce(s.Reduce)
	case s.Store != nil:
		return buildStore(s.Store)
	default:
		return nil, fmt.Errorf("empty statement alternative")
	}
}

func buildVarDecl(v *VarDecl) (ir.Stmt, error) {
	dtype, err := parseDType(v.DType)
	if err != nil {
		return nil, err
	}
	atype, err := parseAccessType(v.Access)
	if err != nil {
		return nil, err
	}
	mtype := ir.ByValue
	if v.MemType != "" {
		mtype, err = parseMemType(v.MemType)
		if err != nil {
			return nil, err
		}
	}
	shape := make([]ir.Expr, len(v.Dims))
	for i, d := range v.Dims {
		e, err := buildExpr(d)
		if err != nil {
			return nil, err
		}
		shape[i] = e
	}
	buf := ir.NewBuffer(ir.Tensor{Shape: shape, DType: dtype}, atype, mtype)
	// buildBlock overwrites Body with the rest of the enclosing statement
	// list once it has been built; the placeholder here is never kept.
	return ir.NewVarDef(v.Name, buf, ir.NewStmtSeq()), nil
}

func buildFor(f *ForStmt) (ir.Stmt, error) {
	begin, err := buildExpr(f.Begin)
	if err != nil {
		return nil, err
	}
	end, err := buildExpr(f.End)
	if err != nil {
		return nil, err
	}
	var step ir.Expr = ir.NewIntConst(1)
	if f.Step != nil {
		step, err = buildExpr(f.Step)
		if err != nil {
			return nil, err
		}
	}
	body, err := buildBlock(f.Body)
	if err != nil {
		return nil, err
	}
	return ir.NewFor(f.Iter, begin, end, step, body), nil
}

func buildIf(i *IfStmt) (ir.Stmt, error) {
	cond, err := buildExpr(i.Cond)
	if err != nil {
		return nil, err
	}
	then, err := buildBlock(i.Then)
	if err != nil {
		return nil, err
	}
	var els ir.Stmt
	if i.Else != nil {
		els, err = buildBlock(i.Else)
		if err != nil {
			return nil, err
		}
	}
	return ir.NewIf(cond, then, els), nil
}

func buildStore(st *StoreStmt) (ir.Stmt, error) {
	indices, err := buildExprList(st.Indices)
	if err != nil {
		return nil, err
	}
	val, err := buildExpr(st.Value)
	if err != nil {
		return nil, err
	}
	return ir.NewStore(st.Var, indices, val), nil
}

func buildReduce(r *ReduceStmt) (ir.Stmt, error) {
	indices, err := buildExprList(r.Indices)
	if err != nil {
		return nil, err
	}
	val, err := buildExpr(r.Value)
	if err != nil {
		return nil, err
	}
	op, err := parseReduceOp(r.Op)
	if err != nil {
		return nil, err
	}
	return ir.NewReduceTo(r.Var, indices, op, val), nil
}

func buildExprList(es []*Expr) ([]ir.Expr, error) {
	out := make([]ir.Expr, len(es))
	for i, e := range es {
		v, err := buildExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func buildExpr(e *Expr) (ir.Expr, error) { return buildCompare(e.Compare) }

func buildCompare(c *CompareExpr) (ir.Expr, error) {
	left, err := buildAdd(c.Left)
	if err != nil {
		return nil, err
	}
	cur := left
	for i, op := range c.Ops {
		rhs, err := buildAdd(c.Rest[i])
		if err != nil {
			return nil, err
		}
		cop, err := parseCompareOp(op)
		if err != nil {
			return nil, err
		}
		cur = ir.NewCompare(cop, cur, rhs)
	}
	return cur, nil
}

func buildAdd(a *AddExpr) (ir.Expr, error) {
	left, err := buildMul(a.Left)
	if err != nil {
		return nil, err
	}
	cur := left
	for i, op := range a.Ops {
		rhs, err := buildMul(a.Rest[i])
		if err != nil {
			return nil, err
		}
		var bop ir.BinaryOp
		if op == "+" {
			bop = ir.Add
		} else {
			bop = ir.Sub
		}
		cur = ir.NewBinary(bop, cur, rhs)
	}
	return cur, nil
}

func buildMul(m *MulExpr) (ir.Expr, error) {
	left, err := buildUnary(m.Left)
	if err != nil {
		return nil, err
	}
	cur := left
	for i, op := range m.Ops {
		rhs, err := buildUnary(m.Rest[i])
		if err != nil {
			return nil, err
		}
		var bop ir.BinaryOp
		switch op {
		case "*":
			bop = ir.Mul
		case "/":
			bop = ir.RealDiv
		case "//":
			bop = ir.FloorDiv
		case "%":
			bop = ir.Mod
		default:
			return nil, fmt.Errorf("unknown multiplicative operator %q", op)
		}
		cur = ir.NewBinary(bop, cur, rhs)
	}
	return cur, nil
}

func buildUnary(u *UnaryExpr) (ir.Expr, error) {
	p, err := buildPrimary(u.Primary)
	if err != nil {
		return nil, err
	}
	if u.Neg {
		return ir.NewBinary(ir.Sub, ir.NewIntConst(0), p), nil
	}
	return p, nil
}

func buildPrimary(p *Primary) (ir.Expr, error) {
	switch {
	case p.Float != nil:
		return ir.NewFloatConst(*p.Float, ir.Float32), nil
	case p.Int != nil:
		return ir.NewIntConst(*p.Int), nil
	case p.Load != nil:
		indices, err := buildExprList(p.Load.Indices)
		if err != nil {
			return nil, err
		}
		return ir.NewLoad(p.Load.Name, indices...), nil
	case p.Var != nil:
		return ir.NewVar(*p.Var), nil
	case p.Paren != nil:
		return buildExpr(p.Paren)
	default:
		return nil, fmt.Errorf("empty primary expression")
	}
}

func parseDType(s string) (ir.DataType, error) {
	switch s {
	case "i32":
		return ir.Int32, nil
	case "f32":
		return ir.Float32, nil
	case "f64":
		return ir.Float64, nil
	case "bool":
		return ir.Bool, nil
	case "custom":
		return ir.Custom, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

func parseAccessType(s string) (ir.AccessType, error) {
	switch s {
	case "input":
		return ir.Input, nil
	case "output":
		return ir.Output, nil
	case "inout":
		return ir.InOut, nil
	case "cache":
		return ir.Cache, nil
	default:
		return 0, fmt.Errorf("unknown access type %q", s)
	}
}

// parseMemType accepts both the canonical dotted spelling ("gpu.shared")
// and any snake_case/PascalCase/camelCase variant a hand-written .tc file
// might use ("gpu_shared", "GpuShared"), normalizing through strcase
// before the switch so the grammar's lexer doesn't need a second Ident
// form for memory-space literals.
func parseMemType(s string) (ir.MemType, error) {
	switch strcase.ToDelimited(s, '.') {
	case "byvalue":
		return ir.ByValue, nil
	case "cpu":
		return ir.CPUMem, nil
	case "gpu.global":
		return ir.GPUGlobal, nil
	case "gpu.shared":
		return ir.GPUShared, nil
	case "gpu.local":
		return ir.GPULocal, nil
	default:
		return 0, fmt.Errorf("unknown memory type %q", s)
	}
}

func parseReduceOp(s string) (ir.ReduceOp, error) {
	switch s {
	case "add":
		return ir.ReduceAdd, nil
	case "mul":
		return ir.ReduceMul, nil
	case "min":
		return ir.ReduceMin, nil
	case "max":
		return ir.ReduceMax, nil
	case "land":
		return ir.ReduceLAnd, nil
	case "lor":
		return ir.ReduceLOr, nil
	default:
		return 0, fmt.Errorf("unknown reduction operator %q", s)
	}
}

func parseCompareOp(s string) (ir.CompareOp, error) {
	switch s {
	case "<":
		return ir.LT, nil
	case "<=":
		return ir.LE, nil
	case ">":
		return ir.GT, nil
	case ">=":
		return ir.GE, nil
	case "==":
		return ir.EQ, nil
	case "!=":
		return ir.NE, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", s)
	}
}
