package analysis

import "tensorc/internal/ir"

// Range is a symbolic [Lo, Hi] interval, Hi inclusive.
type Range struct {
	Lo, Hi ir.Expr
}

// BoundContext accumulates the variable ranges derived from enclosing loop
// headers and in-scope assertions/assumptions, the source bound inference
// draws from (§4.3).
type BoundContext struct {
	ranges map[string]Range
	order  []string
}

func NewBoundContext() *BoundContext {
	return &BoundContext{ranges: map[string]Range{}}
}

// PushFor records iterator's range from a For header: [Begin, End-1] when
// Step is the literal 1, and the conservative [Begin, End] otherwise (a
// non-unit step's last value is not syntactically End-1, so we fall back
// to the wider, still-sound bound).
func (c *BoundContext) PushFor(f *ir.For) (restore func()) {
	hi := f.End
	if isOne(f.Step) {
		hi = ir.NewBinary(ir.Sub, f.End, ir.NewIntConst(1))
	}
	return c.push(f.Iter, Range{Lo: f.Begin, Hi: hi})
}

func isOne(e ir.Expr) bool {
	c, ok := e.(*ir.IntConst)
	return ok && c.Value == 1
}

func (c *BoundContext) push(name string, r Range) (restore func()) {
	prev, had := c.ranges[name]
	c.ranges[name] = r
	return func() {
		if had {
			c.ranges[name] = prev
		} else {
			delete(c.ranges, name)
		}
	}
}

// Assume refines the context with a comparison condition known to hold,
// the effect of an Assume/Assert statement in scope. Only the common
// `var OP expr` / `expr OP var` shapes are recognized; anything else is a
// no-op (the analyzer degrades to looser bounds rather than failing).
func (c *BoundContext) Assume(cond ir.Expr) (restore func()) {
	cmp, ok := cond.(*ir.CompareExpr)
	if !ok {
		return func() {}
	}
	if v, ok := cmp.LHS.(*ir.VarExpr); ok {
		return c.refine(v.Name, cmp.Op, cmp.RHS)
	}
	if v, ok := cmp.RHS.(*ir.VarExpr); ok {
		return c.refine(v.Name, flip(cmp.Op), cmp.LHS)
	}
	return func() {}
}

func flip(op ir.CompareOp) ir.CompareOp {
	switch op {
	case ir.LT:
		return ir.GT
	case ir.LE:
		return ir.GE
	case ir.GT:
		return ir.LT
	case ir.GE:
		return ir.LE
	default:
		return op
	}
}

func (c *BoundContext) refine(name string, op ir.CompareOp, bound ir.Expr) (restore func()) {
	cur, had := c.ranges[name]
	next := cur
	switch op {
	case ir.LT:
		next.Hi = ir.NewBinary(ir.Sub, bound, ir.NewIntConst(1))
	case ir.LE:
		next.Hi = bound
	case ir.GT:
		next.Lo = ir.NewBinary(ir.Add, bound, ir.NewIntConst(1))
	case ir.GE:
		next.Lo = bound
	case ir.EQ:
		next = Range{Lo: bound, Hi: bound}
	default:
		return func() {}
	}
	c.ranges[name] = next
	return func() {
		if had {
			c.ranges[name] = cur
		} else {
			delete(c.ranges, name)
		}
	}
}

// Infer returns symbolic lower and upper bounds for e, propagated through
// arithmetic using interval rules over the ranges currently known. The
// result is cached on e's Metadata.
func Infer(e ir.Expr, ctx *BoundContext) (lower, upper []ir.Expr) {
	lo, hi := infer(e, ctx)
	e.Meta().Lower = []ir.Expr{lo}
	e.Meta().Upper = []ir.Expr{hi}
	return e.Meta().Lower, e.Meta().Upper
}

func infer(e ir.Expr, ctx *BoundContext) (lo, hi ir.Expr) {
	switch n := e.(type) {
	case *ir.IntConst:
		return n, n
	case *ir.VarExpr:
		if ctx != nil {
			if r, ok := ctx.ranges[n.Name]; ok {
				return r.Lo, r.Hi
			}
		}
		return e, e
	case *ir.BinaryExpr:
		ll, lh := infer(n.LHS, ctx)
		rl, rh := infer(n.RHS, ctx)
		switch n.Op {
		case ir.Add:
			return ir.NewBinary(ir.Add, ll, rl), ir.NewBinary(ir.Add, lh, rh)
		case ir.Sub:
			return ir.NewBinary(ir.Sub, ll, rh), ir.NewBinary(ir.Sub, lh, rl)
		case ir.Mul:
			// Conservative: only constant-factor scaling is refined; a
			// general interval product needs sign case analysis the
			// distilled model does not attempt.
			if k, ok := constValue(n.LHS); ok && k >= 0 {
				return ir.NewBinary(ir.Mul, ir.NewIntConst(k), rl), ir.NewBinary(ir.Mul, ir.NewIntConst(k), rh)
			}
			if k, ok := constValue(n.RHS); ok && k >= 0 {
				return ir.NewBinary(ir.Mul, ll, ir.NewIntConst(k)), ir.NewBinary(ir.Mul, lh, ir.NewIntConst(k))
			}
			return e, e
		default:
			return e, e
		}
	default:
		return e, e
	}
}

func constValue(e ir.Expr) (int64, bool) {
	c, ok := e.(*ir.IntConst)
	if !ok {
		return 0, false
	}
	return c.Value, true
}

// ProvablyDivisibleBy reports whether e's trip-count-style value can be
// proven an exact multiple of width using the linear form. No pass calls
// it: lower-vector checks divisibility by its candidate widths with its
// own helper in the passes package.
func ProvablyDivisibleBy(e ir.Expr, width int64) bool {
	lf := Analyze(e)
	if !lf.IsConstant() {
		return false
	}
	return lf.Const%width == 0
}
