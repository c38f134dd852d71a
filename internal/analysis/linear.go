// Package analysis implements C3: the linear-expression analyzer, bound
// inference, the dependency finder, read/write set extraction, and
// loop-variance analysis, all as traversals over internal/ir trees.
package analysis

import "tensorc/internal/ir"

// Atom is one unanalyzable term of a linear form: a variable reference, a
// memory load, or (when neither) the opaque subtree itself.
type Atom struct {
	Kind AtomKind
	Name string   // set for AtomVar/AtomLoad
	Expr ir.Expr  // set for AtomOpaque, and for AtomLoad (the full load, for indices)
}

type AtomKind int

const (
	AtomVar AtomKind = iota
	AtomLoad
	AtomOpaque
)

// Term is one kᵢ·aᵢ summand.
type Term struct {
	Coeff int64
	Atom  Atom
}

// LinearForm is the canonical Σ kᵢ·aᵢ + c form §4.3 assigns to every
// integer expression the analyzer can decompose.
type LinearForm struct {
	Terms []Term
	Const int64
}

// Coefficient returns the accumulated coefficient of the variable atom
// with the given name (zero if absent), used by as-matmul's `|k|=1` check
// and by move-out-first-or-last-iter's ±1 iterator test.
func (l *LinearForm) Coefficient(name string) int64 {
	var total int64
	for _, t := range l.Terms {
		if t.Atom.Kind == AtomVar && t.Atom.Name == name {
			total += t.Coeff
		}
	}
	return total
}

// IsConstant reports whether the form has no atoms (a literal constant).
func (l *LinearForm) IsConstant() bool { return len(l.Terms) == 0 }

// Atoms other than name, with their coefficients, used to build the
// "outer-loop-invariant" residual of an as-matmul index.
func (l *LinearForm) ResidualOf(name string) *LinearForm {
	out := &LinearForm{Const: l.Const}
	for _, t := range l.Terms {
		if t.Atom.Kind == AtomVar && t.Atom.Name == name {
			continue
		}
		out.Terms = append(out.Terms, t)
	}
	return out
}

// Analyze decomposes e into its canonical linear form. Subtrees that
// cannot be reduced further become opaque atoms rather than failing the
// whole analysis, so callers always get a best-effort answer.
func Analyze(e ir.Expr) *LinearForm {
	if cached := cachedLinear(e); cached != nil {
		return cached
	}
	lf := analyze(e)
	cacheLinear(e, lf)
	return lf
}

func cachedLinear(e ir.Expr) *LinearForm {
	if e == nil {
		return nil
	}
	lf, _ := e.Meta().Linear.(*LinearForm)
	return lf
}

func cacheLinear(e ir.Expr, lf *LinearForm) {
	if e == nil {
		return
	}
	e.Meta().Linear = lf
}

func analyze(e ir.Expr) *LinearForm {
	switch n := e.(type) {
	case *ir.IntConst:
		return &LinearForm{Const: n.Value}
	case *ir.VarExpr:
		return &LinearForm{Terms: []Term{{Coeff: 1, Atom: Atom{Kind: AtomVar, Name: n.Name}}}}
	case *ir.LoadExpr:
		return &LinearForm{Terms: []Term{{Coeff: 1, Atom: Atom{Kind: AtomLoad, Name: n.Var, Expr: n}}}}
	case *ir.BinaryExpr:
		switch n.Op {
		case ir.Add:
			return add(Analyze(n.LHS), Analyze(n.RHS), 1)
		case ir.Sub:
			return add(Analyze(n.LHS), Analyze(n.RHS), -1)
		case ir.Mul:
			l, r := Analyze(n.LHS), Analyze(n.RHS)
			if k, ok := asConst(l); ok {
				return scale(r, k)
			}
			if k, ok := asConst(r); ok {
				return scale(l, k)
			}
			return opaque(n)
		case ir.FloorDiv, ir.CeilDiv, ir.RoundTowards0Div, ir.Mod, ir.Remainder:
			l, r := Analyze(n.LHS), Analyze(n.RHS)
			lk, lok := asConst(l)
			rk, rok := asConst(r)
			if lok && rok && rk != 0 {
				if v, ok := evalIntDivision(n.Op, lk, rk); ok {
					return &LinearForm{Const: v}
				}
			}
			return opaque(n)
		default:
			return opaque(n)
		}
	default:
		return opaque(e)
	}
}

func opaque(e ir.Expr) *LinearForm {
	return &LinearForm{Terms: []Term{{Coeff: 1, Atom: Atom{Kind: AtomOpaque, Expr: e}}}}
}

func asConst(l *LinearForm) (int64, bool) {
	if l.IsConstant() {
		return l.Const, true
	}
	return 0, false
}

// evalIntDivision folds a compile-time-constant division/remainder per
// §3.2's operator family so a loop's cached Len (always built as a
// FloorDiv of Begin/End/Step by computeLen) resolves to a constant
// LinearForm whenever the loop bounds themselves are constant — the
// as-matmul recognizer and the auto-scheduler's trip-count estimator
// both depend on this to see a concrete trip count instead of an opaque
// atom.
func evalIntDivision(op ir.BinaryOp, a, b int64) (int64, bool) {
	switch op {
	case ir.FloorDiv:
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q, true
	case ir.CeilDiv:
		q := a / b
		if (a%b != 0) && ((a < 0) == (b < 0)) {
			q++
		}
		return q, true
	case ir.RoundTowards0Div:
		return a / b, true
	case ir.Mod:
		m := a % b
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return m, true
	case ir.Remainder:
		return a % b, true
	default:
		return 0, false
	}
}

func scale(l *LinearForm, k int64) *LinearForm {
	out := &LinearForm{Const: l.Const * k}
	for _, t := range l.Terms {
		out.Terms = append(out.Terms, Term{Coeff: t.Coeff * k, Atom: t.Atom})
	}
	return out
}

func add(a, b *LinearForm, sign int64) *LinearForm {
	out := &LinearForm{Const: a.Const + sign*b.Const}
	out.Terms = append(out.Terms, a.Terms...)
	for _, t := range b.Terms {
		out.Terms = append(out.Terms, Term{Coeff: sign * t.Coeff, Atom: t.Atom})
	}
	return mergeLikeTerms(out)
}

func mergeLikeTerms(l *LinearForm) *LinearForm {
	type key struct {
		kind AtomKind
		name string
		expr ir.Expr
	}
	order := []key{}
	coeffs := map[key]int64{}
	for _, t := range l.Terms {
		k := key{t.Atom.Kind, t.Atom.Name, t.Atom.Expr}
		if _, ok := coeffs[k]; !ok {
			order = append(order, k)
		}
		coeffs[k] += t.Coeff
	}
	out := &LinearForm{Const: l.Const}
	for _, k := range order {
		c := coeffs[k]
		if c == 0 {
			continue
		}
		out.Terms = append(out.Terms, Term{Coeff: c, Atom: Atom{Kind: k.kind, Name: k.name, Expr: k.expr}})
	}
	return out
}
