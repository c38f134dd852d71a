package ir

import (
	"hash/fnv"
	"strconv"
)

// Hash computes a structural 64-bit digest of s. By default names matter;
// pass alphaEquivalent=true to have bound For iterators hashed by nesting
// depth instead of by name, so `for i: ...` and `for j: ...` with otherwise
// identical bodies hash equal.
func Hash(s Stmt, alphaEquivalent bool) uint64 {
	h := &hasher{f: fnv.New64a(), alpha: alphaEquivalent, renamed: map[string]string{}}
	h.stmt(s)
	return h.f.Sum64()
}

// HashExpr is Hash's expression-category counterpart. It consults and
// populates the expression's cached Metadata when alphaEquivalent is
// false, the common case used by simplify's fixpoint check.
func HashExpr(e Expr, alphaEquivalent bool) uint64 {
	if !alphaEquivalent {
		if cached, ok := e.Meta().cachedHash(); ok {
			return cached
		}
	}
	h := &hasher{f: fnv.New64a(), alpha: alphaEquivalent, renamed: map[string]string{}}
	h.expr(e)
	v := h.f.Sum64()
	if !alphaEquivalent {
		e.Meta().setCachedHash(v)
	}
	return v
}

// Equal reports whether two statement trees are structurally identical:
// same digests and the same printed shape. By default names matter.
func Equal(a, b Stmt, alphaEquivalent bool) bool {
	return Hash(a, alphaEquivalent) == Hash(b, alphaEquivalent) && Print(a) == Print(b)
}

// EqualExpr is Equal's expression-category counterpart.
func EqualExpr(a, b Expr, alphaEquivalent bool) bool {
	return HashExpr(a, alphaEquivalent) == HashExpr(b, alphaEquivalent) && printExpr(a) == printExpr(b)
}

type hasher struct {
	f       hashWriter
	alpha   bool
	depth   int
	renamed map[string]string
}

// hashWriter is the subset of hash.Hash64 the hasher needs; named so mix
// can be called without importing hash.Hash64 at every call site.
type hashWriter interface {
	Write([]byte) (int, error)
	Sum64() uint64
}

func (h *hasher) mix(tag int, data string) {
	h.f.Write([]byte{byte(tag), byte(tag >> 8)})
	h.f.Write([]byte(data))
	h.f.Write([]byte{0})
}

func (h *hasher) iterName(name string) string {
	if !h.alpha {
		return name
	}
	if r, ok := h.renamed[name]; ok {
		return r
	}
	return name
}

func (h *hasher) pushIter(name string) (restore func()) {
	if !h.alpha {
		return func() {}
	}
	prev, had := h.renamed[name]
	h.renamed[name] = canonicalIterName(h.depth)
	h.depth++
	return func() {
		h.depth--
		if had {
			h.renamed[name] = prev
		} else {
			delete(h.renamed, name)
		}
	}
}

func canonicalIterName(depth int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "#" + string(letters[depth%len(letters)])
}

func itoa(v int64) string   { return strconv.FormatInt(v, 10) }
func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
func btoa(v bool) string    { return strconv.FormatBool(v) }

func (h *hasher) stmt(s Stmt) {
	if s == nil {
		h.mix(-1, "nil")
		return
	}
	switch n := s.(type) {
	case *StmtSeq:
		h.mix(int(KStmtSeq), "")
		for _, c := range n.Stmts {
			h.stmt(c)
		}
	case *VarDef:
		h.mix(int(KVarDef), n.Name)
		h.stmt(n.Body)
	case *Store:
		h.mix(int(KStore), n.Var)
		for _, idx := range n.Indices {
			h.expr(idx)
		}
		h.expr(n.Expr)
	case *ReduceTo:
		h.mix(int(KReduceTo), n.Var)
		h.mix(int(n.Op), "")
		for _, idx := range n.Indices {
			h.expr(idx)
		}
		h.expr(n.Expr)
	case *For:
		restore := h.pushIter(n.Iter)
		h.mix(int(KFor), h.iterName(n.Iter))
		h.expr(n.Begin)
		h.expr(n.End)
		h.expr(n.Step)
		h.stmt(n.Body)
		restore()
	case *If:
		h.mix(int(KIf), "")
		h.expr(n.Cond)
		h.stmt(n.Then)
		h.stmt(n.Else)
	case *Assert:
		h.mix(int(KAssert), "")
		h.expr(n.Cond)
		h.stmt(n.Body)
	case *Assume:
		h.mix(int(KAssume), "")
		h.expr(n.Cond)
		h.stmt(n.Body)
	case *Eval:
		h.mix(int(KEval), "")
		h.expr(n.Expr)
	case *AnyStmt:
		h.mix(int(KAnyStmt), "")
	}
}

func (h *hasher) expr(e Expr) {
	if e == nil {
		h.mix(-2, "nil")
		return
	}
	switch n := e.(type) {
	case *VarExpr:
		h.mix(int(KVar), h.iterName(n.Name))
	case *LoadExpr:
		h.mix(int(KLoad), n.Var)
		for _, idx := range n.Indices {
			h.expr(idx)
		}
	case *IntConst:
		h.mix(int(KIntConst), itoa(n.Value))
	case *FloatConst:
		h.mix(int(KFloatConst), ftoa(n.Value))
	case *BoolConst:
		h.mix(int(KBoolConst), btoa(n.Value))
	case *BinaryExpr:
		h.mix(int(KBinary), "")
		h.mix(int(n.Op), "")
		h.expr(n.LHS)
		h.expr(n.RHS)
	case *MinMaxExpr:
		h.mix(int(e.ExprKind()), "")
		h.expr(n.LHS)
		h.expr(n.RHS)
	case *CompareExpr:
		h.mix(int(KCompare), "")
		h.mix(int(n.Op), "")
		h.expr(n.LHS)
		h.expr(n.RHS)
	case *LogicalExpr:
		h.mix(int(KLogical), "")
		h.mix(int(n.Op), "")
		h.expr(n.LHS)
		h.expr(n.RHS)
	case *UnaryExpr:
		h.mix(int(KUnary), "")
		h.mix(int(n.Op), "")
		h.expr(n.Arg)
	case *IfExpr:
		h.mix(int(KIfExpr), "")
		h.expr(n.Cond)
		h.expr(n.Then)
		h.expr(n.Else)
	case *CastExpr:
		h.mix(int(KCast), "")
		h.mix(int(n.DType), "")
		h.expr(n.Arg)
	case *IntrinsicExpr:
		h.mix(int(KIntrinsic), n.Template)
		for _, a := range n.Args {
			h.expr(a)
		}
	case *AnyExpr:
		h.mix(int(KAnyExpr), "")
	}
}
