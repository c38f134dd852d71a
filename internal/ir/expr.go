package ir

// VarExpr references a scalar variable (a loop iterator or a by-value
// VarDef) by name.
type VarExpr struct {
	exprBase
	Name string
}

func NewVar(name string) *VarExpr { return &VarExpr{Name: name} }
func (*VarExpr) ExprKind() ExprKind { return KVar }

// LoadExpr reads an element of a tensor variable at a vector of indices.
type LoadExpr struct {
	exprBase
	Var     string
	Indices []Expr
}

func NewLoad(v string, indices ...Expr) *LoadExpr {
	return &LoadExpr{Var: v, Indices: indices}
}
func (*LoadExpr) ExprKind() ExprKind { return KLoad }

// IntConst is an integer literal.
type IntConst struct {
	exprBase
	Value int64
}

func NewIntConst(v int64) *IntConst   { return &IntConst{Value: v} }
func (*IntConst) ExprKind() ExprKind { return KIntConst }

// FloatConst is a float literal, tagged with the precision it was written
// at so the emitter can choose the right suffix/type.
type FloatConst struct {
	exprBase
	Value float64
	DType DataType
}

func NewFloatConst(v float64, dt DataType) *FloatConst {
	return &FloatConst{Value: v, DType: dt}
}
func (*FloatConst) ExprKind() ExprKind { return KFloatConst }

// BoolConst is a boolean literal.
type BoolConst struct {
	exprBase
	Value bool
}

func NewBoolConst(v bool) *BoolConst { return &BoolConst{Value: v} }
func (*BoolConst) ExprKind() ExprKind { return KBoolConst }

// BinaryExpr is a binary arithmetic expression.
type BinaryExpr struct {
	exprBase
	Op          BinaryOp
	LHS, RHS Expr
}

func NewBinary(op BinaryOp, lhs, rhs Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}
func (*BinaryExpr) ExprKind() ExprKind { return KBinary }

// MinMaxExpr is a min/max of two operands.
type MinMaxExpr struct {
	exprBase
	IsMax    bool
	LHS, RHS Expr
}

func NewMin(lhs, rhs Expr) *MinMaxExpr { return &MinMaxExpr{IsMax: false, LHS: lhs, RHS: rhs} }
func NewMax(lhs, rhs Expr) *MinMaxExpr { return &MinMaxExpr{IsMax: true, LHS: lhs, RHS: rhs} }
func (m *MinMaxExpr) ExprKind() ExprKind {
	if m.IsMax {
		return KMax
	}
	return KMin
}

// CompareExpr is a comparison.
type CompareExpr struct {
	exprBase
	Op       CompareOp
	LHS, RHS Expr
}

func NewCompare(op CompareOp, lhs, rhs Expr) *CompareExpr {
	return &CompareExpr{Op: op, LHS: lhs, RHS: rhs}
}
func (*CompareExpr) ExprKind() ExprKind { return KCompare }

// LogicalExpr is a logical (boolean) expression. RHS is nil for LNot.
type LogicalExpr struct {
	exprBase
	Op       LogicalOp
	LHS, RHS Expr
}

func NewLogical(op LogicalOp, lhs, rhs Expr) *LogicalExpr {
	return &LogicalExpr{Op: op, LHS: lhs, RHS: rhs}
}
func (*LogicalExpr) ExprKind() ExprKind { return KLogical }

// UnaryExpr is a unary math expression.
type UnaryExpr struct {
	exprBase
	Op  UnaryMathOp
	Arg Expr
}

func NewUnary(op UnaryMathOp, arg Expr) *UnaryExpr { return &UnaryExpr{Op: op, Arg: arg} }
func (*UnaryExpr) ExprKind() ExprKind             { return KUnary }

// IfExpr is a ternary.
type IfExpr struct {
	exprBase
	Cond, Then, Else Expr
}

func NewIfExpr(cond, then, els Expr) *IfExpr { return &IfExpr{Cond: cond, Then: then, Else: els} }
func (*IfExpr) ExprKind() ExprKind          { return KIfExpr }

// CastExpr converts its operand to DType.
type CastExpr struct {
	exprBase
	DType DataType
	Arg   Expr
}

func NewCast(dt DataType, arg Expr) *CastExpr { return &CastExpr{DType: dt, Arg: arg} }
func (*CastExpr) ExprKind() ExprKind         { return KCast }

// IntrinsicExpr is a target-specific builtin: a string template with
// positional placeholders plus its argument list (e.g. "matmul(%,%,%)").
type IntrinsicExpr struct {
	exprBase
	Template string
	Args     []Expr
	DType    DataType
	// HasSideEffect marks an intrinsic that must not be reordered/removed
	// even if its value appears unused (e.g. a fused matmul call writing
	// its output buffer as a side effect rather than returning a value).
	HasSideEffect bool
}

func NewIntrinsic(template string, dtype DataType, args ...Expr) *IntrinsicExpr {
	return &IntrinsicExpr{Template: template, DType: dtype, Args: args}
}
func (*IntrinsicExpr) ExprKind() ExprKind { return KIntrinsic }

// AnyExpr is the wildcard expression used by pattern matching.
type AnyExpr struct {
	exprBase
}

func NewAnyExpr() *AnyExpr         { return &AnyExpr{} }
func (*AnyExpr) ExprKind() ExprKind { return KAnyExpr }
