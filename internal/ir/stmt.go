package ir

// StmtSeq is a sequence of sibling statements (a block), the only way
// multiple statements are composed. Front-ends needing a single statement
// never wrap it; `swap`/`fission`/`move-to` operate on the Stmts slice.
type StmtSeq struct {
	base
	Stmts []Stmt
}

func NewStmtSeq(stmts ...Stmt) *StmtSeq {
	s := &StmtSeq{Stmts: stmts}
	s.id = NewID()
	return s
}
func (*StmtSeq) StmtKind() StmtKind { return KStmtSeq }

// VarDef introduces a named Buffer whose lifetime is the Body's scope.
type VarDef struct {
	base
	Name   string
	Buffer *Buffer
	Body   Stmt
}

func NewVarDef(name string, buf *Buffer, body Stmt) *VarDef {
	v := &VarDef{Name: name, Buffer: buf, Body: body}
	v.id = NewID()
	return v
}
func (*VarDef) StmtKind() StmtKind { return KVarDef }

// Store writes Expr to Var[Indices].
type Store struct {
	base
	Var     string
	Indices []Expr
	Expr    Expr
}

func NewStore(v string, indices []Expr, expr Expr) *Store {
	s := &Store{Var: v, Indices: indices, Expr: expr}
	s.id = NewID()
	return s
}
func (*Store) StmtKind() StmtKind { return KStore }

// ReduceTo performs an associative in-place update Var[Indices] op= Expr.
type ReduceTo struct {
	base
	Var     string
	Indices []Expr
	Op      ReduceOp
	Expr    Expr
	// Atomic marks a reduction that must be emitted with an atomic
	// operation, set by make-parallel-reduction (§4.4).
	Atomic bool
}

func NewReduceTo(v string, indices []Expr, op ReduceOp, expr Expr) *ReduceTo {
	r := &ReduceTo{Var: v, Indices: indices, Op: op, Expr: expr}
	r.id = NewID()
	return r
}
func (*ReduceTo) StmtKind() StmtKind { return KReduceTo }

// For is a loop over [Begin, Begin+Len*Step) by Step, Len cached redundant
// with (End-Begin)/Step so passes that only need the trip count need not
// re-derive it.
type For struct {
	base
	Iter          string
	Begin, End    Expr
	Step          Expr
	Len           Expr
	Body          Stmt
	Property      *ForProperty
}

func NewFor(iter string, begin, end, step Expr, body Stmt) *For {
	f := &For{Iter: iter, Begin: begin, End: end, Step: step, Body: body, Property: &ForProperty{}}
	f.id = NewID()
	f.Len = computeLen(begin, end, step)
	return f
}

func computeLen(begin, end, step Expr) Expr {
	return NewBinary(FloorDiv, NewBinary(Sub, end, begin), step)
}

func (*For) StmtKind() StmtKind { return KFor }

// If is a conditional. Else is nil for a one-armed if.
type If struct {
	base
	Cond       Expr
	Then, Else Stmt
}

func NewIf(cond Expr, then, els Stmt) *If {
	i := &If{Cond: cond, Then: then, Else: els}
	i.id = NewID()
	return i
}
func (*If) StmtKind() StmtKind { return KIf }

// Assert fails lowering/execution if Cond does not hold; Body is the
// statement it guards (assertions scope like an If with no else).
type Assert struct {
	base
	Cond Expr
	Body Stmt
}

func NewAssert(cond Expr, body Stmt) *Assert {
	a := &Assert{Cond: cond, Body: body}
	a.id = NewID()
	return a
}
func (*Assert) StmtKind() StmtKind { return KAssert }

// Assume tells bound inference Cond holds within Body without emitting a
// runtime check.
type Assume struct {
	base
	Cond Expr
	Body Stmt
}

func NewAssume(cond Expr, body Stmt) *Assume {
	a := &Assume{Cond: cond, Body: body}
	a.id = NewID()
	return a
}
func (*Assume) StmtKind() StmtKind { return KAssume }

// Eval evaluates Expr for its side effects (e.g. an intrinsic call) and
// discards the result.
type Eval struct {
	base
	Expr Expr
}

func NewEval(expr Expr) *Eval {
	e := &Eval{Expr: expr}
	e.id = NewID()
	return e
}
func (*Eval) StmtKind() StmtKind { return KEval }

// AnyStmt is the wildcard statement used by pattern matching.
type AnyStmt struct {
	base
}

func NewAnyStmt() *AnyStmt {
	a := &AnyStmt{}
	a.id = NewID()
	return a
}
func (*AnyStmt) StmtKind() StmtKind { return KAnyStmt }

// Func is the root of an IR tree: a named function over an ordered
// parameter list and a buffer table, as the front-end construction
// interface (§6) hands to the core.
type Func struct {
	Name    string
	Params  []string
	Buffers map[string]*Buffer
	Body    Stmt
}

func NewFunc(name string, params []string, buffers map[string]*Buffer, body Stmt) *Func {
	return &Func{Name: name, Params: params, Buffers: buffers, Body: body}
}
