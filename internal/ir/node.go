package ir

// Node is the common base of Statement and Expression: every IR node can
// report which concrete kind it is and carry derived analysis attributes.
type Node interface {
	isNode()
}

// Stmt is any statement-category node. Every Stmt carries an ID (§3.1).
type Stmt interface {
	Node
	StmtKind() StmtKind
	StmtID() ID
	setStmtID(ID)
}

// Expr is any expression-category node. Expressions do not carry IDs but
// may carry cached analysis attributes via Metadata.
type Expr interface {
	Node
	ExprKind() ExprKind
	Meta() *Metadata
}

// base is embedded by every statement to provide ID storage without
// repeating the same three lines on each concrete type.
type base struct {
	id ID
}

func (b *base) isNode()       {}
func (b *base) StmtID() ID    { return b.id }
func (b *base) setStmtID(id ID) { b.id = id }

// exprBase is embedded by every expression to provide Metadata storage.
type exprBase struct {
	meta Metadata
}

func (e *exprBase) isNode()         {}
func (e *exprBase) Meta() *Metadata { return &e.meta }

// SetID assigns an explicit ID to a statement, used by constructors that
// accept a user-supplied name instead of allocating a synthetic one.
func SetID(s Stmt, id ID) { s.setStmtID(id) }
