// Package irtext implements the IR-construction DSL: a small textual
// notation `tensorc build` and test fixtures use to materialize an IR
// tree without hand-writing Go constructor calls for every node. It is
// not the front-end the specification places out of scope — it exists
// only to drive this repository's own tests and CLI, the same role the
// teacher's grammar.ParseFile plays for its own fixtures. Adapted from
// the teacher's participle-based grammar package.
package irtext

// Program is the root of a parsed DSL file: a sequence of function
// declarations, each an independent IR tree to build.
type Program struct {
	Funcs []*FuncDecl `@@*`
}

// FuncDecl names a top-level kernel and its parameter list.
type FuncDecl struct {
	Name   string   `"func" @Ident "("`
	Params []string `[ @Ident { "," @Ident } ] ")" "{"`
	Body   []*Stmt  `@@* "}"`
}

// Stmt is one statement alternative; participle tries each in order.
type Stmt struct {
	VarDecl *VarDecl `  @@`
	For     *ForStmt `| @@`
	If      *IfStmt  `| @@`
	Reduce  *ReduceStmt `| @@`
	Store   *StoreStmt `| @@`
}

// VarDecl introduces a buffer: `var c: f32[16, 16] in cache@cpu;`
type VarDecl struct {
	Name    string   `"var" @Ident ":"`
	DType   string   `@Ident`
	Dims    []*Expr  `[ "[" @@ { "," @@ } "]" ]`
	Access  string   `"in" @Ident`
	MemType string   `[ "@" @Ident ] ";"`
}

// ForStmt is a bounded loop: `for i = 0..16 step 1 { ... }`
type ForStmt struct {
	Iter  string  `"for" @Ident "="`
	Begin *Expr   `@@`
	End   *Expr   `".." @@`
	Step  *Expr   `[ "step" @@ ]`
	Body  []*Stmt `"{" @@* "}"`
}

// IfStmt is a two-armed (or one-armed) conditional.
type IfStmt struct {
	Cond *Expr   `"if" @@ "{"`
	Then []*Stmt `@@* "}"`
	Else []*Stmt `[ "else" "{" @@* "}" ]`
}

// StoreStmt writes a plain value: `c[i, j] = a[i, j] + b[i, j];`
type StoreStmt struct {
	Var     string  `@Ident`
	Indices []*Expr `"[" @@ { "," @@ } "]" "="`
	Value   *Expr   `@@ ";"`
}

// ReduceStmt is an associative in-place update: `reduce c[i,j] add= v;`
type ReduceStmt struct {
	Var     string  `"reduce" @Ident`
	Indices []*Expr `"[" @@ { "," @@ } "]"`
	Op      string  `@Ident "="`
	Value   *Expr   `@@ ";"`
}

// Expr is the top of the precedence chain: comparisons bind loosest.
type Expr struct {
	Compare *CompareExpr `@@`
}

type CompareExpr struct {
	Left  *AddExpr        `@@`
	Ops   []string        `{ @("==" | "!=" | "<=" | ">=" | "<" | ">")`
	Rest  []*AddExpr      `  @@ }`
}

type AddExpr struct {
	Left *MulExpr   `@@`
	Ops  []string   `{ @("+" | "-")`
	Rest []*MulExpr `  @@ }`
}

type MulExpr struct {
	Left *UnaryExpr   `@@`
	Ops  []string     `{ @("*" | "/" | "//" | "%")`
	Rest []*UnaryExpr `  @@ }`
}

type UnaryExpr struct {
	Neg     bool     `[ @"-" ]`
	Primary *Primary `@@`
}

// Primary is an atom: a literal, a parenthesized sub-expression, a tensor
// load (an identifier followed by an index list), or a bare variable
// reference.
type Primary struct {
	Float   *float64 `  @Float`
	Int     *int64   `| @Int`
	Load    *LoadRef `| @@`
	Var     *string  `| @Ident`
	Paren   *Expr    `| "(" @@ ")"`
}

// LoadRef disambiguates "name[idx, ...]" from a bare "name" in Primary by
// requiring the bracketed index list.
type LoadRef struct {
	Name    string  `@Ident "["`
	Indices []*Expr `@@ { "," @@ } "]"`
}
