package ir

import (
	"fmt"
	"strings"
)

// Print renders s as C-like textual IR. It is used by the CLI, by
// `tensorc build` round-tripping, and by several tests that assert on
// printed shape instead of deep struct equality (the idiom the teacher
// uses for its own AST printer).
func Print(s Stmt) string {
	p := &printer{}
	p.stmt(s, 0)
	return p.b.String()
}

// PrintExpr renders a single expression.
func PrintExpr(e Expr) string { return printExpr(e) }

func printExpr(e Expr) string {
	p := &printer{}
	p.expr(e)
	return p.b.String()
}

type printer struct {
	b strings.Builder
}

func (p *printer) indent(n int) { p.b.WriteString(strings.Repeat("  ", n)) }

func (p *printer) stmt(s Stmt, depth int) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *StmtSeq:
		for _, c := range n.Stmts {
			p.stmt(c, depth)
		}
	case *VarDef:
		p.indent(depth)
		fmt.Fprintf(&p.b, "var %s: %s[%s] %s@%s {\n", n.Name, n.Buffer.Tensor.DType,
			joinShape(n.Buffer.Tensor.Shape), n.Buffer.AType, n.Buffer.MType)
		p.stmt(n.Body, depth+1)
		p.indent(depth)
		p.b.WriteString("}\n")
	case *Store:
		p.indent(depth)
		fmt.Fprintf(&p.b, "%s[%s] = %s;\n", n.Var, joinExprs(n.Indices), printExpr(n.Expr))
	case *ReduceTo:
		p.indent(depth)
		fmt.Fprintf(&p.b, "%s[%s] %s %s;\n", n.Var, joinExprs(n.Indices), n.Op, printExpr(n.Expr))
	case *For:
		p.indent(depth)
		fmt.Fprintf(&p.b, "for %s = %s..%s step %s [%s] {\n", n.Iter,
			printExpr(n.Begin), printExpr(n.End), printExpr(n.Step), n.Property.ParallelScope)
		p.stmt(n.Body, depth+1)
		p.indent(depth)
		p.b.WriteString("}\n")
	case *If:
		p.indent(depth)
		fmt.Fprintf(&p.b, "if (%s) {\n", printExpr(n.Cond))
		p.stmt(n.Then, depth+1)
		p.indent(depth)
		p.b.WriteString("}")
		if n.Else != nil {
			p.b.WriteString(" else {\n")
			p.stmt(n.Else, depth+1)
			p.indent(depth)
			p.b.WriteString("}")
		}
		p.b.WriteString("\n")
	case *Assert:
		p.indent(depth)
		fmt.Fprintf(&p.b, "assert(%s) {\n", printExpr(n.Cond))
		p.stmt(n.Body, depth+1)
		p.indent(depth)
		p.b.WriteString("}\n")
	case *Assume:
		p.indent(depth)
		fmt.Fprintf(&p.b, "assume(%s) {\n", printExpr(n.Cond))
		p.stmt(n.Body, depth+1)
		p.indent(depth)
		p.b.WriteString("}\n")
	case *Eval:
		p.indent(depth)
		fmt.Fprintf(&p.b, "%s;\n", printExpr(n.Expr))
	case *AnyStmt:
		p.indent(depth)
		p.b.WriteString("...;\n")
	}
}

func (p *printer) expr(e Expr) { p.b.WriteString(printExprInline(e)) }

func printExprInline(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch n := e.(type) {
	case *VarExpr:
		return n.Name
	case *LoadExpr:
		return fmt.Sprintf("%s[%s]", n.Var, joinExprs(n.Indices))
	case *IntConst:
		return fmt.Sprintf("%d", n.Value)
	case *FloatConst:
		return fmt.Sprintf("%g", n.Value)
	case *BoolConst:
		return fmt.Sprintf("%t", n.Value)
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", printExprInline(n.LHS), n.Op, printExprInline(n.RHS))
	case *MinMaxExpr:
		name := "min"
		if n.IsMax {
			name = "max"
		}
		return fmt.Sprintf("%s(%s, %s)", name, printExprInline(n.LHS), printExprInline(n.RHS))
	case *CompareExpr:
		return fmt.Sprintf("(%s %s %s)", printExprInline(n.LHS), n.Op, printExprInline(n.RHS))
	case *LogicalExpr:
		if n.Op == LNot {
			return fmt.Sprintf("!%s", printExprInline(n.LHS))
		}
		return fmt.Sprintf("(%s %s %s)", printExprInline(n.LHS), n.Op, printExprInline(n.RHS))
	case *UnaryExpr:
		return fmt.Sprintf("%s(%s)", n.Op, printExprInline(n.Arg))
	case *IfExpr:
		return fmt.Sprintf("(%s ? %s : %s)", printExprInline(n.Cond), printExprInline(n.Then), printExprInline(n.Else))
	case *CastExpr:
		return fmt.Sprintf("(%s)%s", n.DType, printExprInline(n.Arg))
	case *IntrinsicExpr:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = printExprInline(a)
		}
		return fmt.Sprintf("%s(%s)", n.Template, strings.Join(args, ", "))
	case *AnyExpr:
		return "_"
	default:
		return "?"
	}
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = printExprInline(e)
	}
	return strings.Join(parts, ", ")
}

func joinShape(es []Expr) string { return joinExprs(es) }
