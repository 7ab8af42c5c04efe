// Package render prints gopher-lua syntax trees back to Lua source text.
//
// The pipeline mutates trees, never text, so rendering happens exactly once
// at the end of a run. The printer is deliberately conservative: composite
// operands are always parenthesized (the tree already encodes the intended
// grouping), while calls and atoms are left bare so multi-value semantics
// are not truncated.
package render

import (
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/ast"
)

// Options controls the output shape.
type Options struct {
	// Minify joins all statements with ";" separators on a single line.
	Minify bool
}

const indentUnit = "    "

// Chunk renders a statement list as a complete program.
func Chunk(chunk []ast.Stmt, opts Options) string {
	p := &printer{minify: opts.Minify}
	return p.stmts(chunk, 0)
}

type printer struct {
	minify bool
}

func (p *printer) indent(depth int) string {
	if p.minify {
		return ""
	}

	return strings.Repeat(indentUnit, depth)
}

// stmts renders a statement list. In pretty mode each statement gets its own
// line; a statement that begins with "(" forces a ";" terminator on its
// predecessor so the output can never hit Lua's ambiguous-syntax rule.
func (p *printer) stmts(stmts []ast.Stmt, depth int) string {
	bodies := make([]string, 0, len(stmts))
	for _, s := range stmts {
		bodies = append(bodies, p.stmt(s, depth))
	}

	if p.minify {
		return strings.Join(bodies, ";")
	}

	rendered := make([]string, len(bodies))
	for i, body := range bodies {
		// The "(" check must see the statement text itself, not its indent.
		if i > 0 && strings.HasPrefix(body, "(") {
			rendered[i-1] += ";"
		}

		rendered[i] = p.indent(depth) + body
	}

	return strings.Join(rendered, "\n")
}

// block renders the body between a "do"/"then" and its "end", including the
// surrounding whitespace.
func (p *printer) block(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return " "
	}

	if p.minify {
		return " " + p.stmts(stmts, depth+1) + " "
	}

	return "\n" + p.stmts(stmts, depth+1) + "\n" + p.indent(depth)
}

func (p *printer) stmt(s ast.Stmt, depth int) string {
	switch st := s.(type) {
	case *ast.AssignStmt:
		return p.exprList(st.Lhs, depth) + " = " + p.exprList(st.Rhs, depth)
	case *ast.LocalAssignStmt:
		return p.localAssign(st, depth)
	case *ast.FuncCallStmt:
		return p.expr(st.Expr, depth)
	case *ast.DoBlockStmt:
		return "do" + p.block(st.Stmts, depth) + "end"
	case *ast.WhileStmt:
		return "while " + p.expr(st.Condition, depth) + " do" + p.block(st.Stmts, depth) + "end"
	case *ast.RepeatStmt:
		return "repeat" + p.block(st.Stmts, depth) + "until " + p.expr(st.Condition, depth)
	case *ast.IfStmt:
		return p.ifStmt(st, depth)
	case *ast.NumberForStmt:
		header := "for " + st.Name + " = " + p.expr(st.Init, depth) + ", " + p.expr(st.Limit, depth)
		if st.Step != nil {
			header += ", " + p.expr(st.Step, depth)
		}

		return header + " do" + p.block(st.Stmts, depth) + "end"
	case *ast.GenericForStmt:
		return "for " + strings.Join(st.Names, ", ") + " in " + p.exprList(st.Exprs, depth) +
			" do" + p.block(st.Stmts, depth) + "end"
	case *ast.FuncDefStmt:
		return "function " + p.funcName(st.Name, depth) + p.funcBody(st.Func, depth)
	case *ast.ReturnStmt:
		if len(st.Exprs) == 0 {
			return "return"
		}

		return "return " + p.exprList(st.Exprs, depth)
	case *ast.BreakStmt:
		return "break"
	case *ast.LabelStmt:
		return "::" + st.Name + "::"
	case *ast.GotoStmt:
		return "goto " + st.Label
	default:
		panic(fmt.Sprintf("render: unknown statement %T", s))
	}
}

// localAssign prints single-name function locals in "local function" form so
// the bound name is in scope inside the body, matching how the grammar
// collaborator compiles them.
func (p *printer) localAssign(st *ast.LocalAssignStmt, depth int) string {
	if len(st.Names) == 1 && len(st.Exprs) == 1 {
		if fn, ok := st.Exprs[0].(*ast.FunctionExpr); ok {
			return "local function " + st.Names[0] + p.funcBody(fn, depth)
		}
	}

	out := "local " + strings.Join(st.Names, ", ")
	if len(st.Exprs) > 0 {
		out += " = " + p.exprList(st.Exprs, depth)
	}

	return out
}

func (p *printer) ifStmt(st *ast.IfStmt, depth int) string {
	out := "if " + p.expr(st.Condition, depth) + " then" + p.block(st.Then, depth)

	cur := st
	for {
		if len(cur.Else) == 1 {
			if next, ok := cur.Else[0].(*ast.IfStmt); ok {
				out += "elseif " + p.expr(next.Condition, depth) + " then" + p.block(next.Then, depth)
				cur = next

				continue
			}
		}

		if len(cur.Else) > 0 {
			out += "else" + p.block(cur.Else, depth)
		}

		break
	}

	return out + "end"
}

func (p *printer) funcName(n *ast.FuncName, depth int) string {
	if n.Receiver != nil {
		return p.prefixExpr(n.Receiver, depth) + ":" + n.Method
	}

	return p.expr(n.Func, depth)
}

func (p *printer) funcBody(fn *ast.FunctionExpr, depth int) string {
	params := make([]string, 0, 4)
	if fn.ParList != nil {
		params = append(params, fn.ParList.Names...)
		if fn.ParList.HasVargs {
			params = append(params, "...")
		}
	}

	return "(" + strings.Join(params, ", ") + ")" + p.block(fn.Stmts, depth) + "end"
}

func (p *printer) exprList(exprs []ast.Expr, depth int) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, p.expr(e, depth))
	}

	return strings.Join(parts, ", ")
}

func (p *printer) expr(e ast.Expr, depth int) string {
	switch ex := e.(type) {
	case *ast.NilExpr:
		return "nil"
	case *ast.TrueExpr:
		return "true"
	case *ast.FalseExpr:
		return "false"
	case *ast.NumberExpr:
		return ex.Value
	case *ast.StringExpr:
		return Quote(ex.Value)
	case *ast.Comma3Expr:
		return "..."
	case *ast.IdentExpr:
		return ex.Value
	case *ast.AttrGetExpr:
		if name, ok := identKey(ex.Key); ok {
			return p.prefixExpr(ex.Object, depth) + "." + name
		}

		return p.prefixExpr(ex.Object, depth) + "[" + p.expr(ex.Key, depth) + "]"
	case *ast.TableExpr:
		return p.table(ex, depth)
	case *ast.FuncCallExpr:
		return p.funcCall(ex, depth)
	case *ast.LogicalOpExpr:
		return p.operand(ex.Lhs, depth) + " " + ex.Operator + " " + p.operand(ex.Rhs, depth)
	case *ast.RelationalOpExpr:
		return p.operand(ex.Lhs, depth) + " " + ex.Operator + " " + p.operand(ex.Rhs, depth)
	case *ast.StringConcatOpExpr:
		return p.operand(ex.Lhs, depth) + " .. " + p.operand(ex.Rhs, depth)
	case *ast.ArithmeticOpExpr:
		return p.operand(ex.Lhs, depth) + " " + ex.Operator + " " + p.operand(ex.Rhs, depth)
	case *ast.UnaryMinusOpExpr:
		return "-" + p.operand(ex.Expr, depth)
	case *ast.UnaryNotOpExpr:
		return "not " + p.operand(ex.Expr, depth)
	case *ast.UnaryLenOpExpr:
		return "#" + p.operand(ex.Expr, depth)
	case *ast.FunctionExpr:
		// The body indents with the statement the expression appears in.
		return "function" + p.funcBody(ex, depth)
	default:
		panic(fmt.Sprintf("render: unknown expression %T", e))
	}
}

// operand wraps composite operands in parentheses. Calls and atoms stay bare;
// a call yields a single value in operand position either way.
func (p *printer) operand(e ast.Expr, depth int) string {
	switch e.(type) {
	case *ast.LogicalOpExpr, *ast.RelationalOpExpr, *ast.StringConcatOpExpr,
		*ast.ArithmeticOpExpr, *ast.UnaryMinusOpExpr, *ast.UnaryNotOpExpr,
		*ast.UnaryLenOpExpr, *ast.FunctionExpr:
		return "(" + p.expr(e, depth) + ")"
	default:
		return p.expr(e, depth)
	}
}

// prefixExpr renders an expression in a position the grammar restricts to
// prefix expressions (call targets, index bases, method receivers).
func (p *printer) prefixExpr(e ast.Expr, depth int) string {
	switch e.(type) {
	case *ast.IdentExpr, *ast.AttrGetExpr, *ast.FuncCallExpr:
		return p.expr(e, depth)
	default:
		return "(" + p.expr(e, depth) + ")"
	}
}

func (p *printer) funcCall(ex *ast.FuncCallExpr, depth int) string {
	args := "(" + p.exprList(ex.Args, depth) + ")"
	if ex.Receiver != nil {
		return p.prefixExpr(ex.Receiver, depth) + ":" + ex.Method + args
	}

	return p.prefixExpr(ex.Func, depth) + args
}

func (p *printer) table(ex *ast.TableExpr, depth int) string {
	parts := make([]string, 0, len(ex.Fields))

	for _, field := range ex.Fields {
		switch {
		case field.Key == nil:
			parts = append(parts, p.expr(field.Value, depth))
		default:
			if name, ok := identKey(field.Key); ok {
				parts = append(parts, name+" = "+p.expr(field.Value, depth))
			} else {
				parts = append(parts, "["+p.expr(field.Key, depth)+"] = "+p.expr(field.Value, depth))
			}
		}
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

// identKey reports whether a key expression can be printed in dot/name form.
func identKey(e ast.Expr) (string, bool) {
	s, ok := e.(*ast.StringExpr)
	if !ok || !IsName(s.Value) {
		return "", false
	}

	return s.Value, true
}

var reserved = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// IsName reports whether s is a valid, non-reserved Lua identifier.
func IsName(s string) bool {
	if s == "" || reserved[s] {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// Quote re-escapes a literal for safe embedding: quotes, backslashes and
// every non-printable or non-ASCII byte come out as escape sequences, so any
// 0-255 byte sequence survives a render/parse round trip.
func Quote(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c < 32 || c >= 127:
			fmt.Fprintf(&b, "\\%03d", c)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte('"')

	return b.String()
}
