package passes

import "github.com/yuin/gopher-lua/ast"

// Rewriter walks a statement list depth first. Expr runs on every expression
// bottom-up and may return a replacement (nil keeps the node); replacements
// are not revisited. Stmt observes every statement after its children were
// walked. Block may replace whole statement lists, again after their
// contents were walked.
type Rewriter struct {
	Expr  func(ast.Expr) ast.Expr
	Stmt  func(ast.Stmt)
	Block func([]ast.Stmt) []ast.Stmt
}

// Chunk walks a top-level statement list and returns the rewritten list.
func (r *Rewriter) Chunk(chunk []ast.Stmt) []ast.Stmt {
	return r.block(chunk)
}

func (r *Rewriter) block(stmts []ast.Stmt) []ast.Stmt {
	for _, s := range stmts {
		r.stmt(s)
	}

	if r.Block != nil {
		return r.Block(stmts)
	}

	return stmts
}

func (r *Rewriter) stmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		r.exprs(st.Lhs)
		r.exprs(st.Rhs)
	case *ast.LocalAssignStmt:
		r.exprs(st.Exprs)
	case *ast.FuncCallStmt:
		st.Expr = r.expr(st.Expr)
	case *ast.DoBlockStmt:
		st.Stmts = r.block(st.Stmts)
	case *ast.WhileStmt:
		st.Condition = r.expr(st.Condition)
		st.Stmts = r.block(st.Stmts)
	case *ast.RepeatStmt:
		st.Stmts = r.block(st.Stmts)
		st.Condition = r.expr(st.Condition)
	case *ast.IfStmt:
		st.Condition = r.expr(st.Condition)
		st.Then = r.block(st.Then)
		st.Else = r.block(st.Else)
	case *ast.NumberForStmt:
		st.Init = r.expr(st.Init)
		st.Limit = r.expr(st.Limit)
		if st.Step != nil {
			st.Step = r.expr(st.Step)
		}

		st.Stmts = r.block(st.Stmts)
	case *ast.GenericForStmt:
		r.exprs(st.Exprs)
		st.Stmts = r.block(st.Stmts)
	case *ast.FuncDefStmt:
		// The name is a binding occurrence, not an expression position, so
		// only the function body goes through the expression callback.
		if fn := r.expr(st.Func); fn != nil {
			if fe, ok := fn.(*ast.FunctionExpr); ok {
				st.Func = fe
			}
		}
	case *ast.ReturnStmt:
		r.exprs(st.Exprs)
	case *ast.BreakStmt, *ast.LabelStmt, *ast.GotoStmt:
	}

	if r.Stmt != nil {
		r.Stmt(s)
	}
}

func (r *Rewriter) exprs(exprs []ast.Expr) {
	for i, e := range exprs {
		exprs[i] = r.expr(e)
	}
}

func (r *Rewriter) expr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}

	switch ex := e.(type) {
	case *ast.AttrGetExpr:
		ex.Object = r.expr(ex.Object)
		ex.Key = r.expr(ex.Key)
	case *ast.TableExpr:
		for _, field := range ex.Fields {
			if field.Key != nil {
				field.Key = r.expr(field.Key)
			}

			field.Value = r.expr(field.Value)
		}
	case *ast.FuncCallExpr:
		if ex.Func != nil {
			ex.Func = r.expr(ex.Func)
		}

		if ex.Receiver != nil {
			ex.Receiver = r.expr(ex.Receiver)
		}

		r.exprs(ex.Args)
	case *ast.LogicalOpExpr:
		ex.Lhs = r.expr(ex.Lhs)
		ex.Rhs = r.expr(ex.Rhs)
	case *ast.RelationalOpExpr:
		ex.Lhs = r.expr(ex.Lhs)
		ex.Rhs = r.expr(ex.Rhs)
	case *ast.StringConcatOpExpr:
		ex.Lhs = r.expr(ex.Lhs)
		ex.Rhs = r.expr(ex.Rhs)
	case *ast.ArithmeticOpExpr:
		ex.Lhs = r.expr(ex.Lhs)
		ex.Rhs = r.expr(ex.Rhs)
	case *ast.UnaryMinusOpExpr:
		ex.Expr = r.expr(ex.Expr)
	case *ast.UnaryNotOpExpr:
		ex.Expr = r.expr(ex.Expr)
	case *ast.UnaryLenOpExpr:
		ex.Expr = r.expr(ex.Expr)
	case *ast.FunctionExpr:
		ex.Stmts = r.block(ex.Stmts)
	}

	if r.Expr != nil {
		if replacement := r.Expr(e); replacement != nil {
			return replacement
		}
	}

	return e
}
