package passes

import (
	"github.com/yuin/gopher-lua/ast"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

// Mangle renames local bindings to fresh opaque identifiers. Globals, table
// fields and method names keep their spelling so the program's observable
// surface is unchanged. Each binding draws its own policy decision; all
// references to a renamed binding follow it through normal scope lookup.
type Mangle struct{}

func (Mangle) Name() string { return "mangle" }

func (Mangle) Apply(ctx *Context, chunk []ast.Stmt) ([]ast.Stmt, error) {
	w := &mangleWalker{ctx: ctx}
	w.stmts(newScope(nil), chunk)

	if err := verifyMangled(ctx, chunk); err != nil {
		return nil, err
	}

	return chunk, nil
}

type scope struct {
	parent *scope
	names  map[string]string
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]string)}
}

func (s *scope) lookup(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if renamed, ok := cur.names[name]; ok {
			return renamed, true
		}
	}

	return "", false
}

type mangleWalker struct {
	ctx *Context
}

// declare binds name in sc, renaming it when the policy applies. A skipped
// binding is still recorded as mapping to itself so an outer renamed binding
// of the same spelling cannot capture references to the inner one.
func (w *mangleWalker) declare(sc *scope, name string) string {
	if name == "..." {
		return name
	}

	if !w.ctx.Policy.Decide() {
		sc.names[name] = name
		return name
	}

	renamed := w.ctx.Names.NextMangled()
	sc.names[name] = renamed
	w.ctx.Counts.NamesMangled++

	return renamed
}

func (w *mangleWalker) stmts(sc *scope, stmts []ast.Stmt) {
	for _, s := range stmts {
		w.stmt(sc, s)
	}
}

func (w *mangleWalker) stmt(sc *scope, s ast.Stmt) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		w.exprs(sc, st.Lhs)
		w.exprs(sc, st.Rhs)
	case *ast.LocalAssignStmt:
		// "local f = function() ... end" compiles with f already in scope
		// inside the body, exactly like "local function f". Every other
		// local sees its initializers evaluated before the binding exists.
		if isLocalFunction(st) {
			st.Names[0] = w.declare(sc, st.Names[0])
			w.exprs(sc, st.Exprs)

			return
		}

		w.exprs(sc, st.Exprs)

		for i, name := range st.Names {
			st.Names[i] = w.declare(sc, name)
		}
	case *ast.FuncCallStmt:
		w.expr(sc, st.Expr)
	case *ast.DoBlockStmt:
		w.stmts(newScope(sc), st.Stmts)
	case *ast.WhileStmt:
		w.expr(sc, st.Condition)
		w.stmts(newScope(sc), st.Stmts)
	case *ast.RepeatStmt:
		// The until condition sees locals declared in the body.
		body := newScope(sc)
		w.stmts(body, st.Stmts)
		w.expr(body, st.Condition)
	case *ast.IfStmt:
		w.expr(sc, st.Condition)
		w.stmts(newScope(sc), st.Then)
		w.stmts(newScope(sc), st.Else)
	case *ast.NumberForStmt:
		w.expr(sc, st.Init)
		w.expr(sc, st.Limit)
		if st.Step != nil {
			w.expr(sc, st.Step)
		}

		body := newScope(sc)
		st.Name = w.declare(body, st.Name)
		w.stmts(body, st.Stmts)
	case *ast.GenericForStmt:
		w.exprs(sc, st.Exprs)

		body := newScope(sc)
		for i, name := range st.Names {
			st.Names[i] = w.declare(body, name)
		}

		w.stmts(body, st.Stmts)
	case *ast.FuncDefStmt:
		w.funcName(sc, st.Name)
		w.expr(sc, st.Func)
	case *ast.ReturnStmt:
		w.exprs(sc, st.Exprs)
	case *ast.BreakStmt, *ast.LabelStmt, *ast.GotoStmt:
	}
}

func (w *mangleWalker) exprs(sc *scope, exprs []ast.Expr) {
	for _, e := range exprs {
		w.expr(sc, e)
	}
}

func (w *mangleWalker) expr(sc *scope, e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IdentExpr:
		if renamed, ok := sc.lookup(ex.Value); ok {
			ex.Value = renamed
		}
	case *ast.AttrGetExpr:
		// String keys are field names and keep their spelling; bracketed
		// identifier keys are ordinary references.
		w.expr(sc, ex.Object)
		if _, isField := ex.Key.(*ast.StringExpr); !isField {
			w.expr(sc, ex.Key)
		}
	case *ast.TableExpr:
		for _, field := range ex.Fields {
			if field.Key != nil {
				if _, isField := field.Key.(*ast.StringExpr); !isField {
					w.expr(sc, field.Key)
				}
			}

			w.expr(sc, field.Value)
		}
	case *ast.FuncCallExpr:
		if ex.Func != nil {
			w.expr(sc, ex.Func)
		}

		if ex.Receiver != nil {
			w.expr(sc, ex.Receiver)
		}

		w.exprs(sc, ex.Args)
	case *ast.LogicalOpExpr:
		w.expr(sc, ex.Lhs)
		w.expr(sc, ex.Rhs)
	case *ast.RelationalOpExpr:
		w.expr(sc, ex.Lhs)
		w.expr(sc, ex.Rhs)
	case *ast.StringConcatOpExpr:
		w.expr(sc, ex.Lhs)
		w.expr(sc, ex.Rhs)
	case *ast.ArithmeticOpExpr:
		w.expr(sc, ex.Lhs)
		w.expr(sc, ex.Rhs)
	case *ast.UnaryMinusOpExpr:
		w.expr(sc, ex.Expr)
	case *ast.UnaryNotOpExpr:
		w.expr(sc, ex.Expr)
	case *ast.UnaryLenOpExpr:
		w.expr(sc, ex.Expr)
	case *ast.FunctionExpr:
		body := newScope(sc)
		if ex.ParList != nil {
			for i, name := range ex.ParList.Names {
				ex.ParList.Names[i] = w.declare(body, name)
			}
		}

		w.stmts(body, ex.Stmts)
	}
}

// funcName resolves the variable at the root of a definition name. Attribute
// and method components are field names and stay as written.
func (w *mangleWalker) funcName(sc *scope, n *ast.FuncName) {
	target := n.Func
	if n.Receiver != nil {
		target = n.Receiver
	}

	for target != nil {
		switch ex := target.(type) {
		case *ast.IdentExpr:
			if renamed, ok := sc.lookup(ex.Value); ok {
				ex.Value = renamed
			}

			return
		case *ast.AttrGetExpr:
			target = ex.Object
		default:
			return
		}
	}
}

func isLocalFunction(st *ast.LocalAssignStmt) bool {
	if len(st.Names) != 1 || len(st.Exprs) != 1 {
		return false
	}

	_, ok := st.Exprs[0].(*ast.FunctionExpr)

	return ok
}

// verifyMangled re-walks the tree and confirms every mangled identifier
// resolves to a mangled binding in scope. Any escapee means a rename leaked
// past its scope, which must fail the run rather than ship broken output.
func verifyMangled(ctx *Context, chunk []ast.Stmt) error {
	v := &mangleVerifier{ctx: ctx}
	v.stmts(newScope(nil), chunk)

	if v.leaked != "" {
		return m.NewTransformationError("mangle",
			"identifier "+v.leaked+" references no binding in scope")
	}

	return nil
}

type mangleVerifier struct {
	ctx    *Context
	leaked string
}

func (v *mangleVerifier) declare(sc *scope, name string) {
	sc.names[name] = name
}

func (v *mangleVerifier) check(sc *scope, name string) {
	if v.leaked != "" || !v.ctx.Names.IsMangled(name) {
		return
	}

	if _, ok := sc.lookup(name); !ok {
		v.leaked = name
	}
}

func (v *mangleVerifier) stmts(sc *scope, stmts []ast.Stmt) {
	for _, s := range stmts {
		v.stmt(sc, s)
	}
}

func (v *mangleVerifier) stmt(sc *scope, s ast.Stmt) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		v.exprs(sc, st.Lhs)
		v.exprs(sc, st.Rhs)
	case *ast.LocalAssignStmt:
		if isLocalFunction(st) {
			v.declare(sc, st.Names[0])
			v.exprs(sc, st.Exprs)

			return
		}

		v.exprs(sc, st.Exprs)

		for _, name := range st.Names {
			v.declare(sc, name)
		}
	case *ast.FuncCallStmt:
		v.expr(sc, st.Expr)
	case *ast.DoBlockStmt:
		v.stmts(newScope(sc), st.Stmts)
	case *ast.WhileStmt:
		v.expr(sc, st.Condition)
		v.stmts(newScope(sc), st.Stmts)
	case *ast.RepeatStmt:
		body := newScope(sc)
		v.stmts(body, st.Stmts)
		v.expr(body, st.Condition)
	case *ast.IfStmt:
		v.expr(sc, st.Condition)
		v.stmts(newScope(sc), st.Then)
		v.stmts(newScope(sc), st.Else)
	case *ast.NumberForStmt:
		v.expr(sc, st.Init)
		v.expr(sc, st.Limit)
		if st.Step != nil {
			v.expr(sc, st.Step)
		}

		body := newScope(sc)
		v.declare(body, st.Name)
		v.stmts(body, st.Stmts)
	case *ast.GenericForStmt:
		v.exprs(sc, st.Exprs)

		body := newScope(sc)
		for _, name := range st.Names {
			v.declare(body, name)
		}

		v.stmts(body, st.Stmts)
	case *ast.FuncDefStmt:
		v.funcName(sc, st.Name)
		v.expr(sc, st.Func)
	case *ast.ReturnStmt:
		v.exprs(sc, st.Exprs)
	case *ast.BreakStmt, *ast.LabelStmt, *ast.GotoStmt:
	}
}

func (v *mangleVerifier) exprs(sc *scope, exprs []ast.Expr) {
	for _, e := range exprs {
		v.expr(sc, e)
	}
}

func (v *mangleVerifier) expr(sc *scope, e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IdentExpr:
		v.check(sc, ex.Value)
	case *ast.AttrGetExpr:
		v.expr(sc, ex.Object)
		if _, isField := ex.Key.(*ast.StringExpr); !isField {
			v.expr(sc, ex.Key)
		}
	case *ast.TableExpr:
		for _, field := range ex.Fields {
			if field.Key != nil {
				if _, isField := field.Key.(*ast.StringExpr); !isField {
					v.expr(sc, field.Key)
				}
			}

			v.expr(sc, field.Value)
		}
	case *ast.FuncCallExpr:
		if ex.Func != nil {
			v.expr(sc, ex.Func)
		}

		if ex.Receiver != nil {
			v.expr(sc, ex.Receiver)
		}

		v.exprs(sc, ex.Args)
	case *ast.LogicalOpExpr:
		v.expr(sc, ex.Lhs)
		v.expr(sc, ex.Rhs)
	case *ast.RelationalOpExpr:
		v.expr(sc, ex.Lhs)
		v.expr(sc, ex.Rhs)
	case *ast.StringConcatOpExpr:
		v.expr(sc, ex.Lhs)
		v.expr(sc, ex.Rhs)
	case *ast.ArithmeticOpExpr:
		v.expr(sc, ex.Lhs)
		v.expr(sc, ex.Rhs)
	case *ast.UnaryMinusOpExpr:
		v.expr(sc, ex.Expr)
	case *ast.UnaryNotOpExpr:
		v.expr(sc, ex.Expr)
	case *ast.UnaryLenOpExpr:
		v.expr(sc, ex.Expr)
	case *ast.FunctionExpr:
		body := newScope(sc)
		if ex.ParList != nil {
			for _, name := range ex.ParList.Names {
				v.declare(body, name)
			}
		}

		v.stmts(body, ex.Stmts)
	}
}

func (v *mangleVerifier) funcName(sc *scope, n *ast.FuncName) {
	target := n.Func
	if n.Receiver != nil {
		target = n.Receiver
	}

	for target != nil {
		switch ex := target.(type) {
		case *ast.IdentExpr:
			v.check(sc, ex.Value)
			return
		case *ast.AttrGetExpr:
			target = ex.Object
		default:
			return
		}
	}
}
