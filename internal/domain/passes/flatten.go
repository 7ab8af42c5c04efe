package passes

import (
	"strconv"

	"github.com/yuin/gopher-lua/ast"
)

// Flatten rewrites straight-line blocks into a state-machine loop: locals
// are hoisted above a dispatcher that executes the original statements in
// order while the written case order is shuffled. Only the chunk and whole
// function bodies are candidates; a block is skipped entirely whenever
// hoisting could change what any name refers to.
type Flatten struct{}

func (Flatten) Name() string { return "flatten" }

func (Flatten) Apply(ctx *Context, chunk []ast.Stmt) ([]ast.Stmt, error) {
	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			if fn, ok := e.(*ast.FunctionExpr); ok {
				fn.Stmts = maybeFlatten(ctx, fn.Stmts)
			}

			return nil
		},
	}
	chunk = r.Chunk(chunk)

	return maybeFlatten(ctx, chunk), nil
}

func maybeFlatten(ctx *Context, stmts []ast.Stmt) []ast.Stmt {
	if !flattenEligible(stmts) || !ctx.Policy.Decide() {
		return stmts
	}

	ctx.Counts.BlocksFlattened++

	return flattenBlock(ctx, stmts)
}

// flattenEligible rejects blocks the dispatcher cannot represent faithfully:
// top-level control transfers would target the dispatch loop instead of the
// original block, duplicate locals cannot share one hoisted declaration, and
// a name referenced before its declaration would be captured by the hoisted
// local instead of whatever it meant originally.
func flattenEligible(stmts []ast.Stmt) bool {
	if len(stmts) < 3 {
		return false
	}

	declIndex := make(map[string]int)

	for i, s := range stmts {
		switch st := s.(type) {
		case *ast.BreakStmt, *ast.GotoStmt, *ast.LabelStmt:
			return false
		case *ast.LocalAssignStmt:
			for _, name := range st.Names {
				if _, dup := declIndex[name]; dup {
					return false
				}

				declIndex[name] = i
			}
		}
	}

	for i, s := range stmts {
		selfName := ""
		if st, ok := s.(*ast.LocalAssignStmt); ok && isLocalFunction(st) {
			selfName = st.Names[0]
		}

		for name := range collectRefs(s) {
			di, hoisted := declIndex[name]
			if !hoisted {
				continue
			}

			if di > i || (di == i && name != selfName) {
				return false
			}
		}
	}

	return true
}

// collectRefs gathers every identifier referenced anywhere inside one
// statement, including closure bodies and definition-name roots.
func collectRefs(s ast.Stmt) map[string]struct{} {
	refs := make(map[string]struct{})

	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			if id, ok := e.(*ast.IdentExpr); ok {
				refs[id.Value] = struct{}{}
			}

			return nil
		},
		Stmt: func(inner ast.Stmt) {
			def, ok := inner.(*ast.FuncDefStmt)
			if !ok {
				return
			}

			target := def.Name.Func
			if def.Name.Receiver != nil {
				target = def.Name.Receiver
			}

			for target != nil {
				switch ex := target.(type) {
				case *ast.IdentExpr:
					refs[ex.Value] = struct{}{}
					target = nil
				case *ast.AttrGetExpr:
					target = ex.Object
				default:
					target = nil
				}
			}
		},
	}
	r.Chunk([]ast.Stmt{s})

	return refs
}

func flattenBlock(ctx *Context, stmts []ast.Stmt) []ast.Stmt {
	hoisted := make([]string, 0, 4)
	body := make([]ast.Stmt, len(stmts))

	for i, s := range stmts {
		if la, ok := s.(*ast.LocalAssignStmt); ok {
			hoisted = append(hoisted, la.Names...)
			body[i] = demoteLocal(la)

			continue
		}

		body[i] = s
	}

	ids := ctx.Rand().Perm(len(body))
	for i := range ids {
		ids[i]++
	}

	state := ctx.Names.NextState()

	// Build the dispatch chain back to front so each case nests as the else
	// of its predecessor, which renders as a flat elseif ladder.
	var chain []ast.Stmt

	for i := len(body) - 1; i >= 0; i-- {
		next := 0
		if i+1 < len(body) {
			next = ids[i+1]
		}

		branch := []ast.Stmt{body[i]}
		if _, isReturn := body[i].(*ast.ReturnStmt); !isReturn {
			branch = append(branch, &ast.AssignStmt{
				Lhs: []ast.Expr{&ast.IdentExpr{Value: state}},
				Rhs: []ast.Expr{&ast.NumberExpr{Value: strconv.Itoa(next)}},
			})
		}

		chain = []ast.Stmt{&ast.IfStmt{
			Condition: &ast.RelationalOpExpr{
				Operator: "==",
				Lhs:      &ast.IdentExpr{Value: state},
				Rhs:      &ast.NumberExpr{Value: strconv.Itoa(ids[i])},
			},
			Then: branch,
			Else: chain,
		}}
	}

	out := make([]ast.Stmt, 0, 3)
	if len(hoisted) > 0 {
		out = append(out, &ast.LocalAssignStmt{Names: hoisted})
	}

	out = append(out,
		&ast.LocalAssignStmt{
			Names: []string{state},
			Exprs: []ast.Expr{&ast.NumberExpr{Value: strconv.Itoa(ids[0])}},
		},
		&ast.WhileStmt{
			Condition: &ast.RelationalOpExpr{
				Operator: "~=",
				Lhs:      &ast.IdentExpr{Value: state},
				Rhs:      &ast.NumberExpr{Value: "0"},
			},
			Stmts: chain,
		})

	return out
}

// demoteLocal turns a hoisted declaration into a plain assignment. A bare
// declaration still assigns nil so re-entry through the dispatcher observes
// the same value it would have originally.
func demoteLocal(la *ast.LocalAssignStmt) ast.Stmt {
	lhs := make([]ast.Expr, len(la.Names))
	for i, name := range la.Names {
		lhs[i] = &ast.IdentExpr{Value: name}
	}

	rhs := la.Exprs
	if len(rhs) == 0 {
		rhs = []ast.Expr{&ast.NilExpr{}}
	}

	return &ast.AssignStmt{Lhs: lhs, Rhs: rhs}
}
