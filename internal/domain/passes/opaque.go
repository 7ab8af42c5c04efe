package passes

import "github.com/yuin/gopher-lua/ast"

// Opaque wraps branch and loop conditions in tautologies that always hold.
// The original condition keeps its truthiness because "and" with a true left
// operand yields the right operand unchanged.
type Opaque struct{}

func (Opaque) Name() string { return "opaque" }

// Constant comparisons that always evaluate to true. Fresh nodes are built
// per insertion so later passes can rewrite each copy independently.
var tautologies = []string{
	"(7 * 3) == 21",
	"(10 - 4) > 5",
	"(2 + 2) < 9",
	"(8 % 3) == 2",
	"(6 / 2) == 3",
	"(5 * 5) >= 25",
	"(9 - 2) ~= 4",
}

func (Opaque) Apply(ctx *Context, chunk []ast.Stmt) ([]ast.Stmt, error) {
	var failed error

	wrap := func(cond ast.Expr) ast.Expr {
		if failed != nil || !ctx.Policy.Decide() {
			return cond
		}

		guard, err := CompileExpr(tautologies[ctx.Rand().Intn(len(tautologies))])
		if err != nil {
			failed = err
			return cond
		}

		ctx.Counts.PredicatesInserted++

		return &ast.LogicalOpExpr{Operator: "and", Lhs: guard, Rhs: cond}
	}

	r := &Rewriter{
		Stmt: func(s ast.Stmt) {
			switch st := s.(type) {
			case *ast.IfStmt:
				st.Condition = wrap(st.Condition)
			case *ast.WhileStmt:
				st.Condition = wrap(st.Condition)
			case *ast.RepeatStmt:
				// A repeat loop exits when the condition turns true, so the
				// guard must not force it: "and" keeps the exit test intact.
				st.Condition = wrap(st.Condition)
			}
		},
	}
	chunk = r.Chunk(chunk)

	if failed != nil {
		return nil, wrapInternal("opaque", failed)
	}

	return chunk, nil
}
