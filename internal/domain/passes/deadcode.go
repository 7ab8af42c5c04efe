package passes

import (
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/ast"
)

// DeadCode sprinkles unreachable or inert statements through every block.
// Guarded fragments sit behind constant-false predicates; the rest declare
// locals nothing ever reads. Fragment names come from the shared table, so
// they cannot collide with user code or with other passes.
type DeadCode struct{}

func (DeadCode) Name() string { return "deadcode" }

var falsePredicates = []string{
	"1 == 2",
	"7 < 3",
	"(4 + 1) == 9",
	"false",
	`"a" == "b"`,
	"(2 > 5) and true",
}

func (DeadCode) Apply(ctx *Context, chunk []ast.Stmt) ([]ast.Stmt, error) {
	var failed error

	r := &Rewriter{
		Block: func(stmts []ast.Stmt) []ast.Stmt {
			if failed != nil {
				return stmts
			}

			out := make([]ast.Stmt, 0, len(stmts)+2)

			for _, s := range stmts {
				out = append(out, s)

				// return and break close their block; nothing may follow.
				switch s.(type) {
				case *ast.ReturnStmt, *ast.BreakStmt:
					continue
				}

				if !ctx.Policy.Decide() {
					continue
				}

				frag, err := deadFragment(ctx)
				if err != nil {
					failed = err
					return stmts
				}

				out = append(out, frag)
				ctx.Counts.DeadCodeInserted++
			}

			return out
		},
	}
	chunk = r.Chunk(chunk)

	if failed != nil {
		return nil, wrapInternal("deadcode", failed)
	}

	return chunk, nil
}

// deadFragment builds one inert statement with fresh names and constants.
func deadFragment(ctx *Context) (ast.Stmt, error) {
	rng := ctx.Rand()
	pred := falsePredicates[rng.Intn(len(falsePredicates))]

	var src string

	switch rng.Intn(5) {
	case 0:
		src = fmt.Sprintf("if %s then local %s = %d end",
			pred, ctx.Names.NextJunk(), junkConstant(ctx))
	case 1:
		a, b := ctx.Names.NextJunk(), ctx.Names.NextJunk()
		src = fmt.Sprintf("if %s then for %s = 1, %d do local %s = %s * 2 end end",
			pred, a, junkConstant(ctx), b, a)
	case 2:
		a := ctx.Names.NextJunk()
		src = fmt.Sprintf("if %s then local %s = {} %s[1] = %d end",
			pred, a, a, junkConstant(ctx))
	case 3:
		src = fmt.Sprintf("local %s, %s = %d, %d",
			ctx.Names.NextJunk(), ctx.Names.NextJunk(), junkConstant(ctx), junkConstant(ctx))
	default:
		src = fmt.Sprintf("local function %s() return %d end",
			ctx.Names.NextJunk(), junkConstant(ctx))
	}

	return CompileStmt(src)
}

func junkConstant(ctx *Context) int {
	return ctx.Rand().Intn(897) + 101
}

// InjectLines adds inert statement lines to already rendered source. The
// renderer emits complete statements per line, so a fresh line is safe
// anywhere except directly after return or break, which must stay last in
// their block.
func InjectLines(text string, ctx *Context) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+4)

	for _, line := range lines {
		out = append(out, line)

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "break" || strings.HasPrefix(trimmed, "return") {
			continue
		}

		if !ctx.Policy.Decide() {
			continue
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		out = append(out, fmt.Sprintf("%slocal %s = %d",
			indent, ctx.Names.NextJunk(), junkConstant(ctx)))
		ctx.Counts.DeadCodeInserted++
	}

	return strings.Join(out, "\n")
}
