package passes

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"

	"github.com/stretchr/testify/require"
)

func TestRewriter_ReplacesExpressionsBottomUp(t *testing.T) {
	chunk := parseChunk(t, "x = 1 + 2")

	var visited []string

	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			if n, ok := e.(*ast.NumberExpr); ok {
				visited = append(visited, n.Value)
			}

			if _, ok := e.(*ast.ArithmeticOpExpr); ok {
				return &ast.NumberExpr{Value: "3"}
			}

			return nil
		},
	}
	chunk = r.Chunk(chunk)

	require.Equal(t, []string{"1", "2"}, visited, "operands visited before parent replaced")
	require.Equal(t, "x = 3", renderChunk(chunk))
}

func TestRewriter_ReplacementsNotRevisited(t *testing.T) {
	chunk := parseChunk(t, `s = "lit"`)

	replacements := 0

	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			if _, ok := e.(*ast.StringExpr); ok {
				replacements++
				return &ast.StringExpr{Value: "swapped"}
			}

			return nil
		},
	}
	r.Chunk(chunk)

	require.Equal(t, 1, replacements)
}

func TestRewriter_VisitsAllStatementKinds(t *testing.T) {
	src := `
local a = 1
a = 2
do f() end
while a < 3 do a = a + 1 end
repeat a = a - 1 until a == 0
if a then g() elseif b then h() else i() end
for i = 1, 3 do j(i) end
for k, v in pairs(t) do l(k, v) end
function m.n:o() return 1 end
return a
`

	chunk := parseChunk(t, src)

	stmts := 0
	r := &Rewriter{Stmt: func(ast.Stmt) { stmts++ }}
	r.Chunk(chunk)

	// Nested bodies are visited too, so strictly more than the 10 top-level
	// statements must be seen.
	require.Greater(t, stmts, 10)
}

func TestRewriter_BlockCallbackReplacesLists(t *testing.T) {
	chunk := parseChunk(t, "do x = 1 end")

	r := &Rewriter{
		Block: func(stmts []ast.Stmt) []ast.Stmt {
			extra, err := CompileStmt("y = 2")
			require.NoError(t, err)

			return append(stmts, extra)
		},
	}
	chunk = r.Chunk(chunk)

	out := renderChunk(chunk)
	require.Contains(t, out, "y = 2")

	globals := evalGlobals(t, out, "x", "y")
	require.Equal(t, lua.LNumber(1), globals["x"])
	require.Equal(t, lua.LNumber(2), globals["y"])
}
