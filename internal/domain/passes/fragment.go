package passes

import (
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// CompileExpr parses a single Lua expression into its tree form. Passes use
// it to build injected fragments from readable source instead of assembling
// deep node structures by hand.
func CompileExpr(src string) (ast.Expr, error) {
	chunk, err := parse.Parse(strings.NewReader("return "+src), "fragment")
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", src, err)
	}

	if len(chunk) != 1 {
		return nil, fmt.Errorf("compile expression %q: unexpected statement count %d", src, len(chunk))
	}

	ret, ok := chunk[0].(*ast.ReturnStmt)
	if !ok || len(ret.Exprs) != 1 {
		return nil, fmt.Errorf("compile expression %q: not a single expression", src)
	}

	return ret.Exprs[0], nil
}

// CompileStmt parses a single Lua statement into its tree form.
func CompileStmt(src string) (ast.Stmt, error) {
	chunk, err := parse.Parse(strings.NewReader(src), "fragment")
	if err != nil {
		return nil, fmt.Errorf("compile statement %q: %w", src, err)
	}

	if len(chunk) != 1 {
		return nil, fmt.Errorf("compile statement %q: unexpected statement count %d", src, len(chunk))
	}

	return chunk[0], nil
}
