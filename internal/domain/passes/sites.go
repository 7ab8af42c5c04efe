package passes

import (
	"github.com/yuin/gopher-lua/ast"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

// CountSites tallies the sites each pass would consider in a chunk, without
// transforming anything. The counts drive the inspect command's report.
func CountSites(chunk []ast.Stmt) m.SiteCounts {
	var c m.SiteCounts

	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			switch ex := e.(type) {
			case *ast.StringExpr:
				if ex.Value != "" {
					c.Strings++
				}
			case *ast.NumberExpr:
				c.Numbers++
			case *ast.FunctionExpr:
				c.Functions++
				if ex.ParList != nil {
					c.Bindings += len(ex.ParList.Names)
				}
			}

			return nil
		},
		Stmt: func(s ast.Stmt) {
			c.Statements++

			switch st := s.(type) {
			case *ast.LocalAssignStmt:
				c.Bindings += len(st.Names)
			case *ast.NumberForStmt:
				c.Bindings++
				c.Conditions++
			case *ast.GenericForStmt:
				c.Bindings += len(st.Names)
				c.Conditions++
			case *ast.IfStmt, *ast.WhileStmt, *ast.RepeatStmt:
				c.Conditions++
			}
		},
	}
	r.Chunk(chunk)

	return c
}
