package passes

import (
	"fmt"

	"github.com/yuin/gopher-lua/ast"
)

// AntiDebug plants introspection probes at the start of the chunk and of
// function bodies. Probes reach the debug and os libraries through fresh
// aliases captured at the top of the chunk, so user locals shadowing those
// globals cannot break them. Every access is guarded, keeping stripped-down
// runtimes without debug or os on the normal path; only an attached hook or
// a stalled clock trips a probe.
type AntiDebug struct{}

func (AntiDebug) Name() string { return "antidebug" }

// %[1]s names the debug library alias, %[2]s the os alias.
var probeTemplates = []string{
	`if %[1]s and %[1]s.gethook and %[1]s.gethook() ~= nil then error("") end`,
	`do
		local c = %[2]s and %[2]s.clock
		if c then
			local t1 = c()
			local t2 = c()
			if t2 - t1 > 0.2 then error("") end
		end
	end`,
}

func (AntiDebug) Apply(ctx *Context, chunk []ast.Stmt) ([]ast.Stmt, error) {
	debugRef := ctx.Names.NextAlias()
	osRef := ctx.Names.NextAlias()

	var failed error

	inserted := 0

	prepend := func(stmts []ast.Stmt) []ast.Stmt {
		if failed != nil || !ctx.Policy.Decide() {
			return stmts
		}

		template := probeTemplates[ctx.Rand().Intn(len(probeTemplates))]

		probe, err := CompileStmt(fmt.Sprintf(template, debugRef, osRef))
		if err != nil {
			failed = err
			return stmts
		}

		ctx.Counts.ProbesInserted++
		inserted++

		return append([]ast.Stmt{probe}, stmts...)
	}

	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			if fn, ok := e.(*ast.FunctionExpr); ok {
				fn.Stmts = prepend(fn.Stmts)
			}

			return nil
		},
	}
	chunk = r.Chunk(chunk)
	chunk = prepend(chunk)

	if failed != nil {
		return nil, wrapInternal("antidebug", failed)
	}

	if inserted == 0 {
		return chunk, nil
	}

	capture, err := CompileStmt(fmt.Sprintf("local %s, %s = debug, os", debugRef, osRef))
	if err != nil {
		return nil, wrapInternal("antidebug", err)
	}

	return append([]ast.Stmt{capture}, chunk...), nil
}
