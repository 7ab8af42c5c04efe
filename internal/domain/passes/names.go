package passes

import (
	"fmt"
	"math/rand"

	"github.com/yuin/gopher-lua/ast"
)

// Name prefixes keep the namespaces of the generating passes disjoint from
// each other and, via the used-name table, from everything in user code.
const (
	manglePrefix = "_0x"
	junkPrefix   = "_jk"
	statePrefix  = "_fs"
	aliasPrefix  = "_gx"
)

// NameTable generates fresh identifiers that can never collide with names
// already present in the tree or with names issued by another pass.
type NameTable struct {
	rng     *rand.Rand
	used    map[string]struct{}
	mangled map[string]struct{}
}

// CollectNames seeds a NameTable with every identifier-like name reachable
// in the chunk: references, local declarations, parameters, loop variables,
// labels and method names.
func CollectNames(chunk []ast.Stmt, rng *rand.Rand) *NameTable {
	t := &NameTable{
		rng:     rng,
		used:    make(map[string]struct{}),
		mangled: make(map[string]struct{}),
	}

	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			switch ex := e.(type) {
			case *ast.IdentExpr:
				t.used[ex.Value] = struct{}{}
			case *ast.FunctionExpr:
				if ex.ParList != nil {
					for _, name := range ex.ParList.Names {
						t.used[name] = struct{}{}
					}
				}
			}

			return nil
		},
		Stmt: func(s ast.Stmt) {
			switch st := s.(type) {
			case *ast.LocalAssignStmt:
				for _, name := range st.Names {
					t.used[name] = struct{}{}
				}
			case *ast.NumberForStmt:
				t.used[st.Name] = struct{}{}
			case *ast.GenericForStmt:
				for _, name := range st.Names {
					t.used[name] = struct{}{}
				}
			case *ast.LabelStmt:
				t.used[st.Name] = struct{}{}
			case *ast.GotoStmt:
				t.used[st.Label] = struct{}{}
			case *ast.FuncDefStmt:
				t.collectFuncName(st.Name)
			}
		},
	}
	r.Chunk(chunk)

	return t
}

// collectFuncName records the identifiers making up a function definition
// name, which the walker does not treat as expression positions.
func (t *NameTable) collectFuncName(n *ast.FuncName) {
	if n == nil {
		return
	}

	if n.Method != "" {
		t.used[n.Method] = struct{}{}
	}

	for _, e := range []ast.Expr{n.Func, n.Receiver} {
		for e != nil {
			switch ex := e.(type) {
			case *ast.IdentExpr:
				t.used[ex.Value] = struct{}{}
				e = nil
			case *ast.AttrGetExpr:
				if key, ok := ex.Key.(*ast.StringExpr); ok {
					t.used[key.Value] = struct{}{}
				}

				e = ex.Object
			default:
				e = nil
			}
		}
	}
}

// NextMangled returns a fresh name from the mangler namespace.
func (t *NameTable) NextMangled() string {
	name := t.next(manglePrefix)
	t.mangled[name] = struct{}{}

	return name
}

// IsMangled reports whether name was issued by NextMangled in this run.
func (t *NameTable) IsMangled(name string) bool {
	_, ok := t.mangled[name]
	return ok
}

// NextJunk returns a fresh name for dead-code declarations.
func (t *NameTable) NextJunk() string {
	return t.next(junkPrefix)
}

// NextAlias returns a fresh name for chunk-top captures of library globals.
func (t *NameTable) NextAlias() string {
	return t.next(aliasPrefix)
}

// NextState returns a fresh name for flattener state variables.
func (t *NameTable) NextState() string {
	return t.next(statePrefix)
}

func (t *NameTable) next(prefix string) string {
	for {
		name := fmt.Sprintf("%s%04x", prefix, t.rng.Intn(1<<16))
		if _, taken := t.used[name]; taken {
			continue
		}

		t.used[name] = struct{}{}

		return name
	}
}
