package passes

import (
	"math/rand"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	"github.com/stretchr/testify/require"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
	"github.com/BillChirico/lua-obfuscator/internal/render"
)

func parseChunk(t *testing.T, src string) []ast.Stmt {
	t.Helper()

	chunk, err := parse.Parse(strings.NewReader(src), "test")
	require.NoError(t, err)

	return chunk
}

func renderChunk(chunk []ast.Stmt) string {
	return render.Chunk(chunk, render.Options{})
}

func newTestContext(t *testing.T, level int, seed int64, chunk []ast.Stmt) *Context {
	t.Helper()

	var counts m.TransformationCounts

	return NewContext(level, rand.New(rand.NewSource(seed)), chunk, &counts)
}

// evalGlobals runs src in a fresh interpreter and returns the requested
// globals.
func evalGlobals(t *testing.T, src string, names ...string) map[string]lua.LValue {
	t.Helper()

	state := lua.NewState()
	defer state.Close()

	require.NoError(t, state.DoString(src), "script failed:\n%s", src)

	globals := make(map[string]lua.LValue, len(names))
	for _, name := range names {
		globals[name] = state.GetGlobal(name)
	}

	return globals
}

// requireEquivalent applies a pass at the given level and checks the listed
// globals come out identical to the untransformed program's.
func requireEquivalent(t *testing.T, pass Pass, src string, level int, seed int64, globals ...string) string {
	t.Helper()

	chunk := parseChunk(t, src)
	ctx := newTestContext(t, level, seed, chunk)

	transformed, err := pass.Apply(ctx, chunk)
	require.NoError(t, err)

	out := renderChunk(transformed)

	want := evalGlobals(t, src, globals...)
	got := evalGlobals(t, out, globals...)

	for _, name := range globals {
		require.Equal(t, want[name], got[name], "global %q diverged; output:\n%s", name, out)
	}

	return out
}
