package passes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAntiDebug_ProgramRunsWithProbes(t *testing.T) {
	src := `
local function double(n)
	return n * 2
end
result = double(21)
`

	out := requireEquivalent(t, AntiDebug{}, src, 100, 1, "result")

	// Both probe variants raise through error() on detection.
	require.Contains(t, out, "error(")
}

func TestAntiDebug_ProbesAtChunkAndFunctionEntries(t *testing.T) {
	src := `
local f = function() return 1 end
local g = function() return 2 end
x = f() + g()
`

	chunk := parseChunk(t, src)
	ctx := newTestContext(t, 100, 3, chunk)

	_, err := AntiDebug{}.Apply(ctx, chunk)
	require.NoError(t, err)

	// Two function bodies plus the chunk itself.
	require.Equal(t, 3, ctx.Counts.ProbesInserted)
}

func TestAntiDebug_LevelZeroIsInert(t *testing.T) {
	src := "x = 1"

	chunk := parseChunk(t, src)
	ctx := newTestContext(t, 0, 1, chunk)

	transformed, err := AntiDebug{}.Apply(ctx, chunk)
	require.NoError(t, err)
	require.Equal(t, "x = 1", renderChunk(transformed))
	require.Zero(t, ctx.Counts.ProbesInserted)
}

func TestAntiDebug_SurvivesShadowedLibraries(t *testing.T) {
	// Probes must not index a user local that rebinds debug or os.
	src := `
local debug = 5
local os = "clock"
local function f()
	return 3
end
result = f()
`

	requireEquivalent(t, AntiDebug{}, src, 100, 9, "result")
}

func TestAntiDebug_GuardsAgainstMissingLibraries(t *testing.T) {
	// A stripped runtime without debug or os must not trip the probes.
	src := `
debug = nil
os = nil
local function f()
	return 7
end
result = f()
`

	requireEquivalent(t, AntiDebug{}, src, 100, 5, "result")
}
