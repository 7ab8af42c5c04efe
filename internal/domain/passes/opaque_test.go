package passes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpaque_PreservesControlFlow(t *testing.T) {
	src := `
local n = 0
for i = 1, 3 do
	if i % 2 == 1 then
		n = n + 1
	end
end
while n < 5 do
	n = n + 1
end
repeat
	n = n + 1
until n >= 6
result = n
`

	out := requireEquivalent(t, Opaque{}, src, 100, 1, "result")
	require.Contains(t, out, " and ")
}

func TestOpaque_CountsWrappedConditions(t *testing.T) {
	src := `
if a then b = 1 end
while false do end
`

	chunk := parseChunk(t, src)
	ctx := newTestContext(t, 100, 1, chunk)

	_, err := Opaque{}.Apply(ctx, chunk)
	require.NoError(t, err)
	require.Equal(t, 2, ctx.Counts.PredicatesInserted)
}

func TestOpaque_LevelZeroIsInert(t *testing.T) {
	src := "if ready then go = 1 end"

	chunk := parseChunk(t, src)
	ctx := newTestContext(t, 0, 1, chunk)

	transformed, err := Opaque{}.Apply(ctx, chunk)
	require.NoError(t, err)
	require.Equal(t, renderChunk(parseChunk(t, src)), renderChunk(transformed))
	require.Zero(t, ctx.Counts.PredicatesInserted)
}

func TestOpaque_FalsyConditionStaysFalsy(t *testing.T) {
	// "and" must not turn a nil/false condition truthy.
	src := `
taken = false
if missing then
	taken = true
end
`

	requireEquivalent(t, Opaque{}, src, 100, 5, "taken")
}
