package passes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatten_FunctionBodyEquivalence(t *testing.T) {
	src := `
function compute(n)
	local a = n + 1
	local b = a * 2
	local c = 0
	for i = 1, b do
		c = c + i
	end
	if c > 10 then
		c = c - 10
	end
	return c
end
result = compute(3)
`

	out := requireEquivalent(t, Flatten{}, src, 100, 1, "result")
	require.Contains(t, out, "_fs")
	require.Contains(t, out, "while ")
}

func TestFlatten_ChunkEquivalence(t *testing.T) {
	src := `
local a = 2
local b = a * 3
local c = b + 4
result = c
`

	for seed := int64(1); seed <= 5; seed++ {
		requireEquivalent(t, Flatten{}, src, 100, seed, "result")
	}
}

func TestFlatten_ReturnStopsDispatch(t *testing.T) {
	src := `
function early(flag)
	local out = 1
	if flag then
		return out
	end
	out = out + 1
	return out
end
a = early(true)
b = early(false)
`

	requireEquivalent(t, Flatten{}, src, 100, 3, "a", "b")
}

func TestFlatten_RecursiveLocalFunction(t *testing.T) {
	src := `
local function fib(n)
	local x = 1
	local y = 1
	for i = 3, n do
		x, y = y, x + y
	end
	return y
end
result = fib(10)
`

	requireEquivalent(t, Flatten{}, src, 100, 4, "result")
}

func TestFlattenEligible_Rejections(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"too short", "local a = 1\nresult = a"},
		{"duplicate locals", "local x = 1\nlocal x = 2\nresult = x"},
		{"reference before declaration", "y = x\nlocal x = 1\nresult = x"},
		{"closure captures later local", "f = function() return x end\nlocal x = 1\nresult = f"},
		{"initializer reads outer name", "x = 5\nlocal x = x + 1\nresult = x"},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			require.False(t, flattenEligible(parseChunk(t, tc.src)))
		})
	}
}

func TestFlattenEligible_RejectsTopLevelTransfers(t *testing.T) {
	chunk := parseChunk(t, `
::again::
local a = 1
local b = 2
goto again
`)
	require.False(t, flattenEligible(chunk))
}

func TestFlatten_LevelZeroIsInert(t *testing.T) {
	src := "local a = 1\nlocal b = 2\nresult = a + b"

	chunk := parseChunk(t, src)
	ctx := newTestContext(t, 0, 1, chunk)

	transformed, err := Flatten{}.Apply(ctx, chunk)
	require.NoError(t, err)
	require.Equal(t, renderChunk(parseChunk(t, src)), renderChunk(transformed))
	require.Zero(t, ctx.Counts.BlocksFlattened)
}

func TestFlatten_NestedBreakStaysInsideLoop(t *testing.T) {
	src := `
function scan(limit)
	local found = 0
	local i = 0
	while true do
		i = i + 1
		if i > limit then
			break
		end
		found = found + i
	end
	return found
end
result = scan(4)
`

	requireEquivalent(t, Flatten{}, src, 100, 6, "result")
}
