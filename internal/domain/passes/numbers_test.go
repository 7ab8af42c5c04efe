package passes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumbers_ExactForManyValuesAndSeeds(t *testing.T) {
	src := `
a = 42
b = 1000000
c = 3.14
d = 0.1
e = 1e10
f = 2199023255552
g = -7.5
h = 123.456
`
	globals := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	for seed := int64(1); seed <= 8; seed++ {
		seed := seed

		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			requireEquivalent(t, Numbers{}, src, 100, seed, globals...)
		})
	}
}

func TestNumbers_SmallConstantsKept(t *testing.T) {
	chunk := parseChunk(t, "w = 0 x = 1 y = 2 z = 3")
	ctx := newTestContext(t, 100, 1, chunk)

	transformed, err := Numbers{}.Apply(ctx, chunk)
	require.NoError(t, err)

	out := renderChunk(transformed)
	require.Contains(t, out, "w = 0")
	require.Contains(t, out, "z = 3")
	require.Zero(t, ctx.Counts.NumbersEncoded)
}

func TestNumbers_HexLiteralsKept(t *testing.T) {
	chunk := parseChunk(t, "flags = 0x10")
	ctx := newTestContext(t, 100, 1, chunk)

	transformed, err := Numbers{}.Apply(ctx, chunk)
	require.NoError(t, err)
	require.Contains(t, renderChunk(transformed), "0x10")
}

func TestNumbers_LevelZeroKeepsEverything(t *testing.T) {
	src := "answer = 42"

	chunk := parseChunk(t, src)
	ctx := newTestContext(t, 0, 1, chunk)

	transformed, err := Numbers{}.Apply(ctx, chunk)
	require.NoError(t, err)
	require.Contains(t, renderChunk(transformed), "42")
	require.Zero(t, ctx.Counts.NumbersEncoded)
}

func TestNumbers_LiteralDisguised(t *testing.T) {
	chunk := parseChunk(t, "port = 8080")
	ctx := newTestContext(t, 100, 2, chunk)

	transformed, err := Numbers{}.Apply(ctx, chunk)
	require.NoError(t, err)
	require.Equal(t, 1, ctx.Counts.NumbersEncoded)

	out := renderChunk(transformed)
	require.NotEqual(t, "port = 8080", out)

	got := evalGlobals(t, out, "port")["port"]
	require.Equal(t, evalGlobals(t, "port = 8080", "port")["port"], got)
}

func TestNumbers_InsideExpressions(t *testing.T) {
	src := `
total = 0
for i = 1, 10 do
	total = total + i * 7
end
scaled = total / 4.5
`

	for seed := int64(1); seed <= 4; seed++ {
		requireEquivalent(t, Numbers{}, src, 100, seed, "total", "scaled")
	}
}
