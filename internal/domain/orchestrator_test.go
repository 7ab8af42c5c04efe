package domain

import (
	"context"
	"fmt"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/stretchr/testify/require"

	"github.com/BillChirico/lua-obfuscator/internal/adapter"
	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

func newTestPipeline(seed int64) Pipeline {
	return NewPipeline(adapter.NewLuaGrammarAdapter(), SeededRandFactory(seed))
}

func allPassOptions(level int) m.ObfuscationOptions {
	return m.ObfuscationOptions{
		MangleNames:        true,
		EncodeStrings:      true,
		EncodeNumbers:      true,
		InjectDeadCode:     true,
		OpaquePredicates:   true,
		FlattenControlFlow: true,
		AntiIntrospection:  true,
		ProtectionLevel:    level,
		StringAlgorithm:    m.AlgorithmXOR,
	}
}

func TestPipeline_RejectsBadLevel(t *testing.T) {
	opts := m.DefaultOptions()
	opts.ProtectionLevel = 101

	result := newTestPipeline(1).Obfuscate(context.Background(), "bad.lua", "x = 1", opts)

	require.False(t, result.Success)
	require.Equal(t, m.KindConfig, result.Err.Kind)
	require.Contains(t, result.Err.Message, "101")
}

func TestPipeline_RejectsBadAlgorithm(t *testing.T) {
	opts := m.DefaultOptions()
	opts.StringAlgorithm = "rot13"

	result := newTestPipeline(1).Obfuscate(context.Background(), "bad.lua", "x = 1", opts)

	require.False(t, result.Success)
	require.Equal(t, m.KindConfig, result.Err.Kind)
}

func TestPipeline_ReportsParseErrorWithPosition(t *testing.T) {
	result := newTestPipeline(1).Obfuscate(context.Background(), "broken.lua", "local = 5", m.DefaultOptions())

	require.False(t, result.Success)
	require.Equal(t, m.KindParse, result.Err.Kind)
	require.Equal(t, 1, result.Err.Line)
	require.Contains(t, result.Err.Error(), "line 1")
}

func TestPipeline_EmptySourceSucceeds(t *testing.T) {
	result := newTestPipeline(1).Obfuscate(context.Background(), "empty.lua", "", m.DefaultOptions())

	require.True(t, result.Success)
	require.Empty(t, result.Output)
	require.NotNil(t, result.Metrics)
	require.Zero(t, result.Metrics.Counts.Total())
}

func TestPipeline_SameSeedSameOutput(t *testing.T) {
	src := `
local secret = "abcdef"
local function scale(n) return n * 3 end
total = scale(14) + #secret
`

	first := newTestPipeline(42).Obfuscate(context.Background(), "a.lua", src, allPassOptions(60))
	second := newTestPipeline(42).Obfuscate(context.Background(), "a.lua", src, allPassOptions(60))

	require.True(t, first.Success)
	require.True(t, second.Success)
	require.Equal(t, first.Output, second.Output)
}

func TestPipeline_DifferentSeedsDiverge(t *testing.T) {
	src := `local secret = "abcdef"` + "\n" + `total = 14 * 3 + #secret`

	first := newTestPipeline(1).Obfuscate(context.Background(), "a.lua", src, allPassOptions(100))
	second := newTestPipeline(2).Obfuscate(context.Background(), "a.lua", src, allPassOptions(100))

	require.True(t, first.Success)
	require.True(t, second.Success)
	require.NotEqual(t, first.Output, second.Output)
}

func TestPipeline_OutputBehaviorMatchesInput(t *testing.T) {
	src := `
local function add(a, b)
	return a + b
end
local total = 0
for i = 1, 10 do
	total = total + add(i, i * 2)
end
result = total
message = "total=" .. total
`

	for _, level := range []int{0, 45, 100} {
		for seed := int64(1); seed <= 3; seed++ {
			t.Run(fmt.Sprintf("level %d seed %d", level, seed), func(t *testing.T) {
				result := newTestPipeline(seed).Obfuscate(context.Background(), "calc.lua", src, allPassOptions(level))
				require.True(t, result.Success, "error: %v", result.Err)

				state := lua.NewState()
				defer state.Close()

				require.NoError(t, state.DoString(result.Output), "output:\n%s", result.Output)
				require.Equal(t, lua.LNumber(165), state.GetGlobal("result"))
				require.Equal(t, lua.LString("total=165"), state.GetGlobal("message"))
			})
		}
	}
}

func TestPipeline_NoneAlgorithmSkipsStringPass(t *testing.T) {
	opts := allPassOptions(100)
	opts.StringAlgorithm = m.AlgorithmNone

	result := newTestPipeline(1).Obfuscate(context.Background(), "plain.lua", `greeting = "unchanged text"`, opts)

	require.True(t, result.Success)
	require.Zero(t, result.Metrics.Counts.StringsEncrypted)
	require.Contains(t, result.Output, "unchanged text")
}

func TestPipeline_MinifiedOutputIsSingleLine(t *testing.T) {
	opts := m.ObfuscationOptions{Minify: true, ProtectionLevel: 0, StringAlgorithm: m.AlgorithmNone}

	result := newTestPipeline(1).Obfuscate(context.Background(), "mini.lua",
		"local a = 1\nif a then\n\tb = a\nend", opts)

	require.True(t, result.Success)
	require.NotContains(t, result.Output, "\n")

	state := lua.NewState()
	defer state.Close()
	require.NoError(t, state.DoString(result.Output))
	require.Equal(t, lua.LNumber(1), state.GetGlobal("b"))
}

func TestPipeline_LineJunkStillParsesAndRuns(t *testing.T) {
	opts := m.DefaultOptions()
	opts.ProtectionLevel = 100
	opts.DeadCodeLines = true
	opts.StringAlgorithm = m.AlgorithmNone
	opts.EncodeNumbers = false

	result := newTestPipeline(5).Obfuscate(context.Background(), "junk.lua",
		"answer = 0\nfor i = 1, 4 do\n\tanswer = answer + i\nend", opts)

	require.True(t, result.Success, "error: %v", result.Err)
	require.Positive(t, result.Metrics.Counts.DeadCodeInserted)

	state := lua.NewState()
	defer state.Close()
	require.NoError(t, state.DoString(result.Output), "output:\n%s", result.Output)
	require.Equal(t, lua.LNumber(10), state.GetGlobal("answer"))
}

func TestPipeline_MetricsPopulated(t *testing.T) {
	src := "local a = 1\nprint(a)\n"

	result := newTestPipeline(1).Obfuscate(context.Background(), "m.lua", src, allPassOptions(100))

	require.True(t, result.Success)
	require.Equal(t, len(src), result.Metrics.InputBytes)
	require.Equal(t, 3, result.Metrics.InputLines)
	require.Positive(t, result.Metrics.OutputBytes)
	require.Positive(t, result.Metrics.Counts.Total())
}

func TestSelectPasses_RespectsToggles(t *testing.T) {
	var none m.ObfuscationOptions
	require.Empty(t, selectPasses(none))

	names := make([]string, 0, 7)
	for _, pass := range selectPasses(allPassOptions(50)) {
		names = append(names, pass.Name())
	}

	require.Equal(t, []string{"mangle", "strings", "numbers", "opaque", "flatten", "deadcode", "antidebug"}, names)

	// Mangling must precede string encryption so decoder fragments can rely
	// on the string and math globals keeping their names.
	require.Less(t,
		indexOf(names, "mangle"), indexOf(names, "strings"))
}

func indexOf(names []string, want string) int {
	for i, name := range names {
		if name == want {
			return i
		}
	}

	return -1
}

func TestCountLines(t *testing.T) {
	require.Zero(t, countLines(""))
	require.Equal(t, 1, countLines("x = 1"))
	require.Equal(t, 2, countLines("x = 1\ny = 2"))
	require.Equal(t, 2, countLines("x = 1\n"))
}

func TestSeededRandFactory_Streams(t *testing.T) {
	factory := SeededRandFactory(9)

	first := factory()
	second := factory()

	// Streams are derived from consecutive seeds so parallel invocations do
	// not mirror each other.
	require.NotEqual(t,
		[]int{first.Intn(1000), first.Intn(1000), first.Intn(1000)},
		[]int{second.Intn(1000), second.Intn(1000), second.Intn(1000)})

	other := SeededRandFactory(9)()
	require.Equal(t, SeededRandFactory(9)().Int63(), other.Int63())

	require.NotNil(t, SeededRandFactory(0)())
}
