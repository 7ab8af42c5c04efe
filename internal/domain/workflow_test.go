package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/stretchr/testify/require"

	"github.com/BillChirico/lua-obfuscator/internal/adapter"
	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

func newTestWorkflow(seed int64) Workflow {
	grammar := adapter.NewLuaGrammarAdapter()

	return NewWorkflow(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewYAMLReportStore(),
		grammar,
		NewPipeline(grammar, SeededRandFactory(seed)),
	)
}

func writeScript(t *testing.T, dir, name, content string) m.Path {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return m.Path(path)
}

func batchOptions() m.ObfuscationOptions {
	opts := m.DefaultOptions()
	opts.ProtectionLevel = 100

	return opts
}

func TestWorkflow_ObfuscateWritesBesideInputs(t *testing.T) {
	dir := t.TempDir()
	good := writeScript(t, dir, "good.lua", `value = 2 + 3`)
	bad := writeScript(t, dir, "bad.lua", `local = broken(`)

	reports, err := newTestWorkflow(1).Obfuscate(context.Background(), BatchArgs{
		Paths:   []m.Path{good, bad},
		Threads: 2,
		Options: batchOptions(),
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Reports come back sorted by path regardless of completion order.
	require.Equal(t, bad, reports[0].Path)
	require.Equal(t, good, reports[1].Path)

	require.False(t, reports[0].Success)
	require.NotEmpty(t, reports[0].Error)

	require.True(t, reports[1].Success)
	require.Empty(t, reports[1].Error)

	out, err := os.ReadFile(filepath.Join(dir, "good.obf.lua"))
	require.NoError(t, err)

	state := lua.NewState()
	defer state.Close()
	require.NoError(t, state.DoString(string(out)))
	require.Equal(t, lua.LNumber(5), state.GetGlobal("value"))

	_, err = os.Stat(filepath.Join(dir, "bad.obf.lua"))
	require.True(t, os.IsNotExist(err))
}

func TestWorkflow_ObfuscateMirrorsTreeUnderOutputDir(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeScript(t, srcDir, "top.lua", "a = 1")
	writeScript(t, srcDir, filepath.Join("nested", "deep.lua"), "b = 2")
	writeScript(t, srcDir, "notes.txt", "not a script")

	reports, err := newTestWorkflow(1).Obfuscate(context.Background(), BatchArgs{
		Paths:     []m.Path{m.Path(srcDir)},
		Output:    m.Path(outDir),
		Recursive: true,
		Threads:   1,
		Options:   batchOptions(),
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	for _, report := range reports {
		require.True(t, report.Success, "report for %s: %s", report.Path, report.Error)
	}

	require.FileExists(t, filepath.Join(outDir, "top.lua"))
	require.FileExists(t, filepath.Join(outDir, "nested", "deep.lua"))
}

func TestWorkflow_NonRecursiveSkipsSubdirectories(t *testing.T) {
	srcDir := t.TempDir()
	writeScript(t, srcDir, "top.lua", "a = 1")
	writeScript(t, srcDir, filepath.Join("nested", "deep.lua"), "b = 2")

	reports, err := newTestWorkflow(1).Obfuscate(context.Background(), BatchArgs{
		Paths:   []m.Path{m.Path(srcDir)},
		Threads: 1,
		Options: batchOptions(),
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, m.Path(filepath.Join(srcDir, "top.lua")), reports[0].Path)
}

func TestWorkflow_SavesLoadableReports(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "one.lua", "x = 1")
	reportsPath := m.Path(filepath.Join(dir, "reports.yaml"))

	_, err := newTestWorkflow(1).Obfuscate(context.Background(), BatchArgs{
		Paths:   []m.Path{m.Path(filepath.Join(dir, "one.lua"))},
		Reports: reportsPath,
		Threads: 1,
		Options: batchOptions(),
	})
	require.NoError(t, err)

	loaded, err := adapter.NewYAMLReportStore().LoadReports(reportsPath)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.True(t, loaded[0].Success)
	require.NotNil(t, loaded[0].Metrics)
	require.Positive(t, loaded[0].Metrics.Counts.Total())
}

func TestWorkflow_DuplicatePathsProcessedOnce(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "dup.lua", "x = 1")

	reports, err := newTestWorkflow(1).Obfuscate(context.Background(), BatchArgs{
		Paths:   []m.Path{path, path},
		Threads: 1,
		Options: batchOptions(),
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)
}

func TestWorkflow_NoLuaFilesIsAnError(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "readme.md", "no scripts here")

	_, err := newTestWorkflow(1).Obfuscate(context.Background(), BatchArgs{
		Paths:   []m.Path{m.Path(dir)},
		Threads: 1,
		Options: batchOptions(),
	})
	require.ErrorContains(t, err, "no Lua files found")
}

func TestWorkflow_MissingPathIsAnError(t *testing.T) {
	_, err := newTestWorkflow(1).Obfuscate(context.Background(), BatchArgs{
		Paths:   []m.Path{"/does/not/exist.lua"},
		Threads: 1,
		Options: batchOptions(),
	})
	require.ErrorContains(t, err, "stat")
}

func TestWorkflow_Inspect(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "site.lua", `
local name = "world"
for i = 1, 3 do
	print(name, i)
end
`)

	summaries, err := newTestWorkflow(1).Inspect(context.Background(), []m.Path{m.Path(dir)}, false)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 2, summaries[0].Counts.Bindings)
	require.Equal(t, 1, summaries[0].Counts.Strings)
}

func TestWorkflow_InspectRejectsBrokenSource(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", "local = 5")

	_, err := newTestWorkflow(1).Inspect(context.Background(), []m.Path{m.Path(dir)}, false)
	require.ErrorContains(t, err, "broken.lua")
}

func TestWorkflow_Diff(t *testing.T) {
	dir := t.TempDir()
	src := `secret = "do not read"` + "\n"
	path := writeScript(t, dir, "diff.lua", src)

	original, obfuscated, err := newTestWorkflow(1).Diff(context.Background(), path, batchOptions())
	require.NoError(t, err)
	require.Equal(t, src, original)
	require.NotEqual(t, original, obfuscated)
	require.NotContains(t, obfuscated, "do not read")

	// Diff never writes anything to disk.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWorkflow_DiffPropagatesPipelineError(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "broken.lua", "local = 5")

	_, _, err := newTestWorkflow(1).Diff(context.Background(), path, batchOptions())
	require.Error(t, err)

	var perr *m.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, m.KindParse, perr.Kind)
}
