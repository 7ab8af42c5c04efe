package adapter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

func TestYAMLReportStore_RoundTrip(t *testing.T) {
	path := m.Path(filepath.Join(t.TempDir(), "reports.yaml"))

	reports := []m.FileReport{
		{
			Path:    "scripts/good.lua",
			Success: true,
			Metrics: &m.Metrics{
				InputBytes:  120,
				OutputBytes: 480,
				InputLines:  10,
				OutputLines: 24,
				Duration:    15 * time.Millisecond,
				Counts: m.TransformationCounts{
					NamesMangled:     4,
					StringsEncrypted: 2,
				},
			},
		},
		{Path: "scripts/bad.lua", Error: "parse error at line 1, column 7: syntax error"},
	}

	store := NewYAMLReportStore()
	require.NoError(t, store.SaveReports(path, reports))

	loaded, err := store.LoadReports(path)
	require.NoError(t, err)
	require.Equal(t, reports, loaded)
}

func TestYAMLReportStore_LoadMissingFile(t *testing.T) {
	_, err := NewYAMLReportStore().LoadReports(m.Path(filepath.Join(t.TempDir(), "nope.yaml")))
	require.ErrorContains(t, err, "read reports")
}

func TestYAMLReportStore_LoadRejectsGarbage(t *testing.T) {
	path := m.Path(filepath.Join(t.TempDir(), "bad.yaml"))
	require.NoError(t, NewLocalSourceFSAdapter().WriteFile(path, []byte("{not yaml: ["), 0o600))

	_, err := NewYAMLReportStore().LoadReports(path)
	require.ErrorContains(t, err, "unmarshal reports")
}
