package adapter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

// ReportStore persists per-file obfuscation reports between runs.
type ReportStore interface {
	SaveReports(path m.Path, reports []m.FileReport) error
	LoadReports(path m.Path) ([]m.FileReport, error)
}

// YAMLReportStore stores reports as a YAML document on disk.
type YAMLReportStore struct{}

// NewYAMLReportStore constructs a YAMLReportStore.
func NewYAMLReportStore() *YAMLReportStore {
	return &YAMLReportStore{}
}

// SaveReports marshals reports and writes them to path.
func (s *YAMLReportStore) SaveReports(path m.Path, reports []m.FileReport) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("marshal reports: %w", err)
	}

	if err := os.WriteFile(string(path), data, 0o600); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	return nil
}

// LoadReports reads and unmarshals reports from path.
func (s *YAMLReportStore) LoadReports(path m.Path) ([]m.FileReport, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}

	var reports []m.FileReport
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("unmarshal reports: %w", err)
	}

	return reports, nil
}
