package model

import "time"

// Path represents a file system path.
type Path string

// TransformationCounts tracks how many sites each pass rewrote during one run.
type TransformationCounts struct {
	NamesMangled       int `yaml:"names_mangled"`
	StringsEncrypted   int `yaml:"strings_encrypted"`
	NumbersEncoded     int `yaml:"numbers_encoded"`
	PredicatesInserted int `yaml:"predicates_inserted"`
	BlocksFlattened    int `yaml:"blocks_flattened"`
	DeadCodeInserted   int `yaml:"dead_code_inserted"`
	ProbesInserted     int `yaml:"probes_inserted"`
}

// Total sums all per-pass counters.
func (c TransformationCounts) Total() int {
	return c.NamesMangled + c.StringsEncrypted + c.NumbersEncoded +
		c.PredicatesInserted + c.BlocksFlattened + c.DeadCodeInserted + c.ProbesInserted
}

// Metrics is assembled once per run and handed to the caller as plain data.
type Metrics struct {
	InputBytes  int           `yaml:"input_bytes"`
	OutputBytes int           `yaml:"output_bytes"`
	InputLines  int           `yaml:"input_lines"`
	OutputLines int           `yaml:"output_lines"`
	Duration    time.Duration `yaml:"duration"`

	Counts TransformationCounts `yaml:"counts"`
}

// PipelineResult is constructed once per invocation and immutable afterwards.
// Either Output is a complete, re-validated program or Err describes exactly
// what failed; there is no partially transformed output.
type PipelineResult struct {
	Success bool
	Output  string
	Err     *Error
	Metrics *Metrics
}

// FileReport records the outcome of obfuscating one file in a batch run.
type FileReport struct {
	Path    Path     `yaml:"path"`
	Success bool     `yaml:"success"`
	Error   string   `yaml:"error,omitempty"`
	Metrics *Metrics `yaml:"metrics,omitempty"`
}

// SiteCounts tallies the sites each pass would consider in a file.
type SiteCounts struct {
	Bindings   int
	Strings    int
	Numbers    int
	Conditions int
	Statements int
	Functions  int
}

// SiteSummary pairs a source file with its eligible-site counts.
type SiteSummary struct {
	Path   Path
	Counts SiteCounts
}
