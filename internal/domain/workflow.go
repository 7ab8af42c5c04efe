package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/BillChirico/lua-obfuscator/internal/adapter"
	"github.com/BillChirico/lua-obfuscator/internal/domain/passes"
	m "github.com/BillChirico/lua-obfuscator/internal/model"
	"github.com/BillChirico/lua-obfuscator/pkg"
)

// BatchArgs carries the arguments for a batch obfuscation run.
type BatchArgs struct {
	Paths     []m.Path
	Output    m.Path // output directory; empty rewrites each file beside its input
	Reports   m.Path // optional YAML report destination
	Recursive bool
	Threads   uint
	Options   m.ObfuscationOptions
}

// Workflow drives the pipeline across file sets: batch obfuscation with
// persisted reports, static site inspection, and single-file diffing.
type Workflow interface {
	Obfuscate(ctx context.Context, args BatchArgs) ([]m.FileReport, error)
	Inspect(ctx context.Context, paths []m.Path, recursive bool) ([]m.SiteSummary, error)
	Diff(ctx context.Context, path m.Path, opts m.ObfuscationOptions) (original, obfuscated string, err error)
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.ReportStore

	grammar  adapter.GrammarAdapter
	pipeline Pipeline
}

// NewWorkflow creates a Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	grammar adapter.GrammarAdapter,
	pipe Pipeline,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		grammar:         grammar,
		pipeline:        pipe,
	}
}

// sourceFile pairs a discovered file with the root it was found under, so
// output trees can mirror input trees.
type sourceFile struct {
	root m.Path
	path m.Path
}

func (w *workflow) Obfuscate(ctx context.Context, args BatchArgs) ([]m.FileReport, error) {
	files, err := w.collectFiles(args.Paths, args.Recursive)
	if err != nil {
		return nil, err
	}

	spill, err := pkg.NewSpill[m.FileReport]("luaobf-reports-*")
	if err != nil {
		return nil, err
	}

	defer func() { _ = spill.Close() }()

	var group errgroup.Group
	if args.Threads > 0 {
		group.SetLimit(int(args.Threads))
	}

	for _, file := range files {
		current := file

		group.Go(func() error {
			return spill.Append(w.obfuscateFile(ctx, args, current))
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	reports := make([]m.FileReport, 0, spill.Len())

	if err := spill.Range(func(_ int, report m.FileReport) error {
		reports = append(reports, report)
		return nil
	}); err != nil {
		return nil, err
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].Path < reports[j].Path })

	if args.Reports != "" {
		if err := w.SaveReports(args.Reports, reports); err != nil {
			return reports, err
		}
	}

	return reports, nil
}

func (w *workflow) obfuscateFile(ctx context.Context, args BatchArgs, file sourceFile) m.FileReport {
	report := m.FileReport{Path: file.path}

	data, err := w.ReadFile(file.path)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	result := w.pipeline.Obfuscate(ctx, string(file.path), string(data), args.Options)
	report.Metrics = result.Metrics

	if !result.Success {
		slog.Warn("obfuscation failed", "path", file.path, "error", result.Err)
		report.Error = result.Err.Error()

		return report
	}

	outPath, err := w.outputPath(args.Output, file)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	if err := w.writeOutput(outPath, result.Output); err != nil {
		report.Error = err.Error()
		return report
	}

	slog.Info("obfuscated", "path", file.path, "output", outPath,
		"transformations", result.Metrics.Counts.Total())
	report.Success = true

	return report
}

// outputPath places the result next to the input as <name>.obf.lua, or
// mirrors the input's position relative to its root under the output dir.
func (w *workflow) outputPath(output m.Path, file sourceFile) (m.Path, error) {
	if output == "" {
		return m.Path(strings.TrimSuffix(string(file.path), ".lua") + ".obf.lua"), nil
	}

	rel, err := w.RelPath(file.root, file.path)
	if err != nil {
		return "", fmt.Errorf("relative path for %s: %w", file.path, err)
	}

	if rel == "." {
		rel = m.Path(filepath.Base(string(file.path)))
	}

	return w.JoinPath(string(output), string(rel)), nil
}

func (w *workflow) writeOutput(path m.Path, content string) error {
	dir := filepath.Dir(string(path))
	if err := w.MkdirAll(m.Path(dir), 0o750); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	if err := w.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	return nil
}

func (w *workflow) Inspect(ctx context.Context, paths []m.Path, recursive bool) ([]m.SiteSummary, error) {
	files, err := w.collectFiles(paths, recursive)
	if err != nil {
		return nil, err
	}

	summaries := make([]m.SiteSummary, 0, len(files))

	for _, file := range files {
		data, err := w.ReadFile(file.path)
		if err != nil {
			return nil, err
		}

		chunk, perr := w.grammar.Parse(ctx, string(file.path), string(data))
		if perr != nil {
			return nil, fmt.Errorf("%s: %w", file.path, perr)
		}

		summaries = append(summaries, m.SiteSummary{
			Path:   file.path,
			Counts: passes.CountSites(chunk),
		})
	}

	return summaries, nil
}

func (w *workflow) Diff(ctx context.Context, path m.Path, opts m.ObfuscationOptions) (string, string, error) {
	data, err := w.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	result := w.pipeline.Obfuscate(ctx, string(path), string(data), opts)
	if !result.Success {
		return "", "", result.Err
	}

	return string(data), result.Output, nil
}

func (w *workflow) collectFiles(paths []m.Path, recursive bool) ([]sourceFile, error) {
	var files []sourceFile

	seen := make(map[m.Path]struct{})

	for _, root := range paths {
		info, err := w.FileInfo(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			if _, dup := seen[root]; !dup {
				seen[root] = struct{}{}

				files = append(files, sourceFile{root: m.Path(filepath.Dir(string(root))), path: root})
			}

			continue
		}

		err = w.Walk(root, recursive, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() || !adapter.IsLuaFile(path) {
				return nil
			}

			if _, dup := seen[m.Path(path)]; !dup {
				seen[m.Path(path)] = struct{}{}

				files = append(files, sourceFile{root: root, path: m.Path(path)})
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no Lua files found under %v", paths)
	}

	return files, nil
}
