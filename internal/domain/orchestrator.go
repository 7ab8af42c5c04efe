// Package domain coordinates the obfuscation pipeline and the batch
// workflow built on top of it.
package domain

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/BillChirico/lua-obfuscator/internal/adapter"
	"github.com/BillChirico/lua-obfuscator/internal/domain/passes"
	m "github.com/BillChirico/lua-obfuscator/internal/model"
	"github.com/BillChirico/lua-obfuscator/internal/render"
)

// Pipeline runs the full obfuscation sequence over one source unit. The
// result either carries a complete re-validated program or an error; callers
// never see partially transformed output.
type Pipeline interface {
	Obfuscate(ctx context.Context, name, source string, opts m.ObfuscationOptions) m.PipelineResult
}

type pipeline struct {
	grammar adapter.GrammarAdapter
	newRand func() *rand.Rand
}

// NewPipeline constructs a Pipeline backed by the provided grammar adapter.
// newRand is called once per invocation so every run gets its own stream.
func NewPipeline(grammar adapter.GrammarAdapter, newRand func() *rand.Rand) Pipeline {
	return &pipeline{grammar: grammar, newRand: newRand}
}

func (p *pipeline) Obfuscate(ctx context.Context, name, source string, opts m.ObfuscationOptions) m.PipelineResult {
	start := time.Now()

	if err := opts.Validate(); err != nil {
		return failure(asPipelineError("config", err))
	}

	if source == "" {
		return m.PipelineResult{
			Success: true,
			Output:  "",
			Metrics: &m.Metrics{Duration: time.Since(start)},
		}
	}

	chunk, perr := p.grammar.Parse(ctx, name, source)
	if perr != nil {
		return failure(perr)
	}

	var counts m.TransformationCounts

	pctx := passes.NewContext(opts.ProtectionLevel, p.newRand(), chunk, &counts)

	for _, pass := range selectPasses(opts) {
		var err error

		chunk, err = pass.Apply(pctx, chunk)
		if err != nil {
			slog.Error("pass failed", "pass", pass.Name(), "name", name, "error", err)
			return failure(asPipelineError(pass.Name(), err))
		}

		slog.Debug("pass applied", "pass", pass.Name(), "name", name)
	}

	output := render.Chunk(chunk, render.Options{Minify: opts.Minify})
	if opts.InjectDeadCode && opts.DeadCodeLines {
		output = passes.InjectLines(output, pctx)
	}

	// The output must survive the same grammar that accepted the input.
	if _, perr := p.grammar.Parse(ctx, name, output); perr != nil {
		slog.Error("output failed re-validation", "name", name, "error", perr)
		return failure(m.NewTransformationError("render", perr.Message))
	}

	return m.PipelineResult{
		Success: true,
		Output:  output,
		Metrics: &m.Metrics{
			InputBytes:  len(source),
			OutputBytes: len(output),
			InputLines:  countLines(source),
			OutputLines: countLines(output),
			Duration:    time.Since(start),
			Counts:      counts,
		},
	}
}

// selectPasses builds the pass sequence for one invocation. Order matters:
// mangling runs first so later passes see the final binding names, and dead
// code goes in after flattening so filler lands inside the dispatcher
// branches too.
func selectPasses(opts m.ObfuscationOptions) []passes.Pass {
	selected := make([]passes.Pass, 0, 7)

	if opts.MangleNames {
		selected = append(selected, passes.Mangle{})
	}

	if opts.EncodeStrings && opts.StringAlgorithm != "" && opts.StringAlgorithm != m.AlgorithmNone {
		selected = append(selected, passes.Strings{Algorithm: opts.StringAlgorithm})
	}

	if opts.EncodeNumbers {
		selected = append(selected, passes.Numbers{})
	}

	if opts.OpaquePredicates {
		selected = append(selected, passes.Opaque{})
	}

	if opts.FlattenControlFlow {
		selected = append(selected, passes.Flatten{})
	}

	if opts.InjectDeadCode {
		selected = append(selected, passes.DeadCode{})
	}

	if opts.AntiIntrospection {
		selected = append(selected, passes.AntiDebug{})
	}

	return selected
}

func failure(err *m.Error) m.PipelineResult {
	return m.PipelineResult{Success: false, Err: err}
}

func asPipelineError(pass string, err error) *m.Error {
	var perr *m.Error
	if errors.As(err, &perr) {
		return perr
	}

	return m.NewTransformationError(pass, err.Error())
}

func countLines(s string) int {
	if s == "" {
		return 0
	}

	return strings.Count(s, "\n") + 1
}
