// Package passes implements the tree transformation passes of the
// obfuscation pipeline. Every pass consumes and produces a gopher-lua
// statement list; none of them touch source text directly.
package passes

import (
	"math/rand"

	"github.com/yuin/gopher-lua/ast"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

// Pass is a single tree transformation. Apply may mutate the chunk in place
// and must return the (possibly replaced) statement list.
type Pass interface {
	Name() string
	Apply(ctx *Context, chunk []ast.Stmt) ([]ast.Stmt, error)
}

// Context carries the per-invocation state shared by all passes: the policy
// resolver, the name table seeded from the input tree, and the counters
// reported back to the caller. One Context belongs to exactly one pipeline
// invocation; nothing here is shared across runs.
type Context struct {
	Policy *Policy
	Names  *NameTable
	Counts *m.TransformationCounts
}

// NewContext builds the shared pass state for one invocation.
func NewContext(level int, rng *rand.Rand, chunk []ast.Stmt, counts *m.TransformationCounts) *Context {
	return &Context{
		Policy: NewPolicy(level, rng),
		Names:  CollectNames(chunk, rng),
		Counts: counts,
	}
}

// Rand exposes the invocation's randomness source.
func (c *Context) Rand() *rand.Rand {
	return c.Policy.Rand
}

// wrapInternal converts a pass-internal failure into the pipeline's error
// surface.
func wrapInternal(pass string, err error) error {
	return m.NewTransformationError(pass, err.Error())
}
