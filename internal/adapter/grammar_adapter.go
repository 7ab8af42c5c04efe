// Package adapter contains grammar and infrastructure adapters for the CLI.
package adapter

import (
	"context"
	"errors"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

// GrammarAdapter abstracts Lua parsing so the domain layer can validate and
// re-validate source without knowing which grammar implementation backs it.
type GrammarAdapter interface {
	// Parse validates source and returns its syntax tree. The chunk name is
	// only used in diagnostics.
	Parse(ctx context.Context, name, source string) ([]ast.Stmt, *m.Error)
}

// LuaGrammarAdapter backs GrammarAdapter with the gopher-lua parser, which
// implements the Lua 5.1 grammar.
type LuaGrammarAdapter struct{}

// NewLuaGrammarAdapter constructs a LuaGrammarAdapter ready to be wired into
// the pipeline.
func NewLuaGrammarAdapter() *LuaGrammarAdapter {
	return &LuaGrammarAdapter{}
}

// Parse runs the grammar over source, translating parser diagnostics into
// the pipeline's error surface with their original position intact.
func (a *LuaGrammarAdapter) Parse(ctx context.Context, name, source string) ([]ast.Stmt, *m.Error) {
	if err := ctx.Err(); err != nil {
		return nil, m.NewConfigError(err.Error())
	}

	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		var perr *parse.Error
		if errors.As(err, &perr) {
			return nil, m.NewParseError(perr.Pos.Line, perr.Pos.Column, perr.Message)
		}

		return nil, m.NewParseError(0, 0, err.Error())
	}

	return chunk, nil
}
