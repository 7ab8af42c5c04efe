package model

import "fmt"

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	// KindParse means the input failed upstream grammar validation.
	KindParse ErrorKind = "parse"
	// KindConfig means the options were rejected before any pass ran.
	KindConfig ErrorKind = "config"
	// KindTransformation means a pass violated an internal invariant.
	KindTransformation ErrorKind = "transformation"
)

// Error is the only error surface of the pipeline. It is returned inside
// PipelineResult, never raised past the pipeline boundary.
type Error struct {
	Kind    ErrorKind
	Pass    string // implicated pass for transformation errors, "" otherwise
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindParse && e.Line > 0:
		return fmt.Sprintf("%s error at line %d, column %d: %s", e.Kind, e.Line, e.Column, e.Message)
	case e.Kind == KindTransformation && e.Pass != "":
		return fmt.Sprintf("%s error in pass %q: %s", e.Kind, e.Pass, e.Message)
	default:
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
}

// NewParseError builds a parse diagnostic carrying the upstream position.
func NewParseError(line, column int, message string) *Error {
	return &Error{Kind: KindParse, Line: line, Column: column, Message: message}
}

// NewConfigError builds a configuration rejection.
func NewConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// NewTransformationError builds an internal invariant violation naming the
// offending pass where possible.
func NewTransformationError(pass, message string) *Error {
	return &Error{Kind: KindTransformation, Pass: pass, Message: message}
}
