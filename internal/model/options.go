// Package model defines the data structures for the obfuscation pipeline.
package model

import "fmt"

// StringAlgorithm selects how string literals are encrypted.
type StringAlgorithm string

const (
	// AlgorithmNone leaves literals as-is; they are only re-escaped on output.
	AlgorithmNone StringAlgorithm = "none"
	// AlgorithmXOR applies a rotating-key XOR over the literal bytes.
	AlgorithmXOR StringAlgorithm = "xor"
	// AlgorithmBase64 packs the literal into 6-bit symbols over a fixed alphabet.
	AlgorithmBase64 StringAlgorithm = "base64"
	// AlgorithmFrequency replaces characters with fixed-width frequency ranks.
	AlgorithmFrequency StringAlgorithm = "frequency"
	// AlgorithmChunked splits the literal into runtime char-construction calls.
	AlgorithmChunked StringAlgorithm = "chunked"
)

// Valid reports whether the algorithm is one of the supported variants.
func (a StringAlgorithm) Valid() bool {
	switch a {
	case AlgorithmNone, AlgorithmXOR, AlgorithmBase64, AlgorithmFrequency, AlgorithmChunked:
		return true
	}

	return false
}

// ObfuscationOptions controls which passes run and how aggressively.
//
// ProtectionLevel is a 0-100 dial: each eligible site is transformed with
// probability level/100, so 0 disables probabilistic passes entirely and
// 100 applies them everywhere.
type ObfuscationOptions struct {
	MangleNames        bool
	EncodeStrings      bool
	EncodeNumbers      bool
	InjectDeadCode     bool
	OpaquePredicates   bool
	FlattenControlFlow bool
	AntiIntrospection  bool
	Minify             bool

	// DeadCodeLines switches the dead-code injector to text/line granularity
	// applied to the rendered output in addition to tree-mode insertion.
	DeadCodeLines bool

	ProtectionLevel int
	StringAlgorithm StringAlgorithm
}

// DefaultOptions returns the options used when no flags are given.
func DefaultOptions() ObfuscationOptions {
	return ObfuscationOptions{
		MangleNames:      true,
		EncodeStrings:    true,
		EncodeNumbers:    true,
		InjectDeadCode:   true,
		OpaquePredicates: true,
		ProtectionLevel:  50,
		StringAlgorithm:  AlgorithmXOR,
	}
}

// Validate rejects configurations before any pass runs. A passing
// validation yields an untyped nil, safe to compare against error directly.
func (o ObfuscationOptions) Validate() error {
	if o.ProtectionLevel < 0 || o.ProtectionLevel > 100 {
		return NewConfigError(fmt.Sprintf("protection level %d outside [0,100]", o.ProtectionLevel))
	}

	if o.StringAlgorithm == "" {
		return nil
	}

	if !o.StringAlgorithm.Valid() {
		return NewConfigError(fmt.Sprintf("unrecognized string algorithm %q", o.StringAlgorithm))
	}

	return nil
}
