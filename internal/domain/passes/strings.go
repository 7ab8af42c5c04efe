package passes

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/yuin/gopher-lua/ast"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
	"github.com/BillChirico/lua-obfuscator/internal/render"
)

// Strings replaces every string literal with an expression that rebuilds the
// original value at run time. Decoders reach the string and math libraries
// through fresh aliases captured at the top of the chunk, where no user
// binding can shadow the globals yet.
type Strings struct {
	Algorithm m.StringAlgorithm
}

func (Strings) Name() string { return "strings" }

func (p Strings) Apply(ctx *Context, chunk []ast.Stmt) ([]ast.Stmt, error) {
	libs := libRefs{str: ctx.Names.NextAlias(), math: ctx.Names.NextAlias()}

	var failed error

	encrypted := 0

	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			if failed != nil {
				return nil
			}

			lit, ok := e.(*ast.StringExpr)
			if !ok || lit.Value == "" {
				return nil
			}

			enc, err := encryptAs(p.Algorithm, lit.Value, ctx.Rand(), libs)
			if err != nil {
				failed = err
				return nil
			}

			ctx.Counts.StringsEncrypted++
			encrypted++

			return enc
		},
	}
	chunk = r.Chunk(chunk)

	if failed != nil {
		return nil, m.NewTransformationError("strings", failed.Error())
	}

	if encrypted == 0 {
		return chunk, nil
	}

	capture, err := CompileStmt(fmt.Sprintf("local %s, %s = string, math", libs.str, libs.math))
	if err != nil {
		return nil, wrapInternal("strings", err)
	}

	return append([]ast.Stmt{capture}, chunk...), nil
}

// libRefs names the identifiers decoder fragments use to reach the string
// and math libraries.
type libRefs struct {
	str  string
	math string
}

// EncryptString builds the runtime-decoding expression for one literal. The
// expression reads the string and math globals directly; the pass routes its
// decoders through chunk-top aliases instead.
func EncryptString(algo m.StringAlgorithm, s string, rng *rand.Rand) (ast.Expr, error) {
	return encryptAs(algo, s, rng, libRefs{str: "string", math: "math"})
}

func encryptAs(algo m.StringAlgorithm, s string, rng *rand.Rand, libs libRefs) (ast.Expr, error) {
	switch algo {
	case m.AlgorithmXOR:
		return encryptXOR(s, rng, libs)
	case m.AlgorithmBase64:
		return encryptBase64(s, libs)
	case m.AlgorithmFrequency:
		return encryptFrequency(s, libs)
	case m.AlgorithmChunked:
		return encryptChunked(s, rng, libs)
	default:
		return nil, fmt.Errorf("unknown string algorithm %q", algo)
	}
}

// xorDecoderTemplate undoes a rolling XOR without bitwise operators, which
// Lua 5.1 does not have: the inner loop compares parities digit by digit.
// %[1]s names the string library, %[2]s the math library.
const xorDecoderTemplate = `function(p, k)
	local r = ""
	for i = 1, #p do
		local c = %[1]s.byte(p, i)
		local m = ((k + i - 1) %% 255) + 1
		local b = 0
		local q = 1
		while c > 0 or m > 0 do
			if (c %% 2) ~= (m %% 2) then b = b + q end
			c = %[2]s.floor(c / 2)
			m = %[2]s.floor(m / 2)
			q = q * 2
		end
		r = r .. %[1]s.char(b)
	end
	return r
end`

func encryptXOR(s string, rng *rand.Rand, libs libRefs) (ast.Expr, error) {
	key := rng.Intn(255) + 1

	payload := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		mask := byte(((key+i)%255)+1)
		payload[i] = s[i] ^ mask
	}

	decoder := fmt.Sprintf(xorDecoderTemplate, libs.str, libs.math)
	src := fmt.Sprintf("(%s)(%s, %d)", decoder, render.Quote(string(payload)), key)

	return CompileExpr(src)
}

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="

// base64DecoderTemplate accumulates six bits per alphabet character and emits
// a byte whenever eight or more are buffered. Emitted bits are dropped from
// the accumulator right away so it stays within double precision. Padding
// characters index past 63 and are skipped.
const base64DecoderTemplate = `function(d)
	local a = "` + base64Alphabet + `"
	local r = ""
	local c = 0
	local n = 0
	for i = 1, #d do
		local v = %[1]s.find(a, %[1]s.sub(d, i, i), 1, true) - 1
		if v < 64 then
			c = c * 64 + v
			n = n + 6
			if n >= 8 then
				n = n - 8
				r = r .. %[1]s.char(%[2]s.floor(c / (2 ^ n)))
				c = c %% (2 ^ n)
			end
		end
	end
	return r
end`

func encryptBase64(s string, libs libRefs) (ast.Expr, error) {
	payload := base64.StdEncoding.EncodeToString([]byte(s))
	decoder := fmt.Sprintf(base64DecoderTemplate, libs.str, libs.math)
	src := fmt.Sprintf("(%s)(%s)", decoder, render.Quote(payload))

	return CompileExpr(src)
}

const frequencyDecoderTemplate = `function(d, c)
	local r = ""
	for i = 1, #c do
		r = r .. %[1]s.sub(d, c[i], c[i])
	end
	return r
end`

// encryptFrequency builds a dictionary of the literal's distinct bytes ranked
// by frequency and replaces the literal with index lookups into it. Ties rank
// by byte value so the dictionary is deterministic.
func encryptFrequency(s string, libs libRefs) (ast.Expr, error) {
	counts := make(map[byte]int)
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}

	distinct := make([]byte, 0, len(counts))
	for b := range counts {
		distinct = append(distinct, b)
	}

	sort.Slice(distinct, func(i, j int) bool {
		if counts[distinct[i]] != counts[distinct[j]] {
			return counts[distinct[i]] > counts[distinct[j]]
		}

		return distinct[i] < distinct[j]
	})

	rank := make(map[byte]int, len(distinct))
	for i, b := range distinct {
		rank[b] = i + 1
	}

	codes := make([]string, len(s))
	for i := 0; i < len(s); i++ {
		codes[i] = fmt.Sprintf("%d", rank[s[i]])
	}

	decoder := fmt.Sprintf(frequencyDecoderTemplate, libs.str)
	src := fmt.Sprintf("(%s)(%s, {%s})",
		decoder, render.Quote(string(distinct)), strings.Join(codes, ","))

	return CompileExpr(src)
}

// encryptChunked splits the literal into short runs rebuilt with char calls
// and joined by concatenation. No decoder function is involved, so it is the
// cheapest algorithm at run time.
func encryptChunked(s string, rng *rand.Rand, libs libRefs) (ast.Expr, error) {
	chunks := make([]string, 0, len(s)/3+1)

	for i := 0; i < len(s); {
		n := rng.Intn(5) + 3
		if i+n > len(s) {
			n = len(s) - i
		}

		bytes := make([]string, n)
		for j := 0; j < n; j++ {
			bytes[j] = fmt.Sprintf("%d", s[i+j])
		}

		chunks = append(chunks, libs.str+".char("+strings.Join(bytes, ",")+")")
		i += n
	}

	return CompileExpr(strings.Join(chunks, " .. "))
}
