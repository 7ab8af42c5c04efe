package passes

import (
	"math"
	"strconv"

	"github.com/yuin/gopher-lua/ast"
)

// Numbers rewrites numeric literals into arithmetic expressions with the
// same value. Every encoding is exact in IEEE 754 doubles: integer literals
// split into sums and products that stay inside the 2^51 safe range, and
// fractional ones are scaled by powers of two or double-negated. Literals
// the encoder cannot prove exact are left alone.
type Numbers struct{}

func (Numbers) Name() string { return "numbers" }

// Integers up to this bound survive the additive and multiplicative splits
// without rounding.
const maxExactInt = 1 << 51

func (Numbers) Apply(ctx *Context, chunk []ast.Stmt) ([]ast.Stmt, error) {
	r := &Rewriter{
		Expr: func(e ast.Expr) ast.Expr {
			lit, ok := e.(*ast.NumberExpr)
			if !ok {
				return nil
			}

			v, err := strconv.ParseFloat(lit.Value, 64)
			if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
				// Hex literals and out-of-range values stay as written.
				return nil
			}

			enc := encodeNumber(ctx, v)
			if enc == nil {
				return nil
			}

			ctx.Counts.NumbersEncoded++

			return enc
		},
	}

	return r.Chunk(chunk), nil
}

// encodeNumber picks one applicable encoding at random, or nil to keep the
// literal. Small constants 0-3 are too common to disguise usefully and are
// always kept.
func encodeNumber(ctx *Context, v float64) ast.Expr {
	isInt := math.Trunc(v) == v && math.Abs(v) <= maxExactInt

	if isInt && v >= 0 && v <= 3 {
		return nil
	}

	if !ctx.Policy.Decide() {
		return nil
	}

	rng := ctx.Rand()

	if isInt {
		switch rng.Intn(3) {
		case 0:
			// v == a + (v - a)
			a := float64(rng.Intn(9000) + 101)
			return binop("+", num(a), num(v-a))
		case 1:
			// v == m*q + r
			d := float64(rng.Intn(8) + 2)
			q := math.Trunc(v / d)
			rem := v - d*q

			return binop("+", binop("*", num(d), num(q)), num(rem))
		default:
			// v == s - a where s = v + a, so v itself never appears.
			a := float64(rng.Intn(9000) + 101)
			return binop("-", num(v+a), num(a))
		}
	}

	if math.Abs(v) < 1e300 && rng.Intn(2) == 0 {
		// Power-of-two scaling only changes the exponent, never the mantissa.
		k := float64(int(1) << (rng.Intn(4) + 1))
		return binop("/", num(v*k), num(k))
	}

	return &ast.UnaryMinusOpExpr{Expr: &ast.UnaryMinusOpExpr{Expr: num(v)}}
}

func binop(op string, lhs, rhs ast.Expr) ast.Expr {
	return &ast.ArithmeticOpExpr{Operator: op, Lhs: lhs, Rhs: rhs}
}

// num builds a literal node, routing negatives through unary minus since the
// grammar has no negative number tokens.
func num(v float64) ast.Expr {
	if v < 0 {
		return &ast.UnaryMinusOpExpr{Expr: num(-v)}
	}

	return &ast.NumberExpr{Value: formatNumber(v)}
}

func formatNumber(v float64) string {
	if math.Trunc(v) == v && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	return strconv.FormatFloat(v, 'g', -1, 64)
}
