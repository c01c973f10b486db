// Package ops holds scalar and small-matrix numeric kernels. Undefined inputs
// produce NaN; framework-specific conventions for those inputs are applied by
// the callers.
package ops

import (
	"math"
	"math/bits"

	"gonum.org/v1/gonum/mathext"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// IsNonPositiveInteger reports whether x is 0, -1, -2, ...
func IsNonPositiveInteger(x float64) bool {
	return x <= 0 && x == math.Floor(x)
}

// Digamma is the logarithmic derivative of the gamma function. Poles are NaN.
func Digamma(x float64) float64 {
	switch {
	case math.IsNaN(x), math.IsInf(x, -1):
		return math.NaN()
	case math.IsInf(x, 1):
		return x
	case IsNonPositiveInteger(x):
		return math.NaN()
	}

	return mathext.Digamma(x)
}

// Lgamma is log|Γ(x)|.
func Lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// Igamma is the regularized lower incomplete gamma function P(a, x).
// It is NaN at the origin and for negative arguments.
func Igamma(a, x float64) float64 {
	switch {
	case math.IsNaN(a) || math.IsNaN(x) || math.IsInf(a, 0):
		return math.NaN()
	case a < 0 || x < 0:
		return math.NaN()
	case a == 0 && x == 0:
		return math.NaN()
	case a == 0:
		return 1
	case x == 0:
		return 0
	case math.IsInf(x, 1):
		return 1
	}

	return mathext.GammaIncReg(a, x)
}

// Igammac is the regularized upper incomplete gamma function Q(a, x).
// It is NaN for a <= 0 or x < 0.
func Igammac(a, x float64) float64 {
	switch {
	case math.IsNaN(a) || math.IsNaN(x) || math.IsInf(a, 0):
		return math.NaN()
	case a <= 0 || x < 0:
		return math.NaN()
	case x == 0:
		return 1
	case math.IsInf(x, 1):
		return 0
	}

	return mathext.GammaIncRegComp(a, x)
}

// Betainc is the regularized incomplete beta function I_x(a, b).
func Betainc(a, b, x float64) float64 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b) || math.IsNaN(x):
		return math.NaN()
	case a <= 0 || b <= 0 || x < 0 || x > 1:
		return math.NaN()
	case math.IsInf(a, 0) || math.IsInf(b, 0):
		return math.NaN()
	case x == 0:
		return 0
	case x == 1:
		return 1
	}

	return mathext.RegIncBeta(a, b, x)
}

func Logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func Rsqrt(x float64) float64 { return 1 / math.Sqrt(x) }

// Sign returns -1, 0 or 1 with NaN passing through.
func Sign(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return x
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Nextafter returns the next representable value of dt after x toward y.
// ok is false for dtypes without an implementation.
func Nextafter(dt dtype.DType, x, y float64) (float64, bool) {
	switch dt {
	case dtype.Float32:
		return float64(math.Nextafter32(float32(x), float32(y))), true
	case dtype.Float64:
		return math.Nextafter(x, y), true
	default:
		return 0, false
	}
}

func mask(dt dtype.DType) uint64 {
	if dt.Bits() >= 64 {
		return math.MaxUint64
	}

	return 1<<uint(dt.Bits()) - 1
}

// toBits returns the two's complement bit pattern of an integer value of dt.
func toBits(dt dtype.DType, v float64) uint64 {
	var u uint64
	if v < 0 {
		u = uint64(int64(v))
	} else {
		u = uint64(v)
	}

	return u & mask(dt)
}

// fromBits interprets the low bits of u as a value of dt.
func fromBits(dt dtype.DType, u uint64) float64 {
	u &= mask(dt)
	if dt.IsUnsigned() || dt == dtype.Bool {
		return float64(u)
	}

	return float64(signExtend(dt, u))
}

func signExtend(dt dtype.DType, u uint64) int64 {
	shift := uint(64 - dt.Bits())
	return int64(u<<shift) >> shift
}

func PopulationCount(dt dtype.DType, v float64) float64 {
	return float64(bits.OnesCount64(toBits(dt, v)))
}

// BitwiseNot is logical not for bool and one's complement for integers.
func BitwiseNot(dt dtype.DType, v float64) float64 {
	if dt == dtype.Bool {
		return 1 - v
	}

	return fromBits(dt, ^toBits(dt, v))
}

func BitwiseAnd(dt dtype.DType, x, y float64) float64 {
	return fromBits(dt, toBits(dt, x)&toBits(dt, y))
}

func BitwiseOr(dt dtype.DType, x, y float64) float64 {
	return fromBits(dt, toBits(dt, x)|toBits(dt, y))
}

func BitwiseXor(dt dtype.DType, x, y float64) float64 {
	return fromBits(dt, toBits(dt, x)^toBits(dt, y))
}

// ShiftLeft shifts x left by s bits; shifts outside [0, bits) produce 0.
func ShiftLeft(dt dtype.DType, x, s float64) float64 {
	if s < 0 || int(s) >= dt.Bits() {
		return 0
	}

	return fromBits(dt, toBits(dt, x)<<uint(s))
}

// ShiftRightLogical shifts in zeros; shifts outside [0, bits) produce 0.
func ShiftRightLogical(dt dtype.DType, x, s float64) float64 {
	if s < 0 || int(s) >= dt.Bits() {
		return 0
	}

	return fromBits(dt, toBits(dt, x)>>uint(s))
}

// ShiftRightArithmetic shifts in copies of the sign bit of the dt-width
// pattern, for signed and unsigned types alike.
func ShiftRightArithmetic(dt dtype.DType, x, s float64) float64 {
	n := uint(dt.Bits())
	if s < 0 || int(s) >= dt.Bits() {
		s = float64(n - 1)
	}

	v := signExtend(dt, toBits(dt, x)) >> uint(s)

	return fromBits(dt, uint64(v))
}
