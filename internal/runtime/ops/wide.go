package ops

import (
	"math/bits"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// Names of the kernels with a bit-exact 64-bit integer form.
const (
	WideAdd                  = "add"
	WideSub                  = "sub"
	WideMul                  = "mul"
	WideDiv                  = "div"
	WideRem                  = "rem"
	WideMax                  = "max"
	WideMin                  = "min"
	WideEq                   = "eq"
	WideNe                   = "ne"
	WideLt                   = "lt"
	WideLe                   = "le"
	WideGt                   = "gt"
	WideGe                   = "ge"
	WideAnd                  = "and"
	WideOr                   = "or"
	WideXor                  = "xor"
	WideShiftLeft            = "shift_left"
	WideShiftRightLogical    = "shift_right_logical"
	WideShiftRightArithmetic = "shift_right_arithmetic"

	WideNeg      = "neg"
	WideAbs      = "abs"
	WideSign     = "sign"
	WideNot      = "not"
	WidePopCount = "population_count"
	WideIdentity = "identity"
)

// Wide2 returns the bit-exact form of a binary kernel on Int64 or Uint64
// operands. Integer division and remainder by zero give 0, matching the
// float paths. Comparisons return 0 or 1.
func Wide2(name string, dt dtype.DType) (func(x, y uint64) uint64, bool) {
	if !dt.Wide() {
		return nil, false
	}

	signed := dt.IsSigned()
	less := func(x, y uint64) bool { return LessWide(dt, x, y) }

	switch name {
	case WideAdd:
		return func(x, y uint64) uint64 { return x + y }, true
	case WideSub:
		return func(x, y uint64) uint64 { return x - y }, true
	case WideMul:
		return func(x, y uint64) uint64 { return x * y }, true
	case WideDiv:
		return func(x, y uint64) uint64 {
			switch {
			case y == 0:
				return 0
			case signed:
				return uint64(int64(x) / int64(y))
			default:
				return x / y
			}
		}, true
	case WideRem:
		return func(x, y uint64) uint64 {
			switch {
			case y == 0:
				return 0
			case signed:
				return uint64(int64(x) % int64(y))
			default:
				return x % y
			}
		}, true
	case WideMax:
		return func(x, y uint64) uint64 {
			if less(x, y) {
				return y
			}

			return x
		}, true
	case WideMin:
		return func(x, y uint64) uint64 {
			if less(y, x) {
				return y
			}

			return x
		}, true
	case WideEq:
		return predicate(func(x, y uint64) bool { return x == y }), true
	case WideNe:
		return predicate(func(x, y uint64) bool { return x != y }), true
	case WideLt:
		return predicate(less), true
	case WideLe:
		return predicate(func(x, y uint64) bool { return !less(y, x) }), true
	case WideGt:
		return predicate(func(x, y uint64) bool { return less(y, x) }), true
	case WideGe:
		return predicate(func(x, y uint64) bool { return !less(x, y) }), true
	case WideAnd:
		return func(x, y uint64) uint64 { return x & y }, true
	case WideOr:
		return func(x, y uint64) uint64 { return x | y }, true
	case WideXor:
		return func(x, y uint64) uint64 { return x ^ y }, true
	case WideShiftLeft:
		return func(x, s uint64) uint64 {
			if s >= 64 {
				return 0
			}

			return x << s
		}, true
	case WideShiftRightLogical:
		return func(x, s uint64) uint64 {
			if s >= 64 {
				return 0
			}

			return x >> s
		}, true
	case WideShiftRightArithmetic:
		return func(x, s uint64) uint64 {
			if s >= 64 {
				s = 63
			}

			return uint64(int64(x) >> s)
		}, true
	default:
		return nil, false
	}
}

// Wide1 returns the bit-exact form of a unary kernel on Int64 or Uint64
// operands.
func Wide1(name string, dt dtype.DType) (func(x uint64) uint64, bool) {
	if !dt.Wide() {
		return nil, false
	}

	signed := dt.IsSigned()

	switch name {
	case WideNeg:
		return func(x uint64) uint64 { return -x }, true
	case WideAbs:
		return func(x uint64) uint64 {
			if signed && int64(x) < 0 {
				return -x
			}

			return x
		}, true
	case WideSign:
		return func(x uint64) uint64 {
			switch {
			case x == 0:
				return 0
			case signed && int64(x) < 0:
				return ^uint64(0)
			default:
				return 1
			}
		}, true
	case WideNot:
		return func(x uint64) uint64 { return ^x }, true
	case WidePopCount:
		return func(x uint64) uint64 { return uint64(bits.OnesCount64(x)) }, true
	case WideIdentity:
		return func(x uint64) uint64 { return x }, true
	default:
		return nil, false
	}
}

func predicate(f func(x, y uint64) bool) func(x, y uint64) uint64 {
	return func(x, y uint64) uint64 {
		if f(x, y) {
			return 1
		}

		return 0
	}
}

// LessWide orders two Int64 or Uint64 bit patterns by value.
func LessWide(dt dtype.DType, x, y uint64) bool {
	if dt.IsSigned() {
		return int64(x) < int64(y)
	}

	return x < y
}

// WideInit returns the identity element of the combiner name on dt, used to
// seed reductions.
func WideInit(name string, dt dtype.DType) uint64 {
	switch name {
	case WideMul:
		return 1
	case WideMax:
		return dt.MinBits()
	case WideMin:
		return dt.MaxBits()
	default:
		return 0
	}
}
