// Package dtype describes the element types shared by the source runtime, the
// target graph runtime and the comparison harness.
package dtype

import (
	"fmt"
	"math"
	"strings"

	"github.com/x448/float16"
)

// DType identifies the element type of a tensor.
type DType int

const (
	Invalid DType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	BFloat16
	Float16
	Float32
	Float64
)

var names = map[DType]string{
	Invalid:  "invalid",
	Bool:     "bool",
	Int8:     "int8",
	Int16:    "int16",
	Int32:    "int32",
	Int64:    "int64",
	Uint8:    "uint8",
	Uint16:   "uint16",
	Uint32:   "uint32",
	Uint64:   "uint64",
	BFloat16: "bfloat16",
	Float16:  "float16",
	Float32:  "float32",
	Float64:  "float64",
}

// Floats lists the floating point types from narrowest to widest.
var Floats = []DType{BFloat16, Float16, Float32, Float64}

// SignedInts lists the signed integer types.
var SignedInts = []DType{Int8, Int16, Int32, Int64}

// UnsignedInts lists the unsigned integer types.
var UnsignedInts = []DType{Uint8, Uint16, Uint32, Uint64}

// Ints lists all integer types, signed first.
var Ints = append(append([]DType{}, SignedInts...), UnsignedInts...)

// All lists every valid dtype.
var All = append(append([]DType{Bool}, Ints...), Floats...)

func (d DType) String() string {
	if n, ok := names[d]; ok {
		return n
	}

	return fmt.Sprintf("dtype(%d)", int(d))
}

// Parse returns the DType with the given name. Short aliases such as "f32",
// "bf16" and "i64" are accepted.
func Parse(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "b1":
		return Bool, nil
	case "int8", "i8":
		return Int8, nil
	case "int16", "i16":
		return Int16, nil
	case "int32", "i32":
		return Int32, nil
	case "int64", "i64":
		return Int64, nil
	case "uint8", "u8":
		return Uint8, nil
	case "uint16", "u16":
		return Uint16, nil
	case "uint32", "u32":
		return Uint32, nil
	case "uint64", "u64":
		return Uint64, nil
	case "bfloat16", "bf16":
		return BFloat16, nil
	case "float16", "f16", "half":
		return Float16, nil
	case "float32", "f32":
		return Float32, nil
	case "float64", "f64":
		return Float64, nil
	default:
		return Invalid, fmt.Errorf("dtype: unknown dtype %q", s)
	}
}

// Valid reports whether d is one of the supported element types.
func (d DType) Valid() bool { return d > Invalid && d <= Float64 }

func (d DType) IsFloat() bool { return d >= BFloat16 && d <= Float64 }

func (d DType) IsInt() bool { return d >= Int8 && d <= Uint64 }

func (d DType) IsUnsigned() bool { return d >= Uint8 && d <= Uint64 }

func (d DType) IsSigned() bool { return d >= Int8 && d <= Int64 }

// Wide reports whether d is a 64-bit integer type. Tensors of these types
// carry their exact bit patterns next to the float64 view.
func (d DType) Wide() bool { return d == Int64 || d == Uint64 }

// Bits returns the storage width of d in bits. Bool counts as 8.
func (d DType) Bits() int {
	switch d {
	case Bool, Int8, Uint8:
		return 8
	case Int16, Uint16, BFloat16, Float16:
		return 16
	case Int32, Uint32, Float32:
		return 32
	case Int64, Uint64, Float64:
		return 64
	default:
		return 0
	}
}

// MaxValue returns the largest finite value representable by d. For Int64
// and Uint64 it is the largest float64 that converts without overflow; the
// exact limit is MaxBits.
func (d DType) MaxValue() float64 {
	switch d {
	case Bool:
		return 1
	case Int64:
		return math.Nextafter(0x1p63, 0)
	case Uint64:
		return math.Nextafter(0x1p64, 0)
	case Int8, Int16, Int32:
		return math.Exp2(float64(d.Bits()-1)) - 1
	case Uint8, Uint16, Uint32:
		return math.Exp2(float64(d.Bits())) - 1
	case BFloat16:
		return float64(BF16FromBits(0x7f7f).Float32())
	case Float16:
		return 65504
	case Float32:
		return math.MaxFloat32
	default:
		return math.MaxFloat64
	}
}

// MinValue returns the lowest finite value representable by d.
func (d DType) MinValue() float64 {
	switch {
	case d == Bool || d.IsUnsigned():
		return 0
	case d.IsSigned():
		return -math.Exp2(float64(d.Bits() - 1))
	default:
		return -d.MaxValue()
	}
}

// MaxBits returns the largest value of an integer or bool type as a
// two's-complement bit pattern.
func (d DType) MaxBits() uint64 {
	switch {
	case d == Bool:
		return 1
	case d.IsUnsigned():
		return math.MaxUint64 >> uint(64-d.Bits())
	case d.IsSigned():
		return math.MaxInt64 >> uint(64-d.Bits())
	default:
		return 0
	}
}

// MinBits returns the lowest value of an integer or bool type as a
// two's-complement bit pattern.
func (d DType) MinBits() uint64 {
	if !d.IsSigned() {
		return 0
	}

	lowest := int64(math.MinInt64)

	return uint64(lowest >> uint(64-d.Bits()))
}

// BitsFromFloat returns the bit pattern of v converted to the integer or
// bool type d, with the truncation and wrap-around of Round.
func BitsFromFloat(d DType, v float64) uint64 {
	switch {
	case d == Bool:
		if v != 0 {
			return 1
		}

		return 0
	case d == Uint64 && v >= 0x1p63 && v < 0x1p64:
		return uint64(v)
	default:
		return uint64(wrapInt(v)) & (math.MaxUint64 >> uint(64-d.Bits()))
	}
}

// FloatFromBits interprets the low bits of b as a value of the integer or
// bool type d. Int64 and Uint64 results round to the nearest float64.
func FloatFromBits(d DType, b uint64) float64 {
	switch d {
	case Bool:
		if b != 0 {
			return 1
		}

		return 0
	case Int8:
		return float64(int8(b))
	case Int16:
		return float64(int16(b))
	case Int32:
		return float64(int32(b))
	case Int64:
		return float64(int64(b))
	case Uint8:
		return float64(uint8(b))
	case Uint16:
		return float64(uint16(b))
	case Uint32:
		return float64(uint32(b))
	default:
		return float64(b)
	}
}

// Round maps v onto the nearest value representable in d. Integers truncate
// toward zero and wrap around on overflow, bool maps non-zero to 1, and
// floating types round to nearest even.
//
// This is the float64 view: Int64 and Uint64 values are exact only within
// ±2^53. Tensors keep the exact value separately, see BitsFromFloat.
func Round(d DType, v float64) float64 {
	switch d {
	case Bool:
		if v != 0 {
			return 1
		}

		return 0
	case Int8:
		return float64(int8(wrapInt(v)))
	case Int16:
		return float64(int16(wrapInt(v)))
	case Int32:
		return float64(int32(wrapInt(v)))
	case Int64:
		return float64(wrapInt(v))
	case Uint8:
		return float64(uint8(wrapInt(v)))
	case Uint16:
		return float64(uint16(wrapInt(v)))
	case Uint32:
		return float64(uint32(wrapInt(v)))
	case Uint64:
		if v < 0 {
			return float64(uint64(wrapInt(v)))
		}

		return math.Trunc(v)
	case BFloat16:
		return float64(BF16FromFloat32(float32(v)).Float32())
	case Float16:
		return float64(float16.Fromfloat32(float32(v)).Float32())
	case Float32:
		return float64(float32(v))
	default:
		return v
	}
}

func wrapInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	t := math.Trunc(v)
	if t >= -9.223372036854775808e18 && t < 9.223372036854775808e18 {
		return int64(t)
	}

	const twoTo64 = 1.8446744073709551616e19

	m := math.Mod(t, twoTo64)
	if m < 0 {
		m += twoTo64
	}

	if m >= twoTo64/2 {
		return int64(m - twoTo64)
	}

	return int64(m)
}

// DefaultTolerance returns the default absolute and relative tolerance used
// when comparing values of type d.
func DefaultTolerance(d DType) float64 {
	switch d {
	case BFloat16:
		return 1e-2
	case Float16:
		return 1e-3
	case Float32:
		return 1e-6
	case Float64:
		return 1e-15
	default:
		return 0
	}
}
