package dtype

import (
	"math"
	"strconv"
)

// BF16 is a bfloat16 value: the top 16 bits of an IEEE float32.
type BF16 uint16

// BF16FromFloat32 converts f with round-to-nearest-even. NaN stays NaN.
func BF16FromFloat32(f float32) BF16 {
	bits := math.Float32bits(f)
	if f != f {
		return BF16(bits>>16 | 0x0040)
	}

	rounding := uint32(0x7fff) + (bits>>16)&1

	return BF16((bits + rounding) >> 16)
}

// BF16FromBits wraps raw bits.
func BF16FromBits(b uint16) BF16 { return BF16(b) }

func (b BF16) Bits() uint16 { return uint16(b) }

func (b BF16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

func (b BF16) String() string {
	return strconv.FormatFloat(float64(b.Float32()), 'g', -1, 32)
}
