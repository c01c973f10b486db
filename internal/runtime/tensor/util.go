package tensor

import (
	"fmt"
	"math"
	"math/bits"
)

// NumElements returns the element count of shape, or an error for invalid shapes.
func NumElements(shape []int64) (int, error) {
	total := uint64(1)

	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("tensor: shape %v has negative dimension at %d", shape, i)
		}

		hi, lo := bits.Mul64(total, uint64(d))
		if hi != 0 || lo > math.MaxInt {
			return 0, fmt.Errorf("tensor: shape %v too large", shape)
		}

		total = lo
	}

	return int(total), nil
}

// NormalizeDim resolves a possibly negative dim against rank.
func NormalizeDim(dim, rank int) (int, error) {
	d := dim
	if d < 0 {
		d += rank
	}

	if rank < 0 || d < 0 || d >= rank {
		return 0, fmt.Errorf("tensor: dim %d out of range for rank %d", dim, rank)
	}

	return d, nil
}

// computeStrides returns row-major strides; nil for scalars.
func computeStrides(shape []int64) []int64 {
	if len(shape) == 0 {
		return nil
	}

	strides := make([]int64, len(shape))
	strides[len(shape)-1] = 1

	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}

	return strides
}

func linearToCoord(linear int64, shape, strides, out []int64) {
	for i, d := range shape {
		if d == 0 {
			out[i] = 0
			continue
		}

		out[i] = linear / strides[i] % d
	}
}

func coordToLinear(coord, strides []int64) int64 {
	var off int64
	for i, c := range coord {
		off += c * strides[i]
	}

	return off
}

// Unravel converts a flat index into a coordinate for shape.
func Unravel(linear int, shape []int64) []int64 {
	coord := make([]int64, len(shape))
	linearToCoord(int64(linear), shape, computeStrides(shape), coord)

	return coord
}
