package tensor

import (
	"errors"
	"fmt"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// lane allocates an exact lane of n elements when t carries one.
func (t *Tensor) lane(n int) []uint64 {
	if t.bits == nil {
		return nil
	}

	return make([]uint64, n)
}

// Wide reports whether t carries exact 64-bit integer patterns.
func (t *Tensor) Wide() bool { return t != nil && t.bits != nil }

// RawBits returns the exact lane of a Wide tensor, nil otherwise. Callers
// must treat it as read-only.
func (t *Tensor) RawBits() []uint64 {
	if t == nil {
		return nil
	}

	return t.bits
}

// ElementwiseBits is Elementwise over two's-complement bit patterns.
// Narrower integer and bool operands are sign- or zero-extended by their own
// dtype. The result keeps the low out.Bits() bits.
func ElementwiseBits(out dtype.DType, fn func(xs []uint64) uint64, opName string, operands ...*Tensor) (*Tensor, error) {
	for i, op := range operands {
		if op != nil && op.dtype.IsFloat() {
			return nil, fmt.Errorf("tensor: %s operand %d has floating dtype %s", opName, i, op.dtype)
		}
	}

	if !out.IsInt() && out != dtype.Bool {
		return nil, fmt.Errorf("tensor: %s result dtype %s is not integral", opName, out)
	}

	plan, err := planBroadcast(opName, operands)
	if err != nil {
		return nil, err
	}

	bits := make([]uint64, plan.total)

	parallelFor(plan.total, func(lo, hi int) {
		coord := make([]int64, len(plan.shape))
		offs := make([]int64, len(operands))
		xs := make([]uint64, len(operands))

		for i := lo; i < hi; i++ {
			plan.offsets(i, coord, offs)

			for k, op := range operands {
				xs[k] = op.bitAt(int(offs[k]))
			}

			bits[i] = fn(xs)
		}
	})

	return newOwnedBits(out, bits, plan.shape), nil
}

// BinaryBits is Binary over two's-complement bit patterns.
func BinaryBits(a, b *Tensor, out dtype.DType, fn func(x, y uint64) uint64, opName string) (*Tensor, error) {
	return ElementwiseBits(out, func(xs []uint64) uint64 { return fn(xs[0], xs[1]) }, opName, a, b)
}

// MapBits applies fn to the bit pattern of every element of an integer
// tensor and returns a tensor of type out.
func (t *Tensor) MapBits(out dtype.DType, fn func(uint64) uint64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: map on nil tensor")
	}

	return ElementwiseBits(out, func(xs []uint64) uint64 { return fn(xs[0]) }, "map", t)
}

// ReduceBits is Reduce over two's-complement bit patterns.
func (t *Tensor) ReduceBits(axes []int, init uint64, out dtype.DType, fn func(acc, x uint64) uint64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: reduce on nil tensor")
	}

	outShape, target, err := t.reducePlan(axes)
	if err != nil {
		return nil, err
	}

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	acc := make([]uint64, total)
	for i := range acc {
		acc[i] = init
	}

	for i := range t.data {
		off := target(i)
		acc[off] = fn(acc[off], t.bitAt(i))
	}

	return newOwnedBits(out, acc, outShape), nil
}

// CumulativeBits is Cumulative over two's-complement bit patterns.
func (t *Tensor) CumulativeBits(axis int, reverse bool, fn func(acc, x uint64) uint64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: cumulative on nil tensor")
	}

	axis, err := NormalizeDim(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("tensor: cumulative: %w", err)
	}

	outer, size, inner := splitAxis(t.shape, axis)
	bits := make([]uint64, len(t.data))

	for o := range outer {
		for in := range inner {
			base := o*size*inner + in

			var acc uint64

			for step := range size {
				k := step
				if reverse {
					k = size - 1 - step
				}

				idx := base + k*inner
				if step == 0 {
					acc = t.bitAt(idx)
				} else {
					acc = fn(acc, t.bitAt(idx))
				}

				bits[idx] = acc
			}
		}
	}

	return newOwnedBits(t.dtype, bits, append([]int64{}, t.shape...)), nil
}

// Gather returns the tensor of the given shape whose element i is element
// flat[i] of t. Values move exactly.
func (t *Tensor) Gather(flat []int, shape []int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: gather on nil tensor")
	}

	total, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	if total != len(flat) {
		return nil, fmt.Errorf("tensor: gather of %d positions into shape %v", len(flat), shape)
	}

	data := make([]float64, total)
	bits := t.lane(total)

	for i, from := range flat {
		if from < 0 || from >= len(t.data) {
			return nil, fmt.Errorf("tensor: gather position %d out of range for %d elements", from, len(t.data))
		}

		data[i] = t.data[from]
		if bits != nil {
			bits[i] = t.bits[from]
		}
	}

	return &Tensor{dtype: t.dtype, shape: append([]int64{}, shape...), data: data, bits: bits}, nil
}
