package tensor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// Reduce folds fn over axes starting from init. The reduced axes are removed
// from the output shape. Values are visited in increasing flat order.
func (t *Tensor) Reduce(axes []int, init float64, out dtype.DType, fn func(acc, x float64) float64) (*Tensor, error) {
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

	acc := make([]float64, total)
	for i := range acc {
		acc[i] = init
	}

	for i, v := range t.data {
		off := target(i)
		acc[off] = fn(acc[off], v)
	}

	return newOwned(out, acc, outShape), nil
}

// reducePlan returns the output shape of reducing axes and the function
// mapping an input flat index to its output flat index.
func (t *Tensor) reducePlan(axes []int) ([]int64, func(i int) int64, error) {
	rank := len(t.shape)
	reduced := make([]bool, rank)

	for _, a := range axes {
		d, err := NormalizeDim(a, rank)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor: reduce: %w", err)
		}

		if reduced[d] {
			return nil, nil, fmt.Errorf("tensor: reduce: duplicate axis %d", a)
		}

		reduced[d] = true
	}

	outShape := []int64{}

	for d := range rank {
		if !reduced[d] {
			outShape = append(outShape, t.shape[d])
		}
	}

	srcStrides := computeStrides(t.shape)
	outStrides := computeStrides(outShape)
	coord := make([]int64, rank)

	target := func(i int) int64 {
		linearToCoord(int64(i), t.shape, srcStrides, coord)

		var off int64

		k := 0
		for d := range rank {
			if reduced[d] {
				continue
			}

			off += coord[d] * outStrides[k]
			k++
		}

		return off
	}

	return outShape, target, nil
}

// ArgReduce returns, along axis, the index of the element that wins under
// better. Ties keep the lowest index.
func (t *Tensor) ArgReduce(axis int, out dtype.DType, better func(candidate, best float64) bool) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: arg reduce on nil tensor")
	}

	return t.argReduce(axis, out, func(c, best int) bool { return better(t.data[c], t.data[best]) })
}

// ArgReduceBits is ArgReduce comparing exact bit patterns.
func (t *Tensor) ArgReduceBits(axis int, out dtype.DType, better func(candidate, best uint64) bool) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: arg reduce on nil tensor")
	}

	return t.argReduce(axis, out, func(c, best int) bool { return better(t.bitAt(c), t.bitAt(best)) })
}

func (t *Tensor) argReduce(axis int, out dtype.DType, better func(candidate, best int) bool) (*Tensor, error) {
	axis, err := NormalizeDim(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("tensor: arg reduce: %w", err)
	}

	if t.shape[axis] == 0 {
		return nil, fmt.Errorf("tensor: arg reduce over empty axis %d", axis)
	}

	outer, size, inner := splitAxis(t.shape, axis)
	outShape := slices.Delete(append([]int64{}, t.shape...), axis, axis+1)
	data := make([]float64, outer*inner)

	for o := range outer {
		for in := range inner {
			base := o*size*inner + in
			best := 0

			for k := 1; k < size; k++ {
				if better(base+k*inner, base+best*inner) {
					best = k
				}
			}

			data[o*inner+in] = float64(best)
		}
	}

	return newOwned(out, data, outShape), nil
}

// Cumulative computes a running fold of fn along axis.
func (t *Tensor) Cumulative(axis int, reverse bool, fn func(acc, x float64) float64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: cumulative on nil tensor")
	}

	axis, err := NormalizeDim(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("tensor: cumulative: %w", err)
	}

	outer, size, inner := splitAxis(t.shape, axis)
	data := make([]float64, len(t.data))

	for o := range outer {
		for in := range inner {
			base := o*size*inner + in

			var acc float64

			for step := range size {
				k := step
				if reverse {
					k = size - 1 - step
				}

				idx := base + k*inner
				if step == 0 {
					acc = t.data[idx]
				} else {
					acc = dtype.Round(t.dtype, fn(acc, t.data[idx]))
				}

				data[idx] = acc
			}
		}
	}

	return newOwned(t.dtype, data, append([]int64{}, t.shape...)), nil
}

// Lanes calls fn once per 1-D lane along axis with the flat indices of the
// lane in order. fn must not retain lane.
func Lanes(shape []int64, axis int, fn func(lane []int)) error {
	axis, err := NormalizeDim(axis, len(shape))
	if err != nil {
		return fmt.Errorf("tensor: lanes: %w", err)
	}

	outer, size, inner := splitAxis(shape, axis)
	lane := make([]int, size)

	for o := range outer {
		for in := range inner {
			for k := range size {
				lane[k] = o*size*inner + k*inner + in
			}

			fn(lane)
		}
	}

	return nil
}

func splitAxis(shape []int64, axis int) (outer, size, inner int) {
	outer, inner = 1, 1
	for d := range axis {
		outer *= int(shape[d])
	}

	for d := axis + 1; d < len(shape); d++ {
		inner *= int(shape[d])
	}

	return outer, int(shape[axis]), inner
}
