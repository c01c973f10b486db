package tensor

import (
	"errors"
	"fmt"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// Window is a sliding window over every axis of a tensor. Nil Strides means
// unit strides and nil Padding means no padding.
type Window struct {
	Dims    []int64
	Strides []int64
	Padding [][2]int64
}

// resolve checks w against a rank and fills in unit strides and zero
// padding.
func (w Window) resolve(rank int) (strides, lo, hi []int64, err error) {
	if len(w.Dims) != rank {
		return nil, nil, nil, fmt.Errorf("tensor: window dimensions %v must match rank %d", w.Dims, rank)
	}

	if w.Strides != nil && len(w.Strides) != rank {
		return nil, nil, nil, fmt.Errorf("tensor: window strides %v must match rank %d", w.Strides, rank)
	}

	if w.Padding != nil && len(w.Padding) != rank {
		return nil, nil, nil, fmt.Errorf("tensor: window padding %v must match rank %d", w.Padding, rank)
	}

	strides, lo, hi = make([]int64, rank), make([]int64, rank), make([]int64, rank)

	for d := range rank {
		strides[d] = 1
		if w.Strides != nil {
			strides[d] = w.Strides[d]
		}

		if w.Padding != nil {
			lo[d], hi[d] = w.Padding[d][0], w.Padding[d][1]
		}

		switch {
		case w.Dims[d] < 1:
			return nil, nil, nil, fmt.Errorf("tensor: window dimensions must be positive, got %v", w.Dims)
		case strides[d] < 1:
			return nil, nil, nil, fmt.Errorf("tensor: window strides must be positive, got %v", w.Strides)
		case lo[d] < 0 || hi[d] < 0:
			return nil, nil, nil, fmt.Errorf("tensor: window padding must be non-negative, got %v", w.Padding)
		}
	}

	return strides, lo, hi, nil
}

// WindowShape returns the shape of sliding w over an operand of shape. An
// axis whose padded size is smaller than the window has no output.
func WindowShape(shape []int64, w Window) ([]int64, error) {
	strides, lo, hi, err := w.resolve(len(shape))
	if err != nil {
		return nil, err
	}

	out := make([]int64, len(shape))

	for d, size := range shape {
		if padded := size + lo[d] + hi[d]; padded >= w.Dims[d] {
			out[d] = (padded-w.Dims[d])/strides[d] + 1
		}
	}

	return out, nil
}

// windowPlan returns the output shape of sliding w over t and a function
// calling each with the flat input index of every element inside the window
// of output element o. Padding positions are not visited.
func (t *Tensor) windowPlan(w Window) ([]int64, func(o int, each func(in int)), error) {
	rank := len(t.shape)

	strides, lo, _, err := w.resolve(rank)
	if err != nil {
		return nil, nil, err
	}

	out, err := WindowShape(t.shape, w)
	if err != nil {
		return nil, nil, err
	}

	inStrides := computeStrides(t.shape)
	outStrides := computeStrides(out)
	winStrides := computeStrides(w.Dims)

	winSize, err := NumElements(w.Dims)
	if err != nil {
		return nil, nil, err
	}

	visit := func(o int, each func(in int)) {
		oc := make([]int64, rank)
		kc := make([]int64, rank)
		linearToCoord(int64(o), out, outStrides, oc)

		for k := range winSize {
			linearToCoord(int64(k), w.Dims, winStrides, kc)

			var (
				off    int64
				inside = true
			)

			for d := range rank {
				c := oc[d]*strides[d] + kc[d] - lo[d]
				if c < 0 || c >= t.shape[d] {
					inside = false
					break
				}

				off += c * inStrides[d]
			}

			if inside {
				each(int(off))
			}
		}
	}

	return out, visit, nil
}

// ReduceWindow folds fn over every window of t starting from init. Padding
// contributes init.
func (t *Tensor) ReduceWindow(w Window, init float64, fn func(acc, x float64) float64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: reduce_window on nil tensor")
	}

	outShape, visit, err := t.windowPlan(w)
	if err != nil {
		return nil, err
	}

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	data := make([]float64, total)

	parallelFor(total, func(lo, hi int) {
		for o := lo; o < hi; o++ {
			acc := init
			visit(o, func(in int) { acc = fn(acc, t.data[in]) })
			data[o] = acc
		}
	})

	return newOwned(t.dtype, data, outShape), nil
}

// ReduceWindowBits is ReduceWindow over two's-complement bit patterns.
func (t *Tensor) ReduceWindowBits(w Window, init uint64, fn func(acc, x uint64) uint64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: reduce_window on nil tensor")
	}

	outShape, visit, err := t.windowPlan(w)
	if err != nil {
		return nil, err
	}

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	bits := make([]uint64, total)

	for o := range bits {
		acc := init
		visit(o, func(in int) { acc = fn(acc, t.bitAt(in)) })
		bits[o] = acc
	}

	return newOwnedBits(t.dtype, bits, outShape), nil
}

// SelectAndGather returns, for every window of operand, the element of
// tangents at the position better selects. The first position wins ties.
// Windows lying wholly in the padding give 0.
func SelectAndGather(tangents, operand *Tensor, w Window, better func(candidate, best float64) bool) (*Tensor, error) {
	if tangents == nil || operand == nil {
		return nil, errors.New("tensor: select_and_gather requires non-nil tensors")
	}

	if !SameShape(tangents.shape, operand.shape) {
		return nil, fmt.Errorf("tensor: tangents shape %v does not match operand shape %v", tangents.shape, operand.shape)
	}

	outShape, visit, err := operand.windowPlan(w)
	if err != nil {
		return nil, err
	}

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	data := make([]float64, total)

	for o := range data {
		best := -1

		visit(o, func(in int) {
			if best < 0 || better(operand.data[in], operand.data[best]) {
				best = in
			}
		})

		if best >= 0 {
			data[o] = tangents.data[best]
		}
	}

	return newOwned(tangents.dtype, data, outShape), nil
}

// scatterPlan checks updates against t and indices and returns the function
// mapping an update flat index to the flat index of t it combines into.
// Updates whose index falls outside the axis are dropped.
func (t *Tensor) scatterPlan(indices, updates *Tensor, axis int) (func(j int) (int, bool), error) {
	if indices == nil || updates == nil {
		return nil, errors.New("tensor: scatter requires non-nil tensors")
	}

	if !indices.dtype.IsInt() {
		return nil, fmt.Errorf("tensor: scatter indices must be integers, got %s", indices.dtype)
	}

	if updates.dtype != t.dtype {
		return nil, fmt.Errorf("tensor: scatter updates dtype %s must match operand dtype %s", updates.dtype, t.dtype)
	}

	axis, err := NormalizeDim(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("tensor: scatter: %w", err)
	}

	want := make([]int64, 0, len(t.shape)-1+len(indices.shape))
	want = append(want, t.shape[:axis]...)
	want = append(want, indices.shape...)
	want = append(want, t.shape[axis+1:]...)

	if !SameShape(want, updates.shape) {
		return nil, fmt.Errorf("tensor: scatter updates shape %v must be %v", updates.shape, want)
	}

	_, size, inner := splitAxis(t.shape, axis)
	k := len(indices.data)

	return func(j int) (int, bool) {
		in := j % inner
		idx := j / inner % k
		o := j / (inner * k)

		pos := indices.data[idx]
		if pos < 0 || pos >= float64(size) {
			return 0, false
		}

		return (o*size+int(pos))*inner + in, true
	}, nil
}

// Scatter combines updates into a copy of t along axis at indices, in
// increasing update order. The shape of updates is that of t.Take(indices,
// axis). Every combined value is rounded to the dtype of t.
func (t *Tensor) Scatter(indices, updates *Tensor, axis int, combine func(old, update float64) float64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: scatter on nil tensor")
	}

	target, err := t.scatterPlan(indices, updates, axis)
	if err != nil {
		return nil, err
	}

	data := append([]float64{}, t.data...)

	for j, u := range updates.data {
		if at, ok := target(j); ok {
			data[at] = dtype.Round(t.dtype, combine(data[at], u))
		}
	}

	return newOwned(t.dtype, data, append([]int64{}, t.shape...)), nil
}

// ScatterBits is Scatter over two's-complement bit patterns.
func (t *Tensor) ScatterBits(indices, updates *Tensor, axis int, combine func(old, update uint64) uint64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: scatter on nil tensor")
	}

	target, err := t.scatterPlan(indices, updates, axis)
	if err != nil {
		return nil, err
	}

	bits := t.Bits()

	for j := range updates.data {
		if at, ok := target(j); ok {
			bits[at] = combine(bits[at], updates.bitAt(j))
		}
	}

	return newOwnedBits(t.dtype, bits, append([]int64{}, t.shape...)), nil
}
