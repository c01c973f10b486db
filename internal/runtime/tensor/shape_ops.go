package tensor

import (
	"errors"
	"fmt"
)

// Transpose permutes dimensions so that output dim i is input dim perm[i].
func (t *Tensor) Transpose(perm []int) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: transpose on nil tensor")
	}

	rank := len(t.shape)
	if len(perm) != rank {
		return nil, fmt.Errorf("tensor: transpose: permutation %v does not match rank %d", perm, rank)
	}

	seen := make([]bool, rank)
	outShape := make([]int64, rank)

	for i, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			return nil, fmt.Errorf("tensor: transpose: invalid permutation %v", perm)
		}

		seen[p] = true
		outShape[i] = t.shape[p]
	}

	srcStrides := computeStrides(t.shape)
	outStrides := computeStrides(outShape)
	outCoord := make([]int64, rank)
	data := make([]float64, len(t.data))
	bits := t.lane(len(t.data))

	for i := range data {
		linearToCoord(int64(i), outShape, outStrides, outCoord)

		var off int64
		for d, p := range perm {
			off += outCoord[d] * srcStrides[p]
		}

		data[i] = t.data[off]
		if bits != nil {
			bits[i] = t.bits[off]
		}
	}

	return &Tensor{dtype: t.dtype, shape: outShape, data: data, bits: bits}, nil
}

// Slice extracts the strided window [start, limit) with the given strides.
// A nil strides slice means unit strides.
func (t *Tensor) Slice(start, limit, strides []int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: slice on nil tensor")
	}

	rank := len(t.shape)
	if len(start) != rank || len(limit) != rank {
		return nil, fmt.Errorf("tensor: slice: start %v and limit %v must have rank %d", start, limit, rank)
	}

	if strides == nil {
		strides = make([]int64, rank)
		for i := range strides {
			strides[i] = 1
		}
	}

	if len(strides) != rank {
		return nil, fmt.Errorf("tensor: slice: strides %v must have rank %d", strides, rank)
	}

	outShape := make([]int64, rank)

	for d := range rank {
		if start[d] < 0 || limit[d] > t.shape[d] || start[d] > limit[d] || strides[d] <= 0 {
			return nil, fmt.Errorf("tensor: slice: window [%d:%d:%d] invalid for dim %d size %d", start[d], limit[d], strides[d], d, t.shape[d])
		}

		outShape[d] = (limit[d] - start[d] + strides[d] - 1) / strides[d]
	}

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	srcStrides := computeStrides(t.shape)
	outStrides := computeStrides(outShape)
	coord := make([]int64, rank)
	data := make([]float64, total)
	bits := t.lane(total)

	for i := range data {
		linearToCoord(int64(i), outShape, outStrides, coord)

		var off int64
		for d := range rank {
			off += (start[d] + coord[d]*strides[d]) * srcStrides[d]
		}

		data[i] = t.data[off]
		if bits != nil {
			bits[i] = t.bits[off]
		}
	}

	return &Tensor{dtype: t.dtype, shape: outShape, data: data, bits: bits}, nil
}

// UpdateSlice returns a copy of t with update written at start.
func (t *Tensor) UpdateSlice(update *Tensor, start []int64) (_ *Tensor, err error) {
	if t == nil || update == nil {
		return nil, errors.New("tensor: update_slice requires non-nil tensors")
	}

	rank := len(t.shape)
	if len(update.shape) != rank || len(start) != rank {
		return nil, fmt.Errorf("tensor: update_slice: update %v and start %v must have rank %d", update.shape, start, rank)
	}

	for d := range rank {
		if start[d] < 0 || start[d]+update.shape[d] > t.shape[d] {
			return nil, fmt.Errorf("tensor: update_slice: update %v at %v out of bounds for %v", update.shape, start, t.shape)
		}
	}

	if update.dtype != t.dtype {
		if update, err = update.Astype(t.dtype); err != nil {
			return nil, err
		}
	}

	out := t.Clone()
	dstStrides := computeStrides(t.shape)
	updStrides := computeStrides(update.shape)
	coord := make([]int64, rank)

	for i := range update.data {
		linearToCoord(int64(i), update.shape, updStrides, coord)

		var off int64
		for d := range rank {
			off += (start[d] + coord[d]) * dstStrides[d]
		}

		out.data[off] = update.data[i]
		if out.bits != nil {
			out.bits[off] = update.bits[i]
		}
	}

	return out, nil
}

// Pad pads t with value. lo and hi may be negative, which crops; interior
// inserts that many padding elements between neighbours.
func (t *Tensor) Pad(value float64, lo, hi, interior []int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: pad on nil tensor")
	}

	rank := len(t.shape)
	if len(lo) != rank || len(hi) != rank || len(interior) != rank {
		return nil, fmt.Errorf("tensor: pad: config lengths (%d, %d, %d) must equal rank %d", len(lo), len(hi), len(interior), rank)
	}

	outShape := make([]int64, rank)

	for d := range rank {
		if interior[d] < 0 {
			return nil, fmt.Errorf("tensor: pad: negative interior padding %d at dim %d", interior[d], d)
		}

		n := t.shape[d]
		dilated := int64(0)

		if n > 0 {
			dilated = n + (n-1)*interior[d]
		}

		outShape[d] = lo[d] + dilated + hi[d]
		if outShape[d] < 0 {
			return nil, fmt.Errorf("tensor: pad: negative output size %d at dim %d", outShape[d], d)
		}
	}

	out, err := Full(t.dtype, outShape, value)
	if err != nil {
		return nil, err
	}

	srcStrides := computeStrides(t.shape)
	outStrides := computeStrides(outShape)
	coord := make([]int64, rank)

	for i := range t.data {
		linearToCoord(int64(i), t.shape, srcStrides, coord)

		var off int64

		inside := true
		for d := range rank {
			p := lo[d] + coord[d]*(interior[d]+1)
			if p < 0 || p >= outShape[d] {
				inside = false
				break
			}

			off += p * outStrides[d]
		}

		if inside {
			out.data[off] = t.data[i]
			if out.bits != nil {
				out.bits[off] = t.bits[i]
			}
		}
	}

	return out, nil
}

// Concat concatenates tensors of the same dtype along dim.
func Concat(tensors []*Tensor, dim int) (*Tensor, error) {
	if len(tensors) == 0 {
		return nil, errors.New("tensor: concat requires at least one tensor")
	}

	first := tensors[0]
	if first == nil {
		return nil, errors.New("tensor: concat tensor 0 is nil")
	}

	rank := len(first.shape)

	dim, err := NormalizeDim(dim, rank)
	if err != nil {
		return nil, fmt.Errorf("tensor: concat: %w", err)
	}

	outShape := append([]int64(nil), first.shape...)
	outShape[dim] = 0

	for i, t := range tensors {
		if t == nil {
			return nil, fmt.Errorf("tensor: concat tensor %d is nil", i)
		}

		if t.dtype != first.dtype {
			return nil, fmt.Errorf("tensor: concat tensor %d has dtype %s, want %s", i, t.dtype, first.dtype)
		}

		if len(t.shape) != rank {
			return nil, fmt.Errorf("tensor: concat tensor %d rank %d, want %d", i, len(t.shape), rank)
		}

		for d := range rank {
			if d != dim && t.shape[d] != first.shape[d] {
				return nil, fmt.Errorf("tensor: concat tensor %d shape %v incompatible with %v", i, t.shape, first.shape)
			}
		}

		outShape[dim] += t.shape[dim]
	}

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	// Row-major: copy contiguous chunks of inner*size per outer index.
	outer := 1
	for d := range dim {
		outer *= int(outShape[d])
	}

	inner := 1
	for d := dim + 1; d < rank; d++ {
		inner *= int(outShape[d])
	}

	data := make([]float64, 0, total)
	bits := first.lane(0)

	for o := range outer {
		for _, t := range tensors {
			chunk := int(t.shape[dim]) * inner
			data = append(data, t.data[o*chunk:(o+1)*chunk]...)

			if bits != nil {
				bits = append(bits, t.bits[o*chunk:(o+1)*chunk]...)
			}
		}
	}

	return &Tensor{dtype: first.dtype, shape: outShape, data: data, bits: bits}, nil
}

// Take gathers slices of t along axis at the given indices. The output shape
// is t.shape[:axis] + indices.shape + t.shape[axis+1:].
func (t *Tensor) Take(indices *Tensor, axis int) (*Tensor, error) {
	if t == nil || indices == nil {
		return nil, errors.New("tensor: take requires non-nil tensors")
	}

	if !indices.dtype.IsInt() {
		return nil, fmt.Errorf("tensor: take indices must be integers, got %s", indices.dtype)
	}

	axis, err := NormalizeDim(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("tensor: take: %w", err)
	}

	size := t.shape[axis]
	for i, v := range indices.data {
		if v < 0 || int64(v) >= size {
			return nil, fmt.Errorf("tensor: take index %d (%d) out of range for axis %d size %d", i, int64(v), axis, size)
		}
	}

	outShape := make([]int64, 0, len(t.shape)-1+len(indices.shape))
	outShape = append(outShape, t.shape[:axis]...)
	outShape = append(outShape, indices.shape...)
	outShape = append(outShape, t.shape[axis+1:]...)

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	outer := 1
	for d := range axis {
		outer *= int(t.shape[d])
	}

	inner := 1
	for d := axis + 1; d < len(t.shape); d++ {
		inner *= int(t.shape[d])
	}

	data := make([]float64, 0, total)
	bits := t.lane(0)

	for o := range outer {
		base := o * int(size) * inner
		for _, idx := range indices.data {
			start := base + int(idx)*inner
			data = append(data, t.data[start:start+inner]...)

			if bits != nil {
				bits = append(bits, t.bits[start:start+inner]...)
			}
		}
	}

	return &Tensor{dtype: t.dtype, shape: outShape, data: data, bits: bits}, nil
}
