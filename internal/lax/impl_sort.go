package lax

import (
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func init() {
	Translations.register(SortP, sortImpl)
	Translations.register(TopKP, topKImpl)
}

// sortImpl sorts every operand along dimension by the first operand's keys.
// The sort is always stable; NaN keys go last.
func sortImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) == 0 {
		return nil, errorf(ErrShape, SortP, "requires at least one operand")
	}

	if nk := params.Int("num_keys"); nk > 1 {
		return nil, errorf(ErrUnimplemented, SortP, "num_keys=%d", nk)
	}

	shape := args[0].Shape()
	for i, a := range args {
		if !tensor.SameShape(shape, a.Shape()) {
			return nil, errorf(ErrShape, SortP, "operand %d shape %v differs from %v", i, a.Shape(), shape)
		}
	}

	if len(shape) == 0 {
		return nil, errorf(ErrShape, SortP, "cannot sort a scalar")
	}

	dim, err := tensor.NormalizeDim(int(params.Int("dimension")), len(shape))
	if err != nil {
		return nil, errorf(ErrShape, SortP, "%v", err)
	}

	key := args[0]
	less := ops.KeyLess(key.DType(), key.RawData(), key.RawBits(), ops.NaNLast)
	flat := make([]int, key.ElemCount())

	err = tensor.Lanes(shape, dim, func(lane []int) {
		perm := ops.SortPermutationFunc(len(lane), func(i, j int) bool { return less(lane[i], lane[j]) })
		for k, from := range perm {
			flat[lane[k]] = lane[from]
		}
	})
	if err != nil {
		return nil, errorf(ErrShape, SortP, "%v", err)
	}

	res := make([]*tensor.Tensor, len(args))
	for i, a := range args {
		if res[i], err = a.Gather(flat, shape); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// topKImpl returns (values, int32 indices) of the k largest entries of the
// last dimension. NaN counts as the largest value.
func topKImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := unary(TopKP, args)
	if err != nil {
		return nil, err
	}

	if x.DType() == dtype.Bool {
		return nil, errorf(ErrShape, TopKP, "operand dtype bool is not numeric")
	}

	shape := x.Shape()
	if len(shape) == 0 {
		return nil, errorf(ErrShape, TopKP, "operand must have rank >= 1")
	}

	k := params.Int("k")
	last := shape[len(shape)-1]

	switch {
	case k < 0:
		return nil, errorf(ErrValue, TopKP, "k argument to top_k must be nonnegative, got %d", k)
	case k > last:
		return nil, errorf(ErrValue, TopKP, "k argument to top_k must be no larger than minor dimension; %d vs %v", k, shape)
	}

	less := ops.KeyLess(x.DType(), x.RawData(), x.RawBits(), ops.NaNLast)
	rows := x.ElemCount() / max(int(last), 1)

	flat := make([]int, 0, rows*int(k))
	indices := make([]float64, 0, rows*int(k))

	for r := range rows {
		base := r * int(last)
		for _, idx := range ops.TopKPermutationFunc(int(last), int(k), func(i, j int) bool { return less(base+i, base+j) }) {
			flat = append(flat, base+idx)
			indices = append(indices, float64(idx))
		}
	}

	outShape := append(append([]int64{}, shape[:len(shape)-1]...), k)

	vT, err := x.Gather(flat, outShape)
	if err != nil {
		return nil, err
	}

	iT, err := tensor.New(dtype.Int32, indices, outShape)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{vT, iT}, nil
}
