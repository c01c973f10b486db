package graph

import (
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func init() {
	defineOp(OpCast, 1, inferCast, castKernel)
	defineOp(OpBroadcast, 1, inferBroadcast, broadcastKernel)
	defineOp(OpReshape, 1, inferReshape, reshapeKernel)
	defineOp(OpTranspose, 1, inferTranspose, transposeKernel)
	defineOp(OpConcat, -1, inferConcat, concatKernel)
	defineOp(OpPad, 2, inferPad, padKernel)
	defineOp(OpSlice, 1, inferSlice, sliceKernel)
	defineOp(OpDynamicSlice, -1, inferDynamicSlice, dynamicSliceKernel)
	defineOp(OpDynamicUpdateSlice, -1, inferDynamicUpdateSlice, dynamicUpdateSliceKernel)
	defineOp(OpGather, 2, inferGather, gatherKernel)
	defineOp(OpIota, 0, inferIota, iotaKernel)
}

func inferCast(op string, attrs Attrs, in []Type) ([]Type, error) {
	dt := attrs.DType(AttrDType)
	if !dt.Valid() {
		return nil, invalidf(op, "missing target dtype")
	}

	return []Type{{DType: dt, Shape: in[0].Shape}}, nil
}

func castKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out, err := in[0].Astype(attrs.DType(AttrDType))
	if err != nil {
		return nil, invalidf(OpCast, "%v", err)
	}

	return single(out), nil
}

func inferBroadcast(op string, attrs Attrs, in []Type) ([]Type, error) {
	shape, dims := attrs.Ints(AttrShape), attrs.Axes(AttrDims)
	if len(dims) != len(in[0].Shape) {
		return nil, invalidf(op, "%d dims for operand of rank %d", len(dims), len(in[0].Shape))
	}

	for i, d := range dims {
		if d < 0 || d >= len(shape) {
			return nil, invalidf(op, "dim %d out of range for shape %v", d, shape)
		}

		if s := in[0].Shape[i]; s != 1 && s != shape[d] {
			return nil, invalidf(op, "operand shape %v incompatible with %v", in[0].Shape, shape)
		}
	}

	return []Type{{DType: in[0].DType, Shape: shape}}, nil
}

func broadcastKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out, err := in[0].BroadcastInDim(attrs.Ints(AttrShape), attrs.Axes(AttrDims))
	if err != nil {
		return nil, invalidf(OpBroadcast, "%v", err)
	}

	return single(out), nil
}

func inferReshape(op string, attrs Attrs, in []Type) ([]Type, error) {
	shape := attrs.Ints(AttrShape)

	want, err := tensor.NumElements(shape)
	if err != nil {
		return nil, invalidf(op, "%v", err)
	}

	have, err := tensor.NumElements(in[0].Shape)
	if err != nil {
		return nil, invalidf(op, "%v", err)
	}

	if want != have {
		return nil, invalidf(op, "cannot reshape %v into %v", in[0].Shape, shape)
	}

	return []Type{{DType: in[0].DType, Shape: shape}}, nil
}

func reshapeKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out, err := in[0].Reshape(attrs.Ints(AttrShape))
	if err != nil {
		return nil, invalidf(OpReshape, "%v", err)
	}

	return single(out), nil
}

func inferTranspose(op string, attrs Attrs, in []Type) ([]Type, error) {
	perm := attrs.Axes(AttrPerm)
	shape := in[0].Shape

	if len(perm) != len(shape) {
		return nil, invalidf(op, "permutation %v for rank %d", perm, len(shape))
	}

	seen := make([]bool, len(perm))
	out := make([]int64, len(perm))

	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, invalidf(op, "invalid permutation %v", perm)
		}

		seen[p] = true
		out[i] = shape[p]
	}

	return []Type{{DType: in[0].DType, Shape: out}}, nil
}

func transposeKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out, err := in[0].Transpose(attrs.Axes(AttrPerm))
	if err != nil {
		return nil, invalidf(OpTranspose, "%v", err)
	}

	return single(out), nil
}

func inferConcat(op string, attrs Attrs, in []Type) ([]Type, error) {
	if len(in) == 0 {
		return nil, invalidf(op, "needs at least one operand")
	}

	rank := len(in[0].Shape)

	axis, err := tensor.NormalizeDim(int(attrs.Int(AttrAxis)), rank)
	if err != nil {
		return nil, invalidf(op, "%v", err)
	}

	out := append([]int64{}, in[0].Shape...)
	out[axis] = 0

	for i, t := range in {
		if t.DType != in[0].DType || len(t.Shape) != rank {
			return nil, invalidf(op, "operand %d type %s does not match %s", i, t, in[0])
		}

		for d := range rank {
			if d != axis && t.Shape[d] != out[d] {
				return nil, invalidf(op, "operand %d shape %v does not match %v off axis %d", i, t.Shape, in[0].Shape, axis)
			}
		}

		out[axis] += t.Shape[axis]
	}

	return []Type{{DType: in[0].DType, Shape: out}}, nil
}

func concatKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out, err := tensor.Concat(in, int(attrs.Int(AttrAxis)))
	if err != nil {
		return nil, invalidf(OpConcat, "%v", err)
	}

	return single(out), nil
}

// inferPad rejects negative edge padding.
func inferPad(op string, attrs Attrs, in []Type) ([]Type, error) {
	x, v := in[0], in[1]
	if len(v.Shape) != 0 || v.DType != x.DType {
		return nil, invalidf(op, "padding value must be a %s scalar, got %s", x.DType, v)
	}

	lo, hi, interior := attrs.Ints(AttrLo), attrs.Ints(AttrHi), attrs.Ints(AttrInterior)
	rank := len(x.Shape)

	if len(lo) != rank || len(hi) != rank || len(interior) != rank {
		return nil, invalidf(op, "padding config must have %d entries", rank)
	}

	out := make([]int64, rank)

	for d, size := range x.Shape {
		if lo[d] < 0 || hi[d] < 0 {
			return nil, invalidf(op, "negative padding %d/%d is not supported", lo[d], hi[d])
		}

		if interior[d] < 0 {
			return nil, invalidf(op, "negative interior padding %d", interior[d])
		}

		out[d] = lo[d] + hi[d] + size + max(size-1, 0)*interior[d]
	}

	return []Type{{DType: x.DType, Shape: out}}, nil
}

func padKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	v, err := in[1].Item()
	if err != nil {
		return nil, invalidf(OpPad, "%v", err)
	}

	out, err := in[0].Pad(v, attrs.Ints(AttrLo), attrs.Ints(AttrHi), attrs.Ints(AttrInterior))
	if err != nil {
		return nil, invalidf(OpPad, "%v", err)
	}

	return single(out), nil
}

func inferSlice(op string, attrs Attrs, in []Type) ([]Type, error) {
	shape := in[0].Shape
	start, limit, strides := attrs.Ints(AttrStart), attrs.Ints(AttrLimit), attrs.Ints(AttrStrides)

	if len(start) != len(shape) || len(limit) != len(shape) || (strides != nil && len(strides) != len(shape)) {
		return nil, invalidf(op, "slice config does not match rank %d", len(shape))
	}

	out := make([]int64, len(shape))

	for d := range shape {
		stride := int64(1)
		if strides != nil {
			stride = strides[d]
		}

		if start[d] < 0 || limit[d] > shape[d] || limit[d] < start[d] || stride <= 0 {
			return nil, invalidf(op, "slice [%v, %v) stride %v out of bounds for %v", start, limit, strides, shape)
		}

		out[d] = (limit[d] - start[d] + stride - 1) / stride
	}

	return []Type{{DType: in[0].DType, Shape: out}}, nil
}

func sliceKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out, err := in[0].Slice(attrs.Ints(AttrStart), attrs.Ints(AttrLimit), attrs.Ints(AttrStrides))
	if err != nil {
		return nil, invalidf(OpSlice, "%v", err)
	}

	return single(out), nil
}

func checkStartOperands(op string, starts []Type, rank int) error {
	if len(starts) != rank {
		return invalidf(op, "expected %d start indices, got %d", rank, len(starts))
	}

	for i, s := range starts {
		if len(s.Shape) != 0 || !s.DType.IsInt() {
			return invalidf(op, "start index %d must be an integer scalar, got %s", i, s)
		}
	}

	return nil
}

func inferDynamicSlice(op string, attrs Attrs, in []Type) ([]Type, error) {
	if len(in) == 0 {
		return nil, invalidf(op, "missing operand")
	}

	shape, sizes := in[0].Shape, attrs.Ints(AttrSizes)
	if err := checkStartOperands(op, in[1:], len(shape)); err != nil {
		return nil, err
	}

	if len(sizes) != len(shape) {
		return nil, invalidf(op, "sizes %v do not match rank %d", sizes, len(shape))
	}

	for d := range shape {
		if sizes[d] < 0 || sizes[d] > shape[d] {
			return nil, invalidf(op, "size %v exceeds operand shape %v", sizes, shape)
		}
	}

	return []Type{{DType: in[0].DType, Shape: sizes}}, nil
}

func readStarts(starts []*tensor.Tensor) []int64 {
	out := make([]int64, len(starts))
	for i, s := range starts {
		v, _ := s.Item()
		out[i] = int64(v)
	}

	return out
}

// dynamicSliceKernel fails on windows that leave the operand; it never clamps.
func dynamicSliceKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x := in[0]
	shape, sizes := x.Shape(), attrs.Ints(AttrSizes)
	start := readStarts(in[1:])
	limit := make([]int64, len(start))

	for d := range start {
		limit[d] = start[d] + sizes[d]
		if start[d] < 0 || limit[d] > shape[d] {
			return nil, invalidf(OpDynamicSlice, "indices [%v, %v) out of bounds for shape %v", start, limit, shape)
		}
	}

	out, err := x.Slice(start, limit, nil)
	if err != nil {
		return nil, invalidf(OpDynamicSlice, "%v", err)
	}

	return single(out), nil
}

func inferDynamicUpdateSlice(op string, _ Attrs, in []Type) ([]Type, error) {
	if len(in) < 2 {
		return nil, invalidf(op, "expected operand and update")
	}

	x, upd := in[0], in[1]
	if x.DType != upd.DType || len(x.Shape) != len(upd.Shape) {
		return nil, invalidf(op, "update %s does not match operand %s", upd, x)
	}

	for d := range x.Shape {
		if upd.Shape[d] > x.Shape[d] {
			return nil, invalidf(op, "update %v larger than operand %v", upd.Shape, x.Shape)
		}
	}

	if err := checkStartOperands(op, in[2:], len(x.Shape)); err != nil {
		return nil, err
	}

	return []Type{x}, nil
}

// dynamicUpdateSliceKernel clamps the window into the operand.
func dynamicUpdateSliceKernel(_ Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, upd := in[0], in[1]
	shape, ushape := x.Shape(), upd.Shape()
	start := readStarts(in[2:])

	for d := range start {
		start[d] = min(max(start[d], 0), shape[d]-ushape[d])
	}

	out, err := x.UpdateSlice(upd, start)
	if err != nil {
		return nil, invalidf(OpDynamicUpdateSlice, "%v", err)
	}

	return single(out), nil
}

func inferGather(op string, attrs Attrs, in []Type) ([]Type, error) {
	x, idx := in[0], in[1]
	if !idx.DType.IsInt() {
		return nil, invalidf(op, "indices must be integers, got %s", idx.DType)
	}

	axis, err := tensor.NormalizeDim(int(attrs.Int(AttrAxis)), len(x.Shape))
	if err != nil {
		return nil, invalidf(op, "%v", err)
	}

	out := append([]int64{}, x.Shape[:axis]...)
	out = append(out, idx.Shape...)
	out = append(out, x.Shape[axis+1:]...)

	return []Type{{DType: x.DType, Shape: out}}, nil
}

// gatherKernel fails on out-of-range indices.
func gatherKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, idx := in[0], in[1]

	axis, err := tensor.NormalizeDim(int(attrs.Int(AttrAxis)), x.Rank())
	if err != nil {
		return nil, invalidf(OpGather, "%v", err)
	}

	size := float64(x.Shape()[axis])
	for _, v := range idx.RawData() {
		if v < 0 || v >= size {
			return nil, invalidf(OpGather, "index %v out of range [0, %v)", v, size)
		}
	}

	out, err := x.Take(idx, axis)
	if err != nil {
		return nil, invalidf(OpGather, "%v", err)
	}

	return single(out), nil
}

func inferIota(op string, attrs Attrs, _ []Type) ([]Type, error) {
	dt, shape := attrs.DType(AttrDType), attrs.Ints(AttrShape)
	if !dt.Valid() || dt == dtype.Bool {
		return nil, invalidf(op, "invalid dtype %s", dt)
	}

	if _, err := tensor.NormalizeDim(int(attrs.Int(AttrAxis)), len(shape)); err != nil {
		return nil, invalidf(op, "%v", err)
	}

	return []Type{{DType: dt, Shape: shape}}, nil
}

func iotaKernel(attrs Attrs, _ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out, err := tensor.Iota(attrs.DType(AttrDType), attrs.Ints(AttrShape), int(attrs.Int(AttrAxis)))
	if err != nil {
		return nil, invalidf(OpIota, "%v", err)
	}

	return single(out), nil
}
