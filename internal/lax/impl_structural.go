package lax

import (
	"math"

	"github.com/example/go-primparity/internal/runtime/tensor"
)

func init() {
	Translations.register(ConvertElementTypeP, convertElementTypeImpl)
	Translations.register(BroadcastInDimP, broadcastInDimImpl)
	Translations.register(ReshapeP, reshapeImpl)
	Translations.register(TransposeP, transposeImpl)
	Translations.register(ConcatenateP, concatenateImpl)
	Translations.register(PadP, padImpl)
	Translations.register(SliceP, sliceImpl)
	Translations.register(DynamicSliceP, dynamicSliceImpl)
	Translations.register(DynamicUpdateSliceP, dynamicUpdateSliceImpl)
	Translations.register(GatherP, gatherImpl)
	Translations.register(IotaP, iotaImpl)
	Translations.register(StopGradientP, identityImpl)
	Translations.register(TieInP, tieInImpl)
	Translations.register(ReducePrecisionP, reducePrecisionImpl)
}

func unary(p *Primitive, args []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(args) != 1 {
		return nil, errorf(ErrShape, p, "expected 1 operand, got %d", len(args))
	}

	return args[0], nil
}

func convertElementTypeImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := unary(ConvertElementTypeP, args)
	if err != nil {
		return nil, err
	}

	out, err := x.Astype(params.DType("new_dtype"))
	if err != nil {
		return nil, errorf(ErrValue, ConvertElementTypeP, "%v", err)
	}

	return one(out), nil
}

func broadcastInDimImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := unary(BroadcastInDimP, args)
	if err != nil {
		return nil, err
	}

	out, err := x.BroadcastInDim(params.Ints("shape"), params.Axes("broadcast_dimensions"))
	if err != nil {
		return nil, errorf(ErrShape, BroadcastInDimP, "%v", err)
	}

	return one(out), nil
}

func reshapeImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := unary(ReshapeP, args)
	if err != nil {
		return nil, err
	}

	out, err := x.Reshape(params.Ints("new_sizes"))
	if err != nil {
		return nil, errorf(ErrShape, ReshapeP, "%v", err)
	}

	return one(out), nil
}

func transposeImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := unary(TransposeP, args)
	if err != nil {
		return nil, err
	}

	out, err := x.Transpose(params.Axes("permutation"))
	if err != nil {
		return nil, errorf(ErrShape, TransposeP, "%v", err)
	}

	return one(out), nil
}

func concatenateImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) == 0 {
		return nil, errorf(ErrShape, ConcatenateP, "requires at least one operand")
	}

	out, err := tensor.Concat(args, int(params.Int("dimension")))
	if err != nil {
		return nil, errorf(ErrShape, ConcatenateP, "%v", err)
	}

	return one(out), nil
}

// padImpl takes (operand, padding_value) with lo, hi and interior params.
func padImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) != 2 {
		return nil, errorf(ErrShape, PadP, "expected operand and padding value")
	}

	x, pv := args[0], args[1]
	if pv.Rank() != 0 || pv.DType() != x.DType() {
		return nil, errorf(ErrShape, PadP, "padding value must be a %s scalar, got %s%v", x.DType(), pv.DType(), pv.Shape())
	}

	v, _ := pv.Item()

	out, err := x.Pad(v, params.Ints("lo"), params.Ints("hi"), params.Ints("interior"))
	if err != nil {
		return nil, errorf(ErrShape, PadP, "%v", err)
	}

	return one(out), nil
}

func sliceImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := unary(SliceP, args)
	if err != nil {
		return nil, err
	}

	shape := x.Shape()
	start, limit, strides := params.Ints("start_indices"), params.Ints("limit_indices"), params.Ints("strides")

	if len(start) != len(shape) || len(limit) != len(shape) {
		return nil, errorf(ErrShape, SliceP, "start_indices %v and limit_indices %v must match operand rank %d", start, limit, len(shape))
	}

	if strides != nil && len(strides) != len(shape) {
		return nil, errorf(ErrShape, SliceP, "strides %v must match operand rank %d", strides, len(shape))
	}

	for d := range shape {
		switch {
		case start[d] < 0:
			return nil, errorf(ErrShape, SliceP, "start_indices must be greater than or equal to zero, got %v", start)
		case start[d] >= shape[d]:
			return nil, errorf(ErrShape, SliceP, "start_indices must be less than operand shape, got start_indices %v for operand shape %v", start, shape)
		case limit[d] > shape[d]:
			return nil, errorf(ErrShape, SliceP, "limit_indices must be less than or equal to operand shape, got limit_indices %v for operand shape %v", limit, shape)
		case limit[d] < start[d]:
			return nil, errorf(ErrShape, SliceP, "limit_indices must be greater than or equal to start_indices, got start_indices %v and limit_indices %v", start, limit)
		case strides != nil && strides[d] <= 0:
			return nil, errorf(ErrShape, SliceP, "strides must be positive, got %v", strides)
		}
	}

	out, err := x.Slice(start, limit, strides)
	if err != nil {
		return nil, errorf(ErrShape, SliceP, "%v", err)
	}

	return one(out), nil
}

// startIndices reads scalar integer start operands and clamps them so the
// window of sizes fits inside shape.
func startIndices(p *Primitive, idx []*tensor.Tensor, shape, sizes []int64) ([]int64, error) {
	if len(idx) != len(shape) {
		return nil, errorf(ErrShape, p, "expected %d start indices, got %d", len(shape), len(idx))
	}

	out := make([]int64, len(idx))

	for d, t := range idx {
		if t.Rank() != 0 || !t.DType().IsInt() {
			return nil, errorf(ErrShape, p, "start index %d must be an integer scalar, got %s%v", d, t.DType(), t.Shape())
		}

		v, _ := t.Item()
		out[d] = min(max(int64(v), 0), shape[d]-sizes[d])
	}

	return out, nil
}

// dynamicSliceImpl takes (operand, start...) with slice_sizes.
func dynamicSliceImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) == 0 {
		return nil, errorf(ErrShape, DynamicSliceP, "missing operand")
	}

	x := args[0]
	shape := x.Shape()
	sizes := params.Ints("slice_sizes")

	if len(sizes) != len(shape) {
		return nil, errorf(ErrShape, DynamicSliceP, "slice_sizes %v must match operand rank %d", sizes, len(shape))
	}

	for d := range shape {
		if sizes[d] < 0 || sizes[d] > shape[d] {
			return nil, errorf(ErrShape, DynamicSliceP, "slice_sizes must be less than or equal to operand shape, got slice_sizes %v for operand shape %v", sizes, shape)
		}
	}

	start, err := startIndices(DynamicSliceP, args[1:], shape, sizes)
	if err != nil {
		return nil, err
	}

	limit := make([]int64, len(shape))
	for d := range shape {
		limit[d] = start[d] + sizes[d]
	}

	out, err := x.Slice(start, limit, nil)
	if err != nil {
		return nil, errorf(ErrShape, DynamicSliceP, "%v", err)
	}

	return one(out), nil
}

// dynamicUpdateSliceImpl takes (operand, update, start...).
func dynamicUpdateSliceImpl(_ Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) < 2 {
		return nil, errorf(ErrShape, DynamicUpdateSliceP, "expected operand and update")
	}

	x, upd := args[0], args[1]
	shape, ushape := x.Shape(), upd.Shape()

	if x.DType() != upd.DType() {
		return nil, errorf(ErrShape, DynamicUpdateSliceP, "update dtype %s must match operand dtype %s", upd.DType(), x.DType())
	}

	if len(ushape) != len(shape) {
		return nil, errorf(ErrShape, DynamicUpdateSliceP, "update rank %d must match operand rank %d", len(ushape), len(shape))
	}

	for d := range shape {
		if ushape[d] > shape[d] {
			return nil, errorf(ErrShape, DynamicUpdateSliceP, "update shape must be smaller than operand shape, got update shape %v for operand shape %v", ushape, shape)
		}
	}

	start, err := startIndices(DynamicUpdateSliceP, args[2:], shape, ushape)
	if err != nil {
		return nil, err
	}

	out, err := x.UpdateSlice(upd, start)
	if err != nil {
		return nil, errorf(ErrShape, DynamicUpdateSliceP, "%v", err)
	}

	return one(out), nil
}

// gatherImpl takes (operand, indices) and gathers along axis. Indices are
// clamped into range.
func gatherImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) != 2 {
		return nil, errorf(ErrShape, GatherP, "expected operand and indices")
	}

	x, idx := args[0], args[1]
	if !idx.DType().IsInt() {
		return nil, errorf(ErrShape, GatherP, "indices must be integers, got %s", idx.DType())
	}

	axis, err := tensor.NormalizeDim(int(params.Int("axis")), x.Rank())
	if err != nil {
		return nil, errorf(ErrShape, GatherP, "%v", err)
	}

	size := float64(x.Shape()[axis])
	if size == 0 {
		return nil, errorf(ErrShape, GatherP, "cannot gather from empty axis %d", axis)
	}

	clamped := idx.Map(idx.DType(), func(v float64) float64 { return math.Min(math.Max(v, 0), size-1) })

	out, err := x.Take(clamped, axis)
	if err != nil {
		return nil, errorf(ErrShape, GatherP, "%v", err)
	}

	return one(out), nil
}

func iotaImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) != 0 {
		return nil, errorf(ErrShape, IotaP, "takes no operands")
	}

	out, err := tensor.Iota(params.DType("dtype"), params.Ints("shape"), int(params.Int("dimension")))
	if err != nil {
		return nil, errorf(ErrValue, IotaP, "%v", err)
	}

	return one(out), nil
}

func identityImpl(_ Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) != 1 {
		return nil, errorf(ErrShape, StopGradientP, "expected 1 operand, got %d", len(args))
	}

	return args, nil
}

// tieInImpl returns its second operand.
func tieInImpl(_ Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) != 2 {
		return nil, errorf(ErrShape, TieInP, "expected 2 operands, got %d", len(args))
	}

	return args[1:], nil
}

func reducePrecisionImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := unary(ReducePrecisionP, args)
	if err != nil {
		return nil, err
	}

	if !x.DType().IsFloat() {
		return nil, errorf(ErrShape, ReducePrecisionP, "operand dtype %s is not floating", x.DType())
	}

	eb, mb := params.Int("exponent_bits"), params.Int("mantissa_bits")
	if eb < 1 || mb < 0 {
		return nil, errorf(ErrValue, ReducePrecisionP, "exponent_bits %d must be >= 1 and mantissa_bits %d >= 0", eb, mb)
	}

	return one(x.Map(x.DType(), func(v float64) float64 { return roundPrecision(v, int(eb), int(mb)) })), nil
}

// roundPrecision rounds v to a float format with the given exponent and
// mantissa widths, rounding to nearest even and saturating to ±Inf.
// Subnormals of the narrow format flush to zero.
func roundPrecision(v float64, exponentBits, mantissaBits int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return v
	}

	frac, exp := math.Frexp(v) // v = frac·2^exp, 0.5 <= |frac| < 1
	scale := math.Ldexp(1, mantissaBits+1)
	frac = math.RoundToEven(frac*scale) / scale
	r := math.Ldexp(frac, exp)

	maxExp := 1 << (exponentBits - 1)
	_, rexp := math.Frexp(r)

	switch {
	case rexp > maxExp:
		return math.Copysign(math.Inf(1), v)
	case rexp < 3-maxExp:
		return math.Copysign(0, v)
	}

	return r
}
