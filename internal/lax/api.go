package lax

import (
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Unary binds a single-operand elementwise primitive.
func Unary(p *Primitive, x Value) (Value, error) { return Bind1(p, nil, x) }

// Binary binds a two-operand elementwise primitive. Operands must share a
// dtype; use the numpy package for promotion and broadcasting.
func Binary(p *Primitive, x, y Value) (Value, error) { return Bind1(p, nil, x, y) }

func ConvertElementType(x Value, dt dtype.DType) (Value, error) {
	if x.DType() == dt {
		return x, nil
	}

	return Bind1(ConvertElementTypeP, Params{"new_dtype": dt}, x)
}

func BroadcastInDim(x Value, shape []int64, dims []int) (Value, error) {
	return Bind1(BroadcastInDimP, Params{"shape": shape, "broadcast_dimensions": toInt64s(dims)}, x)
}

func Reshape(x Value, shape []int64) (Value, error) {
	return Bind1(ReshapeP, Params{"new_sizes": shape}, x)
}

func Transpose(x Value, perm []int) (Value, error) {
	return Bind1(TransposeP, Params{"permutation": toInt64s(perm)}, x)
}

func Concatenate(xs []Value, dim int) (Value, error) {
	return Bind1(ConcatenateP, Params{"dimension": int64(dim)}, xs...)
}

// Pad pads x with the scalar padValue; lo/hi may be negative.
func Pad(x, padValue Value, lo, hi, interior []int64) (Value, error) {
	return Bind1(PadP, Params{"lo": lo, "hi": hi, "interior": interior}, x, padValue)
}

// Slice extracts [start, limit) with optional strides (nil for unit).
func Slice(x Value, start, limit, strides []int64) (Value, error) {
	params := Params{"start_indices": start, "limit_indices": limit}
	if strides != nil {
		params["strides"] = strides
	}

	return Bind1(SliceP, params, x)
}

// DynamicSlice slices sizes starting at the scalar start operands, clamped.
func DynamicSlice(x Value, start []Value, sizes []int64) (Value, error) {
	return Bind1(DynamicSliceP, Params{"slice_sizes": sizes}, append([]Value{x}, start...)...)
}

func DynamicUpdateSlice(x, update Value, start []Value) (Value, error) {
	return Bind1(DynamicUpdateSliceP, nil, append([]Value{x, update}, start...)...)
}

// Gather takes slices of x along axis at indices.
func Gather(x, indices Value, axis int) (Value, error) {
	return Bind1(GatherP, Params{"axis": int64(axis)}, x, indices)
}

func Iota(dt dtype.DType, shape []int64, dim int) (Value, error) {
	return Bind1(IotaP, Params{"dtype": dt, "shape": shape, "dimension": int64(dim)})
}

func StopGradient(x Value) (Value, error) { return Bind1(StopGradientP, nil, x) }

func ReducePrecision(x Value, exponentBits, mantissaBits int) (Value, error) {
	return Bind1(ReducePrecisionP, Params{"exponent_bits": int64(exponentBits), "mantissa_bits": int64(mantissaBits)}, x)
}

// Reduce binds one of the reduce_* primitives over axes.
func Reduce(p *Primitive, x Value, axes []int) (Value, error) {
	return Bind1(p, Params{"axes": toInt64s(axes)}, x)
}

func Argmax(x Value, axis int, indexType dtype.DType) (Value, error) {
	return Bind1(ArgmaxP, Params{"axis": int64(axis), "index_dtype": indexType}, x)
}

// Cumulative binds cumsum, cumprod or cummax.
func Cumulative(p *Primitive, x Value, axis int, reverse bool) (Value, error) {
	return Bind1(p, Params{"axis": int64(axis), "reverse": reverse}, x)
}

func DotGeneral(x, y Value) (Value, error) { return Bind1(DotGeneralP, nil, x, y) }

// Svd returns (s) or (s, u, vt).
func Svd(x Value, fullMatrices, computeUV bool) ([]Value, error) {
	return Bind(SvdP, Params{"full_matrices": fullMatrices, "compute_uv": computeUV}, x)
}

// Qr returns (q, r).
func Qr(x Value, fullMatrices bool) ([]Value, error) {
	return Bind(QrP, Params{"full_matrices": fullMatrices}, x)
}

// Sort sorts operands along dimension keyed by the first operand.
func Sort(operands []Value, dimension int, isStable bool) ([]Value, error) {
	return Bind(SortP, Params{"dimension": int64(dimension), "is_stable": isStable, "num_keys": int64(1)}, operands...)
}

// TopK returns (values, indices).
func TopK(x Value, k int) ([]Value, error) {
	return Bind(TopKP, Params{"k": int64(k)}, x)
}

// Window configures a windowed reduction. Nil Strides means unit strides;
// nil PadLo and PadHi mean no padding.
type Window struct {
	Dims, Strides []int64
	PadLo, PadHi  []int64
}

func (w Window) params() Params {
	return Params{
		"window_dimensions": w.Dims,
		"window_strides":    w.Strides,
		"padding_lo":        w.PadLo,
		"padding_hi":        w.PadHi,
	}
}

// ReduceWindow folds computation ("add", "mul", "max" or "min") over every
// window of x. add, max and min bind their dedicated primitives; the rest
// bind the generic reduce_window.
func ReduceWindow(x Value, computation string, w Window) (Value, error) {
	params := w.params()

	switch computation {
	case "add":
		return Bind1(ReduceWindowSumP, params, x)
	case "max":
		return Bind1(ReduceWindowMaxP, params, x)
	case "min":
		return Bind1(ReduceWindowMinP, params, x)
	}

	params["computation"] = computation

	return Bind1(ReduceWindowP, params, x)
}

// SelectAndGatherAdd picks, in every window of operand, the tangent at the
// position selected by selectPrim ("ge" for the maximum, "le" for the
// minimum).
func SelectAndGatherAdd(tangents, operand Value, selectPrim string, w Window) (Value, error) {
	params := w.params()
	params["select_prim"] = selectPrim

	return Bind1(SelectAndGatherAddP, params, tangents, operand)
}

// Scatter binds one of the scatter-* primitives. updates combine into x
// along axis at indices and have the shape of Gather(x, indices, axis).
func Scatter(p *Primitive, x, indices, updates Value, axis int) (Value, error) {
	return Bind1(p, Params{"axis": int64(axis)}, x, indices, updates)
}

// RandomSplit splits a uint32[2] key into a uint32[num, 2] array of keys.
func RandomSplit(key Value, num int) (Value, error) {
	return Bind1(RandomSplitP, Params{"num": int64(num)}, key)
}

func Clamp(lo, x, hi Value) (Value, error) { return Bind1(ClampP, nil, lo, x, hi) }

func SelectN(which Value, cases ...Value) (Value, error) {
	return Bind1(SelectNP, nil, append([]Value{which}, cases...)...)
}

func Betainc(a, b, x Value) (Value, error) { return Bind1(BetaincP, nil, a, b, x) }

// Jit wraps fn so that it is applied through the xla_call primitive.
func Jit(fn Func) Func {
	return callWrapper(XlaCallP, fn)
}

// Remat wraps fn in remat_call.
func Remat(fn Func) Func {
	return callWrapper(RematCallP, fn)
}

func callWrapper(p *Primitive, fn Func) Func {
	return func(args ...Value) ([]Value, error) {
		return Bind(p, Params{"fn": fn}, args...)
	}
}

func Psum(x Value, axisName string) (Value, error) {
	return Bind1(PsumP, Params{"axis_name": axisName}, x)
}

func AxisIndex(axisName string) (Value, error) {
	return Bind1(AxisIndexP, Params{"axis_name": axisName})
}

// Const wraps a tensor literal as a Value.
func Const(t *tensor.Tensor) Value { return t }

func toInt64s(xs []int) []int64 {
	if xs == nil {
		return nil
	}

	out := make([]int64, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}

	return out
}
