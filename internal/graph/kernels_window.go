package graph

import (
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Windowed and scattered ops fold with the combiner of a plain reduction.
var (
	windowReductions = map[string]string{
		OpReduceWindowSum:  OpReduceSum,
		OpReduceWindowProd: OpReduceProd,
		OpReduceWindowMax:  OpReduceMax,
		OpReduceWindowMin:  OpReduceMin,
	}
	scatterReductions = map[string]string{
		OpScatterAdd: OpReduceSum,
		OpScatterMul: OpReduceProd,
		OpScatterMin: OpReduceMin,
		OpScatterMax: OpReduceMax,
	}
)

func init() {
	for name, reduction := range windowReductions {
		defineOp(name, 1, inferReduceWindow(reduceSpecs[reduction].kind), reduceWindowKernel(name, reduction))
	}

	for name, reduction := range scatterReductions {
		defineOp(name, 3, inferScatter(reduceSpecs[reduction].kind), scatterKernel(name, reduction))
	}

	defineOp(OpSelectAndGatherAdd, 2, inferSelectAndGatherAdd, selectAndGatherAddKernel)
	defineOp(OpRandomSplit, 1, inferRandomSplit, randomSplitKernel)
}

func windowAttr(attrs Attrs) tensor.Window {
	w := tensor.Window{Dims: attrs.Ints(AttrWindow), Strides: attrs.Ints(AttrStrides)}

	lo, hi := attrs.Ints(AttrLo), attrs.Ints(AttrHi)
	if lo == nil && hi == nil {
		return w
	}

	w.Padding = make([][2]int64, len(lo))
	for d := range lo {
		if d < len(hi) {
			w.Padding[d] = [2]int64{lo[d], hi[d]}
		}
	}

	return w
}

func inferReduceWindow(kind operandKind) inferFunc {
	return func(op string, attrs Attrs, in []Type) ([]Type, error) {
		x := in[0]
		if !kind.accepts(x.DType) {
			return nil, invalidf(op, "operand type %s not allowed", x.DType)
		}

		if lo, hi := attrs.Ints(AttrLo), attrs.Ints(AttrHi); len(lo) != len(hi) {
			return nil, invalidf(op, "padding lo %v and hi %v differ in length", lo, hi)
		}

		shape, err := tensor.WindowShape(x.Shape, windowAttr(attrs))
		if err != nil {
			return nil, invalidf(op, "%v", err)
		}

		return []Type{{DType: x.DType, Shape: shape}}, nil
	}
}

func reduceWindowKernel(op, reduction string) kernelFunc {
	spec, wide := reduceSpecs[reduction], wideKernels[reduction]

	return func(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		dt := in[0].DType()
		w := windowAttr(attrs)

		var (
			out *tensor.Tensor
			err error
		)

		if exact, ok := ops.Wide2(wide, dt); ok {
			out, err = in[0].ReduceWindowBits(w, ops.WideInit(wide, dt), exact)
		} else {
			out, err = in[0].ReduceWindow(w, spec.init(dt), spec.fn)
		}

		if err != nil {
			return nil, invalidf(op, "%v", err)
		}

		return single(out), nil
	}
}

// inferSelectAndGatherAdd takes (tangents, operand) of one floating type.
func inferSelectAndGatherAdd(op string, attrs Attrs, in []Type) ([]Type, error) {
	tangents, operand := in[0], in[1]
	if !operand.DType.IsFloat() || tangents.DType != operand.DType || !tensor.SameShape(tangents.Shape, operand.Shape) {
		return nil, invalidf(op, "tangents %s and operand %s must share a floating type", tangents, operand)
	}

	if sel := attrs.Str(AttrSelect); sel != "ge" && sel != "le" {
		return nil, invalidf(op, "select must be ge or le, got %q", sel)
	}

	return inferReduceWindow(kindFloat)(op, attrs, in[1:])
}

func selectAndGatherAddKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	better := func(c, b float64) bool { return c > b }
	if attrs.Str(AttrSelect) == "le" {
		better = func(c, b float64) bool { return c < b }
	}

	out, err := tensor.SelectAndGather(in[0], in[1], windowAttr(attrs), better)
	if err != nil {
		return nil, invalidf(OpSelectAndGatherAdd, "%v", err)
	}

	return single(out), nil
}

// inferScatter takes (operand, indices, updates); updates have the shape of
// gathering operand at indices along the axis.
func inferScatter(kind operandKind) inferFunc {
	return func(op string, attrs Attrs, in []Type) ([]Type, error) {
		x, idx, upd := in[0], in[1], in[2]

		if !kind.accepts(x.DType) {
			return nil, invalidf(op, "operand type %s not allowed", x.DType)
		}

		if !idx.DType.IsInt() {
			return nil, invalidf(op, "indices type %s must be an integer", idx.DType)
		}

		if upd.DType != x.DType {
			return nil, invalidf(op, "updates type %s must match operand type %s", upd.DType, x.DType)
		}

		axis, err := tensor.NormalizeDim(int(attrs.Int(AttrAxis)), len(x.Shape))
		if err != nil {
			return nil, invalidf(op, "%v", err)
		}

		want := append(append(append([]int64{}, x.Shape[:axis]...), idx.Shape...), x.Shape[axis+1:]...)
		if !tensor.SameShape(want, upd.Shape) {
			return nil, invalidf(op, "updates shape %v must be %v", upd.Shape, want)
		}

		return []Type{x}, nil
	}
}

func scatterKernel(op, reduction string) kernelFunc {
	spec, wide := reduceSpecs[reduction], wideKernels[reduction]

	return func(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		var (
			out *tensor.Tensor
			err error
		)

		axis := int(attrs.Int(AttrAxis))

		if exact, ok := ops.Wide2(wide, in[0].DType()); ok {
			out, err = in[0].ScatterBits(in[1], in[2], axis, exact)
		} else {
			out, err = in[0].Scatter(in[1], in[2], axis, spec.fn)
		}

		if err != nil {
			return nil, invalidf(op, "%v", err)
		}

		return single(out), nil
	}
}

func inferRandomSplit(op string, attrs Attrs, in []Type) ([]Type, error) {
	if in[0].DType != dtype.Uint32 || !tensor.SameShape(in[0].Shape, []int64{2}) {
		return nil, invalidf(op, "key must be uint32[2], got %s", in[0])
	}

	n := attrs.Int(AttrCount)
	if n < 0 {
		return nil, invalidf(op, "negative count %d", n)
	}

	return []Type{{DType: dtype.Uint32, Shape: []int64{n, 2}}}, nil
}

func randomSplitKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	key := in[0].Data()
	n := attrs.Int(AttrCount)

	words := ops.SplitKey(uint32(key[0]), uint32(key[1]), int(n))
	data := make([]float64, len(words))

	for i, w := range words {
		data[i] = float64(w)
	}

	out, err := tensor.New(dtype.Uint32, data, []int64{n, 2})
	if err != nil {
		return nil, invalidf(OpRandomSplit, "%v", err)
	}

	return single(out), nil
}
