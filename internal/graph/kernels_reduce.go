package graph

import (
	"math"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

type reduceSpec struct {
	kind operandKind
	init func(dt dtype.DType) float64
	fn   func(acc, x float64) float64
}

func lowest(dt dtype.DType) float64 {
	if dt.IsFloat() {
		return math.Inf(-1)
	}

	return dt.MinValue()
}

func highest(dt dtype.DType) float64 {
	if dt.IsFloat() {
		return math.Inf(1)
	}

	return dt.MaxValue()
}

func constant(v float64) func(dtype.DType) float64 {
	return func(dtype.DType) float64 { return v }
}

func logicalAnd(acc, x float64) float64 {
	if acc != 0 && x != 0 {
		return 1
	}

	return 0
}

func logicalOr(acc, x float64) float64 {
	if acc != 0 || x != 0 {
		return 1
	}

	return 0
}

var reduceSpecs = map[string]reduceSpec{
	OpReduceSum:  {kind: kindNumeric, init: constant(0), fn: func(a, x float64) float64 { return a + x }},
	OpReduceProd: {kind: kindNumeric, init: constant(1), fn: func(a, x float64) float64 { return a * x }},
	OpReduceMax:  {kind: kindAny, init: lowest, fn: math.Max},
	OpReduceMin:  {kind: kindAny, init: highest, fn: math.Min},
	OpReduceAll:  {kind: kindIntegral, init: constant(1), fn: logicalAnd},
	OpReduceAny:  {kind: kindIntegral, init: constant(0), fn: logicalOr},
}

func init() {
	for name, spec := range reduceSpecs {
		defineOp(name, 1, inferReduce(spec.kind), reduceKernel(name, spec))
	}

	defineOp(OpCumSum, 1, inferScan, scanKernel(OpCumSum, func(a, x float64) float64 { return a + x }))
	defineOp(OpCumProd, 1, inferScan, scanKernel(OpCumProd, func(a, x float64) float64 { return a * x }))
	defineOp(OpMatMul, 2, inferMatMul, matMulKernel)
	defineOp(OpSvd, 1, inferSvd, svdKernel)
	defineOp(OpQr, 1, inferQr, qrKernel)
	defineOp(OpSort, -1, inferSort, sortKernel)
	defineOp(OpTopK, 1, inferTopK, topKKernel)
}

func inferReduce(kind operandKind) inferFunc {
	return func(op string, attrs Attrs, in []Type) ([]Type, error) {
		x := in[0]
		if !kind.accepts(x.DType) {
			return nil, invalidf(op, "operand type %s not allowed", x.DType)
		}

		if (op == OpReduceAll || op == OpReduceAny) && x.DType != dtype.Bool {
			return nil, invalidf(op, "operand type %s must be bool", x.DType)
		}

		drop := make([]bool, len(x.Shape))

		for _, a := range attrs.Axes(AttrAxes) {
			d, err := tensor.NormalizeDim(a, len(x.Shape))
			if err != nil {
				return nil, invalidf(op, "%v", err)
			}

			drop[d] = true
		}

		out := []int64{}

		for d, size := range x.Shape {
			if !drop[d] {
				out = append(out, size)
			}
		}

		return []Type{{DType: x.DType, Shape: out}}, nil
	}
}

func reduceKernel(op string, spec reduceSpec) kernelFunc {
	return func(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		dt := in[0].DType()

		var (
			out *tensor.Tensor
			err error
		)

		if exact, ok := ops.Wide2(wideKernels[op], dt); ok {
			out, err = in[0].ReduceBits(attrs.Axes(AttrAxes), ops.WideInit(wideKernels[op], dt), dt, exact)
		} else {
			out, err = in[0].Reduce(attrs.Axes(AttrAxes), spec.init(dt), dt, spec.fn)
		}

		if err != nil {
			return nil, invalidf(op, "%v", err)
		}

		return single(out), nil
	}
}

func inferScan(op string, attrs Attrs, in []Type) ([]Type, error) {
	if !kindNumeric.accepts(in[0].DType) {
		return nil, invalidf(op, "operand type %s not allowed", in[0].DType)
	}

	if _, err := tensor.NormalizeDim(int(attrs.Int(AttrAxis)), len(in[0].Shape)); err != nil {
		return nil, invalidf(op, "%v", err)
	}

	return []Type{in[0]}, nil
}

func scanKernel(op string, fn func(acc, x float64) float64) kernelFunc {
	return func(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		axis, reverse := int(attrs.Int(AttrAxis)), attrs.Bool(AttrReverse)

		var (
			out *tensor.Tensor
			err error
		)

		if exact, ok := ops.Wide2(wideKernels[op], in[0].DType()); ok {
			out, err = in[0].CumulativeBits(axis, reverse, exact)
		} else {
			out, err = in[0].Cumulative(axis, reverse, fn)
		}

		if err != nil {
			return nil, invalidf(op, "%v", err)
		}

		return single(out), nil
	}
}

func inferMatMul(op string, attrs Attrs, in []Type) ([]Type, error) {
	a, b := in[0], in[1]
	if a.DType != b.DType || !kindNumeric.accepts(a.DType) {
		return nil, invalidf(op, "operands %s and %s must share a numeric type", a, b)
	}

	ra, rb := len(a.Shape), len(b.Shape)
	if ra < 2 || rb < 2 {
		return nil, invalidf(op, "operands must have rank >= 2, got %s and %s", a, b)
	}

	if a.Shape[ra-1] != b.Shape[rb-2] {
		return nil, invalidf(op, "contracting dims differ: %s x %s", a, b)
	}

	batch, err := tensor.BroadcastShape(a.Shape[:ra-2], b.Shape[:rb-2])
	if err != nil {
		return nil, invalidf(op, "%v", err)
	}

	dt := a.DType
	if out := attrs.DType(AttrDType); out.Valid() {
		dt = out
	}

	return []Type{{DType: dt, Shape: append(batch, a.Shape[ra-2], b.Shape[rb-1])}}, nil
}

func matMulKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	dt := in[0].DType()
	if out := attrs.DType(AttrDType); out.Valid() {
		dt = out
	}

	out, err := tensor.MatMul(in[0], in[1], dt)
	if err != nil {
		return nil, invalidf(OpMatMul, "%v", err)
	}

	return single(out), nil
}

func matrixDims(op string, t Type) (batch []int64, m, n int64, err error) {
	r := len(t.Shape)
	if r < 2 || !t.DType.IsFloat() {
		return nil, 0, 0, invalidf(op, "operand %s must be a floating batch of matrices", t)
	}

	return t.Shape[:r-2], t.Shape[r-2], t.Shape[r-1], nil
}

func withDims(batch []int64, dims ...int64) []int64 {
	return append(append([]int64{}, batch...), dims...)
}

func inferSvd(op string, attrs Attrs, in []Type) ([]Type, error) {
	batch, m, n, err := matrixDims(op, in[0])
	if err != nil {
		return nil, err
	}

	dt, k := in[0].DType, min(m, n)
	s := Type{DType: dt, Shape: withDims(batch, k)}

	if !attrs.Bool(AttrComputeUV) {
		return []Type{s}, nil
	}

	ku, kv := k, k
	if attrs.Bool(AttrFullMatrices) {
		ku, kv = m, n
	}

	return []Type{
		s,
		{DType: dt, Shape: withDims(batch, m, ku)},
		{DType: dt, Shape: withDims(batch, kv, n)},
	}, nil
}

// svdKernel returns u and vt negated relative to the canonical factors.
// The product u·diag(s)·vt is unchanged.
func svdKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x := in[0]
	shape := x.Shape()
	r := len(shape)
	m, n := int(shape[r-2]), int(shape[r-1])
	full, computeUV := attrs.Bool(AttrFullMatrices), attrs.Bool(AttrComputeUV)
	batch := shape[:r-2]

	types, err := inferSvd(OpSvd, attrs, []Type{{DType: x.DType(), Shape: shape}})
	if err != nil {
		return nil, err
	}

	count := 1
	for _, d := range batch {
		count *= int(d)
	}

	var s, u, vt []float64

	data := x.RawData()

	for b := range count {
		// Empty matrices have no singular values.
		if m == 0 || n == 0 {
			break
		}

		res, err := ops.SVD(data[b*m*n:(b+1)*m*n], m, n, full, computeUV)
		if err != nil {
			return nil, invalidf(OpSvd, "%v", err)
		}

		s = append(s, res.S...)

		for _, v := range res.U {
			u = append(u, -v)
		}

		for _, v := range res.VT {
			vt = append(vt, -v)
		}
	}

	parts := [][]float64{s, u, vt}
	outs := make([]*tensor.Tensor, len(types))

	for i, t := range types {
		if outs[i], err = tensor.New(t.DType, fillZeros(parts[i], t.Shape), t.Shape); err != nil {
			return nil, err
		}
	}

	return outs, nil
}

// fillZeros returns data, or zeros sized for shape when data is empty.
func fillZeros(data []float64, shape []int64) []float64 {
	if len(data) > 0 {
		return data
	}

	n, _ := tensor.NumElements(shape)

	return make([]float64, n)
}

func inferQr(op string, attrs Attrs, in []Type) ([]Type, error) {
	batch, m, n, err := matrixDims(op, in[0])
	if err != nil {
		return nil, err
	}

	if m < n {
		return nil, invalidf(op, "qr of %dx%d matrix needs rows >= columns", m, n)
	}

	qc, rr := n, n
	if attrs.Bool(AttrFullMatrices) {
		qc, rr = m, m
	}

	dt := in[0].DType

	return []Type{
		{DType: dt, Shape: withDims(batch, m, qc)},
		{DType: dt, Shape: withDims(batch, rr, n)},
	}, nil
}

func qrKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x := in[0]
	shape := x.Shape()
	r := len(shape)
	m, n := int(shape[r-2]), int(shape[r-1])
	full := attrs.Bool(AttrFullMatrices)

	types, err := inferQr(OpQr, attrs, []Type{{DType: x.DType(), Shape: shape}})
	if err != nil {
		return nil, err
	}

	count := 1
	for _, d := range shape[:r-2] {
		count *= int(d)
	}

	var q, rm []float64

	data := x.RawData()

	for b := range count {
		if m == 0 || n == 0 {
			break
		}

		qb, rb, err := ops.QR(data[b*m*n:(b+1)*m*n], m, n)
		if err != nil {
			return nil, invalidf(OpQr, "%v", err)
		}

		if full {
			q, rm = append(q, qb...), append(rm, rb...)
			continue
		}

		for i := range m {
			q = append(q, qb[i*m:i*m+n]...)
		}

		rm = append(rm, rb[:n*n]...)
	}

	qT, err := tensor.New(types[0].DType, fillZeros(q, types[0].Shape), types[0].Shape)
	if err != nil {
		return nil, err
	}

	rT, err := tensor.New(types[1].DType, fillZeros(rm, types[1].Shape), types[1].Shape)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{qT, rT}, nil
}

func inferSort(op string, attrs Attrs, in []Type) ([]Type, error) {
	if len(in) == 0 {
		return nil, invalidf(op, "needs at least one operand")
	}

	for i, t := range in {
		if !tensor.SameShape(t.Shape, in[0].Shape) {
			return nil, invalidf(op, "operand %d shape %v differs from %v", i, t.Shape, in[0].Shape)
		}
	}

	if _, err := tensor.NormalizeDim(int(attrs.Int(AttrAxis)), len(in[0].Shape)); err != nil {
		return nil, invalidf(op, "%v", err)
	}

	return append([]Type{}, in...), nil
}

// sortKernel sorts along axis by the first operand with NaN keys first.
func sortKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	shape := in[0].Shape()

	axis, err := tensor.NormalizeDim(int(attrs.Int(AttrAxis)), len(shape))
	if err != nil {
		return nil, invalidf(OpSort, "%v", err)
	}

	key := in[0]
	less := ops.KeyLess(key.DType(), key.RawData(), key.RawBits(), ops.NaNFirst)
	flat := make([]int, key.ElemCount())

	err = tensor.Lanes(shape, axis, func(lane []int) {
		perm := ops.SortPermutationFunc(len(lane), func(i, j int) bool { return less(lane[i], lane[j]) })
		for k, from := range perm {
			flat[lane[k]] = lane[from]
		}
	})
	if err != nil {
		return nil, invalidf(OpSort, "%v", err)
	}

	res := make([]*tensor.Tensor, len(in))
	for i, t := range in {
		if res[i], err = t.Gather(flat, shape); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func inferTopK(op string, attrs Attrs, in []Type) ([]Type, error) {
	x := in[0]
	if len(x.Shape) == 0 || !kindNumeric.accepts(x.DType) {
		return nil, invalidf(op, "operand %s must be a numeric array", x)
	}

	k, last := attrs.Int(AttrK), x.Shape[len(x.Shape)-1]
	if k < 0 || k > last {
		return nil, invalidf(op, "k=%d outside [0, %d]", k, last)
	}

	shape := withDims(x.Shape[:len(x.Shape)-1], k)

	return []Type{{DType: x.DType, Shape: shape}, {DType: dtype.Int32, Shape: shape}}, nil
}

// topKKernel treats NaN as the smallest value.
func topKKernel(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x := in[0]
	shape := x.Shape()
	k, last := int(attrs.Int(AttrK)), int(shape[len(shape)-1])
	less := ops.KeyLess(x.DType(), x.RawData(), x.RawBits(), ops.NaNFirst)
	rows := x.ElemCount() / max(last, 1)

	flat := make([]int, 0, rows*k)
	indices := make([]float64, 0, rows*k)

	for r := range rows {
		base := r * last
		for _, idx := range ops.TopKPermutationFunc(last, k, func(i, j int) bool { return less(base+i, base+j) }) {
			flat = append(flat, base+idx)
			indices = append(indices, float64(idx))
		}
	}

	outShape := withDims(shape[:len(shape)-1], int64(k))

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
