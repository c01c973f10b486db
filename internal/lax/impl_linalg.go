package lax

import (
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func init() {
	Translations.register(DotGeneralP, dotGeneralImpl)

	// LAPACK-style custom calls exist per device rather than as a generic lowering.
	registerBackends(SvdP, svdImpl, Devices...)
	registerBackends(QrP, qrImpl, Devices...)
}

func dotGeneralImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) != 2 {
		return nil, errorf(ErrShape, DotGeneralP, "expected 2 operands, got %d", len(args))
	}

	a, b := args[0], args[1]
	if a.DType() != b.DType() || !classNumeric.accepts(a.DType()) {
		return nil, errorf(ErrShape, DotGeneralP, "operands must share a numeric dtype, got %s and %s", a.DType(), b.DType())
	}

	out := a.DType()
	if pt := params.DType("preferred_element_type"); pt.Valid() {
		out = pt
	}

	res, err := tensor.MatMul(a, b, out)
	if err != nil {
		return nil, errorf(ErrShape, DotGeneralP, "%v", err)
	}

	return one(res), nil
}

// checkLinalgOperand validates a batched matrix operand and returns its
// batch shape and matrix dims.
func checkLinalgOperand(p *Primitive, args []*tensor.Tensor) (x *tensor.Tensor, batch []int64, m, n int, err error) {
	x, err = unary(p, args)
	if err != nil {
		return nil, nil, 0, 0, err
	}

	dt := x.DType()

	switch {
	case dt == dtype.Float16 || dt == dtype.BFloat16:
		return nil, nil, 0, 0, errorf(ErrUnimplemented, p, "Unsupported dtype %s", dt)
	case !dt.IsFloat():
		return nil, nil, 0, 0, errorf(ErrShape, p, "operand dtype %s is not floating", dt)
	case x.Rank() < 2:
		return nil, nil, 0, 0, errorf(ErrShape, p, "operand rank %d must be >= 2", x.Rank())
	}

	shape := x.Shape()
	r := len(shape)

	return x, shape[:r-2], int(shape[r-2]), int(shape[r-1]), nil
}

func batchCount(batch []int64) int {
	n := 1
	for _, d := range batch {
		n *= int(d)
	}

	return n
}

func withMatrix(batch []int64, dims ...int64) []int64 {
	out := append([]int64{}, batch...)
	return append(out, dims...)
}

// svdImpl returns (s) or (s, u, vt) per compute_uv.
func svdImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, batch, m, n, err := checkLinalgOperand(SvdP, args)
	if err != nil {
		return nil, err
	}

	full, computeUV := params.Bool("full_matrices"), params.Bool("compute_uv")
	data := x.RawData()
	k := min(m, n)

	var s, u, vt []float64

	ku, kv := k, k
	if full {
		ku, kv = m, n
	}

	for b := range batchCount(batch) {
		res, err := ops.SVD(data[b*m*n:(b+1)*m*n], m, n, full, computeUV)
		if err != nil {
			return nil, errorf(ErrValue, SvdP, "%v", err)
		}

		s = append(s, res.S...)
		u = append(u, res.U...)
		vt = append(vt, res.VT...)
	}

	dt := x.DType()

	sT, err := tensor.New(dt, s, withMatrix(batch, int64(k)))
	if err != nil {
		return nil, err
	}

	if !computeUV {
		return one(sT), nil
	}

	uT, err := tensor.New(dt, u, withMatrix(batch, int64(m), int64(ku)))
	if err != nil {
		return nil, err
	}

	vtT, err := tensor.New(dt, vt, withMatrix(batch, int64(kv), int64(n)))
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{sT, uT, vtT}, nil
}

// qrImpl returns (q, r). Without full_matrices q is m×n and r is n×n.
func qrImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, batch, m, n, err := checkLinalgOperand(QrP, args)
	if err != nil {
		return nil, err
	}

	if m < n {
		return nil, errorf(ErrUnimplemented, QrP, "matrices with more columns than rows (%dx%d)", m, n)
	}

	full := params.Bool("full_matrices")
	data := x.RawData()

	var q, r []float64

	for b := range batchCount(batch) {
		qb, rb, err := ops.QR(data[b*m*n:(b+1)*m*n], m, n)
		if err != nil {
			return nil, errorf(ErrValue, QrP, "%v", err)
		}

		if full {
			q = append(q, qb...)
			r = append(r, rb...)

			continue
		}

		for i := range m {
			q = append(q, qb[i*m:i*m+n]...)
		}

		r = append(r, rb[:n*n]...)
	}

	qCols, rRows := int64(n), int64(n)
	if full {
		qCols, rRows = int64(m), int64(m)
	}

	dt := x.DType()

	qT, err := tensor.New(dt, q, withMatrix(batch, int64(m), qCols))
	if err != nil {
		return nil, err
	}

	rT, err := tensor.New(dt, r, withMatrix(batch, rRows, int64(n)))
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{qT, rT}, nil
}
