package ops

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrFactorization reports that a decomposition did not converge.
var ErrFactorization = errors.New("ops: factorization failed")

// SVDResult holds one matrix decomposition a = u·diag(s)·vt in row-major order.
type SVDResult struct {
	S  []float64
	U  []float64 // m×k
	VT []float64 // k×n
	K  int       // m for full U, else min(m, n)
}

// SVD factorizes the m×n row-major matrix a. full selects m×m and n×n
// factors; computeUV=false returns only singular values, in decreasing order.
func SVD(a []float64, m, n int, full, computeUV bool) (SVDResult, error) {
	if m <= 0 || n <= 0 {
		return SVDResult{}, fmt.Errorf("ops: svd requires a non-empty matrix, got %dx%d", m, n)
	}

	kind := mat.SVDThin
	switch {
	case !computeUV:
		kind = mat.SVDNone
	case full:
		kind = mat.SVDFull
	}

	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(m, n, append([]float64(nil), a...)), kind); !ok {
		return SVDResult{}, fmt.Errorf("%w: svd of %dx%d matrix", ErrFactorization, m, n)
	}

	res := SVDResult{S: svd.Values(nil)}
	if !computeUV {
		return res, nil
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	ur, uc := u.Dims()
	vr, vc := v.Dims()

	res.U = denseData(&u, ur, uc)
	res.K = uc
	res.VT = make([]float64, vc*vr)

	for i := range vr {
		for j := range vc {
			res.VT[j*vr+i] = v.At(i, j)
		}
	}

	return res, nil
}

// QR factorizes the m×n row-major matrix a (m >= n) into an m×m orthogonal q
// and an m×n upper-triangular r.
func QR(a []float64, m, n int) (q, r []float64, err error) {
	if m <= 0 || n <= 0 {
		return nil, nil, fmt.Errorf("ops: qr requires a non-empty matrix, got %dx%d", m, n)
	}

	if m < n {
		return nil, nil, fmt.Errorf("ops: qr requires rows >= cols, got %dx%d", m, n)
	}

	var f mat.QR
	f.Factorize(mat.NewDense(m, n, append([]float64(nil), a...)))

	var qm, rm mat.Dense
	f.QTo(&qm)
	f.RTo(&rm)

	return denseData(&qm, m, m), denseData(&rm, m, n), nil
}

func denseData(d *mat.Dense, r, c int) []float64 {
	out := make([]float64, r*c)
	for i := range r {
		for j := range c {
			out[i*c+j] = d.At(i, j)
		}
	}

	return out
}
