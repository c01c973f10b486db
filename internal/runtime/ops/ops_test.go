package ops

import (
	"math"
	"testing"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

func TestDigammaPoles(t *testing.T) {
	for _, x := range []float64{0, -1, -2, math.Inf(-1)} {
		if got := Digamma(x); !math.IsNaN(got) {
			t.Fatalf("Digamma(%v) = %v, want NaN", x, got)
		}
	}

	// ψ(1) = -γ.
	if got := Digamma(1); math.Abs(got+0.5772156649015329) > 1e-10 {
		t.Fatalf("Digamma(1) = %v", got)
	}
}

func TestIncompleteGamma(t *testing.T) {
	if got := Igamma(0, 0); !math.IsNaN(got) {
		t.Fatalf("Igamma(0, 0) = %v, want NaN", got)
	}

	if got := Igamma(1, 0); got != 0 {
		t.Fatalf("Igamma(1, 0) = %v", got)
	}

	// P(1, x) = 1 - e^-x.
	if got, want := Igamma(1, 2), 1-math.Exp(-2); math.Abs(got-want) > 1e-10 {
		t.Fatalf("Igamma(1, 2) = %v, want %v", got, want)
	}

	if got := Igammac(2, 3) + Igamma(2, 3); math.Abs(got-1) > 1e-10 {
		t.Fatalf("P + Q = %v", got)
	}

	if got := Igammac(-1, 3); !math.IsNaN(got) {
		t.Fatalf("Igammac(-1, 3) = %v, want NaN", got)
	}
}

func TestBetainc(t *testing.T) {
	// I_x(1, 1) = x.
	if got := Betainc(1, 1, 0.25); math.Abs(got-0.25) > 1e-10 {
		t.Fatalf("Betainc(1, 1, 0.25) = %v", got)
	}

	if got := Betainc(1, 1, 1.5); !math.IsNaN(got) {
		t.Fatalf("Betainc out of domain = %v", got)
	}
}

func TestBitwise(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"popcount int8 -1", PopulationCount(dtype.Int8, -1), 8},
		{"popcount uint16 3", PopulationCount(dtype.Uint16, 3), 2},
		{"not int8 0", BitwiseNot(dtype.Int8, 0), -1},
		{"not uint8 0", BitwiseNot(dtype.Uint8, 0), 255},
		{"not bool", BitwiseNot(dtype.Bool, 1), 0},
		{"shl int8 overflow", ShiftLeft(dtype.Int8, 64, 1), -128},
		{"shl out of range", ShiftLeft(dtype.Int32, 1, 32), 0},
		{"shr logical int8 -1", ShiftRightLogical(dtype.Int8, -1, 4), 15},
		{"shr arithmetic int8 -16", ShiftRightArithmetic(dtype.Int8, -16, 2), -4},
		{"shr arithmetic uint8 128", ShiftRightArithmetic(dtype.Uint8, 128, 1), 192},
		{"xor int32", BitwiseXor(dtype.Int32, 6, 3), 5},
	}

	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestSVDReconstructs(t *testing.T) {
	a := []float64{2, 0, 1, 1, 3, 0, 0, 1, 4}

	res, err := SVD(a, 3, 3, false, true)
	if err != nil {
		t.Fatalf("SVD: %v", err)
	}

	recon := make([]float64, 9)
	for i := range 3 {
		for j := range 3 {
			for k := range res.K {
				recon[i*3+j] += res.U[i*res.K+k] * res.S[k] * res.VT[k*3+j]
			}
		}
	}

	if !equalApprox(recon, a, 1e-10) {
		t.Fatalf("reconstruction = %v, want %v", recon, a)
	}

	for i := 1; i < len(res.S); i++ {
		if res.S[i] > res.S[i-1] {
			t.Fatalf("singular values not decreasing: %v", res.S)
		}
	}
}

func TestSVDEmpty(t *testing.T) {
	_, err := SVD(nil, 0, 3, false, true)
	assertErrContains(t, err, "non-empty")
}

func TestQR(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}

	q, r, err := QR(a, 3, 2)
	if err != nil {
		t.Fatalf("QR: %v", err)
	}

	prod := make([]float64, 6)
	for i := range 3 {
		for j := range 2 {
			for k := range 3 {
				prod[i*2+j] += q[i*3+k] * r[k*2+j]
			}
		}
	}

	if !equalApprox(prod, a, 1e-10) {
		t.Fatalf("q·r = %v, want %v", prod, a)
	}

	_, _, err = QR(a, 2, 3)
	assertErrContains(t, err, "rows >= cols")
}

func TestSortPermutation(t *testing.T) {
	keys := []float64{3, math.NaN(), 1, 2}

	if got := SortPermutation(keys, NaNLast); !equalInts(got, []int{2, 3, 0, 1}) {
		t.Fatalf("NaNLast = %v", got)
	}

	if got := SortPermutation(keys, NaNFirst); !equalInts(got, []int{1, 2, 3, 0}) {
		t.Fatalf("NaNFirst = %v", got)
	}
}

func TestTopKPermutation(t *testing.T) {
	values := []float64{1, 5, 3, 5}

	if got := TopKPermutation(values, 3, NaNLast); !equalInts(got, []int{1, 3, 2}) {
		t.Fatalf("top_k = %v", got)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
