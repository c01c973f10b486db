package tensor

import (
	"math"
	"strings"
	"testing"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

func equalI64(a, b []int64) bool {
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

func equalF64(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}

	return true
}

func mustTensor(t *testing.T, dt dtype.DType, data []float64, shape []int64) *Tensor {
	t.Helper()

	out, err := New(dt, data, shape)
	if err != nil {
		t.Fatalf("New(%s, %v): %v", dt, shape, err)
	}

	return out
}

func TestNewRoundsToDType(t *testing.T) {
	x := mustTensor(t, dtype.Int8, []float64{127, 128, -1.9}, []int64{3})
	if got := x.Data(); !equalF64(got, []float64{127, -128, -1}) {
		t.Fatalf("int8 data = %v", got)
	}

	b := mustTensor(t, dtype.Bool, []float64{0, 3}, []int64{2})
	if got := b.Data(); !equalF64(got, []float64{0, 1}) {
		t.Fatalf("bool data = %v", got)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(dtype.Float32, []float64{1, 2, 3}, []int64{2, 2}); err == nil {
		t.Fatal("expected length mismatch error")
	}

	if _, err := New(dtype.Float32, nil, []int64{-1}); err == nil {
		t.Fatal("expected negative dimension error")
	}

	if _, err := New(dtype.Invalid, []float64{1}, []int64{1}); err == nil {
		t.Fatal("expected invalid dtype error")
	}
}

func TestDataIsCopied(t *testing.T) {
	x := mustTensor(t, dtype.Float32, []float64{1, 2}, []int64{2})
	d := x.Data()
	d[0] = 99

	if x.RawData()[0] != 1 {
		t.Fatal("Data must return a copy")
	}
}

func TestFromValue(t *testing.T) {
	x, err := FromValue([][]int32{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}

	if x.DType() != dtype.Int32 || !equalI64(x.Shape(), []int64{2, 3}) {
		t.Fatalf("got %s", x)
	}

	s, err := FromValue(2.5)
	if err != nil || s.Rank() != 0 || s.DType() != dtype.Float64 {
		t.Fatalf("scalar = %v, %v", s, err)
	}

	if _, err := FromValue([][]float32{{1}, {1, 2}}); err == nil {
		t.Fatal("expected ragged error")
	}

	if _, err := FromValue("x"); err == nil {
		t.Fatal("expected unsupported kind error")
	}
}

func TestBinaryBroadcast(t *testing.T) {
	a := mustTensor(t, dtype.Float32, []float64{1, 2, 3, 4, 5, 6}, []int64{2, 3})
	b := mustTensor(t, dtype.Float32, []float64{10, 20, 30}, []int64{1, 3})

	add, err := Binary(a, b, dtype.Float32, func(x, y float64) float64 { return x + y }, "add")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := add.Data(); !equalF64(got, []float64{11, 22, 33, 14, 25, 36}) {
		t.Fatalf("add = %v", got)
	}

	c := mustTensor(t, dtype.Float32, []float64{1, 2}, []int64{2})
	if _, err := Binary(a, c, dtype.Float32, func(x, y float64) float64 { return x }, "add"); err == nil {
		t.Fatal("expected broadcast error")
	}
}

func TestLeftPadShape(t *testing.T) {
	shape := []int64{2, 3}

	gotEqual := leftPadShape(shape, 2)
	gotEqual[0] = 99

	if shape[0] != 2 {
		t.Fatalf("leftPadShape should return a copy when rank matches, source mutated: %v", shape)
	}

	if got := leftPadShape(shape, 4); !equalI64(got, []int64{1, 1, 2, 3}) {
		t.Fatalf("leftPadShape padded = %v, want [1 1 2 3]", got)
	}
}

func TestBroadcastInDim(t *testing.T) {
	x := mustTensor(t, dtype.Int32, []float64{1, 2}, []int64{2})

	out, err := x.BroadcastInDim([]int64{2, 3}, []int{0})
	if err != nil {
		t.Fatalf("broadcast_in_dim: %v", err)
	}

	if got := out.Data(); !equalF64(got, []float64{1, 1, 1, 2, 2, 2}) {
		t.Fatalf("broadcast_in_dim = %v", got)
	}

	if _, err := x.BroadcastInDim([]int64{3, 3}, []int{0}); err == nil {
		t.Fatal("expected incompatible shape error")
	}
}

func TestTranspose(t *testing.T) {
	x := mustTensor(t, dtype.Float64, []float64{1, 2, 3, 4, 5, 6}, []int64{2, 3})

	out, err := x.Transpose([]int{1, 0})
	if err != nil {
		t.Fatalf("transpose: %v", err)
	}

	if !equalI64(out.Shape(), []int64{3, 2}) || !equalF64(out.Data(), []float64{1, 4, 2, 5, 3, 6}) {
		t.Fatalf("transpose = %s", out)
	}

	if _, err := x.Transpose([]int{0, 0}); err == nil {
		t.Fatal("expected invalid permutation error")
	}
}

func TestSlice(t *testing.T) {
	x := mustTensor(t, dtype.Float32, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, []int64{10})

	out, err := x.Slice([]int64{1}, []int64{8}, []int64{3})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}

	if got := out.Data(); !equalF64(got, []float64{1, 4, 7}) {
		t.Fatalf("slice = %v", got)
	}

	if _, err := x.Slice([]int64{5}, []int64{11}, nil); err == nil {
		t.Fatal("expected out of bounds error")
	}
}

func TestUpdateSlice(t *testing.T) {
	x := mustTensor(t, dtype.Int32, make([]float64, 6), []int64{2, 3})
	u := mustTensor(t, dtype.Int32, []float64{7, 8}, []int64{1, 2})

	out, err := x.UpdateSlice(u, []int64{1, 1})
	if err != nil {
		t.Fatalf("update_slice: %v", err)
	}

	if got := out.Data(); !equalF64(got, []float64{0, 0, 0, 0, 7, 8}) {
		t.Fatalf("update_slice = %v", got)
	}

	if x.RawData()[4] != 0 {
		t.Fatal("update_slice mutated its operand")
	}
}

func TestPad(t *testing.T) {
	x := mustTensor(t, dtype.Float32, []float64{1, 2, 3}, []int64{3})

	out, err := x.Pad(0, []int64{1}, []int64{2}, []int64{1})
	if err != nil {
		t.Fatalf("pad: %v", err)
	}

	if got := out.Data(); !equalF64(got, []float64{0, 1, 0, 2, 0, 3, 0, 0}) {
		t.Fatalf("pad = %v", got)
	}

	cropped, err := x.Pad(9, []int64{-1}, []int64{1}, []int64{0})
	if err != nil {
		t.Fatalf("negative pad: %v", err)
	}

	if got := cropped.Data(); !equalF64(got, []float64{2, 3, 9}) {
		t.Fatalf("negative pad = %v", got)
	}
}

func TestConcat(t *testing.T) {
	a := mustTensor(t, dtype.Float32, []float64{1, 2, 3, 4}, []int64{2, 2})
	b := mustTensor(t, dtype.Float32, []float64{5, 6}, []int64{2, 1})

	out, err := Concat([]*Tensor{a, b}, 1)
	if err != nil {
		t.Fatalf("concat: %v", err)
	}

	if got := out.Data(); !equalF64(got, []float64{1, 2, 5, 3, 4, 6}) {
		t.Fatalf("concat = %v", got)
	}

	c := mustTensor(t, dtype.Int32, []float64{5, 6}, []int64{2, 1})
	if _, err := Concat([]*Tensor{a, c}, 1); err == nil {
		t.Fatal("expected dtype mismatch error")
	}
}

func TestTake(t *testing.T) {
	x := mustTensor(t, dtype.Float32, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, []int64{3, 3})
	idx := mustTensor(t, dtype.Int32, []float64{2, 0}, []int64{2})

	out, err := x.Take(idx, 1)
	if err != nil {
		t.Fatalf("take: %v", err)
	}

	if !equalI64(out.Shape(), []int64{3, 2}) || !equalF64(out.Data(), []float64{3, 1, 6, 4, 9, 7}) {
		t.Fatalf("take = %s", out)
	}

	bad := mustTensor(t, dtype.Int32, []float64{3}, []int64{1})
	if _, err := x.Take(bad, 0); err == nil {
		t.Fatal("expected index out of range error")
	}
}

func TestReduce(t *testing.T) {
	x := mustTensor(t, dtype.Float32, []float64{1, 2, 3, 4, 5, 6}, []int64{2, 3})

	sum, err := x.Reduce([]int{1}, 0, dtype.Float32, func(acc, v float64) float64 { return acc + v })
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}

	if !equalF64(sum.Data(), []float64{6, 15}) {
		t.Fatalf("sum = %v", sum.Data())
	}

	all, err := x.Reduce([]int{0, 1}, 0, dtype.Float32, func(acc, v float64) float64 { return acc + v })
	if err != nil || all.Rank() != 0 || all.RawData()[0] != 21 {
		t.Fatalf("full reduce = %v, %v", all, err)
	}
}

func TestArgReduce(t *testing.T) {
	x := mustTensor(t, dtype.Float32, []float64{1, 5, 5, 7, 0, 2}, []int64{2, 3})

	out, err := x.ArgReduce(1, dtype.Int32, func(c, b float64) bool { return c > b })
	if err != nil {
		t.Fatalf("argmax: %v", err)
	}

	if !equalF64(out.Data(), []float64{1, 0}) {
		t.Fatalf("argmax = %v", out.Data())
	}
}

func TestCumulative(t *testing.T) {
	x := mustTensor(t, dtype.Float32, []float64{1, 2, 3}, []int64{3})

	out, err := x.Cumulative(0, false, func(acc, v float64) float64 { return acc + v })
	if err != nil {
		t.Fatalf("cumsum: %v", err)
	}

	if !equalF64(out.Data(), []float64{1, 3, 6}) {
		t.Fatalf("cumsum = %v", out.Data())
	}

	rev, _ := x.Cumulative(0, true, func(acc, v float64) float64 { return acc * v })
	if !equalF64(rev.Data(), []float64{6, 6, 3}) {
		t.Fatalf("reverse cumprod = %v", rev.Data())
	}
}

func TestMatMul(t *testing.T) {
	a := mustTensor(t, dtype.Float32, []float64{1, 2, 3, 4, 5, 6}, []int64{2, 3})
	b := mustTensor(t, dtype.Float32, []float64{7, 8, 9, 10, 11, 12}, []int64{3, 2})

	out, err := MatMul(a, b, dtype.Float32)
	if err != nil {
		t.Fatalf("matmul: %v", err)
	}

	if !equalF64(out.Data(), []float64{58, 64, 139, 154}) {
		t.Fatalf("matmul = %v", out.Data())
	}

	if _, err := MatMul(a, a, dtype.Float32); err == nil {
		t.Fatal("expected inner dimension mismatch error")
	}
}

func TestMatMulParallelMatchesSequential(t *testing.T) {
	data := make([]float64, 128*64)
	for i := range data {
		data[i] = float64(i%17) - 8
	}

	a := mustTensor(t, dtype.Float64, data, []int64{128, 64})
	b := mustTensor(t, dtype.Float64, data, []int64{64, 128})

	seq, err := MatMul(a, b, dtype.Float64)
	if err != nil {
		t.Fatal(err)
	}

	SetWorkers(4)
	defer SetWorkers(1)

	par, err := MatMul(a, b, dtype.Float64)
	if err != nil {
		t.Fatal(err)
	}

	if !Equal(seq, par) {
		t.Fatal("parallel matmul differs from sequential")
	}
}

func TestIota(t *testing.T) {
	out, err := Iota(dtype.Int32, []int64{2, 3}, 1)
	if err != nil {
		t.Fatalf("iota: %v", err)
	}

	if !equalF64(out.Data(), []float64{0, 1, 2, 0, 1, 2}) {
		t.Fatalf("iota = %v", out.Data())
	}
}

func TestString(t *testing.T) {
	x := mustTensor(t, dtype.Bool, []float64{1, 0}, []int64{2})
	if got := x.String(); !strings.Contains(got, "true false") {
		t.Fatalf("String() = %q", got)
	}
}
