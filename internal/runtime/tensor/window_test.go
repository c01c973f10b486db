package tensor

import (
	"math"
	"testing"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

func add(a, x float64) float64 { return a + x }

func TestReduceWindowSum(t *testing.T) {
	x := MustNew(dtype.Float32, []float64{0, 1, 2, 3, 4, 5}, 2, 3)

	got, err := x.ReduceWindow(Window{Dims: []int64{2, 2}}, 0, add)
	if err != nil {
		t.Fatalf("ReduceWindow: %v", err)
	}

	if !equalI64(got.Shape(), []int64{1, 2}) || !equalF64(got.Data(), []float64{8, 12}) {
		t.Fatalf("ReduceWindow = %v%v", got.Data(), got.Shape())
	}
}

func TestReduceWindowPaddingContributesInit(t *testing.T) {
	x := MustNew(dtype.Int32, []float64{1, 2, 3})
	w := Window{Dims: []int64{2}, Padding: [][2]int64{{1, 1}}}

	got, err := x.ReduceWindow(w, math.Inf(-1), math.Max)
	if err != nil {
		t.Fatalf("ReduceWindow: %v", err)
	}

	if !equalF64(got.Data(), []float64{1, 2, 3, 3}) {
		t.Fatalf("ReduceWindow = %v", got.Data())
	}
}

func TestReduceWindowStrides(t *testing.T) {
	x := MustNew(dtype.Float64, []float64{1, 2, 3, 4, 5, 6, 7})
	w := Window{Dims: []int64{3}, Strides: []int64{2}}

	got, err := x.ReduceWindow(w, 0, add)
	if err != nil {
		t.Fatalf("ReduceWindow: %v", err)
	}

	if !equalF64(got.Data(), []float64{6, 12, 18}) {
		t.Fatalf("ReduceWindow = %v", got.Data())
	}
}

func TestWindowShape(t *testing.T) {
	tests := []struct {
		shape []int64
		w     Window
		want  []int64
	}{
		{[]int64{4, 6}, Window{Dims: []int64{2, 3}, Strides: []int64{2, 3}}, []int64{2, 2}},
		{[]int64{4, 6}, Window{Dims: []int64{3, 2}, Strides: []int64{1, 2}, Padding: [][2]int64{{1, 1}, {0, 1}}}, []int64{4, 3}},
		{[]int64{4}, Window{Dims: []int64{5}}, []int64{0}},
	}

	for _, tt := range tests {
		got, err := WindowShape(tt.shape, tt.w)
		if err != nil {
			t.Fatalf("WindowShape(%v, %+v): %v", tt.shape, tt.w, err)
		}

		if !equalI64(got, tt.want) {
			t.Fatalf("WindowShape(%v, %+v) = %v, want %v", tt.shape, tt.w, got, tt.want)
		}
	}

	for _, w := range []Window{
		{Dims: []int64{2, 2}},
		{Dims: []int64{0}},
		{Dims: []int64{2}, Strides: []int64{0}},
		{Dims: []int64{2}, Padding: [][2]int64{{-1, 0}}},
	} {
		if _, err := WindowShape([]int64{4}, w); err == nil {
			t.Fatalf("WindowShape(%+v) succeeded", w)
		}
	}
}

func TestReduceWindowBitsExact(t *testing.T) {
	x, err := FromInt64s([]int64{math.MaxInt64 - 1, 1, 1 << 60}, []int64{3})
	if err != nil {
		t.Fatalf("FromInt64s: %v", err)
	}

	got, err := x.ReduceWindowBits(Window{Dims: []int64{2}}, 0, func(a, x uint64) uint64 { return a + x })
	if err != nil {
		t.Fatalf("ReduceWindowBits: %v", err)
	}

	if want := []int64{math.MaxInt64, 1<<60 + 1}; !equalI64(got.Int64s(), want) {
		t.Fatalf("ReduceWindowBits = %v, want %v", got.Int64s(), want)
	}
}

func TestSelectAndGather(t *testing.T) {
	operand := MustNew(dtype.Float32, []float64{1, 5, 2, 7, 3})
	tangents := MustNew(dtype.Float32, []float64{10, 20, 30, 40, 50})
	w := Window{Dims: []int64{2}, Strides: []int64{2}, Padding: [][2]int64{{0, 1}}}

	ge, err := SelectAndGather(tangents, operand, w, func(c, b float64) bool { return c > b })
	if err != nil {
		t.Fatalf("SelectAndGather: %v", err)
	}

	if !equalF64(ge.Data(), []float64{20, 40, 50}) {
		t.Fatalf("ge = %v", ge.Data())
	}

	le, err := SelectAndGather(tangents, operand, w, func(c, b float64) bool { return c < b })
	if err != nil {
		t.Fatalf("SelectAndGather: %v", err)
	}

	if !equalF64(le.Data(), []float64{10, 30, 50}) {
		t.Fatalf("le = %v", le.Data())
	}

	if _, err := SelectAndGather(tangents, MustNew(dtype.Float32, []float64{1}), w, nil); err == nil {
		t.Fatal("SelectAndGather accepted mismatched shapes")
	}
}

func TestScatterDropsOutOfRange(t *testing.T) {
	x := MustNew(dtype.Float32, []float64{0, 0, 0, 0, 0})
	idx := MustNew(dtype.Int32, []float64{0, 2, 2, 9, -1})
	upd := MustNew(dtype.Float32, []float64{1, 2, 3, 4, 5})

	got, err := x.Scatter(idx, upd, 0, add)
	if err != nil {
		t.Fatalf("Scatter: %v", err)
	}

	if !equalF64(got.Data(), []float64{1, 0, 5, 0, 0}) {
		t.Fatalf("Scatter = %v", got.Data())
	}

	if !equalF64(x.Data(), []float64{0, 0, 0, 0, 0}) {
		t.Fatalf("Scatter modified its operand: %v", x.Data())
	}
}

func TestScatterInnerAxis(t *testing.T) {
	x := MustNew(dtype.Int32, []float64{1, 2, 3, 4, 5, 6}, 2, 3)
	idx := MustNew(dtype.Int32, []float64{2})
	upd := MustNew(dtype.Int32, []float64{10, 20}, 2, 1)

	got, err := x.Scatter(idx, upd, 1, math.Max)
	if err != nil {
		t.Fatalf("Scatter: %v", err)
	}

	if !equalF64(got.Data(), []float64{1, 2, 10, 4, 5, 20}) {
		t.Fatalf("Scatter = %v", got.Data())
	}

	if _, err := x.Scatter(idx, MustNew(dtype.Int32, []float64{1, 2}), 1, math.Max); err == nil {
		t.Fatal("Scatter accepted updates of the wrong shape")
	}
}

func TestScatterRoundsEachStep(t *testing.T) {
	x := MustNew(dtype.Float16, []float64{2048})
	idx := MustNew(dtype.Int32, []float64{0, 0})
	upd := MustNew(dtype.Float16, []float64{1, 1})

	got, err := x.Scatter(idx, upd, 0, add)
	if err != nil {
		t.Fatalf("Scatter: %v", err)
	}

	// 2048+1 rounds back to 2048 in float16, twice.
	if !equalF64(got.Data(), []float64{2048}) {
		t.Fatalf("Scatter = %v", got.Data())
	}
}

func TestScatterBitsExact(t *testing.T) {
	x, _ := FromInt64s([]int64{math.MaxInt64 - 1, 0}, []int64{2})
	upd, _ := FromInt64s([]int64{1}, []int64{1})

	got, err := x.ScatterBits(MustNew(dtype.Int32, []float64{0}), upd, 0, func(a, u uint64) uint64 { return a + u })
	if err != nil {
		t.Fatalf("ScatterBits: %v", err)
	}

	if want := []int64{math.MaxInt64, 0}; !equalI64(got.Int64s(), want) {
		t.Fatalf("ScatterBits = %v, want %v", got.Int64s(), want)
	}
}
