package lax

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func vec(dt dtype.DType, xs ...float64) *tensor.Tensor {
	return tensor.MustNew(dt, xs)
}

// concrete returns a checker for (Value, error) pairs that must be tensors.
func concrete(t *testing.T) func(Value, error) *tensor.Tensor {
	return func(v Value, err error) *tensor.Tensor {
		t.Helper()
		require.NoError(t, err)

		out, ok := Concrete(v)
		require.True(t, ok, "result is %T", v)

		return out
	}
}

func TestBindElementwise(t *testing.T) {
	eval1 := concrete(t)

	x := vec(dtype.Int32, 1, 2)
	y := vec(dtype.Int32, 3, 4)

	sum := eval1(Binary(AddP, x, y))
	assert.Equal(t, dtype.Int32, sum.DType())
	assert.Equal(t, []float64{4, 6}, sum.Data())

	lt := eval1(Binary(LtP, x, y))
	assert.Equal(t, dtype.Bool, lt.DType())
	assert.Equal(t, []float64{1, 1}, lt.Data())

	q := eval1(Binary(DivP, vec(dtype.Int32, -7, 5), vec(dtype.Int32, 2, 0)))
	assert.Equal(t, []float64{-3, 0}, q.Data())
}

func TestBindDTypeMismatch(t *testing.T) {
	_, err := Binary(AddP, vec(dtype.Int32, 1), vec(dtype.Float32, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "add", le.Primitive)
}

func TestSourceConventions(t *testing.T) {
	eval1 := concrete(t)

	d := eval1(Unary(DigammaP, vec(dtype.Float32, 0, -1, 1)))
	assert.True(t, math.IsNaN(d.Data()[0]))
	assert.True(t, math.IsNaN(d.Data()[1]))
	assert.InDelta(t, -0.5772157, d.Data()[2], 1e-6)

	e := eval1(Unary(ErfInvP, vec(dtype.Float64, 2, -2, 0)))
	assert.True(t, math.IsNaN(e.Data()[0]))
	assert.True(t, math.IsNaN(e.Data()[1]))
	assert.Equal(t, 0.0, e.Data()[2])

	g := eval1(Binary(IgammaP, vec(dtype.Float64, 0), vec(dtype.Float64, 0)))
	assert.True(t, math.IsNaN(g.Data()[0]))

	gc := eval1(Binary(IgammacP, vec(dtype.Float64, -1, 1), vec(dtype.Float64, 1, 0)))
	assert.Equal(t, []float64{1, 1}, gc.Data())
}

func TestTopKErrors(t *testing.T) {
	x := vec(dtype.Float32, 3, 1, 2)

	_, err := TopK(x, -1)
	require.ErrorIs(t, err, ErrValue)
	assert.Contains(t, err.Error(), "must be nonnegative")

	_, err = TopK(x, 4)
	require.ErrorIs(t, err, ErrValue)
	assert.Contains(t, err.Error(), "no larger than minor dimension")

	outs, err := TopK(x, 2)
	require.NoError(t, err)

	ts, err := Tensors(outs)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2}, ts[0].Data())
	assert.Equal(t, []float64{0, 2}, ts[1].Data())
	assert.Equal(t, dtype.Int32, ts[1].DType())
}

func TestDynamicSliceClamps(t *testing.T) {
	eval1 := concrete(t)

	x := vec(dtype.Int32, 0, 1, 2, 3, 4)

	out := eval1(DynamicSlice(x, []Value{tensor.Scalar(dtype.Int32, 4)}, []int64{2}))
	assert.Equal(t, []float64{3, 4}, out.Data())

	out = eval1(DynamicSlice(x, []Value{tensor.Scalar(dtype.Int32, -3)}, []int64{2}))
	assert.Equal(t, []float64{0, 1}, out.Data())

	_, err := DynamicSlice(x, []Value{tensor.Scalar(dtype.Int32, 0)}, []int64{6})
	assert.ErrorIs(t, err, ErrShape)
}

func TestSliceErrors(t *testing.T) {
	eval1 := concrete(t)

	x := vec(dtype.Float32, 1, 2, 3)

	_, err := Slice(x, []int64{-1}, []int64{2}, nil)
	require.ErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), "greater than or equal to zero")

	_, err = Slice(x, []int64{0}, []int64{4}, nil)
	require.ErrorIs(t, err, ErrShape)

	_, err = Slice(x, []int64{3}, []int64{3}, nil)
	require.ErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), "less than operand shape")

	out := eval1(Slice(x, []int64{0}, []int64{3}, []int64{2}))
	assert.Equal(t, []float64{1, 3}, out.Data())
}

func TestLinalgReducedPrecisionUnimplemented(t *testing.T) {
	x := tensor.MustNew(dtype.BFloat16, []float64{1, 0, 0, 1}, 2, 2)

	_, err := Svd(x, false, true)
	require.ErrorIs(t, err, ErrUnimplemented)
	assert.Contains(t, err.Error(), "Unsupported dtype")
}

func TestSvdShapes(t *testing.T) {
	x := tensor.MustNew(dtype.Float32, []float64{1, 2, 3, 4, 5, 6}, 2, 3)

	outs, err := Svd(x, false, true)
	require.NoError(t, err)
	require.Len(t, outs, 3)
	assert.Equal(t, []int64{2}, outs[0].Shape())
	assert.Equal(t, []int64{2, 2}, outs[1].Shape())
	assert.Equal(t, []int64{2, 3}, outs[2].Shape())

	outs, err = Svd(x, true, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 3}, outs[2].Shape())

	outs, err = Svd(x, false, false)
	require.NoError(t, err)
	assert.Len(t, outs, 1)
}

func TestSortKeyValue(t *testing.T) {
	keys := vec(dtype.Float32, 3, math.NaN(), 1)
	vals := vec(dtype.Int32, 10, 20, 30)

	outs, err := Sort([]Value{keys, vals}, 0, true)
	require.NoError(t, err)

	ts, err := Tensors(outs)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ts[0].Data()[0])
	assert.True(t, math.IsNaN(ts[0].Data()[2]))
	assert.Equal(t, []float64{30, 10, 20}, ts[1].Data())
}

func TestJitAndRemat(t *testing.T) {
	double := func(args ...Value) ([]Value, error) {
		v, err := Binary(AddP, args[0], args[0])
		return []Value{v}, err
	}

	for _, wrap := range []func(Func) Func{Jit, Remat} {
		outs, err := Call(wrap(double), vec(dtype.Float32, 1, 2))
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4}, outs[0].Data())
	}
}

func TestParallelPrimitives(t *testing.T) {
	eval1 := concrete(t)

	out := eval1(AxisIndex("i"))
	assert.Equal(t, dtype.Int32, out.DType())

	_, err := AxisIndex("")
	assert.ErrorIs(t, err, ErrValue)

	s := eval1(Psum(vec(dtype.Float32, 1, 2), "i"))
	assert.Equal(t, []float64{1, 2}, s.Data())
}

type recordingTrace struct {
	seen []string
}

type fakeTracer struct {
	aval  Aval
	trace *recordingTrace
}

func (f *fakeTracer) DType() dtype.DType { return f.aval.DType }
func (f *fakeTracer) Shape() []int64     { return f.aval.Shape }
func (f *fakeTracer) Trace() Trace       { return f.trace }

func (r *recordingTrace) Process(p *Primitive, _ Params, args []Value) ([]Value, error) {
	r.seen = append(r.seen, p.Name())
	return []Value{&fakeTracer{aval: AvalOf(args[0]), trace: r}}, nil
}

func TestBindDispatchesToTrace(t *testing.T) {
	tr := &recordingTrace{}
	x := &fakeTracer{aval: Aval{DType: dtype.Float32, Shape: []int64{2}}, trace: tr}

	v, err := Binary(AddP, x, vec(dtype.Float32, 1, 1))
	require.NoError(t, err)

	_, err = Unary(SinP, v)
	require.NoError(t, err)

	assert.Equal(t, []string{"add", "sin"}, tr.seen)

	_, ok := Concrete(v)
	assert.False(t, ok)
}

func TestAllPrimitives(t *testing.T) {
	names := map[string]bool{}
	for _, p := range AllPrimitives() {
		assert.False(t, names[p.Name()], "duplicate %s", p)
		names[p.Name()] = true
	}

	for _, want := range []string{"add", "svd", "qr", "xla_call", "psum", "axis_index", "tie_in", "cummax", "reduce_window", "scatter-add", "select_and_gather_add", "random_split"} {
		assert.True(t, names[want], "missing %s", want)
	}

	p, ok := LookupByName("svd")
	require.True(t, ok)
	assert.Same(t, SvdP, p)

	_, inGeneric := Translations.Lookup(SvdP)
	assert.False(t, inGeneric)

	_, onTPU := BackendTranslations["tpu"].Lookup(CumsumP)
	assert.True(t, onTPU)
}

func TestSetDevice(t *testing.T) {
	t.Cleanup(func() { _ = SetDevice("cpu") })

	require.NoError(t, SetDevice(" GPU "))
	assert.Equal(t, "gpu", Device())

	assert.Error(t, SetDevice("npu"))
	assert.Equal(t, "gpu", Device())
}

func TestRoundPrecision(t *testing.T) {
	// bfloat16 layout: 8 exponent bits, 7 mantissa bits.
	got := roundPrecision(1+1.0/256, 8, 7)
	assert.Equal(t, 1.0, got)
	assert.True(t, math.IsInf(roundPrecision(1e39, 8, 7), 1))
	assert.Equal(t, 3.0, roundPrecision(3, 5, 10))
}

func TestKeyDeterminism(t *testing.T) {
	k := Key{Hi: 0, Lo: 42}

	a, err := Uniform(k, dtype.Float32, []int64{4}, -1, 1)
	require.NoError(t, err)

	b, err := Uniform(k, dtype.Float32, []int64{4}, -1, 1)
	require.NoError(t, err)

	assert.True(t, tensor.Equal(a, b))

	ints, err := Uniform(k, dtype.Int8, []int64{64}, -500, 500)
	require.NoError(t, err)

	for _, v := range ints.Data() {
		assert.GreaterOrEqual(t, v, -128.0)
		assert.LessOrEqual(t, v, 127.0)
	}

	keys := k.Split(2)
	assert.NotEqual(t, keys[0], keys[1])
	assert.Equal(t, keys, k.Split(2))
	assert.Equal(t, PRNGKey(42), k)
}
