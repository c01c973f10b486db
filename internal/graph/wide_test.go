package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func i64(t *testing.T, vals ...int64) *tensor.Tensor {
	t.Helper()

	x, err := tensor.FromInt64s(vals, []int64{int64(len(vals))})
	require.NoError(t, err)

	return x
}

func TestWideKernelsAreExact(t *testing.T) {
	typ := Type{DType: dtype.Int64, Shape: []int64{2}}

	b := NewBuilder("wide")
	x := b.Parameter(typ)
	y := b.Parameter(typ)

	sum, err := b.Op(OpAdd, nil, x, y)
	require.NoError(t, err)

	eq, err := b.Op(OpEqual, nil, sum, x)
	require.NoError(t, err)

	red, err := b.Op(OpReduceMax, Attrs{AttrAxes: []int64{0}}, sum)
	require.NoError(t, err)

	g, err := b.Build(sum, eq, red)
	require.NoError(t, err)

	res, err := run(t, g, "cpu", i64(t, math.MaxInt64-1, 1<<53), i64(t, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, []int64{math.MaxInt64, 1<<53 + 1}, res[0].Int64s())
	assert.Equal(t, []float64{0, 0}, res[1].Data())
	assert.Equal(t, []int64{math.MaxInt64}, res[2].Int64s())
}

func TestWideEmptyReduceMin(t *testing.T) {
	for _, dt := range []dtype.DType{dtype.Int64, dtype.Uint64} {
		b := NewBuilder("min")
		x := b.Parameter(Type{DType: dt, Shape: []int64{0}})

		y, err := b.Op(OpReduceMin, Attrs{AttrAxes: []int64{0}}, x)
		require.NoError(t, err)

		g, err := b.Build(y)
		require.NoError(t, err)

		empty, err := tensor.Zeros(dt, []int64{0})
		require.NoError(t, err)

		res, err := run(t, g, "cpu", empty)
		require.NoError(t, err)
		assert.Equal(t, []uint64{dt.MaxBits()}, res[0].Bits(), "%s", dt)
	}
}
