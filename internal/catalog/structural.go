package catalog

import (
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/lax/numpy"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// withFixed draws x and appends the fixed tensors after it.
func withFixed(x argSpec, fixed ...*tensor.Tensor) harness.ArgsMaker {
	draw := randArgs(x)

	return func(r *harness.RNG) ([]*tensor.Tensor, error) {
		args, err := draw(r)
		if err != nil {
			return nil, err
		}

		return append(args, fixed...), nil
	}
}

func concatenate() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range []dtype.DType{dtype.Bool, dtype.Int32, dtype.Float32} {
		for _, c := range []struct {
			shapes [][]int64
			dim    int
		}{
			{[][]int64{{2, 3}, {4, 3}}, 0},
			{[][]int64{{2, 3}, {2, 1}, {2, 2}}, 1},
			{[][]int64{{3}, {0}}, 0},
		} {
			specs := make([]argSpec, len(c.shapes))
			for i, s := range c.shapes {
				specs[i] = rnd(dt, s)
			}

			dim := c.dim
			fn := func(args ...lax.Value) ([]lax.Value, error) {
				y, err := lax.Concatenate(args, dim)
				if err != nil {
					return nil, err
				}

				return []lax.Value{y}, nil
			}

			out = append(out, harness.New(GroupConcatenate, caseName("concatenate", dt, c.shapes[0], len(c.shapes), "dim", dim),
				fn, randArgs(specs...), lax.Params{"dtype": dt, "dimension": dim}))
		}
	}

	return out
}

func slice() []*harness.Harness {
	var out []*harness.Harness

	for _, c := range []struct {
		shape, start, limit, strides []int64
	}{
		{shape(3), shape(1), shape(3), nil},
		{shape(7), shape(4), shape(7), nil},
		{shape(5, 3), shape(1, 1), shape(5, 3), shape(2, 1)},
		{shape(5, 4), shape(0, 1), shape(5, 4), shape(3, 2)},
		{shape(3), shape(-1), shape(1), nil},
		{shape(3), shape(1), shape(4), nil},
		{shape(3), shape(2), shape(1), nil},
		{shape(3), shape(0), shape(3), shape(0)},
		{shape(3), shape(3), shape(3), nil},
	} {
		start, limit, strides := c.start, c.limit, c.strides
		fn := fn1(func(x lax.Value) (lax.Value, error) { return lax.Slice(x, start, limit, strides) })

		parts := []any{"slice", dtype.Float32, c.shape, "start", start, "limit", limit}
		if strides != nil {
			parts = append(parts, "strides", strides)
		}

		out = append(out, harness.New(GroupSlice, caseName(parts...),
			fn, randArgs(rnd(dtype.Float32, c.shape)),
			lax.Params{"dtype": dtype.Float32, "shape": c.shape, "start_indices": start, "limit_indices": limit, "strides": strides}))
	}

	return out
}

func dynamicSlice() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32} {
		for _, c := range []struct {
			shape, start, sizes []int64
		}{
			{shape(5), shape(1), shape(3)},
			{shape(5, 4), shape(2, 1), shape(2, 3)},
			{shape(5), shape(-1), shape(3)},
			{shape(5), shape(4), shape(3)},
			{shape(5, 4), shape(3, 3), shape(3, 2)},
			{shape(5), shape(0), shape(6)},
		} {
			sizes, n := c.sizes, len(c.start)
			fn := func(args ...lax.Value) ([]lax.Value, error) {
				y, err := lax.DynamicSlice(args[0], args[1:1+n], sizes)
				if err != nil {
					return nil, err
				}

				return []lax.Value{y}, nil
			}

			out = append(out, harness.New(GroupDynamicSlice, caseName("dynamic_slice", dt, c.shape, "start", c.start, "sizes", sizes),
				fn, withFixed(rnd(dt, c.shape), int32s(c.start...)...),
				lax.Params{"dtype": dt, "shape": c.shape, "start_indices": c.start, "slice_sizes": sizes}))
		}
	}

	return out
}

func dynamicUpdateSlice() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32} {
		for _, c := range []struct {
			shape, update, start []int64
		}{
			{shape(5), shape(3), shape(1)},
			{shape(5, 4), shape(2, 2), shape(1, 2)},
			{shape(5), shape(3), shape(-1)},
			{shape(5), shape(3), shape(4)},
			{shape(5), shape(6), shape(0)},
		} {
			n := len(c.start)
			fn := func(args ...lax.Value) ([]lax.Value, error) {
				y, err := lax.DynamicUpdateSlice(args[0], args[1], args[2:2+n])
				if err != nil {
					return nil, err
				}

				return []lax.Value{y}, nil
			}

			draw := randArgs(rnd(dt, c.shape), rnd(dt, c.update))
			starts := int32s(c.start...)

			out = append(out, harness.New(GroupDynamicUpdateSlice, caseName("dynamic_update_slice", dt, c.shape, "update", c.update, "start", c.start),
				fn, func(r *harness.RNG) ([]*tensor.Tensor, error) {
					args, err := draw(r)
					if err != nil {
						return nil, err
					}

					return append(args, starts...), nil
				},
				lax.Params{"dtype": dt, "shape": c.shape, "update_shape": c.update, "start_indices": c.start}))
		}
	}

	return out
}

func pad() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32} {
		for _, c := range []struct {
			shape, lo, hi, interior []int64
		}{
			{shape(2, 3), shape(0, 0), shape(0, 0), shape(0, 0)},
			{shape(2, 3), shape(1, 2), shape(1, 0), shape(0, 0)},
			{shape(2, 3), shape(0, 0), shape(0, 0), shape(1, 2)},
			{shape(2, 3), shape(0, -1), shape(0, 0), shape(0, 0)},
			{shape(3), shape(1), shape(-2), shape(1)},
		} {
			lo, hi, interior := c.lo, c.hi, c.interior
			value := tensor.Scalar(dt, 0)
			fn := fn1(func(x lax.Value) (lax.Value, error) { return lax.Pad(x, value, lo, hi, interior) })

			out = append(out, harness.New(GroupPad, caseName("pad", dt, c.shape, "lo", lo, "hi", hi, "interior", interior),
				fn, randArgs(rnd(dt, c.shape)),
				lax.Params{"dtype": dt, "shape": c.shape, "lo": lo, "hi": hi, "interior": interior}))
		}
	}

	return out
}

func take() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range []dtype.DType{dtype.Bool, dtype.Int32, dtype.Float32} {
		for _, axis := range []int{0, 1} {
			idx := tensor.MustNew(dtype.Int32, []float64{0, 4, -2, 7})
			fn := fn2(func(x, i lax.Value) (lax.Value, error) { return numpy.Take(x, i, axis) })

			out = append(out, harness.New(GroupTake, caseName("take", dt, shape(5, 3), "axis", axis), fn,
				withFixed(rnd(dt, shape(5, 3)), idx), lax.Params{"dtype": dt, "axis": axis}))
		}
	}

	return out
}

func stopGradient() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32} {
		out = append(out, harness.New(GroupStopGradient, caseName("stop_gradient", dt, shape(3)),
			fn1(lax.StopGradient), randArgs(rnd(dt, shape(3))), lax.Params{"dtype": dt}))
	}

	return out
}

func convertElementType() []*harness.Harness {
	types := []dtype.DType{dtype.Bool, dtype.Int8, dtype.Int32, dtype.Uint8, dtype.BFloat16, dtype.Float16, dtype.Float32, dtype.Float64}

	var out []*harness.Harness

	for _, from := range types {
		for _, to := range types {
			target := to
			fn := fn1(func(x lax.Value) (lax.Value, error) { return lax.ConvertElementType(x, target) })

			out = append(out, harness.New(GroupConvertElementType, caseName("convert_element_type", from, "to", to),
				fn, randArgs(rnd(from, shape(2, 3))), lax.Params{"dtype": from, "new_dtype": to}))
		}
	}

	return out
}

func selectN() []*harness.Harness {
	var out []*harness.Harness

	fn := func(args ...lax.Value) ([]lax.Value, error) {
		y, err := lax.SelectN(args[0], args[1:]...)
		if err != nil {
			return nil, err
		}

		return []lax.Value{y}, nil
	}

	for _, dt := range []dtype.DType{dtype.Bool, dtype.Int32, dtype.Float32} {
		s := shape(2, 3)
		out = append(out,
			harness.New(GroupSelectN, caseName("select_n", dt, s, "bool"), fn,
				randArgs(rnd(dtype.Bool, s), rnd(dt, s), rnd(dt, s)), lax.Params{"dtype": dt, "cases": 2}),
			harness.New(GroupSelectN, caseName("select_n", dt, s, "int32"), fn,
				randArgs(uniform(dtype.Int32, s, 0, 3), rnd(dt, s), rnd(dt, s), rnd(dt, s)), lax.Params{"dtype": dt, "cases": 3}))
	}

	return out
}
