package catalog

import (
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
)

func reduce() []*harness.Harness {
	var out []*harness.Harness

	add := func(p *lax.Primitive, dt dtype.DType, s []int64, axes []int) {
		fn := fn1(func(x lax.Value) (lax.Value, error) { return lax.Reduce(p, x, axes) })

		arg := rnd(dt, s)
		if p == lax.ReduceProdP {
			arg = uniform(dt, s, -2, 3)
		}

		out = append(out, harness.New(GroupReduce, caseName(p.Name(), dt, s, "axes", axesName(axes)), fn,
			randArgs(arg), lax.Params{"lax_name": p.Name(), "dtype": dt, "shape": s, "axes": axes}))
	}

	for _, p := range []*lax.Primitive{lax.ReduceSumP, lax.ReduceProdP, lax.ReduceMaxP, lax.ReduceMinP} {
		for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32, dtype.Float64} {
			add(p, dt, shape(3, 4), []int{0})
			add(p, dt, shape(3, 4), []int{0, 1})
			add(p, dt, shape(2, 3, 4), []int{1, 2})
		}
	}

	for _, p := range []*lax.Primitive{lax.ReduceMaxP, lax.ReduceMinP, lax.ReduceAndP, lax.ReduceOrP} {
		add(p, dtype.Bool, shape(3, 4), []int{1})
	}

	for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32} {
		fn := fn1(func(x lax.Value) (lax.Value, error) { return lax.Argmax(x, 1, dtype.Int32) })

		out = append(out, harness.New(GroupReduce, caseName("argmax", dt, shape(3, 4)), fn,
			randArgs(rnd(dt, shape(3, 4))), lax.Params{"lax_name": "argmax", "dtype": dt, "shape": shape(3, 4)}))
	}

	return out
}

func axesName(axes []int) string {
	s := make([]int64, len(axes))
	for i, a := range axes {
		s[i] = int64(a)
	}

	return shapeName(s)
}

func cumulative() []*harness.Harness {
	var out []*harness.Harness

	for _, p := range []*lax.Primitive{lax.CumsumP, lax.CumprodP, lax.CummaxP} {
		for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32} {
			for _, axis := range []int{0, 1} {
				for _, reverse := range []bool{false, true} {
					fn := fn1(func(x lax.Value) (lax.Value, error) { return lax.Cumulative(p, x, axis, reverse) })

					// Small magnitudes keep cumulative products in range.
					arg := uniform(dt, shape(3, 4), -2, 3)

					out = append(out, harness.New(GroupCumulative, caseName(p.Name(), dt, shape(3, 4), "axis", axis, "reverse", reverse),
						fn, randArgs(arg), lax.Params{"lax_name": p.Name(), "dtype": dt, "axis": axis, "reverse": reverse}))
				}
			}
		}
	}

	return out
}

func sortCases() []*harness.Harness {
	var out []*harness.Harness

	for _, c := range []struct {
		dt       dtype.DType
		shape    []int64
		dim      int
		stable   bool
		operands int
	}{
		{dtype.Float32, shape(5), 0, false, 1},
		{dtype.Float32, shape(3, 4), 1, false, 1},
		{dtype.Int32, shape(3, 4), -1, false, 1},
		{dtype.Bool, shape(6), 0, false, 1},
		{dtype.Float32, shape(3, 4), 0, false, 1},
		{dtype.Float32, shape(5), 0, true, 1},
		{dtype.Int32, shape(6), 0, false, 2},
		{dtype.Float32, shape(2, 5), 1, false, 2},
		{dtype.Int32, shape(6), 0, false, 3},
		{dtype.Bool, shape(6), 0, false, 2},
	} {
		specs := []argSpec{rnd(c.dt, c.shape)}
		for i := 1; i < c.operands; i++ {
			specs = append(specs, rnd(dtype.Float32, c.shape))
		}

		dim, stable := c.dim, c.stable
		fn := func(args ...lax.Value) ([]lax.Value, error) { return lax.Sort(args, dim, stable) }

		out = append(out, harness.New(GroupSort, caseName("sort", c.dt, c.shape, "dim", dim, "stable", stable, "operands", c.operands),
			fn, randArgs(specs...), lax.Params{
				"dtype": c.dt, "shape": c.shape, "dimension": dim, "is_stable": stable, "num_operands": c.operands,
			}))
	}

	return out
}

func topK() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32} {
		s := shape(3, 5)

		for _, k := range []int{-1, 0, 1, 3, 5, 6} {
			fn := func(args ...lax.Value) ([]lax.Value, error) { return lax.TopK(args[0], k) }

			out = append(out, harness.New(GroupTopK, caseName("top_k", dt, s, "k", k), fn,
				randArgs(rnd(dt, s)), lax.Params{"dtype": dt, "shape": s, "k": k}))
		}
	}

	return out
}
