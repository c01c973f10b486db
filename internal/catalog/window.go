package catalog

import (
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// windowCase is one window configuration over a 4x6 operand.
type windowCase struct {
	dims, strides, lo, hi []int64
}

var windowCases = []windowCase{
	{dims: shape(2, 2)},
	{dims: shape(2, 3), strides: shape(2, 3)},
	{dims: shape(3, 2), strides: shape(1, 2), lo: shape(1, 0), hi: shape(1, 1)},
	{dims: shape(5, 1)},
}

func (c windowCase) window() lax.Window {
	return lax.Window{Dims: c.dims, Strides: c.strides, PadLo: c.lo, PadHi: c.hi}
}

func (c windowCase) nameParts() []any {
	parts := []any{"window", c.dims}
	if c.strides != nil {
		parts = append(parts, "strides", c.strides)
	}

	if c.lo != nil {
		parts = append(parts, "padding", c.lo, c.hi)
	}

	return parts
}

func reduceWindow() []*harness.Harness {
	var out []*harness.Harness

	s := shape(4, 6)

	add := func(computation string, dt dtype.DType, c windowCase) {
		w := c.window()
		fn := fn1(func(x lax.Value) (lax.Value, error) { return lax.ReduceWindow(x, computation, w) })

		arg := rnd(dt, s)
		if computation == "mul" {
			arg = uniform(dt, s, -2, 3)
		}

		name := caseName(append([]any{"reduce_window", computation, dt, s}, c.nameParts()...)...)
		out = append(out, harness.New(GroupReduceWindow, name, fn, randArgs(arg), lax.Params{
			"computation": computation, "dtype": dt, "shape": s, "window_dimensions": c.dims,
		}))
	}

	for _, computation := range []string{"add", "mul", "max", "min"} {
		for _, dt := range numeric {
			add(computation, dt, windowCases[0])
		}

		for _, c := range windowCases[1:] {
			add(computation, dtype.Float32, c)
		}
	}

	return out
}

func selectAndGatherAdd() []*harness.Harness {
	var out []*harness.Harness

	s := shape(4, 6)

	add := func(sel string, dt dtype.DType, c windowCase) {
		w := c.window()
		fn := fn2(func(tangents, operand lax.Value) (lax.Value, error) {
			return lax.SelectAndGatherAdd(tangents, operand, sel, w)
		})

		name := caseName(append([]any{"select_and_gather_add", sel, dt, s}, c.nameParts()...)...)
		out = append(out, harness.New(GroupSelectAndGatherAdd, name, fn, randArgs(rnd(dt, s), rnd(dt, s)), lax.Params{
			"select_prim": sel, "dtype": dt, "shape": s,
		}))
	}

	for _, sel := range []string{"ge", "le"} {
		for _, dt := range floats {
			add(sel, dt, windowCases[0])
		}

		for _, c := range windowCases[1:] {
			add(sel, dtype.Float32, c)
		}
	}

	return out
}

// scatterArgs draws the operand and updates and places the fixed indices
// between them.
func scatterArgs(dt dtype.DType, operand, updates []int64, indices *tensor.Tensor) harness.ArgsMaker {
	draw := randArgs(rnd(dt, operand), rnd(dt, updates))

	return func(r *harness.RNG) ([]*tensor.Tensor, error) {
		args, err := draw(r)
		if err != nil {
			return nil, err
		}

		return []*tensor.Tensor{args[0], indices, args[1]}, nil
	}
}

func scatter() []*harness.Harness {
	var out []*harness.Harness

	ps := map[string]*lax.Primitive{
		"scatter_add": lax.ScatterAddP,
		"scatter_mul": lax.ScatterMulP,
		"scatter_min": lax.ScatterMinP,
		"scatter_max": lax.ScatterMaxP,
	}

	add := func(fName string, dt dtype.DType, s []int64, axis int, idx []float64) {
		p := ps[fName]
		indices := tensor.MustNew(dtype.Int32, idx)

		updates := append([]int64{}, s...)
		updates[axis] = int64(len(idx))

		fn := func(args ...lax.Value) ([]lax.Value, error) {
			y, err := lax.Scatter(p, args[0], args[1], args[2], axis)
			if err != nil {
				return nil, err
			}

			return []lax.Value{y}, nil
		}

		name := caseName(fName, dt, s, "axis", axis, "updates", updates)
		out = append(out, harness.New(GroupScatter, name, fn, scatterArgs(dt, s, updates, indices), lax.Params{
			"f_name": fName, "dtype": dt, "shape": s, "axis": axis,
		}))
	}

	for _, fName := range []string{"scatter_add", "scatter_mul", "scatter_min", "scatter_max"} {
		dts := numeric
		if fName == "scatter_min" || fName == "scatter_max" {
			dts = all
		}

		for _, dt := range dts {
			add(fName, dt, shape(5), 0, []float64{0, 2, 2})
		}

		// Repeated and out-of-range indices.
		add(fName, dtype.Float32, shape(5, 3), 0, []float64{4, 1, 4, 9})
		add(fName, dtype.Float32, shape(2, 4), 1, []float64{-1, 3})
	}

	return out
}

func randomSplit() []*harness.Harness {
	var out []*harness.Harness

	for _, k := range []lax.Key{
		lax.PRNGKey(42),
		{Hi: 0, Lo: 0},
		{Hi: 0xFFFFFFFF, Lo: 0},
		{Hi: 0, Lo: 0xFFFFFFFF},
		{Hi: 0xFFFFFFFF, Lo: 0xFFFFFFFF},
	} {
		fn := fn1(func(key lax.Value) (lax.Value, error) { return lax.RandomSplit(key, 2) })

		out = append(out, harness.New(GroupRandomSplit, caseName("random_split", "key", k.Hi, k.Lo), fn,
			fixedArgs(k.Tensor()), lax.Params{"num": 2}))
	}

	return out
}
