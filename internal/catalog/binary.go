package catalog

import (
	"math"

	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/lax/numpy"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// PromotionDTypes are the operand types combined pairwise by the
// type_promotion group.
var PromotionDTypes = []dtype.DType{dtype.BFloat16, dtype.Int32, dtype.Int64, dtype.Float32}

// PromotionOps are the numpy-style binary functions of the type_promotion
// group, by name.
var PromotionOps = []struct {
	Name string
	Fn   func(x, y lax.Value) (lax.Value, error)
}{
	{"add", numpy.Add},
	{"subtract", numpy.Subtract},
	{"multiply", numpy.Multiply},
	{"divide", numpy.Divide},
	{"less", numpy.Less},
	{"less_equal", numpy.LessEqual},
	{"equal", numpy.Equal},
	{"greater", numpy.Greater},
	{"greater_equal", numpy.GreaterEqual},
	{"not_equal", numpy.NotEqual},
	{"maximum", numpy.Maximum},
	{"minimum", numpy.Minimum},
}

func typePromotion() []*harness.Harness {
	var out []*harness.Harness

	for _, op := range PromotionOps {
		for _, a := range PromotionDTypes {
			for _, b := range PromotionDTypes {
				x := tensor.MustNew(a, []float64{1, 2})
				y := tensor.MustNew(b, []float64{3, 4})

				out = append(out, harness.New(GroupTypePromotion, caseName(op.Name, a, b), fn2(op.Fn), fixedArgs(x, y),
					lax.Params{"f_name": op.Name, "dtype": a, "other_dtype": b}))
			}
		}
	}

	return out
}

type binaryCase struct {
	p      *lax.Primitive
	dtypes []dtype.DType
	lo, hi float64
}

func binaryElementwise() []*harness.Harness {
	integral := append([]dtype.DType{dtype.Bool}, ints...)
	anyTypes := []dtype.DType{dtype.Bool, dtype.Int8, dtype.Int32, dtype.Uint8, dtype.Float16, dtype.Float32, dtype.Float64}

	cases := []binaryCase{
		{p: lax.SubP, dtypes: numeric},
		{p: lax.DivP, dtypes: numeric},
		{p: lax.RemP, dtypes: numeric},
		{p: lax.PowP, dtypes: floats, lo: 0.1, hi: 3},
		{p: lax.Atan2P, dtypes: floats},
		{p: lax.IgammaP, dtypes: floats, lo: 0.1, hi: 5},
		{p: lax.IgammacP, dtypes: floats, lo: 0.1, hi: 5},
		{p: lax.EqP, dtypes: anyTypes},
		{p: lax.NeP, dtypes: anyTypes},
		{p: lax.LtP, dtypes: anyTypes},
		{p: lax.LeP, dtypes: anyTypes},
		{p: lax.GtP, dtypes: anyTypes},
		{p: lax.GeP, dtypes: anyTypes},
		{p: lax.AndP, dtypes: integral},
		{p: lax.OrP, dtypes: integral},
		{p: lax.XorP, dtypes: integral},
	}

	var out []*harness.Harness

	for _, c := range cases {
		for _, dt := range c.dtypes {
			s := shape(3, 2)

			args := randArgs(rnd(dt, s), rnd(dt, s))
			if c.hi > c.lo {
				args = randArgs(uniform(dt, s, c.lo, c.hi), uniform(dt, s, c.lo, c.hi))
			}

			out = append(out, harness.New(GroupBinaryElementwise, caseName(c.p.Name(), dt, s), binaryOf(c.p), args,
				lax.Params{"lax_name": c.p.Name(), "dtype": dt, "shape": s}))
		}
	}

	// Arguments on which igamma and igammac conventions differ.
	for _, dt := range floats {
		a := tensor.MustNew(dt, []float64{0, 0, 1, -1, 2, 0.5})
		x := tensor.MustNew(dt, []float64{0, 1, 0, 2, -1, 0.5})

		for _, p := range []*lax.Primitive{lax.IgammaP, lax.IgammacP} {
			out = append(out, harness.New(GroupBinaryElementwise, caseName(p.Name(), dt, "special"), binaryOf(p),
				fixedArgs(a, x), lax.Params{"lax_name": p.Name(), "dtype": dt, "shape": shape(6)}))
		}
	}

	return out
}

func addMul() []*harness.Harness {
	var out []*harness.Harness

	for _, f := range []struct {
		name string
		fn   func(x, y lax.Value) (lax.Value, error)
	}{{"add", numpy.Add}, {"mul", numpy.Multiply}} {
		for _, dt := range numeric {
			s := shape(2, 3)
			out = append(out, harness.New(GroupAddMul, caseName(f.name, dt, s), fn2(f.fn),
				randArgs(rnd(dt, s), rnd(dt, s)), lax.Params{"f_name": f.name, "dtype": dt, "shape": s}))
		}
	}

	return out
}

func minMax() []*harness.Harness {
	var out []*harness.Harness

	for _, p := range []*lax.Primitive{lax.MaxP, lax.MinP} {
		for _, dt := range all {
			s := shape(2, 3)
			out = append(out, harness.New(GroupMinMax, caseName(p.Name(), dt, s), binaryOf(p),
				randArgs(rnd(dt, s), rnd(dt, s)), lax.Params{"lax_name": p.Name(), "dtype": dt, "shape": s}))
		}

		nan := math.NaN()
		x := tensor.MustNew(dtype.Float32, []float64{nan, 1, nan, math.Inf(-1)})
		y := tensor.MustNew(dtype.Float32, []float64{1, nan, nan, 0})
		out = append(out, harness.New(GroupMinMax, caseName(p.Name(), dtype.Float32, "nan"), binaryOf(p),
			fixedArgs(x, y), lax.Params{"lax_name": p.Name(), "dtype": dtype.Float32, "shape": shape(4)}))
	}

	return out
}

func shifts() []*harness.Harness {
	var out []*harness.Harness

	for _, g := range []struct {
		group string
		p     *lax.Primitive
	}{
		{GroupShiftLeft, lax.ShiftLeftP},
		{GroupShiftRightLogical, lax.ShiftRightLogicalP},
		{GroupShiftRightArithmetic, lax.ShiftRightArithmeticP},
	} {
		for _, dt := range ints {
			s := shape(4)
			bits := float64(dt.Bits())

			// Shift amounts cover negative and overlong shifts.
			args := randArgs(rnd(dt, s), uniform(dt, s, math.Max(-bits, dt.MinValue()), math.Min(2*bits, dt.MaxValue())))
			out = append(out, harness.New(g.group, caseName(g.p.Name(), dt, s), binaryOf(g.p), args,
				lax.Params{"dtype": dt, "shape": s}))
		}
	}

	return out
}

func betainc() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range floats {
		s := shape(2, 3)
		args := randArgs(uniform(dt, s, 0.5, 3), uniform(dt, s, 0.5, 3), uniform(dt, s, 0, 1))
		fn := func(args ...lax.Value) ([]lax.Value, error) {
			y, err := lax.Betainc(args[0], args[1], args[2])
			if err != nil {
				return nil, err
			}

			return []lax.Value{y}, nil
		}

		out = append(out, harness.New(GroupBetainc, caseName("betainc", dt, s), fn, args, lax.Params{"dtype": dt, "shape": s}))
	}

	return out
}

func nextafter() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range floats {
		s := shape(3)
		out = append(out, harness.New(GroupNextafter, caseName("nextafter", dt, s), binaryOf(lax.NextafterP),
			randArgs(rnd(dt, s), rnd(dt, s)), lax.Params{"dtype": dt, "shape": s}))
	}

	return out
}

func clamp() []*harness.Harness {
	var out []*harness.Harness

	fn := func(args ...lax.Value) ([]lax.Value, error) {
		y, err := lax.Clamp(args[0], args[1], args[2])
		if err != nil {
			return nil, err
		}

		return []lax.Value{y}, nil
	}

	for _, dt := range []dtype.DType{dtype.Int8, dtype.Int32, dtype.Uint8, dtype.Float16, dtype.Float32, dtype.Float64} {
		s := shape(2, 3)
		lo := tensor.Scalar(dt, 0)
		hi := tensor.Scalar(dt, 5)

		low := -10.0
		if dt.IsUnsigned() {
			low = 0
		}

		out = append(out, harness.New(GroupClamp, caseName("clamp", dt, s), fn, func(r *harness.RNG) ([]*tensor.Tensor, error) {
			x, err := r.Uniform(dt, s, low, 10)
			if err != nil {
				return nil, err
			}

			return []*tensor.Tensor{lo, x, hi}, nil
		}, lax.Params{"dtype": dt, "shape": s}))
	}

	return out
}
