package lax

import (
	"math"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

type reduceDef struct {
	class dtypeClass
	init  func(dt dtype.DType) float64
	fn    func(acc, x float64) float64
	// wide names the bit-exact combiner used for Int64 and Uint64.
	wide string
}

func constInit(v float64) func(dtype.DType) float64 {
	return func(dtype.DType) float64 { return v }
}

var reduceDefs = map[*Primitive]reduceDef{
	ReduceSumP:  {class: classNumeric, init: constInit(0), fn: func(a, x float64) float64 { return a + x }, wide: ops.WideAdd},
	ReduceProdP: {class: classNumeric, init: constInit(1), fn: func(a, x float64) float64 { return a * x }, wide: ops.WideMul},
	ReduceMaxP: {class: classAny, init: func(dt dtype.DType) float64 {
		if dt.IsFloat() {
			return math.Inf(-1)
		}

		return dt.MinValue()
	}, fn: math.Max, wide: ops.WideMax},
	ReduceMinP: {class: classAny, init: func(dt dtype.DType) float64 {
		if dt.IsFloat() {
			return math.Inf(1)
		}

		return dt.MaxValue()
	}, fn: math.Min, wide: ops.WideMin},
	ReduceAndP: {class: classIntegral, init: constInit(1), fn: func(a, x float64) float64 {
		if a != 0 && x != 0 {
			return 1
		}

		return 0
	}},
	ReduceOrP: {class: classIntegral, init: constInit(0), fn: func(a, x float64) float64 {
		if a != 0 || x != 0 {
			return 1
		}

		return 0
	}},
}

var cumulativeDefs = map[*Primitive]func(acc, x float64) float64{
	CumsumP:  func(a, x float64) float64 { return a + x },
	CumprodP: func(a, x float64) float64 { return a * x },
	CummaxP:  math.Max,
}

var cumulativeWide = map[*Primitive]string{
	CumsumP:  ops.WideAdd,
	CumprodP: ops.WideMul,
	CummaxP:  ops.WideMax,
}

func init() {
	for p, def := range reduceDefs {
		Translations.register(p, reduceImpl(p, def))
	}

	for p, fn := range cumulativeDefs {
		impl := cumulativeImpl(p, fn)
		Translations.register(p, impl)
		// Lowered through a dedicated scan on tpu.
		registerBackends(p, impl, "tpu")
	}

	Translations.register(ArgmaxP, argmaxImpl)
}

func reduceImpl(p *Primitive, def reduceDef) Impl {
	return func(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
		x, err := unary(p, args)
		if err != nil {
			return nil, err
		}

		dt := x.DType()
		if !def.class.accepts(dt) {
			return nil, errorf(ErrShape, p, "operand dtype %s is not %s", dt, def.class)
		}

		if (p == ReduceAndP || p == ReduceOrP) && dt != dtype.Bool {
			return nil, errorf(ErrShape, p, "operand dtype %s must be bool", dt)
		}

		var out *tensor.Tensor

		if fn, ok := ops.Wide2(def.wide, dt); ok {
			out, err = x.ReduceBits(params.Axes("axes"), ops.WideInit(def.wide, dt), dt, fn)
		} else {
			out, err = x.Reduce(params.Axes("axes"), def.init(dt), dt, def.fn)
		}

		if err != nil {
			return nil, errorf(ErrShape, p, "%v", err)
		}

		return one(out), nil
	}
}

func cumulativeImpl(p *Primitive, fn func(acc, x float64) float64) Impl {
	return func(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
		x, err := unary(p, args)
		if err != nil {
			return nil, err
		}

		if !classNumeric.accepts(x.DType()) {
			return nil, errorf(ErrShape, p, "operand dtype %s is not numeric", x.DType())
		}

		axis, reverse := int(params.Int("axis")), params.Bool("reverse")

		var out *tensor.Tensor

		if exact, ok := ops.Wide2(cumulativeWide[p], x.DType()); ok {
			out, err = x.CumulativeBits(axis, reverse, exact)
		} else {
			out, err = x.Cumulative(axis, reverse, fn)
		}

		if err != nil {
			return nil, errorf(ErrShape, p, "%v", err)
		}

		return one(out), nil
	}
}

// argmaxImpl treats NaN as the maximum; the first NaN wins.
func argmaxImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := unary(ArgmaxP, args)
	if err != nil {
		return nil, err
	}

	idxType := params.DType("index_dtype")
	if !idxType.IsInt() {
		return nil, errorf(ErrValue, ArgmaxP, "index_dtype %s must be an integer type", idxType)
	}

	axis, dt := int(params.Int("axis")), x.DType()

	var out *tensor.Tensor

	if x.Wide() {
		out, err = x.ArgReduceBits(axis, idxType, func(c, best uint64) bool { return ops.LessWide(dt, best, c) })
	} else {
		out, err = x.ArgReduce(axis, idxType, func(c, best float64) bool {
			if math.IsNaN(best) {
				return false
			}

			return math.IsNaN(c) || c > best
		})
	}
	if err != nil {
		return nil, errorf(ErrShape, ArgmaxP, "%v", err)
	}

	return one(out), nil
}
