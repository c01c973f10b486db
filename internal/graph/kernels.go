package graph

import (
	"math"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

type scalarFn func(dt dtype.DType, x float64) float64

type scalarFn2 func(dt dtype.DType, x, y float64) float64

type operandKind int

const (
	kindAny operandKind = iota
	kindFloat
	kindNumeric
	kindIntegral
	kindInt
)

func (k operandKind) accepts(dt dtype.DType) bool {
	switch k {
	case kindFloat:
		return dt.IsFloat()
	case kindNumeric:
		return dt.IsFloat() || dt.IsInt()
	case kindIntegral:
		return dt.IsInt() || dt == dtype.Bool
	case kindInt:
		return dt.IsInt()
	default:
		return dt.Valid()
	}
}

func f1(f func(float64) float64) scalarFn {
	return func(_ dtype.DType, x float64) float64 { return f(x) }
}

func f2(f func(x, y float64) float64) scalarFn2 {
	return func(_ dtype.DType, x, y float64) float64 { return f(x, y) }
}

func pred(f func(x, y float64) bool) scalarFn2 {
	return func(_ dtype.DType, x, y float64) float64 {
		if f(x, y) {
			return 1
		}

		return 0
	}
}

type unarySpec struct {
	kind    operandKind
	boolOut bool
	fn      scalarFn
}

var unarySpecs = map[string]unarySpec{
	OpNeg:             {kind: kindNumeric, fn: f1(func(x float64) float64 { return -x })},
	OpSign:            {kind: kindNumeric, fn: f1(ops.Sign)},
	OpFloor:           {kind: kindFloat, fn: f1(math.Floor)},
	OpCeil:            {kind: kindFloat, fn: f1(math.Ceil)},
	OpRound:           {kind: kindFloat, fn: f1(math.Round)},
	OpIsFinite:        {kind: kindFloat, boolOut: true, fn: f1(isFinite)},
	OpExp:             {kind: kindFloat, fn: f1(math.Exp)},
	OpExpm1:           {kind: kindFloat, fn: f1(math.Expm1)},
	OpLog:             {kind: kindFloat, fn: f1(math.Log)},
	OpLog1p:           {kind: kindFloat, fn: f1(math.Log1p)},
	OpTanh:            {kind: kindFloat, fn: f1(math.Tanh)},
	OpSigmoid:         {kind: kindFloat, fn: f1(ops.Logistic)},
	OpSin:             {kind: kindFloat, fn: f1(math.Sin)},
	OpCos:             {kind: kindFloat, fn: f1(math.Cos)},
	OpAtan:            {kind: kindFloat, fn: f1(math.Atan)},
	OpAsinh:           {kind: kindFloat, fn: f1(math.Asinh)},
	OpAcosh:           {kind: kindFloat, fn: f1(math.Acosh)},
	OpAtanh:           {kind: kindFloat, fn: f1(math.Atanh)},
	OpSqrt:            {kind: kindFloat, fn: f1(math.Sqrt)},
	OpRsqrt:           {kind: kindFloat, fn: f1(ops.Rsqrt)},
	OpAbs:             {kind: kindNumeric, fn: f1(math.Abs)},
	OpLgamma:          {kind: kindFloat, fn: f1(ops.Lgamma)},
	OpDigamma:         {kind: kindFloat, fn: digamma},
	OpErf:             {kind: kindFloat, fn: f1(math.Erf)},
	OpErfc:            {kind: kindFloat, fn: f1(math.Erfc)},
	OpErfinv:          {kind: kindFloat, fn: erfinv},
	OpBitwiseNot:      {kind: kindIntegral, fn: ops.BitwiseNot},
	OpPopulationCount: {kind: kindInt, fn: ops.PopulationCount},
	OpIdentity:        {kind: kindAny, fn: func(_ dtype.DType, x float64) float64 { return x }},
}

type binarySpec struct {
	kind    operandKind
	boolOut bool
	fn      scalarFn2
}

var binarySpecs = map[string]binarySpec{
	OpAdd:            {kind: kindNumeric, fn: f2(func(x, y float64) float64 { return x + y })},
	OpSub:            {kind: kindNumeric, fn: f2(func(x, y float64) float64 { return x - y })},
	OpMul:            {kind: kindNumeric, fn: f2(func(x, y float64) float64 { return x * y })},
	OpDiv:            {kind: kindNumeric, fn: div},
	OpMod:            {kind: kindNumeric, fn: f2(math.Mod)},
	OpPow:            {kind: kindFloat, fn: f2(math.Pow)},
	OpMax:            {kind: kindAny, fn: f2(math.Max)},
	OpMin:            {kind: kindAny, fn: f2(math.Min)},
	OpAtan2:          {kind: kindFloat, fn: f2(math.Atan2)},
	OpEqual:          {kind: kindAny, boolOut: true, fn: pred(func(x, y float64) bool { return x == y })},
	OpNotEqual:       {kind: kindAny, boolOut: true, fn: pred(func(x, y float64) bool { return x != y })},
	OpLess:           {kind: kindAny, boolOut: true, fn: pred(func(x, y float64) bool { return x < y })},
	OpLessOrEqual:    {kind: kindAny, boolOut: true, fn: pred(func(x, y float64) bool { return x <= y })},
	OpGreater:        {kind: kindAny, boolOut: true, fn: pred(func(x, y float64) bool { return x > y })},
	OpGreaterOrEqual: {kind: kindAny, boolOut: true, fn: pred(func(x, y float64) bool { return x >= y })},
	OpBitwiseAnd:     {kind: kindIntegral, fn: ops.BitwiseAnd},
	OpBitwiseOr:      {kind: kindIntegral, fn: ops.BitwiseOr},
	OpBitwiseXor:     {kind: kindIntegral, fn: ops.BitwiseXor},

	OpShiftLeft:            {kind: kindInt, fn: ops.ShiftLeft},
	OpShiftRightLogical:    {kind: kindInt, fn: ops.ShiftRightLogical},
	OpShiftRightArithmetic: {kind: kindInt, fn: ops.ShiftRightArithmetic},

	OpIgamma:    {kind: kindFloat, fn: f2(igamma)},
	OpIgammac:   {kind: kindFloat, fn: f2(igammac)},
	OpNextafter: {kind: kindFloat, fn: nextafter},
}

// wideKernels names the bit-exact Int64 and Uint64 form of an op.
var wideKernels = map[string]string{
	OpNeg:             ops.WideNeg,
	OpSign:            ops.WideSign,
	OpAbs:             ops.WideAbs,
	OpBitwiseNot:      ops.WideNot,
	OpPopulationCount: ops.WidePopCount,
	OpIdentity:        ops.WideIdentity,

	OpAdd:                  ops.WideAdd,
	OpSub:                  ops.WideSub,
	OpMul:                  ops.WideMul,
	OpDiv:                  ops.WideDiv,
	OpMod:                  ops.WideRem,
	OpMax:                  ops.WideMax,
	OpMin:                  ops.WideMin,
	OpEqual:                ops.WideEq,
	OpNotEqual:             ops.WideNe,
	OpLess:                 ops.WideLt,
	OpLessOrEqual:          ops.WideLe,
	OpGreater:              ops.WideGt,
	OpGreaterOrEqual:       ops.WideGe,
	OpBitwiseAnd:           ops.WideAnd,
	OpBitwiseOr:            ops.WideOr,
	OpBitwiseXor:           ops.WideXor,
	OpShiftLeft:            ops.WideShiftLeft,
	OpShiftRightLogical:    ops.WideShiftRightLogical,
	OpShiftRightArithmetic: ops.WideShiftRightArithmetic,

	OpReduceSum:  ops.WideAdd,
	OpReduceProd: ops.WideMul,
	OpReduceMax:  ops.WideMax,
	OpReduceMin:  ops.WideMin,
	OpCumSum:     ops.WideAdd,
	OpCumProd:    ops.WideMul,
}

func isFinite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}

	return 1
}

// digamma is +Inf at its poles. The bfloat16 kernel computes in reduced
// precision and yields NaN there instead.
func digamma(dt dtype.DType, x float64) float64 {
	if ops.IsNonPositiveInteger(x) {
		if dt == dtype.BFloat16 {
			return math.NaN()
		}

		return math.Inf(1)
	}

	return ops.Digamma(x)
}

// erfinv saturates to ±Inf outside [-1, 1]; half-precision kernels give NaN.
func erfinv(dt dtype.DType, x float64) float64 {
	if x < -1 || x > 1 {
		if dt == dtype.Float16 || dt == dtype.BFloat16 {
			return math.NaN()
		}

		return math.Copysign(math.Inf(1), x)
	}

	return math.Erfinv(x)
}

// igamma is 0 at the origin.
func igamma(a, x float64) float64 {
	if a == 0 && x == 0 {
		return 0
	}

	return ops.Igamma(a, x)
}

// igammac is NaN wherever either argument is non-positive.
func igammac(a, x float64) float64 {
	if a <= 0 || x <= 0 {
		return math.NaN()
	}

	return ops.Igammac(a, x)
}

// div truncates integer quotients; integer division by zero yields 0.
func div(dt dtype.DType, x, y float64) float64 {
	if dt.IsInt() {
		if y == 0 {
			return 0
		}

		return math.Trunc(x / y)
	}

	return x / y
}

func nextafter(dt dtype.DType, x, y float64) float64 {
	v, _ := ops.Nextafter(dt, x, y)
	return v
}

func init() {
	for name, spec := range unarySpecs {
		defineOp(name, 1, inferUnary(spec.kind, spec.boolOut), unaryKernel(name, spec.fn, spec.boolOut))
	}

	for name, spec := range binarySpecs {
		defineOp(name, 2, inferElementwise(spec.kind, spec.boolOut), binaryKernel(name, spec.fn, spec.boolOut))
	}

	defineOp(OpBetainc, 3, inferElementwise(kindFloat, false), ternaryKernel(OpBetainc, func(xs []float64) float64 {
		return ops.Betainc(xs[0], xs[1], xs[2])
	}))
	defineOp(OpClip, 3, inferElementwise(kindNumeric, false), clipKernel)
	defineOp(OpSelect, -1, inferSelect, selectKernel)
}

func unaryKernel(op string, fn scalarFn, boolOut bool) kernelFunc {
	return func(_ Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		x := in[0]
		dt := x.DType()

		out := dt
		if boolOut {
			out = dtype.Bool
		}

		if exact, ok := ops.Wide1(wideKernels[op], dt); ok && !boolOut {
			res, err := x.MapBits(out, exact)
			if err != nil {
				return nil, invalidf(op, "%v", err)
			}

			return single(res), nil
		}

		return single(x.Map(out, func(v float64) float64 { return fn(dt, v) })), nil
	}
}

func binaryKernel(op string, fn scalarFn2, boolOut bool) kernelFunc {
	return func(_ Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		dt := in[0].DType()

		out := dt
		if boolOut {
			out = dtype.Bool
		}

		var (
			res *tensor.Tensor
			err error
		)

		if exact, ok := ops.Wide2(wideKernels[op], dt); ok {
			res, err = tensor.BinaryBits(in[0], in[1], out, exact, op)
		} else {
			res, err = tensor.Binary(in[0], in[1], out, func(x, y float64) float64 { return fn(dt, x, y) }, op)
		}

		if err != nil {
			return nil, invalidf(op, "%v", err)
		}

		return single(res), nil
	}
}

func ternaryKernel(op string, fn func(xs []float64) float64) kernelFunc {
	return func(_ Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		res, err := tensor.Elementwise(in[0].DType(), fn, op, in...)
		if err != nil {
			return nil, invalidf(op, "%v", err)
		}

		return single(res), nil
	}
}

// clipKernel takes (x, min, max).
func clipKernel(_ Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	dt := in[0].DType()

	var (
		res *tensor.Tensor
		err error
	)

	if maxFn, ok := ops.Wide2(ops.WideMax, dt); ok {
		minFn, _ := ops.Wide2(ops.WideMin, dt)
		res, err = tensor.ElementwiseBits(dt, func(xs []uint64) uint64 {
			return minFn(maxFn(xs[0], xs[1]), xs[2])
		}, OpClip, in...)
	} else {
		res, err = tensor.Elementwise(dt, func(xs []float64) float64 {
			return math.Min(math.Max(xs[0], xs[1]), xs[2])
		}, OpClip, in...)
	}

	if err != nil {
		return nil, invalidf(OpClip, "%v", err)
	}

	return single(res), nil
}

func selectKernel(_ Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	n := len(in) - 1
	dt := in[1].DType()

	var (
		res *tensor.Tensor
		err error
	)

	if dt.Wide() {
		res, err = tensor.ElementwiseBits(dt, func(xs []uint64) uint64 {
			return xs[1+min(max(int(int64(xs[0])), 0), n-1)]
		}, OpSelect, in...)
	} else {
		res, err = tensor.Elementwise(dt, func(xs []float64) float64 {
			i := math.Min(math.Max(xs[0], 0), float64(n-1))
			return xs[1+int(i)]
		}, OpSelect, in...)
	}

	if err != nil {
		return nil, invalidf(OpSelect, "%v", err)
	}

	return single(res), nil
}

func single(t *tensor.Tensor) []*tensor.Tensor { return []*tensor.Tensor{t} }

func inferUnary(kind operandKind, boolOut bool) inferFunc {
	return func(op string, _ Attrs, in []Type) ([]Type, error) {
		if !kind.accepts(in[0].DType) {
			return nil, invalidf(op, "operand type %s not allowed", in[0].DType)
		}

		out := in[0]
		if boolOut {
			out.DType = dtype.Bool
		}

		return []Type{out}, nil
	}
}

// inferElementwise requires one dtype across operands and broadcasts shapes.
func inferElementwise(kind operandKind, boolOut bool) inferFunc {
	return func(op string, _ Attrs, in []Type) ([]Type, error) {
		dt := in[0].DType
		shape := in[0].Shape

		for i, t := range in {
			if t.DType != dt {
				return nil, invalidf(op, "operand %d has type %s, expected %s", i, t.DType, dt)
			}

			s, err := tensor.BroadcastShape(shape, t.Shape)
			if err != nil {
				return nil, invalidf(op, "%v", err)
			}

			shape = s
		}

		if !kind.accepts(dt) {
			return nil, invalidf(op, "operand type %s not allowed", dt)
		}

		if boolOut {
			dt = dtype.Bool
		}

		return []Type{{DType: dt, Shape: shape}}, nil
	}
}

func inferSelect(op string, attrs Attrs, in []Type) ([]Type, error) {
	if len(in) < 2 {
		return nil, invalidf(op, "needs a selector and at least one case")
	}

	if w := in[0].DType; w != dtype.Bool && w != dtype.Int32 {
		return nil, invalidf(op, "selector type %s must be bool or int32", w)
	}

	out, err := inferElementwise(kindAny, false)(op, attrs, in[1:])
	if err != nil {
		return nil, err
	}

	shape, err := tensor.BroadcastShape(out[0].Shape, in[0].Shape)
	if err != nil {
		return nil, invalidf(op, "%v", err)
	}

	out[0].Shape = shape

	return out, nil
}
