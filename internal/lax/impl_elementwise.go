package lax

import (
	"math"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

type dtypeClass int

const (
	classFloat dtypeClass = iota
	classNumeric
	classIntegral // integers and bool
	classInt
	classAny
)

func (c dtypeClass) accepts(dt dtype.DType) bool {
	switch c {
	case classFloat:
		return dt.IsFloat()
	case classNumeric:
		return dt.IsFloat() || dt.IsInt()
	case classIntegral:
		return dt.IsInt() || dt == dtype.Bool
	case classInt:
		return dt.IsInt()
	default:
		return dt.Valid()
	}
}

func (c dtypeClass) String() string {
	return [...]string{"floating", "numeric", "integral", "integer", "any"}[c]
}

type unaryDef struct {
	class   dtypeClass
	boolOut bool
	fn      func(dt dtype.DType, x float64) float64
}

func float1(f func(float64) float64) func(dtype.DType, float64) float64 {
	return func(_ dtype.DType, x float64) float64 { return f(x) }
}

var unaryDefs = map[*Primitive]unaryDef{
	NegP:      {class: classNumeric, fn: float1(func(x float64) float64 { return -x })},
	SignP:     {class: classNumeric, fn: float1(ops.Sign)},
	FloorP:    {class: classFloat, fn: float1(math.Floor)},
	CeilP:     {class: classFloat, fn: float1(math.Ceil)},
	RoundP:    {class: classFloat, fn: float1(math.Round)},
	IsFiniteP: {class: classFloat, boolOut: true, fn: float1(isFinite)},
	ExpP:      {class: classFloat, fn: float1(math.Exp)},
	Expm1P:    {class: classFloat, fn: float1(math.Expm1)},
	LogP:      {class: classFloat, fn: float1(math.Log)},
	Log1pP:    {class: classFloat, fn: float1(math.Log1p)},
	TanhP:     {class: classFloat, fn: float1(math.Tanh)},
	LogisticP: {class: classFloat, fn: float1(ops.Logistic)},
	SinP:      {class: classFloat, fn: float1(math.Sin)},
	CosP:      {class: classFloat, fn: float1(math.Cos)},
	AtanP:     {class: classFloat, fn: float1(math.Atan)},
	AsinhP:    {class: classFloat, fn: float1(math.Asinh)},
	AcoshP:    {class: classFloat, fn: float1(math.Acosh)},
	AtanhP:    {class: classFloat, fn: float1(math.Atanh)},
	SqrtP:     {class: classFloat, fn: float1(math.Sqrt)},
	RsqrtP:    {class: classFloat, fn: float1(ops.Rsqrt)},
	AbsP:      {class: classNumeric, fn: float1(math.Abs)},
	LgammaP:   {class: classFloat, fn: float1(ops.Lgamma)},
	DigammaP:  {class: classFloat, fn: float1(ops.Digamma)},
	ErfP:      {class: classFloat, fn: float1(math.Erf)},
	ErfcP:     {class: classFloat, fn: float1(math.Erfc)},
	// Outside [-1, 1] math.Erfinv is NaN.
	ErfInvP:          {class: classFloat, fn: float1(math.Erfinv)},
	NotP:             {class: classIntegral, fn: ops.BitwiseNot},
	PopulationCountP: {class: classInt, fn: ops.PopulationCount},
}

func isFinite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}

	return 1
}

type binaryDef struct {
	class   dtypeClass
	boolOut bool
	fn      func(dt dtype.DType, x, y float64) float64
}

func float2(f func(x, y float64) float64) func(dtype.DType, float64, float64) float64 {
	return func(_ dtype.DType, x, y float64) float64 { return f(x, y) }
}

func cmp(f func(x, y float64) bool) func(dtype.DType, float64, float64) float64 {
	return func(_ dtype.DType, x, y float64) float64 {
		if f(x, y) {
			return 1
		}

		return 0
	}
}

var binaryDefs = map[*Primitive]binaryDef{
	AddP:   {class: classNumeric, fn: float2(func(x, y float64) float64 { return x + y })},
	SubP:   {class: classNumeric, fn: float2(func(x, y float64) float64 { return x - y })},
	MulP:   {class: classNumeric, fn: float2(func(x, y float64) float64 { return x * y })},
	DivP:   {class: classNumeric, fn: divide},
	RemP:   {class: classNumeric, fn: float2(math.Mod)},
	PowP:   {class: classFloat, fn: float2(math.Pow)},
	MaxP:   {class: classAny, fn: float2(math.Max)},
	MinP:   {class: classAny, fn: float2(math.Min)},
	Atan2P: {class: classFloat, fn: float2(math.Atan2)},
	EqP:    {class: classAny, boolOut: true, fn: cmp(func(x, y float64) bool { return x == y })},
	NeP:    {class: classAny, boolOut: true, fn: cmp(func(x, y float64) bool { return x != y })},
	LtP:    {class: classAny, boolOut: true, fn: cmp(func(x, y float64) bool { return x < y })},
	LeP:    {class: classAny, boolOut: true, fn: cmp(func(x, y float64) bool { return x <= y })},
	GtP:    {class: classAny, boolOut: true, fn: cmp(func(x, y float64) bool { return x > y })},
	GeP:    {class: classAny, boolOut: true, fn: cmp(func(x, y float64) bool { return x >= y })},
	AndP:   {class: classIntegral, fn: ops.BitwiseAnd},
	OrP:    {class: classIntegral, fn: ops.BitwiseOr},
	XorP:   {class: classIntegral, fn: ops.BitwiseXor},

	ShiftLeftP:            {class: classInt, fn: ops.ShiftLeft},
	ShiftRightLogicalP:    {class: classInt, fn: ops.ShiftRightLogical},
	ShiftRightArithmeticP: {class: classInt, fn: ops.ShiftRightArithmetic},

	IgammaP:  {class: classFloat, fn: float2(ops.Igamma)},
	IgammacP: {class: classFloat, fn: float2(igammac)},
}

// divide truncates toward zero for integers.
func divide(dt dtype.DType, x, y float64) float64 {
	if dt.IsInt() {
		if y == 0 {
			return 0
		}

		return math.Trunc(x / y)
	}

	return x / y
}

// igammac is 1 wherever the function is undefined for non-positive arguments.
func igammac(a, x float64) float64 {
	if a <= 0 || x <= 0 {
		return 1
	}

	return ops.Igammac(a, x)
}

func init() {
	for p, def := range unaryDefs {
		Translations.register(p, unaryImpl(p, def))
	}

	for p, def := range binaryDefs {
		Translations.register(p, binaryImpl(p, def))
	}

	Translations.register(NextafterP, nextafterImpl)
	Translations.register(BetaincP, betaincImpl)
	Translations.register(ClampP, clampImpl)
	Translations.register(SelectNP, selectNImpl)
}

func unaryImpl(p *Primitive, def unaryDef) Impl {
	return func(_ Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if len(args) != 1 {
			return nil, errorf(ErrShape, p, "expected 1 operand, got %d", len(args))
		}

		x := args[0]
		if !def.class.accepts(x.DType()) {
			return nil, errorf(ErrShape, p, "operand dtype %s is not %s", x.DType(), def.class)
		}

		out := x.DType()
		if def.boolOut {
			out = dtype.Bool
		}

		dt := x.DType()

		if exact, ok := ops.Wide1(p.Name(), dt); ok && !def.boolOut {
			res, err := x.MapBits(out, exact)
			if err != nil {
				return nil, errorf(ErrShape, p, "%v", err)
			}

			return one(res), nil
		}

		return one(x.Map(out, func(v float64) float64 { return def.fn(dt, v) })), nil
	}
}

func binaryImpl(p *Primitive, def binaryDef) Impl {
	return func(_ Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if err := checkNary(p, args, 2, def.class); err != nil {
			return nil, err
		}

		dt := args[0].DType()

		out := dt
		if def.boolOut {
			out = dtype.Bool
		}

		var (
			res *tensor.Tensor
			err error
		)

		if exact, ok := ops.Wide2(p.Name(), dt); ok {
			res, err = tensor.BinaryBits(args[0], args[1], out, exact, p.Name())
		} else {
			res, err = tensor.Binary(args[0], args[1], out, func(x, y float64) float64 { return def.fn(dt, x, y) }, p.Name())
		}

		if err != nil {
			return nil, errorf(ErrShape, p, "%v", err)
		}

		return one(res), nil
	}
}

// checkNary requires n operands of one dtype in class whose shapes are equal
// apart from rank-0 operands.
func checkNary(p *Primitive, args []*tensor.Tensor, n int, class dtypeClass) error {
	if len(args) != n {
		return errorf(ErrShape, p, "expected %d operands, got %d", n, len(args))
	}

	var shape []int64

	for i, a := range args {
		if a.DType() != args[0].DType() {
			return errorf(ErrShape, p, "operand dtypes differ: %s vs %s", args[0].DType(), a.DType())
		}

		if !class.accepts(a.DType()) {
			return errorf(ErrShape, p, "operand %d dtype %s is not %s", i, a.DType(), class)
		}

		if a.Rank() == 0 {
			continue
		}

		if shape == nil {
			shape = a.Shape()
		} else if !tensor.SameShape(shape, a.Shape()) {
			return errorf(ErrShape, p, "operand shapes differ: %v vs %v", shape, a.Shape())
		}
	}

	return nil
}

func nextafterImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := checkNary(NextafterP, args, 2, classFloat); err != nil {
		return nil, err
	}

	dt := args[0].DType()
	if _, ok := ops.Nextafter(dt, 0, 1); !ok {
		return nil, errorf(ErrUnimplemented, NextafterP, "dtype %s", dt)
	}

	res, err := tensor.Binary(args[0], args[1], dt, func(x, y float64) float64 {
		v, _ := ops.Nextafter(dt, x, y)
		return v
	}, "nextafter")
	if err != nil {
		return nil, errorf(ErrShape, NextafterP, "%v", err)
	}

	return one(res), nil
}

func betaincImpl(_ Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := checkNary(BetaincP, args, 3, classFloat); err != nil {
		return nil, err
	}

	res, err := tensor.Elementwise(args[0].DType(), func(xs []float64) float64 {
		return ops.Betainc(xs[0], xs[1], xs[2])
	}, "betainc", args...)
	if err != nil {
		return nil, errorf(ErrShape, BetaincP, "%v", err)
	}

	return one(res), nil
}

// clampImpl takes (min, x, max).
func clampImpl(_ Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := checkNary(ClampP, args, 3, classNumeric); err != nil {
		return nil, err
	}

	dt := args[1].DType()

	var (
		res *tensor.Tensor
		err error
	)

	if maxFn, ok := ops.Wide2(ops.WideMax, dt); ok {
		minFn, _ := ops.Wide2(ops.WideMin, dt)
		res, err = tensor.ElementwiseBits(dt, func(xs []uint64) uint64 {
			return minFn(maxFn(xs[1], xs[0]), xs[2])
		}, "clamp", args...)
	} else {
		res, err = tensor.Elementwise(dt, func(xs []float64) float64 {
			return math.Min(math.Max(xs[1], xs[0]), xs[2])
		}, "clamp", args...)
	}

	if err != nil {
		return nil, errorf(ErrShape, ClampP, "%v", err)
	}

	return one(res), nil
}

// selectNImpl takes (which, case0, case1, ...). which is bool for two cases
// or int32 otherwise.
func selectNImpl(_ Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) < 2 {
		return nil, errorf(ErrShape, SelectNP, "expected a predicate and at least one case")
	}

	which, cases := args[0], args[1:]
	if which.DType() != dtype.Bool && which.DType() != dtype.Int32 {
		return nil, errorf(ErrShape, SelectNP, "predicate dtype %s must be bool or int32", which.DType())
	}

	if err := checkNary(SelectNP, cases, len(cases), classAny); err != nil {
		return nil, err
	}

	res, err := selectCases(cases[0].DType(), "select_n", args)
	if err != nil {
		return nil, errorf(ErrShape, SelectNP, "%v", err)
	}

	return one(res), nil
}

// selectCases picks xs[1+which] per element, clamping which into range.
// Int64 and Uint64 cases move their exact values.
func selectCases(dt dtype.DType, name string, args []*tensor.Tensor) (*tensor.Tensor, error) {
	n := len(args) - 1

	if dt.Wide() {
		return tensor.ElementwiseBits(dt, func(xs []uint64) uint64 {
			return xs[1+min(max(int(int64(xs[0])), 0), n-1)]
		}, name, args...)
	}

	return tensor.Elementwise(dt, func(xs []float64) float64 {
		i := math.Min(math.Max(xs[0], 0), float64(n-1))
		return xs[1+int(i)]
	}, name, args...)
}

func one(t *tensor.Tensor) []*tensor.Tensor { return []*tensor.Tensor{t} }
