package graph

import (
	"sort"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Structural node kinds.
const (
	OpParameter    = "Parameter"
	OpConstant     = "Constant"
	OpTupleElement = "TupleElement"
)

// Elementwise ops.
const (
	OpNeg             = "Neg"
	OpSign            = "Sign"
	OpFloor           = "Floor"
	OpCeil            = "Ceil"
	OpRound           = "Round"
	OpIsFinite        = "IsFinite"
	OpExp             = "Exp"
	OpExpm1           = "Expm1"
	OpLog             = "Log"
	OpLog1p           = "Log1p"
	OpTanh            = "Tanh"
	OpSigmoid         = "Sigmoid"
	OpSin             = "Sin"
	OpCos             = "Cos"
	OpAtan            = "Atan"
	OpAsinh           = "Asinh"
	OpAcosh           = "Acosh"
	OpAtanh           = "Atanh"
	OpSqrt            = "Sqrt"
	OpRsqrt           = "Rsqrt"
	OpAbs             = "Abs"
	OpLgamma          = "Lgamma"
	OpDigamma         = "Digamma"
	OpErf             = "Erf"
	OpErfc            = "Erfc"
	OpErfinv          = "Erfinv"
	OpBitwiseNot      = "BitwiseNot"
	OpPopulationCount = "PopulationCount"
	OpIdentity        = "Identity"

	OpAdd                  = "Add"
	OpSub                  = "Sub"
	OpMul                  = "Mul"
	OpDiv                  = "Div"
	OpMod                  = "Mod"
	OpPow                  = "Pow"
	OpMax                  = "Max"
	OpMin                  = "Min"
	OpAtan2                = "Atan2"
	OpEqual                = "Equal"
	OpNotEqual             = "NotEqual"
	OpLess                 = "Less"
	OpLessOrEqual          = "LessOrEqual"
	OpGreater              = "Greater"
	OpGreaterOrEqual       = "GreaterOrEqual"
	OpBitwiseAnd           = "BitwiseAnd"
	OpBitwiseOr            = "BitwiseOr"
	OpBitwiseXor           = "BitwiseXor"
	OpShiftLeft            = "ShiftLeft"
	OpShiftRightLogical    = "ShiftRightLogical"
	OpShiftRightArithmetic = "ShiftRightArithmetic"
	OpIgamma               = "Igamma"
	OpIgammac              = "Igammac"
	OpNextafter            = "Nextafter"

	OpBetainc = "Betainc"
	OpClip    = "Clip"   // (x, min, max)
	OpSelect  = "Select" // (which, case0, case1, ...)
)

// Shape, reduction, linear algebra and sorting ops.
const (
	OpCast               = "Cast"
	OpBroadcast          = "Broadcast"
	OpReshape            = "Reshape"
	OpTranspose          = "Transpose"
	OpConcat             = "Concat"
	OpPad                = "Pad"
	OpSlice              = "Slice"
	OpDynamicSlice       = "DynamicSlice"
	OpDynamicUpdateSlice = "DynamicUpdateSlice"
	OpGather             = "Gather"
	OpIota               = "Iota"

	OpReduceSum  = "ReduceSum"
	OpReduceMax  = "ReduceMax"
	OpReduceMin  = "ReduceMin"
	OpReduceProd = "ReduceProd"
	OpReduceAll  = "ReduceAll"
	OpReduceAny  = "ReduceAny"
	OpCumSum     = "CumSum"
	OpCumProd    = "CumProd"

	OpMatMul = "MatMul"
	OpSvd    = "Svd"
	OpQr     = "Qr"
	OpSort   = "Sort"
	OpTopK   = "TopK"

	OpReduceWindowSum    = "ReduceWindowSum"
	OpReduceWindowProd   = "ReduceWindowProd"
	OpReduceWindowMax    = "ReduceWindowMax"
	OpReduceWindowMin    = "ReduceWindowMin"
	OpSelectAndGatherAdd = "SelectAndGatherAdd" // (tangents, operand)
	OpScatterAdd         = "ScatterAdd"         // (operand, indices, updates)
	OpScatterMul         = "ScatterMul"
	OpScatterMin         = "ScatterMin"
	OpScatterMax         = "ScatterMax"
	OpRandomSplit        = "RandomSplit"
)

// Attribute keys.
const (
	AttrValue        = "value"
	AttrIndex        = "index"
	AttrDType        = "dtype"
	AttrShape        = "shape"
	AttrDims         = "dims"
	AttrPerm         = "perm"
	AttrAxis         = "axis"
	AttrAxes         = "axes"
	AttrStart        = "start"
	AttrLimit        = "limit"
	AttrStrides      = "strides"
	AttrSizes        = "sizes"
	AttrLo           = "lo"
	AttrHi           = "hi"
	AttrInterior     = "interior"
	AttrReverse      = "reverse"
	AttrFullMatrices = "full_matrices"
	AttrComputeUV    = "compute_uv"
	AttrStable       = "stable"
	AttrK            = "k"
	AttrWindow       = "window"
	AttrSelect       = "select"
	AttrCount        = "count"
)

type inferFunc func(op string, attrs Attrs, in []Type) ([]Type, error)

type kernelFunc func(attrs Attrs, in []*tensor.Tensor) ([]*tensor.Tensor, error)

type opDef struct {
	arity  int // -1 for variadic
	infer  inferFunc
	kernel kernelFunc
}

var opDefs = map[string]*opDef{}

func defineOp(name string, arity int, infer inferFunc, kernel kernelFunc) {
	if _, dup := opDefs[name]; dup {
		panic("graph: op " + name + " defined twice")
	}

	opDefs[name] = &opDef{arity: arity, infer: infer, kernel: kernel}
}

// OpNames lists every op with a definition, sorted.
func OpNames() []string {
	out := make([]string, 0, len(opDefs))
	for name := range opDefs {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// supportDType is the dtype a kernel is selected by: the first operand, or
// the output for nullary ops.
func supportDType(in []Type, out []Type) dtype.DType {
	if len(in) > 0 {
		return in[0].DType
	}

	if len(out) > 0 {
		return out[0].DType
	}

	return dtype.Invalid
}

func attrKeys(a Attrs) []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
