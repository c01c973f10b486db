package convert

import (
	"fmt"

	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Default holds the rules of every translated primitive.
var Default = NewRegistry()

var elementwise = map[*lax.Primitive]string{
	lax.NegP:             graph.OpNeg,
	lax.SignP:            graph.OpSign,
	lax.FloorP:           graph.OpFloor,
	lax.CeilP:            graph.OpCeil,
	lax.RoundP:           graph.OpRound,
	lax.IsFiniteP:        graph.OpIsFinite,
	lax.ExpP:             graph.OpExp,
	lax.Expm1P:           graph.OpExpm1,
	lax.LogP:             graph.OpLog,
	lax.Log1pP:           graph.OpLog1p,
	lax.TanhP:            graph.OpTanh,
	lax.LogisticP:        graph.OpSigmoid,
	lax.SinP:             graph.OpSin,
	lax.CosP:             graph.OpCos,
	lax.AtanP:            graph.OpAtan,
	lax.AsinhP:           graph.OpAsinh,
	lax.AcoshP:           graph.OpAcosh,
	lax.AtanhP:           graph.OpAtanh,
	lax.SqrtP:            graph.OpSqrt,
	lax.RsqrtP:           graph.OpRsqrt,
	lax.AbsP:             graph.OpAbs,
	lax.LgammaP:          graph.OpLgamma,
	lax.DigammaP:         graph.OpDigamma,
	lax.ErfP:             graph.OpErf,
	lax.ErfcP:            graph.OpErfc,
	lax.ErfInvP:          graph.OpErfinv,
	lax.NotP:             graph.OpBitwiseNot,
	lax.PopulationCountP: graph.OpPopulationCount,
	lax.StopGradientP:    graph.OpIdentity,

	lax.AddP:                  graph.OpAdd,
	lax.SubP:                  graph.OpSub,
	lax.MulP:                  graph.OpMul,
	lax.DivP:                  graph.OpDiv,
	lax.RemP:                  graph.OpMod,
	lax.PowP:                  graph.OpPow,
	lax.MaxP:                  graph.OpMax,
	lax.MinP:                  graph.OpMin,
	lax.Atan2P:                graph.OpAtan2,
	lax.NextafterP:            graph.OpNextafter,
	lax.EqP:                   graph.OpEqual,
	lax.NeP:                   graph.OpNotEqual,
	lax.LtP:                   graph.OpLess,
	lax.LeP:                   graph.OpLessOrEqual,
	lax.GtP:                   graph.OpGreater,
	lax.GeP:                   graph.OpGreaterOrEqual,
	lax.AndP:                  graph.OpBitwiseAnd,
	lax.OrP:                   graph.OpBitwiseOr,
	lax.XorP:                  graph.OpBitwiseXor,
	lax.ShiftLeftP:            graph.OpShiftLeft,
	lax.ShiftRightLogicalP:    graph.OpShiftRightLogical,
	lax.ShiftRightArithmeticP: graph.OpShiftRightArithmetic,
	lax.IgammaP:               graph.OpIgamma,
	lax.IgammacP:              graph.OpIgammac,
	lax.BetaincP:              graph.OpBetainc,
	lax.SelectNP:              graph.OpSelect,
}

func init() {
	for p, op := range elementwise {
		Default.Register(p, lower(op, nil))
	}

	Default.Register(lax.ClampP, clampRule)
	Default.Register(lax.ConvertElementTypeP, lower(graph.OpCast, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrDType: p.DType("new_dtype")}
	}))
	Default.Register(lax.BroadcastInDimP, lower(graph.OpBroadcast, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrShape: p.Ints("shape"), graph.AttrDims: p.Ints("broadcast_dimensions")}
	}))
	Default.Register(lax.ReshapeP, lower(graph.OpReshape, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrShape: p.Ints("new_sizes")}
	}))
	Default.Register(lax.TransposeP, lower(graph.OpTranspose, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrPerm: p.Ints("permutation")}
	}))
	Default.Register(lax.ConcatenateP, lower(graph.OpConcat, axisAttr("dimension")))
	Default.Register(lax.PadP, lower(graph.OpPad, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrLo: p.Ints("lo"), graph.AttrHi: p.Ints("hi"), graph.AttrInterior: p.Ints("interior")}
	}))
	Default.Register(lax.SliceP, lower(graph.OpSlice, func(p lax.Params) graph.Attrs {
		return graph.Attrs{
			graph.AttrStart:   p.Ints("start_indices"),
			graph.AttrLimit:   p.Ints("limit_indices"),
			graph.AttrStrides: p.Ints("strides"),
		}
	}))
	Default.Register(lax.DynamicSliceP, lower(graph.OpDynamicSlice, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrSizes: p.Ints("slice_sizes")}
	}))
	Default.Register(lax.DynamicUpdateSliceP, lower(graph.OpDynamicUpdateSlice, nil))
	Default.Register(lax.GatherP, gatherRule)
	Default.Register(lax.IotaP, lower(graph.OpIota, func(p lax.Params) graph.Attrs {
		return graph.Attrs{
			graph.AttrDType: p.DType("dtype"),
			graph.AttrShape: p.Ints("shape"),
			graph.AttrAxis:  p.Int("dimension"),
		}
	}))

	Default.Register(lax.ReduceSumP, reduceRule(graph.OpReduceSum, graph.OpReduceSum))
	Default.Register(lax.ReduceProdP, reduceRule(graph.OpReduceProd, graph.OpReduceProd))
	Default.Register(lax.ReduceMaxP, reduceRule(graph.OpReduceMax, graph.OpReduceAny))
	Default.Register(lax.ReduceMinP, reduceRule(graph.OpReduceMin, graph.OpReduceAll))
	Default.Register(lax.ReduceAndP, reduceRule(graph.OpReduceAll, graph.OpReduceAll))
	Default.Register(lax.ReduceOrP, reduceRule(graph.OpReduceAny, graph.OpReduceAny))
	Default.Register(lax.CumsumP, lower(graph.OpCumSum, scanAttrs))
	Default.Register(lax.CumprodP, lower(graph.OpCumProd, scanAttrs))

	Default.Register(lax.DotGeneralP, lower(graph.OpMatMul, func(p lax.Params) graph.Attrs {
		if dt := p.DType("preferred_element_type"); dt.Valid() {
			return graph.Attrs{graph.AttrDType: dt}
		}

		return nil
	}))
	Default.Register(lax.SvdP, lower(graph.OpSvd, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrFullMatrices: p.Bool("full_matrices"), graph.AttrComputeUV: p.Bool("compute_uv")}
	}))
	Default.Register(lax.QrP, lower(graph.OpQr, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrFullMatrices: p.Bool("full_matrices")}
	}))
	Default.Register(lax.SortP, sortRule)
	Default.Register(lax.TopKP, lower(graph.OpTopK, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrK: p.Int("k")}
	}))

	Default.Register(lax.ReduceWindowSumP, lower(graph.OpReduceWindowSum, windowAttrs))
	Default.Register(lax.ReduceWindowMaxP, lower(graph.OpReduceWindowMax, windowAttrs))
	Default.Register(lax.ReduceWindowMinP, lower(graph.OpReduceWindowMin, windowAttrs))
	Default.Register(lax.ReduceWindowP, reduceWindowRule)
	Default.Register(lax.SelectAndGatherAddP, lower(graph.OpSelectAndGatherAdd, func(p lax.Params) graph.Attrs {
		a := windowAttrs(p)
		a[graph.AttrSelect] = p.Str("select_prim")

		return a
	}))
	Default.Register(lax.ScatterAddP, lower(graph.OpScatterAdd, axisAttr("axis")))
	Default.Register(lax.ScatterMulP, lower(graph.OpScatterMul, axisAttr("axis")))
	Default.Register(lax.ScatterMinP, lower(graph.OpScatterMin, axisAttr("axis")))
	Default.Register(lax.ScatterMaxP, lower(graph.OpScatterMax, axisAttr("axis")))
	Default.Register(lax.RandomSplitP, lower(graph.OpRandomSplit, func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrCount: p.Int("num")}
	}))

	Default.Register(lax.XlaCallP, callRule)
	Default.Register(lax.RematCallP, callRule)

	Default.MarkNotYetImplemented(lax.CummaxP, lax.ReducePrecisionP, lax.PsumP, lax.ArgmaxP)
}

// lower maps a primitive one-to-one onto op.
func lower(op string, attrs func(lax.Params) graph.Attrs) Rule {
	return func(c *Context, params lax.Params, args []*graph.Node) ([]*graph.Node, error) {
		var a graph.Attrs
		if attrs != nil {
			a = attrs(params)
		}

		return c.B.MultiOp(op, a, args...)
	}
}

func axisAttr(key string) func(lax.Params) graph.Attrs {
	return func(p lax.Params) graph.Attrs {
		return graph.Attrs{graph.AttrAxis: p.Int(key)}
	}
}

func scanAttrs(p lax.Params) graph.Attrs {
	return graph.Attrs{graph.AttrAxis: p.Int("axis"), graph.AttrReverse: p.Bool("reverse")}
}

func windowAttrs(p lax.Params) graph.Attrs {
	return graph.Attrs{
		graph.AttrWindow:  p.Ints("window_dimensions"),
		graph.AttrStrides: p.Ints("window_strides"),
		graph.AttrLo:      p.Ints("padding_lo"),
		graph.AttrHi:      p.Ints("padding_hi"),
	}
}

// windowOps lowers the computations of the generic reduce_window.
var windowOps = map[string]string{
	"add": graph.OpReduceWindowSum,
	"mul": graph.OpReduceWindowProd,
	"max": graph.OpReduceWindowMax,
	"min": graph.OpReduceWindowMin,
}

func reduceWindowRule(c *Context, params lax.Params, args []*graph.Node) ([]*graph.Node, error) {
	op, ok := windowOps[params.Str("computation")]
	if !ok {
		return nil, fmt.Errorf("computation %q: %w", params.Str("computation"), ErrNotImplemented)
	}

	return c.B.MultiOp(op, windowAttrs(params), args...)
}

// reduceRule lowers to op, or to boolOp for bool operands.
func reduceRule(op, boolOp string) Rule {
	return func(c *Context, params lax.Params, args []*graph.Node) ([]*graph.Node, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 operand, got %d", len(args))
		}

		name := op
		if args[0].DType() == dtype.Bool {
			name = boolOp
		}

		return c.B.MultiOp(name, graph.Attrs{graph.AttrAxes: params.Ints("axes")}, args...)
	}
}

// clampRule reorders (min, x, max) into Clip(x, min, max).
func clampRule(c *Context, _ lax.Params, args []*graph.Node) ([]*graph.Node, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("expected 3 operands, got %d", len(args))
	}

	return c.B.MultiOp(graph.OpClip, nil, args[1], args[0], args[2])
}

// gatherRule clips indices into range; the target Gather rejects
// out-of-range indices.
func gatherRule(c *Context, params lax.Params, args []*graph.Node) ([]*graph.Node, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expected operand and indices, got %d operands", len(args))
	}

	x, idx := args[0], args[1]

	axis, err := tensor.NormalizeDim(int(params.Int("axis")), len(x.Shape()))
	if err != nil {
		return nil, err
	}

	size := x.Shape()[axis]
	if size == 0 {
		return nil, fmt.Errorf("cannot gather from empty axis %d", axis)
	}

	lo := c.B.Constant(tensor.Scalar(idx.DType(), 0))
	hi := c.B.Constant(tensor.Scalar(idx.DType(), float64(size-1)))

	clipped, err := c.B.Op(graph.OpClip, nil, idx, lo, hi)
	if err != nil {
		return nil, err
	}

	return c.B.MultiOp(graph.OpGather, graph.Attrs{graph.AttrAxis: int64(axis)}, x, clipped)
}

func sortRule(c *Context, params lax.Params, args []*graph.Node) ([]*graph.Node, error) {
	if nk := params.Int("num_keys"); nk > 1 {
		return nil, fmt.Errorf("num_keys=%d: %w", nk, ErrNotImplemented)
	}

	return c.B.MultiOp(graph.OpSort, graph.Attrs{
		graph.AttrAxis:   params.Int("dimension"),
		graph.AttrStable: params.Bool("is_stable"),
	}, args...)
}

// callRule inlines the sub-computation of xla_call and remat_call.
func callRule(c *Context, params lax.Params, args []*graph.Node) ([]*graph.Node, error) {
	return c.Inline(params.Func("fn"), args)
}
