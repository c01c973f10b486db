package lax

import (
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// windowComputations are the combiners reduce_window accepts.
var windowComputations = map[string]reduceDef{
	"add": reduceDefs[ReduceSumP],
	"mul": reduceDefs[ReduceProdP],
	"max": reduceDefs[ReduceMaxP],
	"min": reduceDefs[ReduceMinP],
}

var scatterDefs = map[*Primitive]reduceDef{
	ScatterAddP: reduceDefs[ReduceSumP],
	ScatterMulP: reduceDefs[ReduceProdP],
	ScatterMinP: reduceDefs[ReduceMinP],
	ScatterMaxP: reduceDefs[ReduceMaxP],
}

func init() {
	Translations.register(ReduceWindowSumP, reduceWindowImpl(ReduceWindowSumP, "add"))
	Translations.register(ReduceWindowMaxP, reduceWindowImpl(ReduceWindowMaxP, "max"))
	Translations.register(ReduceWindowMinP, reduceWindowImpl(ReduceWindowMinP, "min"))
	Translations.register(ReduceWindowP, reduceWindowImpl(ReduceWindowP, ""))
	Translations.register(SelectAndGatherAddP, selectAndGatherAddImpl)

	for p, def := range scatterDefs {
		Translations.register(p, scatterImpl(p, def))
	}
}

// windowOf reads the window_* and padding_* params of p.
func windowOf(p *Primitive, params Params) (tensor.Window, error) {
	w := tensor.Window{Dims: params.Ints("window_dimensions"), Strides: params.Ints("window_strides")}

	lo, hi := params.Ints("padding_lo"), params.Ints("padding_hi")
	if lo == nil && hi == nil {
		return w, nil
	}

	if len(lo) != len(w.Dims) || len(hi) != len(w.Dims) {
		return w, errorf(ErrShape, p, "padding %v/%v must match window rank %d", lo, hi, len(w.Dims))
	}

	w.Padding = make([][2]int64, len(lo))
	for d := range lo {
		w.Padding[d] = [2]int64{lo[d], hi[d]}
	}

	return w, nil
}

// reduceWindowImpl folds computation over windows; an empty computation is
// read from the params.
func reduceWindowImpl(p *Primitive, computation string) Impl {
	return func(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
		x, err := unary(p, args)
		if err != nil {
			return nil, err
		}

		name := computation
		if name == "" {
			name = params.Str("computation")
		}

		def, ok := windowComputations[name]
		if !ok {
			return nil, errorf(ErrValue, p, "unknown computation %q", name)
		}

		dt := x.DType()
		if !def.class.accepts(dt) {
			return nil, errorf(ErrShape, p, "operand dtype %s is not %s", dt, def.class)
		}

		w, err := windowOf(p, params)
		if err != nil {
			return nil, err
		}

		var out *tensor.Tensor

		if fn, ok := ops.Wide2(def.wide, dt); ok {
			out, err = x.ReduceWindowBits(w, ops.WideInit(def.wide, dt), fn)
		} else {
			out, err = x.ReduceWindow(w, def.init(dt), def.fn)
		}

		if err != nil {
			return nil, errorf(ErrShape, p, "%v", err)
		}

		return one(out), nil
	}
}

// selectAndGatherAddImpl takes (tangents, operand).
func selectAndGatherAddImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	p := SelectAndGatherAddP
	if len(args) != 2 {
		return nil, errorf(ErrShape, p, "expected tangents and operand, got %d operands", len(args))
	}

	tangents, operand := args[0], args[1]
	if !operand.DType().IsFloat() || tangents.DType() != operand.DType() {
		return nil, errorf(ErrShape, p, "tangents %s and operand %s must share a floating dtype", tangents.DType(), operand.DType())
	}

	var better func(candidate, best float64) bool

	switch sel := params.Str("select_prim"); sel {
	case "ge":
		better = func(c, b float64) bool { return c > b }
	case "le":
		better = func(c, b float64) bool { return c < b }
	default:
		return nil, errorf(ErrValue, p, "select_prim must be ge or le, got %q", sel)
	}

	w, err := windowOf(p, params)
	if err != nil {
		return nil, err
	}

	out, err := tensor.SelectAndGather(tangents, operand, w, better)
	if err != nil {
		return nil, errorf(ErrShape, p, "%v", err)
	}

	return one(out), nil
}

// scatterImpl takes (operand, indices, updates). Out-of-range updates are
// dropped.
func scatterImpl(p *Primitive, def reduceDef) Impl {
	return func(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if len(args) != 3 {
			return nil, errorf(ErrShape, p, "expected operand, indices and updates, got %d operands", len(args))
		}

		x, idx, upd := args[0], args[1], args[2]

		dt := x.DType()
		if !def.class.accepts(dt) {
			return nil, errorf(ErrShape, p, "operand dtype %s is not %s", dt, def.class)
		}

		var (
			out *tensor.Tensor
			err error
		)

		axis := int(params.Int("axis"))

		if fn, ok := ops.Wide2(def.wide, dt); ok {
			out, err = x.ScatterBits(idx, upd, axis, fn)
		} else {
			out, err = x.Scatter(idx, upd, axis, def.fn)
		}

		if err != nil {
			return nil, errorf(ErrShape, p, "%v", err)
		}

		return one(out), nil
	}
}
