package lax

import (
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func init() {
	InitialStyle.register(XlaCallP, callImpl(XlaCallP))
	InitialStyle.register(RematCallP, callImpl(RematCallP))
	Parallel.register(PsumP, psumImpl)
	Parallel.register(AxisIndexP, axisIndexImpl)
}

// callImpl evaluates the sub-computation in params["fn"] on the operands.
func callImpl(p *Primitive) Impl {
	return func(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
		fn := params.Func("fn")
		if fn == nil {
			return nil, errorf(ErrValue, p, "missing fn parameter")
		}

		return Call(fn, args...)
	}
}

// psumImpl sums over a single-replica axis, which is the identity.
func psumImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if params.Str("axis_name") == "" {
		return nil, errorf(ErrValue, PsumP, "missing axis_name")
	}

	return args, nil
}

// axisIndexImpl is the replica index on a single-replica axis.
func axisIndexImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if params.Str("axis_name") == "" {
		return nil, errorf(ErrValue, AxisIndexP, "missing axis_name")
	}

	if len(args) != 0 {
		return nil, errorf(ErrShape, AxisIndexP, "takes no operands")
	}

	return one(tensor.Scalar(dtype.Int32, 0)), nil
}
