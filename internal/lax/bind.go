package lax

import (
	"fmt"

	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Bind applies p. If any argument is a Tracer the primitive is handed to its
// trace; otherwise the eager kernel for the current device runs.
func Bind(p *Primitive, params Params, args ...Value) ([]Value, error) {
	for _, a := range args {
		if tr, ok := a.(Tracer); ok {
			return tr.Trace().Process(p, params, args)
		}
	}

	impl, ok := lookupImpl(p)
	if !ok {
		return nil, errorf(ErrNoImpl, p, "no kernel for device %s", Device())
	}

	ts := make([]*tensor.Tensor, len(args))
	for i, a := range args {
		t, ok := a.(*tensor.Tensor)
		if !ok || t == nil {
			return nil, errorf(ErrShape, p, "operand %d is %T, want a tensor", i, a)
		}

		ts[i] = t
	}

	if params == nil {
		params = Params{}
	}

	outs, err := impl(params, ts)
	if err != nil {
		return nil, err
	}

	vals := make([]Value, len(outs))
	for i, o := range outs {
		vals[i] = o
	}

	return vals, nil
}

// Bind1 is Bind for single-result primitives.
func Bind1(p *Primitive, params Params, args ...Value) (Value, error) {
	outs, err := Bind(p, params, args...)
	if err != nil {
		return nil, err
	}

	if len(outs) != 1 {
		return nil, fmt.Errorf("lax: %s returned %d results, want 1", p, len(outs))
	}

	return outs[0], nil
}

// Call evaluates fn eagerly on tensors and returns tensor results.
func Call(fn Func, args ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = a
	}

	outs, err := fn(vals...)
	if err != nil {
		return nil, err
	}

	return Tensors(outs)
}

// Tensors converts concrete Values to tensors.
func Tensors(vals []Value) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(vals))
	for i, v := range vals {
		t, ok := v.(*tensor.Tensor)
		if !ok || t == nil {
			return nil, fmt.Errorf("lax: result %d is %T, not a concrete tensor", i, v)
		}

		out[i] = t
	}

	return out, nil
}

// Values converts tensors to Values.
func Values(ts ...*tensor.Tensor) []Value {
	out := make([]Value, len(ts))
	for i, t := range ts {
		out[i] = t
	}

	return out
}
