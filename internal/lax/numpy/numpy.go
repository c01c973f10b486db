// Package numpy layers numpy-style dtype promotion and broadcasting over the
// lax primitives.
package numpy

import (
	"fmt"

	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Promote converts xs to their common dtype and broadcasts them to a common
// shape.
func Promote(xs ...lax.Value) ([]lax.Value, error) {
	dts := make([]dtype.DType, len(xs))
	for i, x := range xs {
		dts[i] = x.DType()
	}

	dt, err := dtype.PromoteAll(dts...)
	if err != nil {
		return nil, fmt.Errorf("numpy: %w", err)
	}

	return promoteTo(dt, xs...)
}

func promoteTo(dt dtype.DType, xs ...lax.Value) ([]lax.Value, error) {
	var shape []int64

	for i, x := range xs {
		if i == 0 {
			shape = x.Shape()
			continue
		}

		s, err := tensor.BroadcastShape(shape, x.Shape())
		if err != nil {
			return nil, fmt.Errorf("numpy: %w", err)
		}

		shape = s
	}

	out := make([]lax.Value, len(xs))

	for i, x := range xs {
		v, err := lax.ConvertElementType(x, dt)
		if err != nil {
			return nil, err
		}

		if v, err = broadcastTo(v, shape); err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func broadcastTo(x lax.Value, shape []int64) (lax.Value, error) {
	if tensor.SameShape(x.Shape(), shape) {
		return x, nil
	}

	rank := len(x.Shape())
	dims := make([]int, rank)

	for i := range dims {
		dims[i] = len(shape) - rank + i
	}

	return lax.BroadcastInDim(x, shape, dims)
}

func binary(p *lax.Primitive, x, y lax.Value) (lax.Value, error) {
	args, err := Promote(x, y)
	if err != nil {
		return nil, err
	}

	return lax.Binary(p, args[0], args[1])
}

func Add(x, y lax.Value) (lax.Value, error)          { return binary(lax.AddP, x, y) }
func Subtract(x, y lax.Value) (lax.Value, error)     { return binary(lax.SubP, x, y) }
func Multiply(x, y lax.Value) (lax.Value, error)     { return binary(lax.MulP, x, y) }
func Maximum(x, y lax.Value) (lax.Value, error)      { return binary(lax.MaxP, x, y) }
func Minimum(x, y lax.Value) (lax.Value, error)      { return binary(lax.MinP, x, y) }
func Less(x, y lax.Value) (lax.Value, error)         { return binary(lax.LtP, x, y) }
func LessEqual(x, y lax.Value) (lax.Value, error)    { return binary(lax.LeP, x, y) }
func Equal(x, y lax.Value) (lax.Value, error)        { return binary(lax.EqP, x, y) }
func Greater(x, y lax.Value) (lax.Value, error)      { return binary(lax.GtP, x, y) }
func GreaterEqual(x, y lax.Value) (lax.Value, error) { return binary(lax.GeP, x, y) }
func NotEqual(x, y lax.Value) (lax.Value, error)     { return binary(lax.NeP, x, y) }

// Divide is true division: integer and bool operands promote to the
// default float type.
func Divide(x, y lax.Value) (lax.Value, error) {
	dt, err := dtype.Promote(x.DType(), y.DType())
	if err != nil {
		return nil, fmt.Errorf("numpy: %w", err)
	}

	if !dt.IsFloat() {
		dt = dtype.DefaultFloat
	}

	args, err := promoteTo(dt, x, y)
	if err != nil {
		return nil, err
	}

	return lax.Binary(lax.DivP, args[0], args[1])
}

// Where selects x where cond is true and y elsewhere.
func Where(cond, x, y lax.Value) (lax.Value, error) {
	args, err := Promote(x, y)
	if err != nil {
		return nil, err
	}

	c, err := lax.ConvertElementType(cond, dtype.Bool)
	if err != nil {
		return nil, err
	}

	if c, err = broadcastTo(c, args[0].Shape()); err != nil {
		return nil, err
	}

	return lax.SelectN(c, args[1], args[0])
}

// Concatenate promotes xs to a common dtype and joins them along axis.
func Concatenate(xs []lax.Value, axis int) (lax.Value, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("numpy: concatenate: need at least one array")
	}

	dts := make([]dtype.DType, len(xs))
	for i, x := range xs {
		dts[i] = x.DType()
	}

	dt, err := dtype.PromoteAll(dts...)
	if err != nil {
		return nil, fmt.Errorf("numpy: %w", err)
	}

	args := make([]lax.Value, len(xs))
	for i, x := range xs {
		if args[i], err = lax.ConvertElementType(x, dt); err != nil {
			return nil, err
		}
	}

	return lax.Concatenate(args, axis)
}

// accumulatorType widens bool to the default integer type.
func accumulatorType(x lax.Value) (lax.Value, error) {
	if x.DType() == dtype.Bool {
		return lax.ConvertElementType(x, dtype.DefaultInt)
	}

	return x, nil
}

// allAxes returns axes, or every axis when axes is nil.
func allAxes(x lax.Value, axes []int) []int {
	if axes != nil {
		return axes
	}

	out := make([]int, len(x.Shape()))
	for i := range out {
		out[i] = i
	}

	return out
}

// Sum reduces over axes (all when nil). Bool sums count as int64.
func Sum(x lax.Value, axes []int) (lax.Value, error) {
	v, err := accumulatorType(x)
	if err != nil {
		return nil, err
	}

	return lax.Reduce(lax.ReduceSumP, v, allAxes(x, axes))
}

func Prod(x lax.Value, axes []int) (lax.Value, error) {
	v, err := accumulatorType(x)
	if err != nil {
		return nil, err
	}

	return lax.Reduce(lax.ReduceProdP, v, allAxes(x, axes))
}

func Max(x lax.Value, axes []int) (lax.Value, error) {
	return lax.Reduce(lax.ReduceMaxP, x, allAxes(x, axes))
}

func Min(x lax.Value, axes []int) (lax.Value, error) {
	return lax.Reduce(lax.ReduceMinP, x, allAxes(x, axes))
}

func All(x lax.Value, axes []int) (lax.Value, error) {
	return logicalReduce(lax.ReduceAndP, x, axes)
}

func Any(x lax.Value, axes []int) (lax.Value, error) {
	return logicalReduce(lax.ReduceOrP, x, axes)
}

func logicalReduce(p *lax.Primitive, x lax.Value, axes []int) (lax.Value, error) {
	b, err := lax.ConvertElementType(x, dtype.Bool)
	if err != nil {
		return nil, err
	}

	return lax.Reduce(p, b, allAxes(x, axes))
}

func CumSum(x lax.Value, axis int) (lax.Value, error) {
	v, err := accumulatorType(x)
	if err != nil {
		return nil, err
	}

	return lax.Cumulative(lax.CumsumP, v, axis, false)
}

func CumProd(x lax.Value, axis int) (lax.Value, error) {
	v, err := accumulatorType(x)
	if err != nil {
		return nil, err
	}

	return lax.Cumulative(lax.CumprodP, v, axis, false)
}

// Take gathers entries of x along axis. Out-of-range indices clamp.
func Take(x, indices lax.Value, axis int) (lax.Value, error) {
	if !indices.DType().IsInt() {
		return nil, fmt.Errorf("numpy: take: indices must be integers, got %s", indices.DType())
	}

	return lax.Gather(x, indices, axis)
}

// ZerosLike returns zeros with the dtype and shape of x.
func ZerosLike(x lax.Value) (lax.Value, error) {
	return lax.BroadcastInDim(tensor.Scalar(x.DType(), 0), x.Shape(), nil)
}
