package tensor

import (
	"errors"
	"fmt"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// Map applies fn to every element and returns a tensor of type out.
func (t *Tensor) Map(out dtype.DType, fn func(float64) float64) *Tensor {
	data := make([]float64, len(t.data))

	parallelFor(len(data), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			data[i] = fn(t.data[i])
		}
	})

	return newOwned(out, data, append([]int64{}, t.shape...))
}

// Binary applies fn element-wise with NumPy-style broadcasting.
func Binary(a, b *Tensor, out dtype.DType, fn func(x, y float64) float64, opName string) (*Tensor, error) {
	return Elementwise(out, func(xs []float64) float64 { return fn(xs[0], xs[1]) }, opName, a, b)
}

// Elementwise applies fn to aligned elements of operands with NumPy-style
// broadcasting. fn receives one value per operand and must not retain xs.
func Elementwise(out dtype.DType, fn func(xs []float64) float64, opName string, operands ...*Tensor) (*Tensor, error) {
	plan, err := planBroadcast(opName, operands)
	if err != nil {
		return nil, err
	}

	data := make([]float64, plan.total)

	parallelFor(plan.total, func(lo, hi int) {
		coord := make([]int64, len(plan.shape))
		offs := make([]int64, len(operands))
		xs := make([]float64, len(operands))

		for i := lo; i < hi; i++ {
			plan.offsets(i, coord, offs)

			for k, op := range operands {
				xs[k] = op.data[offs[k]]
			}

			data[i] = fn(xs)
		}
	})

	return newOwned(out, data, plan.shape), nil
}

type broadcastPlan struct {
	shape      []int64
	strides    []int64
	total      int
	padShapes  [][]int64
	padStrides [][]int64
}

func planBroadcast(opName string, operands []*Tensor) (*broadcastPlan, error) {
	if len(operands) == 0 {
		return nil, fmt.Errorf("tensor: %s requires operands", opName)
	}

	var outShape []int64

	for i, op := range operands {
		if op == nil {
			return nil, fmt.Errorf("tensor: %s operand %d is nil", opName, i)
		}

		if i == 0 {
			outShape = append([]int64{}, op.shape...)
			continue
		}

		s, err := broadcastShape(outShape, op.shape)
		if err != nil {
			return nil, fmt.Errorf("tensor: broadcast %s: %w", opName, err)
		}

		outShape = s
	}

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	plan := &broadcastPlan{
		shape:      outShape,
		strides:    computeStrides(outShape),
		total:      total,
		padShapes:  make([][]int64, len(operands)),
		padStrides: make([][]int64, len(operands)),
	}

	for i, op := range operands {
		plan.padShapes[i] = leftPadShape(op.shape, len(outShape))
		plan.padStrides[i] = computeStrides(plan.padShapes[i])
	}

	return plan, nil
}

// offsets fills offs with every operand's flat index feeding output element i.
func (p *broadcastPlan) offsets(i int, coord, offs []int64) {
	linearToCoord(int64(i), p.shape, p.strides, coord)

	for k := range offs {
		offs[k] = broadcastOffset(coord, p.padShapes[k], p.padStrides[k])
	}
}

func broadcastOffset(coord, padShape, padStrides []int64) int64 {
	var off int64

	for d := range coord {
		c := coord[d]
		if padShape[d] == 1 {
			c = 0
		}

		off += c * padStrides[d]
	}

	return off
}

// BroadcastShape returns the NumPy broadcast of shapes a and b.
func BroadcastShape(a, b []int64) ([]int64, error) {
	return broadcastShape(a, b)
}

func broadcastShape(a, b []int64) ([]int64, error) {
	outRank := max(len(a), len(b))

	out := make([]int64, outRank)
	for i := range outRank {
		ad := int64(1)
		if j := i - (outRank - len(a)); j >= 0 {
			ad = a[j]
		}

		bd := int64(1)
		if j := i - (outRank - len(b)); j >= 0 {
			bd = b[j]
		}

		switch {
		case ad == bd || ad == 1:
			out[i] = bd
		case bd == 1:
			out[i] = ad
		default:
			return nil, fmt.Errorf("cannot broadcast shapes %v and %v", a, b)
		}
	}

	return out, nil
}

func leftPadShape(shape []int64, rank int) []int64 {
	if len(shape) == rank {
		return append([]int64(nil), shape...)
	}

	out := make([]int64, rank)

	pad := rank - len(shape)
	for i := range pad {
		out[i] = 1
	}

	copy(out[pad:], shape)

	return out
}

// BroadcastInDim broadcasts t to shape, mapping operand dimension i to output
// dimension dims[i]. Operand dimensions must equal the target size or be 1.
func (t *Tensor) BroadcastInDim(shape []int64, dims []int) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: broadcast_in_dim on nil tensor")
	}

	if len(dims) != len(t.shape) {
		return nil, fmt.Errorf("tensor: broadcast_in_dim: %d dims for operand of rank %d", len(dims), len(t.shape))
	}

	for i, d := range dims {
		if d < 0 || d >= len(shape) {
			return nil, fmt.Errorf("tensor: broadcast_in_dim: dim %d out of range for shape %v", d, shape)
		}

		if i > 0 && d <= dims[i-1] {
			return nil, fmt.Errorf("tensor: broadcast_in_dim: dims %v must be strictly increasing", dims)
		}

		if t.shape[i] != 1 && t.shape[i] != shape[d] {
			return nil, fmt.Errorf("tensor: broadcast_in_dim: operand shape %v incompatible with %v at dim %d", t.shape, shape, d)
		}
	}

	total, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	srcStrides := computeStrides(t.shape)
	outStrides := computeStrides(shape)
	coord := make([]int64, len(shape))
	data := make([]float64, total)
	bits := t.lane(total)

	for i := range data {
		linearToCoord(int64(i), shape, outStrides, coord)

		var off int64

		for k, d := range dims {
			if t.shape[k] != 1 {
				off += coord[d] * srcStrides[k]
			}
		}

		data[i] = t.data[off]
		if bits != nil {
			bits[i] = t.bits[off]
		}
	}

	return &Tensor{dtype: t.dtype, shape: append([]int64{}, shape...), data: data, bits: bits}, nil
}

// BroadcastTo broadcasts t to shape using NumPy trailing-dimension alignment.
func (t *Tensor) BroadcastTo(shape []int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: broadcast_to on nil tensor")
	}

	if len(shape) < len(t.shape) {
		return nil, fmt.Errorf("tensor: cannot broadcast %v to lower rank %v", t.shape, shape)
	}

	pad := len(shape) - len(t.shape)
	dims := make([]int, len(t.shape))

	for i := range dims {
		dims[i] = pad + i
	}

	return t.BroadcastInDim(shape, dims)
}
