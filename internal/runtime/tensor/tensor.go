// Package tensor implements the dense, row-major tensor shared by the source
// runtime and the target graph evaluator.
//
// Values are stored as float64 and rounded to the tensor's dtype on every
// construction, so a Float32 tensor only ever holds float32-representable
// values and an Int8 tensor wraps around like int8 arithmetic does. Int64
// and Uint64 tensors also keep the exact two's-complement bit pattern of
// every element, so values beyond 2^53 survive.
package tensor

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// Tensor is an immutable dense tensor with an element type.
type Tensor struct {
	dtype dtype.DType
	shape []int64
	data  []float64
	// bits is non-nil exactly when dtype is Wide, and data is its float view.
	bits []uint64
}

// New creates a tensor from data and shape. Values are copied and rounded to dt.
func New(dt dtype.DType, data []float64, shape []int64) (*Tensor, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("tensor: invalid dtype %s", dt)
	}

	total, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	if len(data) != total {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)", len(data), shape, total)
	}

	return newOwned(dt, append([]float64(nil), data...), append([]int64(nil), shape...)), nil
}

// MustNew is New that panics on error. Intended for literals in tests and catalogs.
func MustNew(dt dtype.DType, data []float64, shape ...int64) *Tensor {
	if shape == nil {
		shape = []int64{int64(len(data))}
	}

	t, err := New(dt, data, shape)
	if err != nil {
		panic(err)
	}

	return t
}

// FromBits creates an integer or bool tensor from two's-complement bit
// patterns. Only the low dt.Bits() bits of each value are used.
func FromBits(dt dtype.DType, bits []uint64, shape []int64) (*Tensor, error) {
	if !dt.IsInt() && dt != dtype.Bool {
		return nil, fmt.Errorf("tensor: from bits needs an integer dtype, got %s", dt)
	}

	total, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	if len(bits) != total {
		return nil, fmt.Errorf("tensor: bits length %d does not match shape %v (%d elements)", len(bits), shape, total)
	}

	return newOwnedBits(dt, append([]uint64(nil), bits...), append([]int64(nil), shape...)), nil
}

// FromInt64s creates an Int64 tensor holding vals exactly.
func FromInt64s(vals []int64, shape []int64) (*Tensor, error) {
	bits := make([]uint64, len(vals))
	for i, v := range vals {
		bits[i] = uint64(v)
	}

	return FromBits(dtype.Int64, bits, shape)
}

// newOwned takes ownership of data and shape and rounds data in place.
// len(data) must equal the product of shape.
func newOwned(dt dtype.DType, data []float64, shape []int64) *Tensor {
	if shape == nil {
		shape = []int64{}
	}

	if dt.Wide() {
		bits := make([]uint64, len(data))
		for i, v := range data {
			bits[i] = dtype.BitsFromFloat(dt, v)
			data[i] = dtype.FloatFromBits(dt, bits[i])
		}

		return &Tensor{dtype: dt, shape: shape, data: data, bits: bits}
	}

	if dt != dtype.Float64 {
		for i, v := range data {
			data[i] = dtype.Round(dt, v)
		}
	}

	return &Tensor{dtype: dt, shape: shape, data: data}
}

// newOwnedBits takes ownership of bits and shape and derives the float view.
func newOwnedBits(dt dtype.DType, bits []uint64, shape []int64) *Tensor {
	if shape == nil {
		shape = []int64{}
	}

	data := make([]float64, len(bits))
	for i, b := range bits {
		data[i] = dtype.FloatFromBits(dt, b)
	}

	if !dt.Wide() {
		bits = nil
	}

	return &Tensor{dtype: dt, shape: shape, data: data, bits: bits}
}

// Zeros creates a zero-initialized tensor.
func Zeros(dt dtype.DType, shape []int64) (*Tensor, error) {
	return Full(dt, shape, 0)
}

// Full creates a tensor filled with value.
func Full(dt dtype.DType, shape []int64, value float64) (*Tensor, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("tensor: invalid dtype %s", dt)
	}

	total, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	data := make([]float64, total)
	for i := range data {
		data[i] = value
	}

	return newOwned(dt, data, append([]int64{}, shape...)), nil
}

// Scalar returns a rank-0 tensor.
func Scalar(dt dtype.DType, v float64) *Tensor {
	return newOwned(dt, []float64{v}, []int64{})
}

// Iota returns a tensor whose values count up along dim.
func Iota(dt dtype.DType, shape []int64, dim int) (*Tensor, error) {
	dim, err := NormalizeDim(dim, len(shape))
	if err != nil {
		return nil, fmt.Errorf("tensor: iota: %w", err)
	}

	total, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	strides := computeStrides(shape)
	coord := make([]int64, len(shape))
	data := make([]float64, total)

	for i := range data {
		linearToCoord(int64(i), shape, strides, coord)
		data[i] = float64(coord[dim])
	}

	return newOwned(dt, data, append([]int64{}, shape...)), nil
}

func (t *Tensor) DType() dtype.DType {
	if t == nil {
		return dtype.Invalid
	}

	return t.dtype
}

func (t *Tensor) Shape() []int64 {
	if t == nil {
		return nil
	}

	return append([]int64{}, t.shape...)
}

// Data returns a copy of the values.
func (t *Tensor) Data() []float64 {
	if t == nil {
		return nil
	}

	return append([]float64(nil), t.data...)
}

// RawData returns the underlying data slice.
// Callers must treat it as read-only.
func (t *Tensor) RawData() []float64 {
	if t == nil {
		return nil
	}

	return t.data
}

// Bits returns a copy of the two's-complement bit patterns of an integer or
// bool tensor, nil for floating tensors. Int64 and Uint64 patterns are exact.
func (t *Tensor) Bits() []uint64 {
	if t == nil || (!t.dtype.IsInt() && t.dtype != dtype.Bool) {
		return nil
	}

	if t.bits != nil {
		return append([]uint64(nil), t.bits...)
	}

	out := make([]uint64, len(t.data))
	for i, v := range t.data {
		out[i] = dtype.BitsFromFloat(t.dtype, v)
	}

	return out
}

// Int64s returns the values of an integer tensor as int64. Uint64 values
// above MaxInt64 wrap.
func (t *Tensor) Int64s() []int64 {
	if t == nil || !t.dtype.IsInt() {
		return nil
	}

	out := make([]int64, len(t.data))
	for i := range out {
		out[i] = int64(t.bitAt(i))
	}

	return out
}

// bitAt returns the bit pattern of element i, sign-extended to 64 bits for
// signed types.
func (t *Tensor) bitAt(i int) uint64 {
	if t.bits != nil {
		return t.bits[i]
	}

	v := t.data[i]
	if v < 0 {
		return uint64(int64(v))
	}

	return uint64(v)
}

func (t *Tensor) ElemCount() int {
	if t == nil {
		return 0
	}

	return len(t.data)
}

func (t *Tensor) Rank() int {
	if t == nil {
		return 0
	}

	return len(t.shape)
}

// Item returns the single value of a one-element tensor.
func (t *Tensor) Item() (float64, error) {
	if t == nil || len(t.data) != 1 {
		return 0, fmt.Errorf("tensor: item requires exactly one element, got %d", t.ElemCount())
	}

	return t.data[0], nil
}

// At returns the value at the given coordinate.
func (t *Tensor) At(coord ...int64) (float64, error) {
	if t == nil {
		return 0, errors.New("tensor: at on nil tensor")
	}

	if len(coord) != len(t.shape) {
		return 0, fmt.Errorf("tensor: at expects %d indices, got %d", len(t.shape), len(coord))
	}

	for i, c := range coord {
		if c < 0 || c >= t.shape[i] {
			return 0, fmt.Errorf("tensor: index %v out of range for shape %v", coord, t.shape)
		}
	}

	return t.data[coordToLinear(coord, computeStrides(t.shape))], nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}

	return &Tensor{dtype: t.dtype, shape: append([]int64{}, t.shape...), data: append([]float64(nil), t.data...), bits: cloneBits(t.bits)}
}

// Astype converts t to dt. Conversions follow dtype.Round; bool keeps only
// truthiness.
func (t *Tensor) Astype(dt dtype.DType) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: astype on nil tensor")
	}

	if !dt.Valid() {
		return nil, fmt.Errorf("tensor: invalid dtype %s", dt)
	}

	shape := append([]int64{}, t.shape...)

	// Integer to integer conversions keep or truncate the exact bits.
	if t.bits != nil && (dt.IsInt() || dt == dtype.Bool) {
		bits := make([]uint64, len(t.bits))
		for i, b := range t.bits {
			bits[i] = b
			if dt == dtype.Bool && b != 0 {
				bits[i] = 1
			}
		}

		return newOwnedBits(dt, bits, shape), nil
	}

	if t.dtype.IsInt() && dt.Wide() {
		bits := make([]uint64, len(t.data))
		for i := range bits {
			bits[i] = t.bitAt(i)
		}

		return newOwnedBits(dt, bits, shape), nil
	}

	return newOwned(dt, append([]float64(nil), t.data...), shape), nil
}

// Reshape returns a tensor with a new shape holding the same values.
func (t *Tensor) Reshape(shape []int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: reshape on nil tensor")
	}

	total, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	if total != len(t.data) {
		return nil, fmt.Errorf("tensor: cannot reshape %v (%d elements) to %v (%d elements)", t.shape, len(t.data), shape, total)
	}

	return &Tensor{dtype: t.dtype, shape: append([]int64{}, shape...), data: append([]float64(nil), t.data...), bits: cloneBits(t.bits)}, nil
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// Equal reports whether a and b have the same dtype, shape and values.
// NaN equals NaN.
func Equal(a, b *Tensor) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.dtype != b.dtype || !SameShape(a.shape, b.shape) {
		return false
	}

	if a.bits != nil && b.bits != nil {
		return slices.Equal(a.bits, b.bits)
	}

	for i := range a.data {
		x, y := a.data[i], b.data[i]
		if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
			return false
		}
	}

	return true
}

func (t *Tensor) String() string {
	if t == nil {
		return "<nil>"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s%v", t.dtype, t.shape)
	sb.WriteString("[")

	const limit = 16
	for i, v := range t.data {
		if i == limit {
			fmt.Fprintf(&sb, " ...(%d more)", len(t.data)-limit)
			break
		}

		if i > 0 {
			sb.WriteString(" ")
		}

		if t.bits != nil {
			sb.WriteString(formatBits(t.dtype, t.bits[i]))
			continue
		}

		sb.WriteString(formatValue(t.dtype, v))
	}

	sb.WriteString("]")

	return sb.String()
}

func formatValue(dt dtype.DType, v float64) string {
	switch {
	case dt == dtype.Bool:
		if v != 0 {
			return "true"
		}

		return "false"
	case dt.IsInt():
		return fmt.Sprintf("%d", int64(v))
	default:
		return fmt.Sprintf("%g", v)
	}
}

func formatBits(dt dtype.DType, b uint64) string {
	if dt.IsSigned() {
		return strconv.FormatInt(int64(b), 10)
	}

	return strconv.FormatUint(b, 10)
}

func cloneBits(bits []uint64) []uint64 {
	if bits == nil {
		return nil
	}

	return append([]uint64(nil), bits...)
}
