// Package lax is the source framework: a registry of primitives, eager
// kernels for each of them, and Bind, which either evaluates a primitive on
// concrete tensors or hands it to the active trace.
package lax

import (
	"fmt"
	"sort"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Primitive identifies one operation. Identity is the pointer; two
// primitives with the same name are distinct.
type Primitive struct {
	name string
}

// NewPrimitive creates a primitive. Registration into dispatch tables is
// separate.
func NewPrimitive(name string) *Primitive {
	return &Primitive{name: name}
}

func (p *Primitive) Name() string { return p.name }

func (p *Primitive) String() string { return p.name }

// SortPrimitives orders ps by name.
func SortPrimitives(ps []*Primitive) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].name < ps[j].name })
}

// Value is either a concrete *tensor.Tensor or a Tracer.
type Value interface {
	DType() dtype.DType
	Shape() []int64
}

// Tracer is a Value that records primitives instead of evaluating them.
type Tracer interface {
	Value
	Trace() Trace
}

// Trace receives primitives bound with at least one of its tracers.
type Trace interface {
	Process(p *Primitive, params Params, args []Value) ([]Value, error)
}

// Func is a traceable function over Values.
type Func func(args ...Value) ([]Value, error)

// Params are static per-application parameters of a primitive.
type Params map[string]any

func (p Params) Int(key string) int64 {
	switch v := p[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	default:
		return 0
	}
}

func (p Params) Ints(key string) []int64 {
	switch v := p[key].(type) {
	case []int64:
		return v
	case []int:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}

		return out
	default:
		return nil
	}
}

// Axes returns key as []int.
func (p Params) Axes(key string) []int {
	ints := p.Ints(key)
	if ints == nil {
		return nil
	}

	out := make([]int, len(ints))
	for i, x := range ints {
		out[i] = int(x)
	}

	return out
}

func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (p Params) Str(key string) string {
	v, _ := p[key].(string)
	return v
}

func (p Params) DType(key string) dtype.DType {
	v, _ := p[key].(dtype.DType)
	return v
}

func (p Params) Func(key string) Func {
	switch v := p[key].(type) {
	case Func:
		return v
	case func(...Value) ([]Value, error):
		return v
	default:
		return nil
	}
}

// Aval is the abstract value of an operand: its dtype and shape.
type Aval struct {
	DType dtype.DType
	Shape []int64
}

func (a Aval) String() string { return fmt.Sprintf("%s%v", a.DType, a.Shape) }

// AvalOf returns the abstract value of v.
func AvalOf(v Value) Aval {
	return Aval{DType: v.DType(), Shape: v.Shape()}
}

// Concrete returns v as a tensor when it is not a tracer.
func Concrete(v Value) (*tensor.Tensor, bool) {
	t, ok := v.(*tensor.Tensor)
	return t, ok
}
