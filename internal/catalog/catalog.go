// Package catalog holds the harness descriptors of every translated
// primitive family and the policy table that says how each one is run on
// each device.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Group names.
const (
	GroupTypePromotion        = "type_promotion"
	GroupConcatenate          = "concatenate"
	GroupUnaryElementwise     = "unary_elementwise"
	GroupBinaryElementwise    = "binary_elementwise"
	GroupAddMul               = "add_mul"
	GroupMinMax               = "min_max"
	GroupBitwiseNot           = "bitwise_not"
	GroupPopulationCount      = "population_count"
	GroupShiftLeft            = "shift_left"
	GroupShiftRightLogical    = "shift_right_logical"
	GroupShiftRightArithmetic = "shift_right_arithmetic"
	GroupBetainc              = "betainc"
	GroupSlice                = "slice"
	GroupDynamicSlice         = "dynamic_slice"
	GroupDynamicUpdateSlice   = "dynamic_update_slice"
	GroupPad                  = "pad"
	GroupSort                 = "sort"
	GroupTopK                 = "top_k"
	GroupTake                 = "take"
	GroupReduce               = "reduce"
	GroupCumulative           = "cumulative"
	GroupSVD                  = "svd"
	GroupQR                   = "qr"
	GroupNextafter            = "nextafter"
	GroupStopGradient         = "stop_gradient"
	GroupClamp                = "clamp"
	GroupConvertElementType   = "convert_element_type"
	GroupMatmul               = "matmul"
	GroupSelectN              = "select_n"
	GroupReduceWindow         = "reduce_window"
	GroupSelectAndGatherAdd   = "select_and_gather_add"
	GroupScatter              = "scatter"
	GroupRandomSplit          = "random_split"
)

var (
	floats  = dtype.Floats
	ints    = dtype.Ints
	numeric = append(append([]dtype.DType{}, ints...), floats...)
	all     = append([]dtype.DType{dtype.Bool}, numeric...)
)

var (
	once        sync.Once
	descriptors []*harness.Harness
)

// All returns every descriptor, ordered by group. The
// slice is shared; callers must not modify it.
func All() []*harness.Harness {
	once.Do(func() {
		for _, build := range []func() []*harness.Harness{
			typePromotion, unaryElementwise, bitwiseNot, populationCount,
			binaryElementwise, addMul, minMax, shifts, betainc, nextafter, clamp,
			concatenate, slice, dynamicSlice, dynamicUpdateSlice, pad, take,
			stopGradient, convertElementType, selectN,
			reduce, cumulative, sortCases, topK,
			svd, qr, matmul,
			reduceWindow, selectAndGatherAdd, scatter, randomSplit,
		} {
			descriptors = append(descriptors, build()...)
		}

		sort.SliceStable(descriptors, func(i, j int) bool {
			return descriptors[i].Group() < descriptors[j].Group()
		})
	})

	return descriptors
}

// Group returns the descriptors of one group.
func Group(name string) []*harness.Harness {
	var out []*harness.Harness

	for _, h := range All() {
		if h.Group() == name {
			out = append(out, h)
		}
	}

	return out
}

// caseName joins name parts with '_', rendering shapes as 3x4 and dtypes by
// name.
func caseName(parts ...any) string {
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		switch v := p.(type) {
		case []int64:
			out = append(out, shapeName(v))
		case dtype.DType:
			out = append(out, v.String())
		default:
			out = append(out, fmt.Sprint(v))
		}
	}

	return strings.Join(out, "_")
}

func shapeName(shape []int64) string {
	if len(shape) == 0 {
		return "scalar"
	}

	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}

	return strings.Join(dims, "x")
}

func shape(dims ...int64) []int64 { return dims }

// argSpec describes one randomly drawn argument.
type argSpec struct {
	dt      dtype.DType
	shape   []int64
	uniform bool
	lo, hi  float64
}

func rnd(dt dtype.DType, shape []int64) argSpec { return argSpec{dt: dt, shape: shape} }

func uniform(dt dtype.DType, shape []int64, lo, hi float64) argSpec {
	return argSpec{dt: dt, shape: shape, uniform: true, lo: lo, hi: hi}
}

// randArgs draws specs in order.
func randArgs(specs ...argSpec) harness.ArgsMaker {
	return func(r *harness.RNG) ([]*tensor.Tensor, error) {
		out := make([]*tensor.Tensor, len(specs))

		for i, s := range specs {
			var (
				t   *tensor.Tensor
				err error
			)

			if s.uniform {
				t, err = r.Uniform(s.dt, s.shape, s.lo, s.hi)
			} else {
				t, err = r.Default(s.dt, s.shape)
			}

			if err != nil {
				return nil, fmt.Errorf("catalog: argument %d: %w", i, err)
			}

			out[i] = t
		}

		return out, nil
	}
}

// fixedArgs returns the same tensors on every call and draws nothing.
func fixedArgs(ts ...*tensor.Tensor) harness.ArgsMaker {
	return func(*harness.RNG) ([]*tensor.Tensor, error) { return ts, nil }
}

func fn1(f func(x lax.Value) (lax.Value, error)) lax.Func {
	return func(args ...lax.Value) ([]lax.Value, error) {
		y, err := f(args[0])
		if err != nil {
			return nil, err
		}

		return []lax.Value{y}, nil
	}
}

func fn2(f func(x, y lax.Value) (lax.Value, error)) lax.Func {
	return func(args ...lax.Value) ([]lax.Value, error) {
		z, err := f(args[0], args[1])
		if err != nil {
			return nil, err
		}

		return []lax.Value{z}, nil
	}
}

func unaryOf(p *lax.Primitive) lax.Func {
	return fn1(func(x lax.Value) (lax.Value, error) { return lax.Unary(p, x) })
}

func binaryOf(p *lax.Primitive) lax.Func {
	return fn2(func(x, y lax.Value) (lax.Value, error) { return lax.Binary(p, x, y) })
}

func int32s(vals ...int64) []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(vals))
	for i, v := range vals {
		out[i] = tensor.Scalar(dtype.Int32, float64(v))
	}

	return out
}
