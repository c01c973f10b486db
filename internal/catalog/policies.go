package catalog

import (
	"slices"

	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
)

const noKernel = "no registered"

var (
	halfFloats = []dtype.DType{dtype.Float16, dtype.BFloat16}

	// Unary functions without a bfloat16 kernel on cpu and gpu.
	bf16Gaps = []string{"acosh", "asinh", "atanh", "digamma", "erf", "erfc", "erf_inv", "lgamma", "round", "rsqrt"}
	// Unary functions without a float16 kernel anywhere.
	f16Gaps = []string{"acosh", "asinh", "atanh", "erf_inv"}

	minMaxGaps = []dtype.DType{dtype.Bool, dtype.Int8, dtype.Uint16, dtype.Uint32, dtype.Uint64}

	// Operand dtypes the windowed reductions have a kernel for.
	windowDTypes = map[string][]dtype.DType{
		"max": {dtype.BFloat16, dtype.Float16, dtype.Float32, dtype.Float64, dtype.Uint8, dtype.Int16, dtype.Int32, dtype.Int64},
		"min": {dtype.BFloat16, dtype.Float16, dtype.Float32, dtype.Float64, dtype.Uint8, dtype.Int16, dtype.Int32, dtype.Int64},
		"add": {dtype.BFloat16, dtype.Float16, dtype.Float32, dtype.Float64, dtype.Uint8, dtype.Int8, dtype.Int16, dtype.Int32, dtype.Int64},
		"mul": {
			dtype.BFloat16, dtype.Float16, dtype.Float32, dtype.Float64,
			dtype.Uint8, dtype.Int8, dtype.Uint16, dtype.Int16, dtype.Int32, dtype.Int64,
		},
	}
)

// Policies returns the policy table of the catalog.
func Policies() harness.PolicyTable {
	return harness.PolicyTable{
		GroupUnaryElementwise:     unaryPolicy,
		GroupBinaryElementwise:    binaryPolicy,
		GroupAddMul:               addMulPolicy,
		GroupMinMax:               minMaxPolicy,
		GroupPopulationCount:      populationCountPolicy,
		GroupShiftRightLogical:    shiftPolicy(dtype.Int8, dtype.Int16),
		GroupShiftRightArithmetic: shiftPolicy(dtype.Uint8, dtype.Uint16),
		GroupBetainc:              betaincPolicy,
		GroupNextafter:            nextafterPolicy,
		GroupSlice:                slicePolicy,
		GroupDynamicSlice:         dynamicSlicePolicy,
		GroupDynamicUpdateSlice:   dynamicUpdateSlicePolicy,
		GroupPad:                  padPolicy,
		GroupSort:                 sortPolicy,
		GroupTopK:                 topKPolicy,
		GroupReduce:               notImplementedPolicy("argmax"),
		GroupCumulative:           notImplementedPolicy("cummax"),
		GroupSVD:                  svdPolicy,
		GroupQR:                   qrPolicy,
		GroupReduceWindow:         reduceWindowPolicy,
		GroupSelectAndGatherAdd:   selectAndGatherAddPolicy,
		GroupScatter:              scatterPolicy,
	}
}

func cpuOrGPU(device string) bool { return device == "cpu" || device == "gpu" }

func unaryPolicy(h *harness.Harness, device string) harness.Policy {
	p := h.Params()
	name, dt := p.Str("lax_name"), p.DType("dtype")

	var atol float64
	if device == "gpu" {
		atol = 1e-3
	}

	switch {
	case dt == dtype.BFloat16 && cpuOrGPU(device) && slices.Contains(bf16Gaps, name):
		return harness.ExpectTargetError{Pattern: noKernel}
	case dt == dtype.Float16 && slices.Contains(f16Gaps, name):
		return harness.ExpectTargetError{Pattern: noKernel}
	case name == "digamma" && dt != dtype.BFloat16:
		// bfloat16 poles are NaN on both sides.
		return harness.Proceed{Atol: atol, Comparator: harness.DigammaPoles}
	case name == "erf_inv" && (dt == dtype.Float32 || dt == dtype.Float64):
		return harness.Proceed{Atol: atol, Comparator: harness.ErfInvOutOfDomain}
	case atol != 0:
		return harness.Proceed{Atol: atol}
	}

	return nil
}

func binaryPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	name, dt := p.Str("lax_name"), p.DType("dtype")

	if name != "igamma" && name != "igammac" {
		return nil
	}

	if slices.Contains(halfFloats, dt) {
		return harness.ExpectTargetError{Pattern: noKernel}
	}

	if name == "igamma" {
		return harness.Proceed{Comparator: harness.IgammaOrigin}
	}

	return harness.Proceed{Comparator: harness.IgammacNonPositive}
}

func addMulPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()

	switch dt := p.DType("dtype"); {
	case dt == dtype.Uint32 || dt == dtype.Uint64:
		return harness.ExpectTargetError{Pattern: noKernel}
	case dt == dtype.Uint16 && p.Str("f_name") == "add":
		return harness.ExpectTargetError{Pattern: noKernel}
	}

	return nil
}

func minMaxPolicy(h *harness.Harness, _ string) harness.Policy {
	if slices.Contains(minMaxGaps, h.Params().DType("dtype")) {
		return harness.ExpectTargetError{Pattern: noKernel}
	}

	return nil
}

func populationCountPolicy(*harness.Harness, string) harness.Policy {
	return harness.ExpectTargetError{Pattern: "'PopulationCount'"}
}

// shiftPolicy skips narrow dtypes on tpu, where the shift count is taken
// modulo the promoted 32-bit width.
func shiftPolicy(narrow ...dtype.DType) harness.Rule {
	return func(h *harness.Harness, device string) harness.Policy {
		if device == "tpu" && slices.Contains(narrow, h.Params().DType("dtype")) {
			return harness.Skip{Reason: "tpu shifts narrow integers at 32-bit width"}
		}

		return nil
	}
}

func betaincPolicy(h *harness.Harness, _ string) harness.Policy {
	if slices.Contains(halfFloats, h.Params().DType("dtype")) {
		return harness.ExpectTargetError{Pattern: noKernel}
	}

	return nil
}

func nextafterPolicy(h *harness.Harness, _ string) harness.Policy {
	if slices.Contains(halfFloats, h.Params().DType("dtype")) {
		return harness.ExpectSourceError{Kind: lax.ErrUnimplemented}
	}

	return harness.ExpectTargetError{Pattern: "'Nextafter'"}
}

func slicePolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	shape, start, limit, strides := p.Ints("shape"), p.Ints("start_indices"), p.Ints("limit_indices"), p.Ints("strides")

	for d := range shape {
		if start[d] < 0 || start[d] >= shape[d] || limit[d] > shape[d] || limit[d] < start[d] || (strides != nil && strides[d] <= 0) {
			return harness.ExpectSourceError{Kind: lax.ErrShape}
		}
	}

	return nil
}

// The source clamps start indices into range; the target kernel rejects
// windows that leave the operand.
func dynamicSlicePolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	shape, start, sizes := p.Ints("shape"), p.Ints("start_indices"), p.Ints("slice_sizes")

	for d := range shape {
		if sizes[d] > shape[d] {
			return harness.ExpectSourceError{Kind: lax.ErrShape, Pattern: "slice_sizes must be less than or equal to operand shape"}
		}
	}

	for d := range shape {
		if start[d] < 0 || start[d]+sizes[d] > shape[d] {
			return harness.ExpectTargetError{Pattern: "out of bounds"}
		}
	}

	return nil
}

func dynamicUpdateSlicePolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	shape, update := p.Ints("shape"), p.Ints("update_shape")

	for d := range shape {
		if update[d] > shape[d] {
			return harness.ExpectSourceError{Kind: lax.ErrShape, Pattern: "update shape must be smaller than operand shape"}
		}
	}

	return nil
}

func padPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()

	for _, v := range append(p.Ints("lo"), p.Ints("hi")...) {
		if v < 0 {
			return harness.ExpectTargetError{Pattern: "negative padding"}
		}
	}

	return nil
}

func sortPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	rank := int64(len(p.Ints("shape")))
	dim := p.Int("dimension")
	operands := p.Int("num_operands")

	switch {
	case p.Bool("is_stable"):
		return harness.ExpectTargetError{Pattern: "stable sort"}
	case dim != rank-1 && dim != -1:
		return harness.ExpectTargetError{Pattern: "last axis"}
	case operands > 2:
		return harness.ExpectTargetError{Pattern: "at most two operands"}
	case operands == 2 && p.DType("dtype") == dtype.Bool:
		return harness.ExpectTargetError{Pattern: "bool keys"}
	}

	return nil
}

func topKPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	shape, k := p.Ints("shape"), p.Int("k")

	if k < 0 || k > shape[len(shape)-1] {
		return harness.ExpectSourceError{Kind: lax.ErrValue, Pattern: "k argument to top_k"}
	}

	return nil
}

func reduceWindowPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	if !slices.Contains(windowDTypes[p.Str("computation")], p.DType("dtype")) {
		return harness.ExpectTargetError{Pattern: noKernel}
	}

	return nil
}

// selectAndGatherAddPolicy expects a missing kernel when the operand and
// tangent do not fit one device word together.
func selectAndGatherAddPolicy(h *harness.Harness, device string) harness.Policy {
	maxBits := 64
	if device == "tpu" {
		maxBits = 32
	}

	if 2*h.Params().DType("dtype").Bits() > maxBits {
		return harness.ExpectTargetError{Pattern: noKernel}
	}

	return nil
}

func scatterPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	dt := p.DType("dtype")

	switch f := p.Str("f_name"); {
	case (f == "scatter_min" || f == "scatter_max") && slices.Contains(minMaxGaps, dt):
		return harness.ExpectTargetError{Pattern: noKernel}
	case f == "scatter_add" && (dt == dtype.Uint16 || dt == dtype.Uint32 || dt == dtype.Uint64):
		return harness.ExpectTargetError{Pattern: noKernel}
	case f == "scatter_mul" && (dt == dtype.Uint32 || dt == dtype.Uint64):
		return harness.ExpectTargetError{Pattern: noKernel}
	}

	return nil
}

// notImplementedPolicy expects the converter to refuse primitives that are
// marked as not yet translated.
func notImplementedPolicy(names ...string) harness.Rule {
	return func(h *harness.Harness, _ string) harness.Policy {
		if slices.Contains(names, h.Params().Str("lax_name")) {
			return harness.ExpectTargetError{Pattern: "translation not implemented"}
		}

		return nil
	}
}

func svdPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	if slices.Contains(halfFloats, p.DType("dtype")) {
		return harness.ExpectSourceError{Kind: lax.ErrUnimplemented, Pattern: "Unsupported dtype"}
	}

	return harness.Proceed{
		Atol:         1e-4,
		Rtol:         1e-4,
		Comparator:   harness.SVDReconstruction(p.Bool("compute_uv"), p.Bool("full_matrices")),
		AlwaysCustom: true,
	}
}

func qrPolicy(h *harness.Harness, _ string) harness.Policy {
	p := h.Params()
	shape := p.Ints("shape")
	m, n := shape[len(shape)-2], shape[len(shape)-1]

	switch {
	case slices.Contains(halfFloats, p.DType("dtype")):
		return harness.ExpectSourceError{Kind: lax.ErrUnimplemented, Pattern: "Unsupported dtype"}
	case m < n:
		return harness.ExpectSourceError{Kind: lax.ErrUnimplemented, Pattern: "more columns than rows"}
	}

	return nil
}
